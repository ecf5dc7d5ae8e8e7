package stay

import (
	"fmt"
	"math"
	"strings"

	"github.com/ehr/icurisk/internal/domain/vitals"
)

const (
	// minimumStay is the base ICU stay in days before any adjustment.
	minimumStay = 3

	// unlistedDiagnosisDays is added when no diagnosis rule matches.
	unlistedDiagnosisDays = 5

	maxSeverityMultiplier = 3.0
	maxLabMultiplier      = 1.0

	// ForecastDays is the number of days covered by discharge probabilities.
	ForecastDays = 7
)

// diagnosisRule adds days when its condition appears in the diagnosis text.
type diagnosisRule struct {
	condition string
	days      int
}

// diagnosisRules are checked in order; the first match wins.
var diagnosisRules = []diagnosisRule{
	{"septic shock", 12},
	{"multi-organ failure", 15},
	{"cardiac arrest", 10},
	{"respiratory failure", 8},
	{"pneumonia", 6},
	{"stroke", 7},
	{"kidney failure", 9},
	{"post-surgical", 4},
	{"diabetic ketoacidosis", 5},
}

// highRiskDiagnoses are each reported as a risk factor when present.
var highRiskDiagnoses = []string{"septic shock", "multi-organ failure", "cardiac arrest"}

// Prediction is the length-of-stay forecast for a patient.
type Prediction struct {
	PredictedTotalLOS      int                `json:"predicted_total_los"`
	RemainingDays          int                `json:"remaining_days"`
	CurrentDay             int                `json:"current_day"`
	BaseScore              int                `json:"base_score"`
	SeverityMultiplier     float64            `json:"severity_multiplier"`
	Confidence             float64            `json:"confidence"`
	DischargeProbabilities map[string]float64 `json:"discharge_probabilities"`
	RiskFactors            []string           `json:"risk_factors"`
}

// BaseScore returns the expected stay in days from age and diagnosis alone.
func BaseScore(p vitals.Demographics) int {
	score := minimumStay
	switch {
	case p.Age > 80:
		score += 4
	case p.Age > 65:
		score += 2
	case p.Age > 50:
		score++
	}

	diagnosis := strings.ToLower(p.Diagnosis)
	for _, r := range diagnosisRules {
		if strings.Contains(diagnosis, r.condition) {
			return score + r.days
		}
	}
	return score + unlistedDiagnosisDays
}

// SeverityMultiplier scales the base stay by current physiological
// derangement. The result lies in [1.0, 3.0].
func SeverityMultiplier(v vitals.Snapshot, labs []vitals.LabResult) float64 {
	m := 1.0

	if v.Temperature > 39.0 || v.Temperature < 35.0 {
		m += 0.3
	} else if v.Temperature > 38.5 || v.Temperature < 36.0 {
		m += 0.15
	}

	switch sbp := v.BloodPressureSystolic; {
	case sbp < 90:
		m += 0.4
	case sbp < 100:
		m += 0.2
	case sbp > 180:
		m += 0.15
	}

	if v.OxygenSaturation < 90 {
		m += 0.5
	} else if v.OxygenSaturation < 95 {
		m += 0.25
	}

	if v.HeartRate > 120 || v.HeartRate < 50 {
		m += 0.2
	} else if v.HeartRate > 100 || v.HeartRate < 60 {
		m += 0.1
	}

	if len(labs) > 0 {
		m += labMultiplier(labs)
	}
	return math.Min(m, maxSeverityMultiplier)
}

func labMultiplier(labs []vitals.LabResult) float64 {
	total := 0.0
	for _, lab := range labs {
		v := lab.TestValue
		switch {
		case lab.TestName == vitals.LabLactate && v > 4.0:
			total += 0.4
		case lab.TestName == vitals.LabLactate && v > 2.0:
			total += 0.2
		case lab.TestName == vitals.LabCreatinine && v > 3.0:
			total += 0.3
		case lab.TestName == vitals.LabCreatinine && v > 1.5:
			total += 0.15
		case lab.TestName == vitals.LabTotalBilirubin && v > 3.0:
			total += 0.25
		case lab.TestName == vitals.LabPH && (v < 7.25 || v > 7.55):
			total += 0.3
		case lab.TestName == vitals.LabHemoglobin && v < 8.0:
			total += 0.2
		}
	}
	return math.Min(total, maxLabMultiplier)
}

// PredictLengthOfStay forecasts total and remaining ICU days. currentDay is
// the number of days already spent in the unit.
func PredictLengthOfStay(p vitals.Demographics, v vitals.Snapshot, labs []vitals.LabResult, currentDay int) Prediction {
	base := BaseScore(p)
	mult := SeverityMultiplier(v, labs)
	predicted := int(float64(base) * mult)

	confidence := 0.65
	if len(labs) > 0 {
		confidence += 0.15
	}
	if currentDay > 2 {
		confidence += 0.1
	}

	return Prediction{
		PredictedTotalLOS:      predicted,
		RemainingDays:          max(0, predicted-currentDay),
		CurrentDay:             currentDay,
		BaseScore:              base,
		SeverityMultiplier:     mult,
		Confidence:             math.Min(confidence, 0.9),
		DischargeProbabilities: DischargeProbabilities(predicted, currentDay),
		RiskFactors:            RiskFactors(p, v, labs),
	}
}

// DischargeProbabilities gives the chance of discharge on each of the next
// ForecastDays days, keyed "day_N".
func DischargeProbabilities(predicted, currentDay int) map[string]float64 {
	out := make(map[string]float64, ForecastDays)
	for day := currentDay + 1; day <= currentDay+ForecastDays; day++ {
		var p float64
		switch {
		case day <= predicted-2:
			p = 0.05
		case day == predicted-1:
			p = 0.20
		case day == predicted:
			p = 0.50
		case day == predicted+1:
			p = 0.30
		case day == predicted+2:
			p = 0.15
		default:
			p = math.Max(0.05, 0.15-float64(day-predicted)*0.02)
		}
		out[fmt.Sprintf("day_%d", day)] = p
	}
	return out
}

// RiskFactors lists what may prolong the stay: age, diagnosis, vitals, labs.
func RiskFactors(p vitals.Demographics, v vitals.Snapshot, labs []vitals.LabResult) []string {
	factors := []string{}

	if p.Age > 75 {
		factors = append(factors, fmt.Sprintf("Advanced age (%d years)", p.Age))
	}

	diagnosis := strings.ToLower(p.Diagnosis)
	for _, condition := range highRiskDiagnoses {
		if strings.Contains(diagnosis, condition) {
			factors = append(factors, "High-risk diagnosis: "+condition)
		}
	}

	if v.Temperature > 39.0 {
		factors = append(factors, fmt.Sprintf("High fever (%s°C)", vitals.FormatValue(v.Temperature)))
	} else if v.Temperature < 35.0 {
		factors = append(factors, fmt.Sprintf("Hypothermia (%s°C)", vitals.FormatValue(v.Temperature)))
	}
	if v.BloodPressureSystolic < 90 {
		factors = append(factors, fmt.Sprintf("Hypotension (%s mmHg)", vitals.FormatValue(v.BloodPressureSystolic)))
	}
	if v.OxygenSaturation < 90 {
		factors = append(factors, fmt.Sprintf("Severe hypoxemia (%s%%)", vitals.FormatValue(v.OxygenSaturation)))
	}

	for _, lab := range labs {
		switch {
		case lab.TestName == vitals.LabLactate && lab.TestValue > 4.0:
			factors = append(factors, "Severe lactic acidosis")
		case lab.TestName == vitals.LabCreatinine && lab.TestValue > 3.0:
			factors = append(factors, "Severe kidney dysfunction")
		case lab.TestName == vitals.LabPH && lab.TestValue < 7.25:
			factors = append(factors, "Severe acidosis")
		}
	}
	return factors
}
