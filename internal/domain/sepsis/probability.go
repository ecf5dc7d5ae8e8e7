package sepsis

import (
	"fmt"
	"math"

	"github.com/ehr/icurisk/internal/domain/vitals"
)

// Status is the tri-state sepsis classification.
type Status string

const (
	StatusStable   Status = "stable"
	StatusAlert    Status = "alert"
	StatusCritical Status = "critical"
)

// MaxProbability caps every sepsis probability.
const MaxProbability = 95.0

// Result is the output of Score.
type Result struct {
	Probability float64  `json:"probability"`
	Status      Status   `json:"status"`
	RiskFactors []string `json:"risk_factors"`
	SIRSScore   int      `json:"sirs_score"`
}

// StatusFor maps a probability to a status. The boundaries are shared with
// the bed colour mapping.
func StatusFor(p float64) Status {
	switch {
	case p < 30:
		return StatusStable
	case p < 60:
		return StatusAlert
	default:
		return StatusCritical
	}
}

// Score computes a sepsis probability for v. When labs include a white blood
// cell count, the first one is scored by SIRS; v itself is left untouched.
func Score(v vitals.Snapshot, labs []vitals.LabResult) Result {
	sirsInput := v
	if wbc, ok := vitals.FirstLab(labs, vitals.LabWhiteBloodCells); ok {
		sirsInput = v.WithWhiteBloodCells(wbc.TestValue)
	}

	var (
		total   float64
		factors = []string{}
	)
	add := func(points float64, format string, args ...any) {
		total += points
		factors = append(factors, fmt.Sprintf(format, args...))
	}

	sirs := SIRS(sirsInput)
	total += math.Min(float64(sirs*10), 40)
	if sirs >= 2 {
		factors = append(factors, fmt.Sprintf("SIRS criteria met (%d/4 points)", sirs))
	}

	temp := vitals.FormatValue(v.Temperature)
	if v.Temperature > 38.5 {
		add(15, "High fever (%s°C)", temp)
	} else if v.Temperature < 35.5 {
		add(20, "Hypothermia (%s°C)", temp)
	}

	sbp := vitals.FormatValue(v.BloodPressureSystolic)
	if v.BloodPressureSystolic < 90 {
		add(25, "Hypotension (%s mmHg)", sbp)
	} else if v.BloodPressureSystolic < 100 {
		add(10, "Low blood pressure (%s mmHg)", sbp)
	}

	spo2 := vitals.FormatValue(v.OxygenSaturation)
	if v.OxygenSaturation < 90 {
		add(20, "Severe hypoxemia (%s%%)", spo2)
	} else if v.OxygenSaturation < 95 {
		add(10, "Hypoxemia (%s%%)", spo2)
	}

	if v.HeartRate > 120 && v.Temperature > 38.0 {
		add(15, "Tachycardia with fever")
	} else if v.HeartRate > 100 {
		add(5, "Tachycardia (%s bpm)", vitals.FormatValue(v.HeartRate))
	}

	for _, lab := range labs {
		points, factor := scoreLab(lab)
		if factor == "" {
			continue
		}
		total += points
		factors = append(factors, factor)
	}

	p := math.Min(total, MaxProbability)
	return Result{
		Probability: p,
		Status:      StatusFor(p),
		RiskFactors: factors,
		SIRSScore:   sirs,
	}
}

// scoreLab applies the first matching lab rule. An empty factor means the row
// contributed nothing.
func scoreLab(lab vitals.LabResult) (float64, string) {
	v := lab.TestValue
	val := vitals.FormatValue(v)
	switch {
	case lab.TestName == vitals.LabLactate && v > 2.0:
		if v > 4.0 {
			return 20, fmt.Sprintf("Very high lactate (%s mmol/L)", val)
		}
		return 10, fmt.Sprintf("Elevated lactate (%s mmol/L)", val)
	case lab.TestName == vitals.LabProcalcitonin && v > 0.25:
		if v > 2.0 {
			return 25, fmt.Sprintf("Very high procalcitonin (%s ng/mL)", val)
		}
		if v > 0.5 {
			return 15, fmt.Sprintf("High procalcitonin (%s ng/mL)", val)
		}
		return 8, fmt.Sprintf("Elevated procalcitonin (%s ng/mL)", val)
	case lab.TestName == vitals.LabCReactiveProtein && v > 100:
		return 10, fmt.Sprintf("Very high CRP (%s mg/L)", val)
	case lab.TestName == vitals.LabCReactiveProtein && v > 50:
		return 5, fmt.Sprintf("High CRP (%s mg/L)", val)
	case lab.TestName == vitals.LabWhiteBloodCells && (v > 15 || v < 4):
		return 8, fmt.Sprintf("Abnormal WBC (%s x10³/μL)", val)
	}
	return 0, ""
}
