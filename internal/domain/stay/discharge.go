package stay

import "github.com/ehr/icurisk/internal/domain/vitals"

// Readiness labels, from most to least ready.
const (
	ReadinessHigh     = "High – Consider discharge planning"
	ReadinessModerate = "Moderate – Monitor closely"
	ReadinessLow      = "Low – Requires continued intensive care"
	ReadinessVeryLow  = "Very Low – Critical condition"
)

const (
	neutralReadiness = 50
	maxLabReadiness  = 20
)

// Readiness is the discharge readiness score, 0 to 100.
type Readiness struct {
	DischargeScore  int             `json:"discharge_score"`
	ReadinessLevel  string          `json:"readiness_level"`
	ScoreComponents ScoreComponents `json:"score_components"`
}

// ScoreComponents is an approximate split of the score for display. It is not
// an accounting of the individual contributions.
type ScoreComponents struct {
	VitalSigns int `json:"vital_signs"`
	LabResults int `json:"lab_results"`
}

// DischargeReadiness scores how close the patient is to leaving intensive
// care. Demographics do not currently affect the score.
func DischargeReadiness(_ vitals.Demographics, v vitals.Snapshot, labs []vitals.LabResult) Readiness {
	score := neutralReadiness

	switch t := v.Temperature; {
	case t >= 36.5 && t <= 37.5:
		score += 15
	case t >= 36.0 && t <= 38.0:
		score += 5
	default:
		score -= 10
	}

	sbp, hr := v.BloodPressureSystolic, v.HeartRate
	switch {
	case sbp >= 100 && sbp <= 140 && hr >= 60 && hr <= 90:
		score += 20
	case sbp >= 90 && sbp <= 160 && hr >= 50 && hr <= 100:
		score += 10
	default:
		score -= 15
	}

	spo2, rr := v.OxygenSaturation, v.RespiratoryRate
	switch {
	case spo2 >= 95 && rr >= 12 && rr <= 20:
		score += 15
	case spo2 >= 92 && rr >= 10 && rr <= 24:
		score += 5
	default:
		score -= 10
	}

	if len(labs) > 0 {
		score += labReadiness(labs)
	}
	score = clamp(score, 0, 100)

	components := ScoreComponents{VitalSigns: min(score, 40)}
	if score > 40 {
		components.LabResults = min(maxLabReadiness, score-40)
	}

	return Readiness{
		DischargeScore:  score,
		ReadinessLevel:  ReadinessLevel(score),
		ScoreComponents: components,
	}
}

// ReadinessLevel maps a score to its label.
func ReadinessLevel(score int) string {
	switch {
	case score >= 80:
		return ReadinessHigh
	case score >= 60:
		return ReadinessModerate
	case score >= 40:
		return ReadinessLow
	default:
		return ReadinessVeryLow
	}
}

// labReadiness applies the first matching rule per row. Reassuring values are
// checked before concerning ones.
func labReadiness(labs []vitals.LabResult) int {
	total := 0
	for _, lab := range labs {
		v := lab.TestValue
		switch {
		case lab.TestName == vitals.LabLactate && v <= 2.0:
			total += 5
		case lab.TestName == vitals.LabPH && v >= 7.35 && v <= 7.45:
			total += 5
		case lab.TestName == vitals.LabCreatinine && v <= 1.5:
			total += 3
		case lab.TestName == vitals.LabWhiteBloodCells && v >= 4.0 && v <= 11.0:
			total += 3
		case lab.TestName == vitals.LabLactate && v > 4.0:
			total -= 10
		case lab.TestName == vitals.LabPH && (v < 7.25 || v > 7.55):
			total -= 8
		case lab.TestName == vitals.LabCreatinine && v > 3.0:
			total -= 8
		}
	}
	return clamp(total, -maxLabReadiness, maxLabReadiness)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
