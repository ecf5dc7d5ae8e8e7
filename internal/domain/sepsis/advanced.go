package sepsis

import (
	"math"
	"time"

	"github.com/ehr/icurisk/internal/domain/vitals"
	"github.com/ehr/icurisk/internal/platform/fhir"
)

const (
	baseConfidence = 0.70
	maxConfidence  = 0.95

	// longHistory is the number of readings beyond which the history adds
	// confidence.
	longHistory = 12
)

// Assessment is the full sepsis risk assessment for a patient.
type Assessment struct {
	Probability         float64   `json:"sepsis_probability"`
	Status              Status    `json:"status"`
	RiskFactors         []string  `json:"risk_factors"`
	PredictedOnsetHours int       `json:"predicted_onset_hours"`
	RiskLevel           RiskLevel `json:"risk_level"`
	Confidence          float64   `json:"confidence"`
	SIRSScore           int       `json:"sirs_score"`
}

// Advanced scores the most recent reading in history, which is ordered most
// recent first, and predicts onset from the whole history in that order. With
// no history the patient's own vitals are used. The reported SIRS count is
// taken from the vitals alone.
func Advanced(patient vitals.Demographics, history []vitals.Reading, labs []vitals.LabResult) Assessment {
	current := patient.Vitals.Normalize()
	if len(history) > 0 {
		current = history[0].Normalize()
	}

	res := Score(current, labs)
	hours, level := PredictOnset(res.Probability, vitals.NormalizeAll(history))

	confidence := baseConfidence
	if len(labs) > 0 {
		confidence += 0.2
	}
	if len(history) > longHistory {
		confidence += 0.1
	}

	return Assessment{
		Probability:         res.Probability,
		Status:              res.Status,
		RiskFactors:         res.RiskFactors,
		PredictedOnsetHours: hours,
		RiskLevel:           level,
		Confidence:          math.Min(confidence, maxConfidence),
		SIRSScore:           SIRS(current),
	}
}

// ToFHIR renders the assessment as a FHIR R4 RiskAssessment resource.
func (a Assessment) ToFHIR(id, patientID string, at time.Time) map[string]interface{} {
	notes := make([]map[string]string, 0, len(a.RiskFactors))
	for _, f := range a.RiskFactors {
		notes = append(notes, map[string]string{"text": f})
	}

	result := map[string]interface{}{
		"resourceType":       "RiskAssessment",
		"id":                 id,
		"status":             "final",
		"subject":            fhir.Reference{Reference: fhir.FormatReference("Patient", patientID)},
		"occurrenceDateTime": at.Format(time.RFC3339),
		"meta":               fhir.Meta{LastUpdated: at},
		"method": fhir.CodeableConcept{
			Coding: []fhir.Coding{{Code: "sirs-weighted-rules", Display: "SIRS weighted rule score"}},
		},
		"code": fhir.CodeableConcept{
			Coding: []fhir.Coding{{System: fhir.SNOMEDSystem, Code: "91302008", Display: "Sepsis"}},
		},
		"prediction": []interface{}{
			map[string]interface{}{
				"outcome": fhir.CodeableConcept{
					Coding: []fhir.Coding{{System: fhir.SNOMEDSystem, Code: "91302008", Display: "Sepsis"}},
				},
				"probabilityDecimal": a.Probability / 100,
				"qualitativeRisk": fhir.CodeableConcept{
					Coding: []fhir.Coding{{
						System:  fhir.RiskProbabilitySystem,
						Code:    qualitativeRisk(a.Status),
						Display: string(a.Status),
					}},
				},
				"whenRange": map[string]interface{}{
					"high": map[string]interface{}{"value": a.PredictedOnsetHours, "unit": "h"},
				},
			},
		},
	}
	if len(notes) > 0 {
		result["note"] = notes
	}
	return result
}

func qualitativeRisk(s Status) string {
	switch s {
	case StatusCritical:
		return "high"
	case StatusAlert:
		return "moderate"
	default:
		return "low"
	}
}
