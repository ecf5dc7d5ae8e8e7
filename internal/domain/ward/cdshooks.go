package ward

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ehr/icurisk/internal/domain/sepsis"
	"github.com/ehr/icurisk/internal/platform/fhir"
)

// SepsisRiskServiceID identifies the sepsis CDS service.
const SepsisRiskServiceID = "icu-sepsis-risk"

// SepsisRiskService describes the patient-view sepsis hook for discovery.
func SepsisRiskService() fhir.CDSService {
	return fhir.CDSService{
		Hook:        "patient-view",
		Title:       "ICU Sepsis Risk",
		Description: "Scores sepsis risk from the patient's recent vital signs and lab results",
		ID:          SepsisRiskServiceID,
		Prefetch: map[string]string{
			"patient": "Patient/{{context.patientId}}",
		},
	}
}

// SepsisRiskHook answers a patient-view hook with a card describing the
// patient's sepsis risk. Unknown patients get no cards.
func (s *Service) SepsisRiskHook(ctx context.Context, req fhir.CDSHookRequest) (*fhir.CDSHookResponse, error) {
	raw, ok := req.Context["patientId"]
	if !ok {
		return nil, fmt.Errorf("%w: patientId is required", fhir.ErrInvalidHookContext)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(fmt.Sprint(raw), "Patient/"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid patientId %v", fhir.ErrInvalidHookContext, raw)
	}

	p, a, err := s.SepsisAssessment(ctx, id)
	if errors.Is(err, ErrPatientNotFound) {
		return &fhir.CDSHookResponse{Cards: []fhir.CDSCard{}}, nil
	}
	if err != nil {
		return nil, err
	}

	detail := fmt.Sprintf("Bed %s. Predicted onset within %d hours (%s). SIRS %d/4.",
		p.BedNumber, a.PredictedOnsetHours, a.RiskLevel, a.SIRSScore)
	if len(a.RiskFactors) > 0 {
		detail += " Risk factors: " + strings.Join(a.RiskFactors, "; ") + "."
	}

	return &fhir.CDSHookResponse{
		Cards: []fhir.CDSCard{{
			UUID:      uuid.NewString(),
			Summary:   fmt.Sprintf("Sepsis risk %.0f%% (%s)", a.Probability, a.Status),
			Detail:    detail,
			Indicator: cardIndicator(a.Status),
			Source:    fhir.CDSSource{Label: "ICU Risk Engine"},
		}},
	}, nil
}

func cardIndicator(s sepsis.Status) string {
	switch s {
	case sepsis.StatusCritical:
		return fhir.IndicatorCritical
	case sepsis.StatusAlert:
		return fhir.IndicatorWarning
	default:
		return fhir.IndicatorInfo
	}
}
