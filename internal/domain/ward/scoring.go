package ward

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ehr/icurisk/internal/domain/vitals"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// SepsisRequest is the body of POST /scoring/sepsis.
type SepsisRequest struct {
	Vitals vitals.Reading      `json:"vitals"`
	Labs   []vitals.LabResult `json:"labs" validate:"dive"`
}

// OnsetRequest is the body of POST /scoring/onset. Trend slopes are fitted
// in the order the readings are posted.
type OnsetRequest struct {
	Probability *float64         `json:"probability" validate:"required,gte=0,lte=100"`
	Trend       []vitals.Reading `json:"trend" validate:"dive"`
}

// OnsetResponse is the result of an onset prediction.
type OnsetResponse struct {
	PredictedOnsetHours int    `json:"predicted_onset_hours"`
	RiskLevel           string `json:"risk_level"`
}

// StayRequest is the body of POST /scoring/length-of-stay.
type StayRequest struct {
	Demographics vitals.Demographics `json:"demographics"`
	Vitals       vitals.Reading      `json:"vitals"`
	Labs         []vitals.LabResult  `json:"labs" validate:"dive"`
	CurrentDay   int                 `json:"current_day" validate:"gte=0,lte=365"`
}

// DischargeRequest is the body of POST /scoring/discharge-readiness.
type DischargeRequest struct {
	Demographics vitals.Demographics `json:"demographics"`
	Vitals       vitals.Reading      `json:"vitals"`
	Labs         []vitals.LabResult  `json:"labs" validate:"dive"`
}

// BedStatusRequest is the body of POST /scoring/bed-status.
type BedStatusRequest struct {
	Vitals vitals.Reading `json:"vitals"`
}

// validateRequest checks req and returns the first failure as a readable
// message, e.g. "vitals.temperature must be lte 45".
func validateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	first := verrs[0]
	field := first.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch first.Tag() {
	case "required":
		return errors.New(field + " is required")
	default:
		msg := field + " must be " + first.Tag()
		if first.Param() != "" {
			msg += " " + first.Param()
		}
		return errors.New(msg)
	}
}
