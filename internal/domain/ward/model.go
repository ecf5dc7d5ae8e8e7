package ward

import (
	"errors"
	"time"

	"github.com/ehr/icurisk/internal/domain/bedstatus"
	"github.com/ehr/icurisk/internal/domain/sepsis"
	"github.com/ehr/icurisk/internal/domain/stay"
	"github.com/ehr/icurisk/internal/domain/vitals"
)

// ErrPatientNotFound is returned when no patient has the requested ID.
var ErrPatientNotFound = errors.New("patient not found")

// ErrInvalidInput wraps request parameters the service rejects.
var ErrInvalidInput = errors.New("invalid input")

// Patient maps to the patients table joined with patient_status.
type Patient struct {
	ID                     int64      `db:"patient_id" json:"patient_id"`
	Name                   string     `db:"patient_name" json:"patient_name"`
	Age                    int        `db:"age" json:"age"`
	Gender                 string     `db:"gender" json:"gender"`
	AdmissionDate          time.Time  `db:"admission_date" json:"admission_date"`
	Diagnosis              string     `db:"diagnosis" json:"diagnosis"`
	BedNumber              string     `db:"bed_number" json:"bed_number"`
	StatusType             *string    `db:"status_type" json:"status_type,omitempty"`
	SepsisRiskScore        *float64   `db:"sepsis_risk_score" json:"sepsis_risk_score,omitempty"`
	LengthOfStayPrediction *int       `db:"length_of_stay_prediction" json:"length_of_stay_prediction,omitempty"`
	StatusUpdatedAt        *time.Time `db:"last_updated" json:"status_updated_at,omitempty"`
	Notes                  *string    `db:"notes" json:"notes,omitempty"`
}

// DaysAdmitted returns the whole days elapsed since admission.
func (p *Patient) DaysAdmitted(now time.Time) int {
	d := int(now.Sub(p.AdmissionDate).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// Demographics returns the scoring input for the patient.
func (p *Patient) Demographics() vitals.Demographics {
	return vitals.Demographics{Age: p.Age, Diagnosis: p.Diagnosis}
}

// CensusRow is a patient with the latest recorded vital signs.
type CensusRow struct {
	Patient
	Vitals vitals.Reading `json:"vitals"`
}

// CensusEntry is a census row with its computed bed status.
type CensusEntry struct {
	CensusRow
	DaysAdmitted int              `json:"days_admitted"`
	Bed          bedstatus.Status `json:"bed_status"`
}

// Stats summarises the ward.
type Stats struct {
	Total    int     `json:"total"`
	Stable   int     `json:"stable"`
	Alert    int     `json:"alert"`
	Critical int     `json:"critical"`
	AvgRisk  float64 `json:"avg_risk"`
}

// PatientAlert is a patient flagged by the bed classifier.
type PatientAlert struct {
	PatientID   int64          `json:"patient_id"`
	PatientName string         `json:"patient_name"`
	BedNumber   string         `json:"bed_number"`
	Diagnosis   string         `json:"diagnosis"`
	RiskScore   float64        `json:"risk_score"`
	Status      sepsis.Status  `json:"status"`
	Vitals      vitals.Reading `json:"vitals"`
}

// Alerts groups flagged patients by severity.
type Alerts struct {
	Critical []PatientAlert `json:"critical"`
	Alert    []PatientAlert `json:"alert"`
}

// PatientReport is the current clinical picture of a patient.
type PatientReport struct {
	Patient       *Patient          `json:"patient"`
	DaysAdmitted  int               `json:"days_admitted"`
	VitalsSummary vitals.Summary    `json:"vitals_summary"`
	LabSummary    map[string]string `json:"lab_summary"`
	GeneratedAt   time.Time         `json:"generated_at"`
}

// PredictiveReport combines every forecast for a patient.
type PredictiveReport struct {
	PatientID    int64             `json:"patient_id"`
	PatientName  string            `json:"patient_name"`
	DaysAdmitted int               `json:"days_admitted"`
	Sepsis       sepsis.Assessment `json:"sepsis"`
	LengthOfStay stay.Prediction   `json:"length_of_stay"`
	Discharge    stay.Readiness    `json:"discharge_readiness"`
	GeneratedAt  time.Time         `json:"generated_at"`
}

// CriticalAlert is published when a patient scores critical.
type CriticalAlert struct {
	PatientID   int64     `json:"patient_id"`
	BedNumber   string    `json:"bed_number"`
	PatientName string    `json:"patient_name"`
	Probability float64   `json:"probability"`
	RiskFactors []string  `json:"risk_factors,omitempty"`
	Source      string    `json:"source"`
	DetectedAt  time.Time `json:"detected_at"`
}

// Topics routes the alert to ward-wide and per-bed live feeds.
func (a CriticalAlert) Topics() []string {
	return []string{"alerts", "bed/" + a.BedNumber}
}

func (a CriticalAlert) EventType() string {
	return "critical_alert"
}
