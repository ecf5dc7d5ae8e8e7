package vitals

import (
	"strconv"
	"time"
)

// Defaults applied when a reading omits a field. White blood cells has no
// default: an absent count is never scored.
const (
	DefaultTemperature           = 37.0
	DefaultHeartRate             = 80.0
	DefaultRespiratoryRate       = 16.0
	DefaultOxygenSaturation      = 98.0
	DefaultBloodPressureSystolic = 120.0
)

// Snapshot is a normalized set of vital signs used by the scoring engines.
// Engines treat it as a value and never modify the caller's copy.
type Snapshot struct {
	Temperature            float64  `json:"temperature"`
	HeartRate              float64  `json:"heart_rate"`
	RespiratoryRate        float64  `json:"respiratory_rate"`
	OxygenSaturation       float64  `json:"oxygen_saturation"`
	BloodPressureSystolic  float64  `json:"blood_pressure_systolic"`
	BloodPressureDiastolic *float64 `json:"blood_pressure_diastolic,omitempty"`
	WhiteBloodCells        *float64 `json:"white_blood_cells,omitempty"`
}

// WithWhiteBloodCells returns a copy of s carrying the given WBC count.
func (s Snapshot) WithWhiteBloodCells(wbc float64) Snapshot {
	s.WhiteBloodCells = &wbc
	return s
}

// Reading is a raw vital-signs record as stored or posted. Any field may be
// missing.
type Reading struct {
	Temperature            *float64  `db:"temperature" json:"temperature,omitempty" validate:"omitempty,gte=20,lte=45"`
	HeartRate              *float64  `db:"heart_rate" json:"heart_rate,omitempty" validate:"omitempty,gte=0,lte=300"`
	RespiratoryRate        *float64  `db:"respiratory_rate" json:"respiratory_rate,omitempty" validate:"omitempty,gte=0,lte=80"`
	OxygenSaturation       *float64  `db:"oxygen_saturation" json:"oxygen_saturation,omitempty" validate:"omitempty,gte=0,lte=100"`
	BloodPressureSystolic  *float64  `db:"blood_pressure_systolic" json:"blood_pressure_systolic,omitempty" validate:"omitempty,gte=0,lte=300"`
	BloodPressureDiastolic *float64  `db:"blood_pressure_diastolic" json:"blood_pressure_diastolic,omitempty" validate:"omitempty,gte=0,lte=250"`
	WhiteBloodCells        *float64  `db:"-" json:"white_blood_cells,omitempty" validate:"omitempty,gte=0"`
	RecordedAt             time.Time `db:"recorded_at" json:"recorded_at,omitempty"`
}

// Normalize fills in defaults for missing fields.
func (r Reading) Normalize() Snapshot {
	return Snapshot{
		Temperature:            valueOr(r.Temperature, DefaultTemperature),
		HeartRate:              valueOr(r.HeartRate, DefaultHeartRate),
		RespiratoryRate:        valueOr(r.RespiratoryRate, DefaultRespiratoryRate),
		OxygenSaturation:       valueOr(r.OxygenSaturation, DefaultOxygenSaturation),
		BloodPressureSystolic:  valueOr(r.BloodPressureSystolic, DefaultBloodPressureSystolic),
		BloodPressureDiastolic: copyFloat(r.BloodPressureDiastolic),
		WhiteBloodCells:        copyFloat(r.WhiteBloodCells),
	}
}

// NormalizeAll normalizes every reading, preserving order.
func NormalizeAll(readings []Reading) []Snapshot {
	out := make([]Snapshot, len(readings))
	for i, r := range readings {
		out[i] = r.Normalize()
	}
	return out
}

// Demographics is the patient-level input to the scoring engines. Vitals holds
// whatever vitals the patient record carries and is used when no history
// exists.
type Demographics struct {
	Age       int     `json:"age" validate:"gte=0,lte=130"`
	Diagnosis string  `json:"diagnosis"`
	Vitals    Reading `json:"vitals"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// FormatValue renders a measurement the way it appears in risk factor text:
// whole numbers without a decimal point, others with as many digits as needed.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
