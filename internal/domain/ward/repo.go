package ward

import (
	"context"
	"time"

	"github.com/ehr/icurisk/internal/domain/vitals"
)

type PatientRepository interface {
	// ListCensus returns every patient with their latest vitals, by bed.
	ListCensus(ctx context.Context) ([]*CensusRow, error)
	GetByID(ctx context.Context, id int64) (*Patient, error)
}

type VitalsRepository interface {
	// ListByPatient returns up to limit readings, most recent first.
	ListByPatient(ctx context.Context, patientID int64, limit int) ([]vitals.Reading, error)
}

type LabRepository interface {
	// ListByPatient returns all lab rows, most recent first.
	ListByPatient(ctx context.Context, patientID int64) ([]vitals.LabResult, error)
}

// Cache stores JSON-encodable values with a time to live.
type Cache interface {
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, v interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// AlertPublisher delivers critical alerts to downstream consumers.
type AlertPublisher interface {
	Publish(ctx context.Context, v interface{}) error
}
