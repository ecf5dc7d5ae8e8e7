package ward

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/icurisk/internal/domain/vitals"
)

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

const patientCols = `p.patient_id, p.patient_name, p.age, p.admission_date,
	COALESCE(p.gender, ''), COALESCE(p.diagnosis, ''), p.bed_number,
	ps.status_type, ps.sepsis_risk_score::float8, ps.length_of_stay_prediction, ps.last_updated, ps.notes`

const vitalsCols = `heart_rate::float8, blood_pressure_systolic::float8, blood_pressure_diastolic::float8,
	temperature::float8, respiratory_rate::float8, oxygen_saturation::float8, recorded_at`

func patientDest(p *Patient) []interface{} {
	return []interface{}{&p.ID, &p.Name, &p.Age, &p.AdmissionDate, &p.Gender, &p.Diagnosis, &p.BedNumber,
		&p.StatusType, &p.SepsisRiskScore, &p.LengthOfStayPrediction, &p.StatusUpdatedAt, &p.Notes}
}

func readingDest(r *vitals.Reading) []interface{} {
	return []interface{}{&r.HeartRate, &r.BloodPressureSystolic, &r.BloodPressureDiastolic,
		&r.Temperature, &r.RespiratoryRate, &r.OxygenSaturation}
}

func (r *patientRepoPG) ListCensus(ctx context.Context) ([]*CensusRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+patientCols+`,
			vs.heart_rate::float8, vs.blood_pressure_systolic::float8, vs.blood_pressure_diastolic::float8,
			vs.temperature::float8, vs.respiratory_rate::float8, vs.oxygen_saturation::float8, vs.recorded_at
		FROM patients p
		LEFT JOIN patient_status ps ON p.patient_id = ps.patient_id
		LEFT JOIN LATERAL (
			SELECT * FROM vital_signs v
			WHERE v.patient_id = p.patient_id
			ORDER BY v.recorded_at DESC
			LIMIT 1
		) vs ON true
		ORDER BY p.bed_number`)
	if err != nil {
		return nil, fmt.Errorf("query census: %w", err)
	}
	defer rows.Close()

	var items []*CensusRow
	for rows.Next() {
		var row CensusRow
		var recordedAt *time.Time
		dest := append(patientDest(&row.Patient), readingDest(&row.Vitals)...)
		dest = append(dest, &recordedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan census row: %w", err)
		}
		if recordedAt != nil {
			row.Vitals.RecordedAt = *recordedAt
		}
		items = append(items, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate census: %w", err)
	}
	return items, nil
}

func (r *patientRepoPG) GetByID(ctx context.Context, id int64) (*Patient, error) {
	var p Patient
	err := r.pool.QueryRow(ctx, `
		SELECT `+patientCols+`
		FROM patients p
		LEFT JOIN patient_status ps ON p.patient_id = ps.patient_id
		WHERE p.patient_id = $1`, id).Scan(patientDest(&p)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patient %d: %w", id, err)
	}
	return &p, nil
}

// =========== Vitals Repository ===========

type vitalsRepoPG struct{ pool *pgxpool.Pool }

func NewVitalsRepoPG(pool *pgxpool.Pool) VitalsRepository {
	return &vitalsRepoPG{pool: pool}
}

func (r *vitalsRepoPG) ListByPatient(ctx context.Context, patientID int64, limit int) ([]vitals.Reading, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+vitalsCols+`
		FROM vital_signs
		WHERE patient_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2`, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("query vital signs: %w", err)
	}
	defer rows.Close()

	var items []vitals.Reading
	for rows.Next() {
		var v vitals.Reading
		if err := rows.Scan(append(readingDest(&v), &v.RecordedAt)...); err != nil {
			return nil, fmt.Errorf("scan vital signs: %w", err)
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

// =========== Lab Repository ===========

type labRepoPG struct{ pool *pgxpool.Pool }

func NewLabRepoPG(pool *pgxpool.Pool) LabRepository {
	return &labRepoPG{pool: pool}
}

func (r *labRepoPG) ListByPatient(ctx context.Context, patientID int64) ([]vitals.LabResult, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT test_name, test_value::float8, COALESCE(normal_range, ''), COALESCE(unit, ''), test_date
		FROM lab_results
		WHERE patient_id = $1
		ORDER BY test_date DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("query lab results: %w", err)
	}
	defer rows.Close()

	var items []vitals.LabResult
	for rows.Next() {
		var l vitals.LabResult
		if err := rows.Scan(&l.TestName, &l.TestValue, &l.NormalRange, &l.Unit, &l.TestDate); err != nil {
			return nil, fmt.Errorf("scan lab result: %w", err)
		}
		items = append(items, l)
	}
	return items, rows.Err()
}
