package ward

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/icurisk/internal/domain/bedstatus"
	"github.com/ehr/icurisk/internal/domain/sepsis"
	"github.com/ehr/icurisk/internal/domain/stay"
	"github.com/ehr/icurisk/internal/domain/vitals"
)

const (
	censusCacheKey = "ward:census"

	DefaultCensusTTL    = 30 * time.Second
	DefaultHistoryHours = 48
	DefaultSummaryHours = 72
	MaxHistoryHours     = 720
)

// Alert sources.
const (
	SourceCensus     = "census"
	SourcePredictive = "predictive_report"
)

type Service struct {
	patients PatientRepository
	vitals   VitalsRepository
	labs     LabRepository
	logger   zerolog.Logger

	cache     Cache
	censusTTL time.Duration
	alerts    AlertPublisher

	historyHours int
	summaryHours int
	now          func() time.Time
}

func NewService(patients PatientRepository, vitalsRepo VitalsRepository, labs LabRepository, logger zerolog.Logger) *Service {
	return &Service{
		patients:     patients,
		vitals:       vitalsRepo,
		labs:         labs,
		logger:       logger,
		censusTTL:    DefaultCensusTTL,
		historyHours: DefaultHistoryHours,
		summaryHours: DefaultSummaryHours,
		now:          time.Now,
	}
}

// SetCache attaches a census cache. A non-positive ttl keeps the default.
func (s *Service) SetCache(c Cache, ttl time.Duration) {
	s.cache = c
	if ttl > 0 {
		s.censusTTL = ttl
	}
}

// SetAlertPublisher attaches a publisher for critical alerts.
func (s *Service) SetAlertPublisher(p AlertPublisher) {
	s.alerts = p
}

// SetHistoryWindows overrides the number of hourly readings used for
// predictions and for the vitals summary.
func (s *Service) SetHistoryWindows(prediction, summary int) {
	if prediction > 0 {
		s.historyHours = prediction
	}
	if summary > 0 {
		s.summaryHours = summary
	}
}

// -- Census --

// Census returns every patient with their latest vitals and bed status,
// ordered by bed number.
func (s *Service) Census(ctx context.Context) ([]*CensusEntry, error) {
	if s.cache != nil {
		var cached []*CensusEntry
		found, err := s.cache.Get(ctx, censusCacheKey, &cached)
		if err != nil {
			s.logger.Warn().Err(err).Msg("census cache read failed")
		} else if found {
			return cached, nil
		}
	}

	rows, err := s.patients.ListCensus(ctx)
	if err != nil {
		return nil, fmt.Errorf("list census: %w", err)
	}

	now := s.now()
	entries := make([]*CensusEntry, 0, len(rows))
	for _, row := range rows {
		entry := &CensusEntry{
			CensusRow:    *row,
			DaysAdmitted: row.DaysAdmitted(now),
			Bed:          bedstatus.Classify(row.Vitals.Normalize()),
		}
		entries = append(entries, entry)
		if entry.Bed.Status == sepsis.StatusCritical {
			s.publishCritical(ctx, CriticalAlert{
				PatientID:   entry.ID,
				BedNumber:   entry.BedNumber,
				PatientName: entry.Name,
				Probability: entry.Bed.Probability,
				Source:      SourceCensus,
				DetectedAt:  now,
			})
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, censusCacheKey, entries, s.censusTTL); err != nil {
			s.logger.Warn().Err(err).Msg("census cache write failed")
		}
	}
	return entries, nil
}

// InvalidateCensus drops the cached census so the next read hits the database.
func (s *Service) InvalidateCensus(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, censusCacheKey)
}

// Stats counts patients per bed status and averages their risk.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	entries, err := s.Census(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Total: len(entries)}
	sum := 0.0
	for _, e := range entries {
		sum += e.Bed.Probability
		switch e.Bed.Status {
		case sepsis.StatusStable:
			stats.Stable++
		case sepsis.StatusAlert:
			stats.Alert++
		case sepsis.StatusCritical:
			stats.Critical++
		}
	}
	if len(entries) > 0 {
		stats.AvgRisk = sum / float64(len(entries))
	}
	return stats, nil
}

// Alerts lists critical and alert patients in bed order.
func (s *Service) Alerts(ctx context.Context) (*Alerts, error) {
	entries, err := s.Census(ctx)
	if err != nil {
		return nil, err
	}

	out := &Alerts{Critical: []PatientAlert{}, Alert: []PatientAlert{}}
	for _, e := range entries {
		a := PatientAlert{
			PatientID:   e.ID,
			PatientName: e.Name,
			BedNumber:   e.BedNumber,
			Diagnosis:   e.Diagnosis,
			RiskScore:   e.Bed.Probability,
			Status:      e.Bed.Status,
			Vitals:      e.Vitals,
		}
		switch e.Bed.Status {
		case sepsis.StatusCritical:
			out.Critical = append(out.Critical, a)
		case sepsis.StatusAlert:
			out.Alert = append(out.Alert, a)
		}
	}
	return out, nil
}

// -- Patient --

func (s *Service) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: patient id must be positive", ErrInvalidInput)
	}
	return s.patients.GetByID(ctx, id)
}

// VitalsHistory returns up to hours readings, most recent first. Zero hours
// selects the default prediction window.
func (s *Service) VitalsHistory(ctx context.Context, id int64, hours int) ([]vitals.Reading, error) {
	if hours == 0 {
		hours = s.historyHours
	}
	if hours < 0 || hours > MaxHistoryHours {
		return nil, fmt.Errorf("%w: hours must be between 1 and %d", ErrInvalidInput, MaxHistoryHours)
	}
	if _, err := s.GetPatient(ctx, id); err != nil {
		return nil, err
	}
	return s.vitals.ListByPatient(ctx, id, hours)
}

// LabResults returns the patient's labs, most recent first, each flagged
// normal or abnormal.
func (s *Service) LabResults(ctx context.Context, id int64) ([]vitals.LabResult, error) {
	if _, err := s.GetPatient(ctx, id); err != nil {
		return nil, err
	}
	labs, err := s.labs.ListByPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range labs {
		labs[i].Status = vitals.ClassifyLab(labs[i])
	}
	return labs, nil
}

// PatientReport summarises the patient's vitals over the summary window and
// their latest value for each lab test.
func (s *Service) PatientReport(ctx context.Context, id int64) (*PatientReport, error) {
	p, err := s.GetPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := s.vitals.ListByPatient(ctx, id, s.summaryHours)
	if err != nil {
		return nil, err
	}
	labs, err := s.labs.ListByPatient(ctx, id)
	if err != nil {
		return nil, err
	}

	labSummary := make(map[string]string)
	for _, l := range vitals.LatestByTest(labs) {
		labSummary[l.TestName] = strings.TrimSpace(vitals.FormatValue(l.TestValue) + " " + l.Unit)
	}

	now := s.now()
	return &PatientReport{
		Patient:       p,
		DaysAdmitted:  p.DaysAdmitted(now),
		VitalsSummary: vitals.Summarize(history),
		LabSummary:    labSummary,
		GeneratedAt:   now,
	}, nil
}

// PredictiveReport runs the sepsis, length-of-stay and discharge engines on
// the patient's recent history and labs.
func (s *Service) PredictiveReport(ctx context.Context, id int64) (*PredictiveReport, error) {
	p, history, labs, err := s.clinicalData(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	demo := p.Demographics()
	current := demo.Vitals.Normalize()
	if len(history) > 0 {
		current = history[0].Normalize()
	}
	day := p.DaysAdmitted(now)

	report := &PredictiveReport{
		PatientID:    p.ID,
		PatientName:  p.Name,
		DaysAdmitted: day,
		Sepsis:       sepsis.Advanced(demo, history, labs),
		LengthOfStay: stay.PredictLengthOfStay(demo, current, labs, day),
		Discharge:    stay.DischargeReadiness(demo, current, labs),
		GeneratedAt:  now,
	}

	if report.Sepsis.Status == sepsis.StatusCritical {
		s.publishCritical(ctx, CriticalAlert{
			PatientID:   p.ID,
			BedNumber:   p.BedNumber,
			PatientName: p.Name,
			Probability: report.Sepsis.Probability,
			RiskFactors: report.Sepsis.RiskFactors,
			Source:      SourcePredictive,
			DetectedAt:  now,
		})
	}
	return report, nil
}

// SepsisAssessment returns the advanced sepsis assessment for a patient.
func (s *Service) SepsisAssessment(ctx context.Context, id int64) (*Patient, sepsis.Assessment, error) {
	p, history, labs, err := s.clinicalData(ctx, id)
	if err != nil {
		return nil, sepsis.Assessment{}, err
	}
	return p, sepsis.Advanced(p.Demographics(), history, labs), nil
}

func (s *Service) clinicalData(ctx context.Context, id int64) (*Patient, []vitals.Reading, []vitals.LabResult, error) {
	p, err := s.GetPatient(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	history, err := s.vitals.ListByPatient(ctx, id, s.historyHours)
	if err != nil {
		return nil, nil, nil, err
	}
	labs, err := s.labs.ListByPatient(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	return p, history, labs, nil
}

func (s *Service) publishCritical(ctx context.Context, a CriticalAlert) {
	if s.alerts == nil {
		return
	}
	if err := s.alerts.Publish(ctx, a); err != nil {
		s.logger.Warn().Err(err).Int64("patient_id", a.PatientID).Msg("publish critical alert failed")
	}
}
