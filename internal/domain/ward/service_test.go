package ward

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/ehr/icurisk/internal/domain/sepsis"
	"github.com/ehr/icurisk/internal/domain/vitals"
	"github.com/ehr/icurisk/internal/platform/fhir"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

// -- Mock Repositories --

type mockPatientRepo struct {
	patients    []*Patient
	vitals      map[int64]vitals.Reading
	censusCalls int
	err         error
}

func (m *mockPatientRepo) ListCensus(_ context.Context) ([]*CensusRow, error) {
	m.censusCalls++
	if m.err != nil {
		return nil, m.err
	}
	rows := make([]*CensusRow, 0, len(m.patients))
	for _, p := range m.patients {
		rows = append(rows, &CensusRow{Patient: *p, Vitals: m.vitals[p.ID]})
	}
	return rows, nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id int64) (*Patient, error) {
	for _, p := range m.patients {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, ErrPatientNotFound
}

type mockVitalsRepo struct {
	history   map[int64][]vitals.Reading
	lastLimit int
}

func (m *mockVitalsRepo) ListByPatient(_ context.Context, id int64, limit int) ([]vitals.Reading, error) {
	m.lastLimit = limit
	h := m.history[id]
	if len(h) > limit {
		h = h[:limit]
	}
	return h, nil
}

type mockLabRepo struct {
	labs map[int64][]vitals.LabResult
}

func (m *mockLabRepo) ListByPatient(_ context.Context, id int64) ([]vitals.LabResult, error) {
	out := make([]vitals.LabResult, len(m.labs[id]))
	copy(out, m.labs[id])
	return out, nil
}

type mockCache struct {
	data map[string][]byte
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) Get(_ context.Context, key string, dst interface{}) (bool, error) {
	b, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (m *mockCache) Set(_ context.Context, key string, v interface{}, _ time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.data[key] = b
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

type mockPublisher struct {
	mu     sync.Mutex
	alerts []CriticalAlert
}

func (m *mockPublisher) Publish(_ context.Context, v interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := v.(CriticalAlert)
	if !ok {
		return errors.New("unexpected message type")
	}
	m.alerts = append(m.alerts, a)
	return nil
}

// -- Fixtures --

func criticalVitals() vitals.Reading {
	return vitals.Reading{
		Temperature:           vitals.Float(39.2),
		HeartRate:             vitals.Float(125),
		RespiratoryRate:       vitals.Float(22),
		OxygenSaturation:      vitals.Float(89),
		BloodPressureSystolic: vitals.Float(85),
	}
}

func stableVitals() vitals.Reading {
	return vitals.Reading{
		Temperature:            vitals.Float(37.0),
		HeartRate:              vitals.Float(80),
		RespiratoryRate:        vitals.Float(16),
		OxygenSaturation:       vitals.Float(98),
		BloodPressureSystolic:  vitals.Float(120),
		BloodPressureDiastolic: vitals.Float(78),
	}
}

// alertVitals scores 35: SIRS 2 (20), low blood pressure (10), tachycardia (5).
func alertVitals() vitals.Reading {
	return vitals.Reading{
		Temperature:           vitals.Float(38.2),
		HeartRate:             vitals.Float(105),
		RespiratoryRate:       vitals.Float(16),
		OxygenSaturation:      vitals.Float(96),
		BloodPressureSystolic: vitals.Float(95),
	}
}

type fixture struct {
	svc       *Service
	patients  *mockPatientRepo
	vitals    *mockVitalsRepo
	labs      *mockLabRepo
	publisher *mockPublisher
}

func newFixture() *fixture {
	patients := &mockPatientRepo{
		patients: []*Patient{
			{ID: 1, Name: "Jane Roe", Age: 67, Gender: "F", Diagnosis: "Pneumonia", BedNumber: "A1",
				AdmissionDate: testNow.Add(-72 * time.Hour)},
			{ID: 2, Name: "John Doe", Age: 45, Gender: "M", Diagnosis: "Stroke", BedNumber: "A2",
				AdmissionDate: testNow.Add(-30 * time.Hour)},
			{ID: 3, Name: "Ann Lee", Age: 71, Gender: "F", Diagnosis: "Sepsis", BedNumber: "B1",
				AdmissionDate: testNow.Add(-5 * 24 * time.Hour)},
			{ID: 4, Name: "Sam Park", Age: 38, Gender: "M", Diagnosis: "Trauma", BedNumber: "B2",
				AdmissionDate: testNow.Add(-2 * time.Hour)},
		},
		vitals: map[int64]vitals.Reading{
			1: criticalVitals(),
			2: stableVitals(),
			3: alertVitals(),
		},
	}
	vitalsRepo := &mockVitalsRepo{history: map[int64][]vitals.Reading{
		1: {criticalVitals(), alertVitals(), stableVitals()},
		2: {stableVitals(), stableVitals()},
	}}
	labs := &mockLabRepo{labs: map[int64][]vitals.LabResult{
		1: {
			{TestName: vitals.LabLactate, TestValue: 4.5, Unit: "mmol/L", TestDate: testNow.Add(-time.Hour)},
			{TestName: vitals.LabWhiteBloodCells, TestValue: 16.2, Unit: "x10³/μL", TestDate: testNow.Add(-2 * time.Hour)},
			{TestName: vitals.LabLactate, TestValue: 2.1, Unit: "mmol/L", TestDate: testNow.Add(-24 * time.Hour)},
		},
		2: {
			{TestName: vitals.LabCReactiveProtein, TestValue: 2.0, Unit: "mg/L", TestDate: testNow.Add(-time.Hour)},
		},
	}}
	publisher := &mockPublisher{}

	svc := NewService(patients, vitalsRepo, labs, zerolog.Nop())
	svc.SetAlertPublisher(publisher)
	svc.now = func() time.Time { return testNow }
	return &fixture{svc: svc, patients: patients, vitals: vitalsRepo, labs: labs, publisher: publisher}
}

// -- Census --

func TestService_Census_ClassifiesBeds(t *testing.T) {
	f := newFixture()
	entries, err := f.svc.Census(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}

	want := []sepsis.Status{sepsis.StatusCritical, sepsis.StatusStable, sepsis.StatusAlert, sepsis.StatusStable}
	for i, e := range entries {
		if e.Bed.Status != want[i] {
			t.Errorf("bed %s: expected %s, got %s", e.BedNumber, want[i], e.Bed.Status)
		}
	}
	if entries[0].Bed.Probability != sepsis.MaxProbability {
		t.Errorf("expected capped probability, got %v", entries[0].Bed.Probability)
	}
	if entries[0].Bed.Hex != "#dc3545" {
		t.Errorf("expected red bed, got %s", entries[0].Bed.Hex)
	}
	if entries[0].DaysAdmitted != 3 || entries[1].DaysAdmitted != 1 || entries[3].DaysAdmitted != 0 {
		t.Errorf("unexpected days admitted: %d %d %d",
			entries[0].DaysAdmitted, entries[1].DaysAdmitted, entries[3].DaysAdmitted)
	}
}

func TestService_Census_PublishesCriticalAlerts(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Census(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.publisher.alerts) != 1 {
		t.Fatalf("expected 1 critical alert, got %d", len(f.publisher.alerts))
	}
	a := f.publisher.alerts[0]
	if a.PatientID != 1 || a.BedNumber != "A1" || a.Source != SourceCensus {
		t.Errorf("unexpected alert: %+v", a)
	}
	if !a.DetectedAt.Equal(testNow) {
		t.Errorf("expected detection time %v, got %v", testNow, a.DetectedAt)
	}
}

func TestService_Census_RepoError(t *testing.T) {
	f := newFixture()
	f.patients.err = errors.New("connection refused")
	if _, err := f.svc.Census(context.Background()); err == nil {
		t.Error("expected error from repository")
	}
}

func TestService_Census_UsesCache(t *testing.T) {
	f := newFixture()
	f.svc.SetCache(newMockCache(), time.Minute)
	ctx := context.Background()

	first, err := f.svc.Census(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := f.svc.Census(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.patients.censusCalls != 1 {
		t.Errorf("expected 1 repository call, got %d", f.patients.censusCalls)
	}
	if len(second) != len(first) || second[2].Bed.Status != sepsis.StatusAlert {
		t.Errorf("cached census differs: %+v", second)
	}

	if err := f.svc.InvalidateCensus(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := f.svc.Census(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.patients.censusCalls != 2 {
		t.Errorf("expected repository hit after invalidation, got %d calls", f.patients.censusCalls)
	}
}

func TestService_InvalidateCensus_NoCache(t *testing.T) {
	f := newFixture()
	if err := f.svc.InvalidateCensus(context.Background()); err != nil {
		t.Errorf("expected no error without cache, got %v", err)
	}
}

func TestService_Stats(t *testing.T) {
	f := newFixture()
	stats, err := f.svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Total != 4 || stats.Stable != 2 || stats.Alert != 1 || stats.Critical != 1 {
		t.Errorf("unexpected counts: %+v", stats)
	}
	if stats.AvgRisk != 32.5 {
		t.Errorf("expected avg risk 32.5, got %v", stats.AvgRisk)
	}
}

func TestService_Stats_EmptyWard(t *testing.T) {
	f := newFixture()
	f.patients.patients = nil
	stats, err := f.svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Total != 0 || stats.AvgRisk != 0 {
		t.Errorf("expected empty stats, got %+v", stats)
	}
}

func TestService_Alerts(t *testing.T) {
	f := newFixture()
	alerts, err := f.svc.Alerts(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts.Critical) != 1 || alerts.Critical[0].BedNumber != "A1" {
		t.Errorf("unexpected critical list: %+v", alerts.Critical)
	}
	if len(alerts.Alert) != 1 || alerts.Alert[0].PatientName != "Ann Lee" {
		t.Errorf("unexpected alert list: %+v", alerts.Alert)
	}
	if alerts.Alert[0].RiskScore != 35 {
		t.Errorf("expected risk score 35, got %v", alerts.Alert[0].RiskScore)
	}
}

// -- Patient --

func TestService_GetPatient(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	p, err := f.svc.GetPatient(ctx, 2)
	if err != nil || p.Name != "John Doe" {
		t.Fatalf("expected John Doe, got %+v (%v)", p, err)
	}
	if _, err := f.svc.GetPatient(ctx, 99); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound, got %v", err)
	}
	if _, err := f.svc.GetPatient(ctx, 0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestService_VitalsHistory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	history, err := f.svc.VitalsHistory(ctx, 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 3 || f.vitals.lastLimit != DefaultHistoryHours {
		t.Errorf("expected 3 readings with default window, got %d (limit %d)", len(history), f.vitals.lastLimit)
	}

	history, err = f.svc.VitalsHistory(ctx, 1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("expected 2 readings, got %d", len(history))
	}

	if _, err := f.svc.VitalsHistory(ctx, 1, MaxHistoryHours+1); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := f.svc.VitalsHistory(ctx, 99, 1); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestService_SetHistoryWindows(t *testing.T) {
	f := newFixture()
	f.svc.SetHistoryWindows(12, 0)
	if _, err := f.svc.VitalsHistory(context.Background(), 1, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.vitals.lastLimit != 12 {
		t.Errorf("expected window 12, got %d", f.vitals.lastLimit)
	}
	if f.svc.summaryHours != DefaultSummaryHours {
		t.Errorf("expected summary window unchanged, got %d", f.svc.summaryHours)
	}
}

func TestService_LabResults_FlagsStatus(t *testing.T) {
	f := newFixture()
	labs, err := f.svc.LabResults(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{vitals.LabStatusAbnormal, vitals.LabStatusAbnormal, vitals.LabStatusNormal}
	for i, l := range labs {
		if l.Status != want[i] {
			t.Errorf("lab %d (%s %v): expected %s, got %s", i, l.TestName, l.TestValue, want[i], l.Status)
		}
	}
}

func TestService_PatientReport(t *testing.T) {
	f := newFixture()
	report, err := f.svc.PatientReport(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.DaysAdmitted != 3 {
		t.Errorf("expected 3 days admitted, got %d", report.DaysAdmitted)
	}
	if got := report.LabSummary[vitals.LabLactate]; got != "4.5 mmol/L" {
		t.Errorf("expected latest lactate 4.5 mmol/L, got %q", got)
	}
	if len(report.LabSummary) != 2 {
		t.Errorf("expected one entry per test, got %v", report.LabSummary)
	}
	if report.VitalsSummary.BloodPressureDiastolic != "78.0 ± 0.0" {
		t.Errorf("expected single-sample diastolic summary, got %q", report.VitalsSummary.BloodPressureDiastolic)
	}
	if !report.GeneratedAt.Equal(testNow) {
		t.Errorf("unexpected generated time %v", report.GeneratedAt)
	}
}

func TestService_PatientReport_NoHistory(t *testing.T) {
	f := newFixture()
	report, err := f.svc.PatientReport(context.Background(), 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.VitalsSummary.HeartRate != vitals.NotAvailable {
		t.Errorf("expected N/A heart rate, got %q", report.VitalsSummary.HeartRate)
	}
	if len(report.LabSummary) != 0 {
		t.Errorf("expected empty lab summary, got %v", report.LabSummary)
	}
}

func TestService_PredictiveReport(t *testing.T) {
	f := newFixture()
	report, err := f.svc.PredictiveReport(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Sepsis.Status != sepsis.StatusCritical {
		t.Errorf("expected critical sepsis status, got %s", report.Sepsis.Status)
	}
	if report.DaysAdmitted != 3 || report.LengthOfStay.CurrentDay != 3 {
		t.Errorf("expected day 3, got %d / %d", report.DaysAdmitted, report.LengthOfStay.CurrentDay)
	}
	if len(f.publisher.alerts) != 1 || f.publisher.alerts[0].Source != SourcePredictive {
		t.Fatalf("expected one predictive alert, got %+v", f.publisher.alerts)
	}
	if len(f.publisher.alerts[0].RiskFactors) == 0 {
		t.Error("expected risk factors on the alert")
	}
}

func TestService_PredictiveReport_StableNoAlert(t *testing.T) {
	f := newFixture()
	report, err := f.svc.PredictiveReport(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Sepsis.Status != sepsis.StatusStable {
		t.Errorf("expected stable, got %s", report.Sepsis.Status)
	}
	if len(f.publisher.alerts) != 0 {
		t.Errorf("expected no alerts, got %d", len(f.publisher.alerts))
	}
}

func TestService_PredictiveReport_NotFound(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.PredictiveReport(context.Background(), 99); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound, got %v", err)
	}
}

// -- CDS Hooks --

func hookRequest(ctx map[string]interface{}) fhir.CDSHookRequest {
	return fhir.CDSHookRequest{Hook: "patient-view", HookInstance: "test", Context: ctx}
}

func TestService_SepsisRiskHook(t *testing.T) {
	f := newFixture()
	resp, err := f.svc.SepsisRiskHook(context.Background(), hookRequest(map[string]interface{}{"patientId": "1"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(resp.Cards))
	}
	card := resp.Cards[0]
	if card.Indicator != fhir.IndicatorCritical {
		t.Errorf("expected critical indicator, got %s", card.Indicator)
	}
	if card.Summary != "Sepsis risk 95% (critical)" {
		t.Errorf("unexpected summary %q", card.Summary)
	}
	if card.UUID == "" {
		t.Error("expected card uuid")
	}
}

func TestService_SepsisRiskHook_PatientReference(t *testing.T) {
	f := newFixture()
	resp, err := f.svc.SepsisRiskHook(context.Background(), hookRequest(map[string]interface{}{"patientId": "Patient/2"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Cards) != 1 || resp.Cards[0].Indicator != fhir.IndicatorInfo {
		t.Errorf("expected one info card, got %+v", resp.Cards)
	}
}

func TestService_SepsisRiskHook_UnknownPatient(t *testing.T) {
	f := newFixture()
	resp, err := f.svc.SepsisRiskHook(context.Background(), hookRequest(map[string]interface{}{"patientId": "99"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Cards) != 0 {
		t.Errorf("expected no cards, got %d", len(resp.Cards))
	}
}

func TestService_SepsisRiskHook_InvalidContext(t *testing.T) {
	f := newFixture()
	for name, ctx := range map[string]map[string]interface{}{
		"missing":    {},
		"not number": {"patientId": "abc"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.SepsisRiskHook(context.Background(), hookRequest(ctx))
			if !errors.Is(err, fhir.ErrInvalidHookContext) {
				t.Errorf("expected ErrInvalidHookContext, got %v", err)
			}
		})
	}
}
