package reporting

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func TestPredefinedMeasures(t *testing.T) {
	expectedIDs := []string{
		"census-by-status",
		"diagnosis-mix",
		"days-admitted",
		"lab-volume-24h",
	}
	if len(PredefinedMeasures) != len(expectedIDs) {
		t.Fatalf("expected %d predefined measures, got %d", len(expectedIDs), len(PredefinedMeasures))
	}
	for i, expectedID := range expectedIDs {
		if PredefinedMeasures[i].ID != expectedID {
			t.Errorf("expected measure[%d].ID = %s, got %s", i, expectedID, PredefinedMeasures[i].ID)
		}
	}
}

func TestPredefinedMeasures_HaveSQL(t *testing.T) {
	for _, m := range PredefinedMeasures {
		if m.SQL == "" {
			t.Errorf("measure %s has empty SQL", m.ID)
		}
		if m.Name == "" || m.Description == "" {
			t.Errorf("measure %s is missing name or description", m.ID)
		}
	}
}

func TestFindMeasure(t *testing.T) {
	m := FindMeasure("diagnosis-mix")
	if m == nil {
		t.Fatal("expected to find diagnosis-mix measure")
	}
	if m.Name != "Diagnosis Mix" {
		t.Errorf("expected 'Diagnosis Mix', got %s", m.Name)
	}
	if FindMeasure("nonexistent") != nil {
		t.Error("expected nil for nonexistent measure")
	}
}

func f64(v float64) *float64 { return &v }

func TestWriteCensus(t *testing.T) {
	rows := []CensusRow{
		{BedNumber: "A1", PatientName: "Jane Roe", Age: 67, Diagnosis: "Pneumonia", DaysAdmitted: 3,
			Status: "critical", Color: "#dc3545", Probability: 95,
			HeartRate: f64(125), Systolic: f64(85), Temperature: f64(39.2), RespiratoryRate: f64(22), OxygenSaturation: f64(89)},
		{BedNumber: "A2", PatientName: "John Doe", Age: 45, Diagnosis: "Stroke", Status: "stable", Color: "#28a745"},
	}

	var buf bytes.Buffer
	at := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	if err := WriteCensus(&buf, rows, at); err != nil {
		t.Fatalf("WriteCensus: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetName(f.GetActiveSheetIndex()); got != CensusSheet {
		t.Errorf("expected active sheet %q, got %q", CensusSheet, got)
	}

	header, err := f.GetCellValue(CensusSheet, "B2")
	if err != nil || header != "Patient" {
		t.Errorf("expected header Patient, got %q (%v)", header, err)
	}

	all, err := f.GetRows(CensusSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 rows (title, header, 2 beds), got %d", len(all))
	}
	if all[2][0] != "A1" || all[2][5] != "critical" || all[2][6] != "95" {
		t.Errorf("unexpected first bed row: %v", all[2])
	}
	if all[3][0] != "A2" {
		t.Errorf("unexpected second bed: %v", all[3])
	}

	// Missing vitals are blank.
	hr, _ := f.GetCellValue(CensusSheet, "H4")
	if hr != "" {
		t.Errorf("expected blank heart rate, got %q", hr)
	}
}

func TestWriteCensus_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCensus(&buf, nil, time.Now()); err != nil {
		t.Fatalf("WriteCensus: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("expected a workbook even with no beds")
	}
}
