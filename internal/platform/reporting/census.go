package reporting

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// CensusSheet is the worksheet name of the census export.
const CensusSheet = "ICU Census"

// CensusHeader lists the census export columns.
var CensusHeader = []string{
	"Bed",
	"Patient",
	"Age",
	"Diagnosis",
	"Days Admitted",
	"Status",
	"Sepsis Risk (%)",
	"Heart Rate",
	"Systolic BP",
	"Temperature",
	"Respiratory Rate",
	"SpO2",
}

var censusColumnWidths = []float64{8, 24, 6, 28, 14, 10, 16, 12, 12, 12, 17, 8}

// CensusRow is one bed in the census export. Vitals that were never recorded
// are left blank.
type CensusRow struct {
	BedNumber        string
	PatientName      string
	Age              int
	Diagnosis        string
	DaysAdmitted     int
	Status           string
	Color            string
	Probability      float64
	HeartRate        *float64
	Systolic         *float64
	Temperature      *float64
	RespiratoryRate  *float64
	OxygenSaturation *float64
}

// WriteCensus writes the census as an xlsx workbook to w. The status cell of
// each row is filled with the row's colour.
func WriteCensus(w io.Writer, rows []CensusRow, generatedAt time.Time) error {
	f, err := buildCensus(rows, generatedAt)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write census workbook: %w", err)
	}
	return nil
}

func buildCensus(rows []CensusRow, generatedAt time.Time) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(CensusSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	// Row 1 carries the generation time; the header is on row 2.
	if err := f.SetCellValue(CensusSheet, "A1", "Generated "+generatedAt.Format(time.RFC3339)); err != nil {
		f.Close()
		return nil, err
	}
	for col, header := range CensusHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetCellValue(CensusSheet, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(CensusSheet, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("set header style: %w", err)
		}
		colName, _ := excelize.ColumnNumberToName(col + 1)
		if err := f.SetColWidth(CensusSheet, colName, colName, censusColumnWidths[col]); err != nil {
			f.Close()
			return nil, err
		}
	}

	statusStyles := make(map[string]int)
	for i, r := range rows {
		rowNum := i + 3
		values := []interface{}{
			r.BedNumber,
			r.PatientName,
			r.Age,
			r.Diagnosis,
			r.DaysAdmitted,
			r.Status,
			r.Probability,
			cellValue(r.HeartRate),
			cellValue(r.Systolic),
			cellValue(r.Temperature),
			cellValue(r.RespiratoryRate),
			cellValue(r.OxygenSaturation),
		}
		start, _ := excelize.CoordinatesToCellName(1, rowNum)
		if err := f.SetSheetRow(CensusSheet, start, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", rowNum, err)
		}

		if r.Color == "" {
			continue
		}
		style, ok := statusStyles[r.Color]
		if !ok {
			style, err = f.NewStyle(&excelize.Style{
				Fill: excelize.Fill{Type: "pattern", Color: []string{r.Color}, Pattern: 1},
			})
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("create status style: %w", err)
			}
			statusStyles[r.Color] = style
		}
		cell, _ := excelize.CoordinatesToCellName(6, rowNum)
		if err := f.SetCellStyle(CensusSheet, cell, cell, style); err != nil {
			f.Close()
			return nil, err
		}
	}

	return f, nil
}

func cellValue(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
