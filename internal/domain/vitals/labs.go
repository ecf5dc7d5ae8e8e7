package vitals

import "time"

// Lab test names recognised by the scoring engines. Rows with any other name
// are ignored.
const (
	LabWhiteBloodCells  = "White Blood Cells"
	LabLactate          = "Lactate"
	LabProcalcitonin    = "Procalcitonin"
	LabCReactiveProtein = "C-Reactive Protein"
	LabCreatinine       = "Creatinine"
	LabTotalBilirubin   = "Total Bilirubin"
	LabPH               = "pH"
	LabHemoglobin       = "Hemoglobin"
)

// Lab status flags.
const (
	LabStatusNormal   = "normal"
	LabStatusAbnormal = "abnormal"
)

// LabResult is a single lab row. Callers usually pass rows most-recent-first.
type LabResult struct {
	TestName    string    `db:"test_name" json:"test_name" validate:"required"`
	TestValue   float64   `db:"test_value" json:"test_value"`
	NormalRange string    `db:"normal_range" json:"normal_range,omitempty"`
	Unit        string    `db:"unit" json:"unit"`
	TestDate    time.Time `db:"test_date" json:"test_date"`
	Status      string    `db:"-" json:"status,omitempty"`
}

// FirstLab returns the first row named name.
func FirstLab(labs []LabResult, name string) (LabResult, bool) {
	for _, l := range labs {
		if l.TestName == name {
			return l, true
		}
	}
	return LabResult{}, false
}

// LatestByTest keeps the first row seen for each test name, preserving the
// order in which names first appear.
func LatestByTest(labs []LabResult) []LabResult {
	seen := make(map[string]bool, len(labs))
	var out []LabResult
	for _, l := range labs {
		if seen[l.TestName] {
			continue
		}
		seen[l.TestName] = true
		out = append(out, l)
	}
	return out
}

// abnormalRule flags a lab value outside its reference interval.
type abnormalRule struct {
	name     string
	abnormal func(v float64) bool
}

var abnormalRules = []abnormalRule{
	{LabWhiteBloodCells, func(v float64) bool { return v < 4.0 || v > 11.0 }},
	{LabCReactiveProtein, func(v float64) bool { return v > 3.0 }},
	{LabLactate, func(v float64) bool { return v > 2.2 }},
	{LabProcalcitonin, func(v float64) bool { return v > 0.25 }},
}

// ClassifyLab returns LabStatusAbnormal when the value falls outside the
// reference interval for its test. Tests without an interval are normal.
func ClassifyLab(l LabResult) string {
	for _, r := range abnormalRules {
		if r.name == l.TestName && r.abnormal(l.TestValue) {
			return LabStatusAbnormal
		}
	}
	return LabStatusNormal
}
