package stay

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/icurisk/internal/domain/vitals"
)

func normal() vitals.Snapshot {
	return vitals.Reading{}.Normalize()
}

func TestBaseScore(t *testing.T) {
	cases := []struct {
		age       int
		diagnosis string
		want      int
	}{
		{85, "Septic Shock with ARDS", 19},
		{70, "Community-acquired PNEUMONIA", 11},
		{55, "observation", 9},
		{40, "Post-surgical monitoring", 7},
		{30, "septic shock and multi-organ failure", 15},
		{66, "", 10},
		{50, "stroke", 10},
	}
	for _, tc := range cases {
		got := BaseScore(vitals.Demographics{Age: tc.age, Diagnosis: tc.diagnosis})
		assert.Equal(t, tc.want, got, "age %d diagnosis %q", tc.age, tc.diagnosis)
	}
}

func TestSeverityMultiplier_Normal(t *testing.T) {
	assert.Equal(t, 1.0, SeverityMultiplier(normal(), nil))
}

func TestSeverityMultiplier_Bands(t *testing.T) {
	v := normal()
	v.Temperature = 38.7
	v.BloodPressureSystolic = 190
	v.OxygenSaturation = 94
	v.HeartRate = 55

	assert.InDelta(t, 1.0+0.15+0.15+0.25+0.1, SeverityMultiplier(v, nil), 1e-9)
}

func TestSeverityMultiplier_Caps(t *testing.T) {
	labs := []vitals.LabResult{
		{TestName: vitals.LabLactate, TestValue: 5},
		{TestName: vitals.LabCreatinine, TestValue: 4},
		{TestName: vitals.LabTotalBilirubin, TestValue: 4},
		{TestName: vitals.LabPH, TestValue: 7.1},
	}

	assert.InDelta(t, 2.0, SeverityMultiplier(normal(), labs), 1e-9, "lab share caps at 1.0")

	v := vitals.Reading{
		Temperature:           vitals.Float(40),
		HeartRate:             vitals.Float(130),
		OxygenSaturation:      vitals.Float(85),
		BloodPressureSystolic: vitals.Float(80),
	}.Normalize()
	assert.Equal(t, 3.0, SeverityMultiplier(v, labs))
}

func TestSeverityMultiplier_LabBands(t *testing.T) {
	cases := []struct {
		name  string
		value float64
		want  float64
	}{
		{vitals.LabLactate, 3, 0.2},
		{vitals.LabCreatinine, 2, 0.15},
		{vitals.LabTotalBilirubin, 3, 0},
		{vitals.LabPH, 7.6, 0.3},
		{vitals.LabPH, 7.4, 0},
		{vitals.LabHemoglobin, 7.5, 0.2},
		{"Glucose", 400, 0},
	}
	for _, tc := range cases {
		got := SeverityMultiplier(normal(), []vitals.LabResult{{TestName: tc.name, TestValue: tc.value}})
		assert.InDelta(t, 1.0+tc.want, got, 1e-9, "%s=%v", tc.name, tc.value)
	}
}

func TestSeverityMultiplier_AlwaysInRange(t *testing.T) {
	for _, temp := range []float64{30, 35.5, 37, 38.7, 42} {
		for _, sbp := range []float64{50, 95, 120, 200} {
			for _, spo2 := range []float64{70, 92, 99} {
				for _, hr := range []float64{40, 55, 80, 110, 150} {
					v := vitals.Reading{
						Temperature:           vitals.Float(temp),
						BloodPressureSystolic: vitals.Float(sbp),
						OxygenSaturation:      vitals.Float(spo2),
						HeartRate:             vitals.Float(hr),
					}.Normalize()
					m := SeverityMultiplier(v, nil)
					require.GreaterOrEqual(t, m, 1.0)
					require.LessOrEqual(t, m, 3.0)

					p := PredictLengthOfStay(vitals.Demographics{}, v, nil, 1)
					require.GreaterOrEqual(t, p.PredictedTotalLOS, 3)
				}
			}
		}
	}
}

func TestPredictLengthOfStay(t *testing.T) {
	patient := vitals.Demographics{Age: 70, Diagnosis: "pneumonia"}

	p := PredictLengthOfStay(patient, normal(), nil, 4)

	assert.Equal(t, 11, p.BaseScore)
	assert.Equal(t, 1.0, p.SeverityMultiplier)
	assert.Equal(t, 11, p.PredictedTotalLOS)
	assert.Equal(t, 7, p.RemainingDays)
	assert.Equal(t, 4, p.CurrentDay)
	assert.InDelta(t, 0.75, p.Confidence, 1e-9)
	assert.Len(t, p.DischargeProbabilities, ForecastDays)
	assert.Empty(t, p.RiskFactors)
}

func TestPredictLengthOfStay_TruncatesAndFloorsRemaining(t *testing.T) {
	v := normal()
	v.HeartRate = 105

	// base 3 + 5 = 8, multiplier 1.1 -> 8.8 truncated to 8.
	p := PredictLengthOfStay(vitals.Demographics{Age: 40}, v, nil, 20)

	assert.Equal(t, 8, p.PredictedTotalLOS)
	assert.Equal(t, 0, p.RemainingDays)
}

func TestPredictLengthOfStay_Confidence(t *testing.T) {
	labs := []vitals.LabResult{{TestName: vitals.LabPH, TestValue: 7.4}}

	assert.InDelta(t, 0.65, PredictLengthOfStay(vitals.Demographics{}, normal(), nil, 1).Confidence, 1e-9)
	assert.InDelta(t, 0.8, PredictLengthOfStay(vitals.Demographics{}, normal(), labs, 2).Confidence, 1e-9)
	assert.InDelta(t, 0.9, PredictLengthOfStay(vitals.Demographics{}, normal(), labs, 3).Confidence, 1e-9)
}

func TestDischargeProbabilities(t *testing.T) {
	got := DischargeProbabilities(10, 5)

	want := map[string]float64{
		"day_6":  0.05,
		"day_7":  0.05,
		"day_8":  0.05,
		"day_9":  0.20,
		"day_10": 0.50,
		"day_11": 0.30,
		"day_12": 0.15,
	}
	assert.Equal(t, want, got)
}

func TestDischargeProbabilities_PastPrediction(t *testing.T) {
	got := DischargeProbabilities(3, 5)

	require.Len(t, got, ForecastDays)
	assert.InDelta(t, 0.09, got["day_6"], 1e-9)
	assert.InDelta(t, 0.07, got["day_7"], 1e-9)
	for day := 9; day <= 12; day++ {
		assert.Equal(t, 0.05, got[fmt.Sprintf("day_%d", day)], "day_%d", day)
	}
}

func TestRiskFactors(t *testing.T) {
	patient := vitals.Demographics{Age: 80, Diagnosis: "Septic shock with multi-organ failure"}
	v := vitals.Reading{
		Temperature:           vitals.Float(39.5),
		BloodPressureSystolic: vitals.Float(85),
		OxygenSaturation:      vitals.Float(88),
	}.Normalize()
	labs := []vitals.LabResult{
		{TestName: vitals.LabLactate, TestValue: 5},
		{TestName: vitals.LabCreatinine, TestValue: 3.5},
		{TestName: vitals.LabPH, TestValue: 7.2},
		{TestName: vitals.LabPH, TestValue: 7.1},
	}

	got := RiskFactors(patient, v, labs)

	assert.Equal(t, []string{
		"Advanced age (80 years)",
		"High-risk diagnosis: septic shock",
		"High-risk diagnosis: multi-organ failure",
		"High fever (39.5°C)",
		"Hypotension (85 mmHg)",
		"Severe hypoxemia (88%)",
		"Severe lactic acidosis",
		"Severe kidney dysfunction",
		"Severe acidosis",
		"Severe acidosis",
	}, got)
}

func TestRiskFactors_Hypothermia(t *testing.T) {
	v := normal()
	v.Temperature = 34.5

	got := RiskFactors(vitals.Demographics{Age: 75}, v, nil)

	assert.Equal(t, []string{"Hypothermia (34.5°C)"}, got)
}
