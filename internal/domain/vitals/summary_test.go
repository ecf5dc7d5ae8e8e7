package vitals

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	readings := []Reading{
		{HeartRate: Float(80), Temperature: Float(37.0)},
		{HeartRate: Float(90), Temperature: Float(38.0)},
		{HeartRate: Float(100)},
	}

	s := Summarize(readings)

	assert.Equal(t, "90.0 ± 10.0", s.HeartRate)
	assert.Equal(t, "37.5 ± 0.7", s.Temperature)
	assert.Equal(t, NotAvailable, s.OxygenSaturation)
	assert.Equal(t, NotAvailable, s.BloodPressureDiastolic)
}

func TestSummarize_SingleSample(t *testing.T) {
	s := Summarize([]Reading{{RespiratoryRate: Float(18)}})
	assert.Equal(t, "18.0 ± 0.0", s.RespiratoryRate)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, NotAvailable, s.HeartRate)
	assert.Equal(t, NotAvailable, s.Temperature)
}

func TestSlope(t *testing.T) {
	assert.InDelta(t, 2.0, Slope([]float64{1, 3, 5, 7}), 1e-9)
	assert.InDelta(t, -0.5, Slope([]float64{10, 9.5, 9, 8.5}), 1e-9)
	assert.InDelta(t, 0.0, Slope([]float64{5, 5, 5}), 1e-9)
	assert.Equal(t, 0.0, Slope([]float64{4}))
	assert.Equal(t, 0.0, Slope(nil))
}
