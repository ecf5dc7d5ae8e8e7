package sepsis

import "github.com/ehr/icurisk/internal/domain/vitals"

// RiskLevel classifies how soon sepsis onset is expected.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low_risk"
	RiskModerate RiskLevel = "moderate_risk"
	RiskHigh     RiskLevel = "high_risk"
)

// minTrendPoints is the number of readings a trend needs to exceed before a
// slope is fitted.
const minTrendPoints = 3

// PredictOnset estimates hours until sepsis onset from a probability and a
// vitals series. Slopes are fitted over the series in the order supplied.
func PredictOnset(probability float64, trend []vitals.Snapshot) (int, RiskLevel) {
	switch {
	case probability < 30:
		return 48, RiskLow
	case probability >= 60:
		return 6, RiskHigh
	}

	if len(trend) <= minTrendPoints {
		return 24, RiskModerate
	}

	temps := make([]float64, len(trend))
	rates := make([]float64, len(trend))
	for i, s := range trend {
		temps[i] = s.Temperature
		rates[i] = s.HeartRate
	}
	tempSlope := vitals.Slope(temps)
	hrSlope := vitals.Slope(rates)

	switch {
	case tempSlope > 0.1 && hrSlope > 2:
		return 12, RiskModerate
	case tempSlope > 0.05 || hrSlope > 1:
		return 24, RiskModerate
	default:
		return 36, RiskModerate
	}
}
