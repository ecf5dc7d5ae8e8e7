package vitals

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

// NotAvailable is reported for a measurement with no recorded values.
const NotAvailable = "N/A"

// Summary renders each vital sign over a history window as "mean ± std".
type Summary struct {
	HeartRate              string `json:"heart_rate"`
	BloodPressureSystolic  string `json:"blood_pressure_systolic"`
	BloodPressureDiastolic string `json:"blood_pressure_diastolic"`
	Temperature            string `json:"temperature"`
	RespiratoryRate        string `json:"respiratory_rate"`
	OxygenSaturation       string `json:"oxygen_saturation"`
}

// Summarize computes the mean and sample standard deviation of every vital
// sign in readings. Missing values are skipped.
func Summarize(readings []Reading) Summary {
	pick := func(f func(Reading) *float64) string {
		var data stats.Float64Data
		for _, r := range readings {
			if v := f(r); v != nil {
				data = append(data, *v)
			}
		}
		return meanStd(data)
	}
	return Summary{
		HeartRate:              pick(func(r Reading) *float64 { return r.HeartRate }),
		BloodPressureSystolic:  pick(func(r Reading) *float64 { return r.BloodPressureSystolic }),
		BloodPressureDiastolic: pick(func(r Reading) *float64 { return r.BloodPressureDiastolic }),
		Temperature:            pick(func(r Reading) *float64 { return r.Temperature }),
		RespiratoryRate:        pick(func(r Reading) *float64 { return r.RespiratoryRate }),
		OxygenSaturation:       pick(func(r Reading) *float64 { return r.OxygenSaturation }),
	}
}

func meanStd(data stats.Float64Data) string {
	if len(data) == 0 {
		return NotAvailable
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return NotAvailable
	}
	// A single sample has no spread.
	std := 0.0
	if len(data) > 1 {
		if std, err = stats.StandardDeviationSample(data); err != nil {
			return NotAvailable
		}
	}
	return fmt.Sprintf("%.1f ± %.1f", mean, std)
}

// Slope returns the least-squares slope of values against their index.
// Fewer than two values have no slope.
func Slope(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	xs := make(stats.Float64Data, len(values))
	for i := range xs {
		xs[i] = float64(i)
	}
	cov, err := stats.Covariance(xs, values)
	if err != nil {
		return 0
	}
	varX, err := stats.SampleVariance(xs)
	if err != nil || varX == 0 {
		return 0
	}
	return cov / varX
}
