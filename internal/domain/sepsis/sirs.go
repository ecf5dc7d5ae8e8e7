package sepsis

import "github.com/ehr/icurisk/internal/domain/vitals"

// SIRS counts the systemic inflammatory response criteria met by v, 0 to 4.
// The white-cell criterion is only evaluated when a count is present.
func SIRS(v vitals.Snapshot) int {
	score := 0
	if v.Temperature > 38.0 || v.Temperature < 36.0 {
		score++
	}
	if v.HeartRate > 90 {
		score++
	}
	if v.RespiratoryRate > 20 {
		score++
	}
	if wbc := v.WhiteBloodCells; wbc != nil && (*wbc > 12.0 || *wbc < 4.0) {
		score++
	}
	return score
}
