package bedstatus

import (
	"testing"

	"github.com/ehr/icurisk/internal/domain/sepsis"
	"github.com/ehr/icurisk/internal/domain/vitals"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		reading   vitals.Reading
		wantState sepsis.Status
		wantColor Color
		wantHex   string
	}{
		{
			name:      "normal vitals",
			reading:   vitals.Reading{},
			wantState: sepsis.StatusStable,
			wantColor: ColorGreen,
			wantHex:   "#28a745",
		},
		{
			name: "fever and tachycardia",
			reading: vitals.Reading{
				Temperature: vitals.Float(38.6),
				HeartRate:   vitals.Float(95),
			},
			wantState: sepsis.StatusAlert,
			wantColor: ColorYellow,
			wantHex:   "#ffc107",
		},
		{
			name: "septic picture",
			reading: vitals.Reading{
				Temperature:           vitals.Float(39.2),
				HeartRate:             vitals.Float(125),
				RespiratoryRate:       vitals.Float(22),
				OxygenSaturation:      vitals.Float(89),
				BloodPressureSystolic: vitals.Float(85),
			},
			wantState: sepsis.StatusCritical,
			wantColor: ColorRed,
			wantHex:   "#dc3545",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.reading.Normalize())
			if got.Status != tt.wantState {
				t.Errorf("expected status %s, got %s", tt.wantState, got.Status)
			}
			if got.Color != tt.wantColor {
				t.Errorf("expected color %s, got %s", tt.wantColor, got.Color)
			}
			if got.Hex != tt.wantHex {
				t.Errorf("expected hex %s, got %s", tt.wantHex, got.Hex)
			}
		})
	}
}

func TestClassify_DefaultVitalsScoreZero(t *testing.T) {
	got := Classify(vitals.Reading{}.Normalize())
	if got.Probability != 0 {
		t.Errorf("expected probability 0, got %v", got.Probability)
	}
}

func TestColorFor_UnknownStatus(t *testing.T) {
	if c := ColorFor(sepsis.Status("unknown")); c != ColorGray {
		t.Errorf("expected gray, got %s", c)
	}
	if h := Color("purple").Hex(); h != "#6c757d" {
		t.Errorf("expected gray hex, got %s", h)
	}
}
