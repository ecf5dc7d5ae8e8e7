package bedstatus

import (
	"github.com/ehr/icurisk/internal/domain/sepsis"
	"github.com/ehr/icurisk/internal/domain/vitals"
)

// Color is the display colour of a bed.
type Color string

const (
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorRed    Color = "red"
	ColorGray   Color = "gray"
)

var hexColors = map[Color]string{
	ColorGreen:  "#28a745",
	ColorYellow: "#ffc107",
	ColorRed:    "#dc3545",
	ColorGray:   "#6c757d",
}

// Hex returns the colour's display hex code.
func (c Color) Hex() string {
	if h, ok := hexColors[c]; ok {
		return h
	}
	return hexColors[ColorGray]
}

// Status is the classification of a single bed.
type Status struct {
	Status      sepsis.Status `json:"status"`
	Color       Color         `json:"color"`
	Hex         string        `json:"hex"`
	Probability float64       `json:"probability"`
}

// ColorFor maps a sepsis status to its bed colour.
func ColorFor(s sepsis.Status) Color {
	switch s {
	case sepsis.StatusStable:
		return ColorGreen
	case sepsis.StatusAlert:
		return ColorYellow
	case sepsis.StatusCritical:
		return ColorRed
	default:
		return ColorGray
	}
}

// Classify scores the current vitals without labs and colours the bed.
func Classify(v vitals.Snapshot) Status {
	res := sepsis.Score(v, nil)
	c := ColorFor(res.Status)
	return Status{
		Status:      res.Status,
		Color:       c,
		Hex:         c.Hex(),
		Probability: res.Probability,
	}
}
