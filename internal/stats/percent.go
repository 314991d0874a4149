package stats

import "strconv"

// Percent returns part/whole*100, or 0 when whole is not positive.
func Percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// FormatPercent renders a percentage with one decimal, e.g. "48.6%".
func FormatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', 1, 64) + "%"
}

// BarWidth clamps a percentage to [0, 100] so inconsistent counts
// never overflow a progress bar.
func BarWidth(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// Bar is one column of the per-category chart.
type Bar struct {
	Key    string  `json:"key"`
	Name   string  `json:"name"`
	Total  int     `json:"total"`
	Height float64 `json:"height"` // percent of the tallest bar
}

// Chart returns one bar per category, scaled to the largest category total.
func Chart(s *Snapshot) []Bar {
	entries := s.Categories()

	tallest := 0
	for _, e := range entries {
		if e.Total > tallest {
			tallest = e.Total
		}
	}

	bars := make([]Bar, 0, len(entries))
	for _, e := range entries {
		bars = append(bars, Bar{
			Key:    e.Key,
			Name:   e.Name,
			Total:  e.Total,
			Height: BarWidth(Percent(e.Total, tallest)),
		})
	}
	return bars
}
