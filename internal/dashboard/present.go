package dashboard

import "github.com/blockedby/regstats/internal/stats"

// Share is one gender count with its formatted percentage and bar width.
type Share struct {
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
	Label   string  `json:"label"`
	Width   float64 `json:"width"`
}

// CategoryCard is the rendering model of one category.
type CategoryCard struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Total  int    `json:"total"`
	Male   Share  `json:"male"`
	Female Share  `json:"female"`
}

// Presentation is everything the loaded screen shows, with all arithmetic done.
type Presentation struct {
	TotalUsers int            `json:"total_users"`
	Male       Share          `json:"male"`
	Female     Share          `json:"female"`
	Categories []CategoryCard `json:"categories"`
	Chart      []stats.Bar    `json:"chart"`
}

// Present computes the rendering model for a snapshot. Zero denominators
// yield 0% shares.
func Present(s *stats.Snapshot) *Presentation {
	if s == nil {
		return nil
	}

	p := &Presentation{
		TotalUsers: s.Total.AllUsers,
		Male:       share(s.Total.AllMale, s.Total.MalePercent()),
		Female:     share(s.Total.AllFemale, s.Total.FemalePercent()),
		Chart:      stats.Chart(s),
	}

	for _, e := range s.Categories() {
		p.Categories = append(p.Categories, CategoryCard{
			Key:    e.Key,
			Name:   e.Name,
			Total:  e.Total,
			Male:   share(e.Male, e.MalePercent()),
			Female: share(e.Female, e.FemalePercent()),
		})
	}
	return p
}

func share(count int, pct float64) Share {
	return Share{
		Count:   count,
		Percent: pct,
		Label:   stats.FormatPercent(pct),
		Width:   stats.BarWidth(pct),
	}
}
