// Package stats holds the registration statistics model and the arithmetic used to render it.
package stats

import (
	"fmt"
	"sort"
)

// Category keys in display order.
const (
	KeyRoboFutbol = "rfutbol"
	KeyRoboSumo   = "rsumo"
	KeyInventions = "fixtirolar"
	KeyAI         = "ai"
	KeyContest    = "contest"
)

// CategoryKeys is the fixed set of participation tracks, in display order.
var CategoryKeys = []string{KeyRoboFutbol, KeyRoboSumo, KeyInventions, KeyAI, KeyContest}

// Totals contains the registration counts across all categories.
type Totals struct {
	AllUsers  int `json:"all_users" yaml:"all_users"`
	AllMale   int `json:"all_male" yaml:"all_male"`
	AllFemale int `json:"all_female" yaml:"all_female"`
}

// Category contains the registration counts for one participation track.
type Category struct {
	Name   string `json:"name" yaml:"name"`
	Total  int    `json:"total" yaml:"total"`
	Male   int    `json:"male" yaml:"male"`
	Female int    `json:"female" yaml:"female"`
}

// Snapshot is one fetched copy of the statistics payload.
type Snapshot struct {
	Total      Totals              `json:"total" yaml:"total"`
	Directions map[string]Category `json:"directions" yaml:"directions"`
}

// CategoryEntry pairs a category with its key.
type CategoryEntry struct {
	Key string
	Category
}

// Categories returns the categories in display order: known keys first,
// then any keys the service added, sorted.
func (s *Snapshot) Categories() []CategoryEntry {
	entries := make([]CategoryEntry, 0, len(s.Directions))
	known := make(map[string]bool, len(CategoryKeys))

	for _, key := range CategoryKeys {
		known[key] = true
		if c, ok := s.Directions[key]; ok {
			entries = append(entries, CategoryEntry{Key: key, Category: c})
		}
	}

	var extra []string
	for key := range s.Directions {
		if !known[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		entries = append(entries, CategoryEntry{Key: key, Category: s.Directions[key]})
	}

	return entries
}

// Validate rejects negative counts. Counts that merely disagree with each
// other (male + female > total) are accepted and rendered as-is.
func (s *Snapshot) Validate() error {
	if s.Total.AllUsers < 0 || s.Total.AllMale < 0 || s.Total.AllFemale < 0 {
		return fmt.Errorf("negative totals: %+v", s.Total)
	}
	for key, c := range s.Directions {
		if c.Total < 0 || c.Male < 0 || c.Female < 0 {
			return fmt.Errorf("negative counts in category %q", key)
		}
	}
	return nil
}

// MalePercent is the share of male registrations across all users.
func (t Totals) MalePercent() float64 {
	return Percent(t.AllMale, t.AllUsers)
}

// FemalePercent is the share of female registrations across all users.
func (t Totals) FemalePercent() float64 {
	return Percent(t.AllFemale, t.AllUsers)
}

// MalePercent is the share of male registrations in the category.
func (c Category) MalePercent() float64 {
	return Percent(c.Male, c.Total)
}

// FemalePercent is the share of female registrations in the category.
func (c Category) FemalePercent() float64 {
	return Percent(c.Female, c.Total)
}
