package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/blockedby/regstats/internal/dashboard"
	"github.com/blockedby/regstats/internal/stats"
	"github.com/blockedby/regstats/internal/statsclient"
)

const barCells = 20

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	cardStyle  = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	maleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#388BFD"))
	femaleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F778BA"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	okStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#3FB950"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

func renderSnapshot(s *stats.Snapshot) string {
	p := dashboard.Present(s)

	totals := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Total users", fmt.Sprint(p.TotalUsers)),
		card("Male", fmt.Sprintf("%d  %s", p.Male.Count, p.Male.Label)),
		card("Female", fmt.Sprintf("%d  %s", p.Female.Count, p.Female.Label)),
	)

	cards := make([]string, 0, len(p.Categories))
	for _, c := range p.Categories {
		body := fmt.Sprintf("%s\n%s\n%s",
			cardValueStyle.Render(fmt.Sprintf("Total: %d", c.Total)),
			split(c.Male.Width, c.Female.Width),
			mutedStyle.Render(fmt.Sprintf("M %d %s · F %d %s", c.Male.Count, c.Male.Label, c.Female.Count, c.Female.Label)),
		)
		cards = append(cards, cardStyle.Render(cardTitleStyle.Render(c.Name)+"\n"+body))
	}

	var rows []string
	for i := 0; i < len(cards); i += 3 {
		end := min(i+3, len(cards))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:end]...))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Registration statistics"),
		totals,
		titleStyle.Render("By category"),
		lipgloss.JoinVertical(lipgloss.Left, rows...),
		titleStyle.Render("Registrations per category"),
		chart(p.Chart),
	)
}

func card(label, value string) string {
	return cardStyle.Render(cardTitleStyle.Render(label) + "\n" + cardValueStyle.Render(value))
}

// split draws the male and female shares side by side in a fixed-width bar.
func split(male, female float64) string {
	m := int(male / 100 * barCells)
	f := int(female / 100 * barCells)
	if m+f > barCells {
		f = barCells - m
	}
	return maleStyle.Render(strings.Repeat("█", m)) +
		femaleStyle.Render(strings.Repeat("█", f)) +
		mutedStyle.Render(strings.Repeat("░", barCells-m-f))
}

func chart(bars []stats.Bar) string {
	width := 0
	for _, b := range bars {
		width = max(width, lipgloss.Width(b.Name))
	}

	lines := make([]string, 0, len(bars))
	for _, b := range bars {
		n := int(b.Height / 100 * barCells * 2)
		lines = append(lines, fmt.Sprintf("%-*s %s %d", width, b.Name, okStyle.Render(strings.Repeat("▇", n)), b.Total))
	}
	return strings.Join(lines, "\n")
}

func renderReport(r statsclient.ConnectionReport) string {
	if r.OK {
		return okStyle.Render("✔ " + r.Message)
	}
	return errorStyle.Render("✘ " + r.Message)
}

func renderError(err error, adminURL string) string {
	out := errorStyle.Render("Error: " + err.Error())
	if errors.Is(err, statsclient.ErrAuthFailure) || errors.Is(err, statsclient.ErrTokenExpired) {
		out += "\n" + mutedStyle.Render("Check the credentials or log in at "+adminURL)
	}
	return out
}
