package main

import (
	"errors"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"

	"github.com/blockedby/regstats/internal/stats"
	"github.com/blockedby/regstats/internal/statsclient"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func TestRenderSnapshot(t *testing.T) {
	out := renderSnapshot(stats.Sample())

	assert.Contains(t, out, "Total users")
	assert.Contains(t, out, "35")
	assert.Contains(t, out, "17  48.6%")
	assert.Contains(t, out, "18  51.4%")
	assert.Contains(t, out, "Robo Futbol")
	assert.Contains(t, out, "M 0 0.0% · F 0 0.0%")
}

func TestSplit_NeverOverflows(t *testing.T) {
	assert.Equal(t, barCells, lipgloss.Width(split(60, 60)))
	assert.Equal(t, barCells, lipgloss.Width(split(0, 0)))
	assert.Equal(t, barCells, lipgloss.Width(split(48.6, 51.4)))
}

func TestRenderError_AdminHint(t *testing.T) {
	auth := &statsclient.FetchError{Kind: statsclient.KindAuthFailure, Message: "token request failed: 400"}
	assert.Contains(t, renderError(auth, "http://x/admin/"), "http://x/admin/")

	transport := &statsclient.FetchError{Kind: statsclient.KindTransportFailure, Message: "network down"}
	assert.NotContains(t, renderError(transport, "http://x/admin/"), "admin")

	assert.Contains(t, renderError(errors.New("plain"), ""), "Error: plain")
}

func TestRenderReport(t *testing.T) {
	assert.Contains(t, renderReport(statsclient.ConnectionReport{OK: true, Message: "token authentication succeeded"}), "✔")
	assert.Contains(t, renderReport(statsclient.ConnectionReport{Message: "server error"}), "✘ server error")
}
