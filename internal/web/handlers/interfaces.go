package handlers

import (
	"context"

	"github.com/blockedby/regstats/internal/dashboard"
	"github.com/blockedby/regstats/internal/statsclient"
)

// StatsView defines the view state machine operations driven over HTTP.
type StatsView interface {
	State() dashboard.State
	Unlock(password string) (dashboard.State, error)
	Refresh() (dashboard.State, error)
	Retry() (dashboard.State, error)
	ClearCredential() (dashboard.State, error)
}

// ConnectionTester probes the upstream service.
type ConnectionTester interface {
	TestConnection(ctx context.Context) statsclient.ConnectionReport
	AdminURL() string
}
