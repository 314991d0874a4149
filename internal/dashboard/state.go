// Package dashboard implements the statistics view state machine: an optional
// password gate followed by a fetch lifecycle driven only by operator actions.
package dashboard

import (
	"errors"
	"time"

	"github.com/blockedby/regstats/internal/stats"
)

// Phase is the active variant of the view state.
type Phase string

const (
	PhaseLocked  Phase = "locked"
	PhaseLoading Phase = "loading"
	PhaseError   Phase = "error"
	PhaseLoaded  Phase = "loaded"
)

// Trigger names the action that caused a transition.
type Trigger string

const (
	TriggerStart           Trigger = "start"
	TriggerUnlock          Trigger = "unlock"
	TriggerRefresh         Trigger = "refresh"
	TriggerRetry           Trigger = "retry"
	TriggerClearCredential Trigger = "clear_credential"
	TriggerFetchDone       Trigger = "fetch_done"
)

// transitions lists, per operator trigger, the phases it may fire from.
// Every one of them enters PhaseLoading.
var transitions = map[Trigger]map[Phase]bool{
	TriggerUnlock:          {PhaseLocked: true},
	TriggerRefresh:         {PhaseLoaded: true, PhaseLoading: true},
	TriggerRetry:           {PhaseError: true},
	TriggerClearCredential: {PhaseLoaded: true, PhaseError: true},
}

var (
	// ErrLocked is returned for any action other than unlock while the gate is closed.
	ErrLocked = errors.New("dashboard is locked")
	// ErrWrongPassword is returned when the gate rejects the password.
	ErrWrongPassword = errors.New("wrong password")
	// ErrInvalidTransition is returned when the action is not valid in the current phase.
	ErrInvalidTransition = errors.New("action not allowed in current state")
)

// State is an immutable copy of the view state. Only the fields of the
// active phase are set.
type State struct {
	Phase Phase `json:"phase"`

	// error
	Reason    string `json:"reason,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`

	// loaded
	Snapshot  *stats.Snapshot `json:"snapshot,omitempty"`
	FetchedAt time.Time       `json:"fetched_at,omitempty"`

	// diagnostics
	FetchID       string  `json:"fetch_id,omitempty"`
	Trigger       Trigger `json:"trigger,omitempty"`
	HasCredential bool    `json:"has_credential"`
}

// Allows reports whether trigger may fire from the state's phase.
func (s State) Allows(trigger Trigger) bool {
	return transitions[trigger][s.Phase]
}
