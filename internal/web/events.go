package web

import (
	"encoding/json"
	"time"

	"github.com/blockedby/regstats/internal/dashboard"
)

// WebSocket event types
const (
	EventStateChanged = "state.changed"
)

// WSEvent represents a structured WebSocket message
type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// StatePayload is the payload for EventStateChanged. It carries the whole
// state so a dropped event never leaves a browser inconsistent.
type StatePayload struct {
	Phase         dashboard.Phase         `json:"phase"`
	Reason        string                  `json:"reason,omitempty"`
	ErrorKind     string                  `json:"error_kind,omitempty"`
	FetchID       string                  `json:"fetch_id,omitempty"`
	FetchedAt     *time.Time              `json:"fetched_at,omitempty"`
	HasCredential bool                    `json:"has_credential"`
	Stats         *dashboard.Presentation `json:"stats,omitempty"`
}

// NewStatePayload builds the client-facing view of a state.
func NewStatePayload(s dashboard.State) StatePayload {
	p := StatePayload{
		Phase:         s.Phase,
		Reason:        s.Reason,
		ErrorKind:     s.ErrorKind,
		FetchID:       s.FetchID,
		HasCredential: s.HasCredential,
		Stats:         dashboard.Present(s.Snapshot),
	}
	if !s.FetchedAt.IsZero() {
		t := s.FetchedAt
		p.FetchedAt = &t
	}
	return p
}

// StateChangedEvent encodes a state transition for broadcast.
func StateChangedEvent(s dashboard.State) []byte {
	evt := WSEvent{
		Type:    EventStateChanged,
		Payload: NewStatePayload(s),
	}
	b, _ := json.Marshal(evt)
	return b
}
