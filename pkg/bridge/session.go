package bridge

import (
	"encoding/json"
	"time"

	"github.com/callwaiting/voxbridge/pkg/jsontime"
)

// Phase is the connection state machine position.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseOpenUnauthenticated
	PhaseConnected
	PhaseClosing
	PhaseClosed
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseConnecting:
		return "connecting"
	case PhaseOpenUnauthenticated:
		return "open_unauthenticated"
	case PhaseConnected:
		return "connected"
	case PhaseClosing:
		return "closing"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler.
func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Phase) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "connecting":
		*p = PhaseConnecting
	case "open_unauthenticated":
		*p = PhaseOpenUnauthenticated
	case "connected":
		*p = PhaseConnected
	case "closing":
		*p = PhaseClosing
	case "closed":
		*p = PhaseClosed
	default:
		*p = PhaseIdle
	}
	return nil
}

// Status collapses the phase into the session status shown to users.
func (p Phase) Status() SessionStatus {
	switch p {
	case PhaseConnecting, PhaseOpenUnauthenticated:
		return StatusConnecting
	case PhaseConnected:
		return StatusConnected
	default:
		return StatusDisconnected
	}
}

// SessionStatus is the user-facing session state.
type SessionStatus string

const (
	StatusConnecting   SessionStatus = "connecting"
	StatusConnected    SessionStatus = "connected"
	StatusDisconnected SessionStatus = "disconnected"
)

// Session describes one live voice interaction.
type Session struct {
	// ID is the tracking id issued at initiation.
	ID              string          `json:"session_id" msgpack:"session_id"`
	Status          SessionStatus   `json:"status" msgpack:"status"`
	StartedAt       jsontime.Milli  `json:"started_at" msgpack:"started_at"`
	EndedAt         *jsontime.Milli `json:"ended_at,omitempty" msgpack:"ended_at,omitempty"`
	DurationSeconds *int            `json:"duration_seconds,omitempty" msgpack:"duration_seconds,omitempty"`
	TotalMessages   int             `json:"total_messages" msgpack:"total_messages"`
}

// end marks the session disconnected at t.
func (s *Session) end(t time.Time) {
	ended := jsontime.FromTime(t)
	secs := int(ended.Sub(s.StartedAt) / time.Second)
	s.Status = StatusDisconnected
	s.EndedAt = &ended
	s.DurationSeconds = &secs
}

// Duration returns the session length, or zero while it is live.
func (s Session) Duration() time.Duration {
	if s.EndedAt == nil {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}
