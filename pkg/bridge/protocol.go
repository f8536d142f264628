package bridge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"
)

// Close codes with special meaning to the bridge. A close with either code
// is final and never retried.
const (
	CloseNormal          = websocket.CloseNormalClosure
	ClosePolicyViolation = websocket.ClosePolicyViolation
	closeAbnormal        = websocket.CloseAbnormalClosure
)

// IsTerminalClose reports whether a channel closed with code must not be
// reconnected automatically.
func IsTerminalClose(code int) bool {
	return code == CloseNormal || code == ClosePolicyViolation
}

// Inbound event types.
const (
	EventTypeConnected  = "connected"
	EventTypeTranscript = "transcript"
	EventTypeResponse   = "response"
	EventTypeAudio      = "audio"
	EventTypeState      = "state"
	EventTypeError      = "error"
	EventTypeInterrupt  = "interrupt"
	EventTypePing       = "ping"
	EventTypePong       = "pong"
)

// AgentState is the agent activity reported by state events.
type AgentState string

const (
	AgentSpeaking  AgentState = "SPEAKING"
	AgentListening AgentState = "LISTENING"
	AgentIdle      AgentState = "IDLE"
)

// Event is an inbound JSON frame. The set of implementations is closed;
// frames with an unrecognised type decode to *UnknownEvent.
type Event interface {
	eventType() string
}

// TypeOf returns the wire type of ev.
func TypeOf(ev Event) string {
	return ev.eventType()
}

// ConnectedEvent is the server greeting.
type ConnectedEvent struct {
	Message string `json:"message,omitempty"`
}

// TranscriptEvent is a speech recognition result.
type TranscriptEvent struct {
	Speaker    string   `json:"speaker"`
	Text       string   `json:"text"`
	IsFinal    bool     `json:"is_final"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// ResponseEvent is an authoritative agent utterance.
type ResponseEvent struct {
	Text string `json:"text"`
}

// AudioEvent carries inline audio. The wire value is base64.
type AudioEvent struct {
	Audio []byte `json:"audio"`
}

// StateEvent reports an agent state transition.
type StateEvent struct {
	To AgentState `json:"to"`
}

// ErrorEvent is a fatal server error. Servers use either field.
type ErrorEvent struct {
	Err string `json:"error,omitempty"`
	Msg string `json:"message,omitempty"`
}

// Text returns the server-supplied explanation.
func (e *ErrorEvent) Text() string {
	if e.Err != "" {
		return e.Err
	}
	return e.Msg
}

// InterruptEvent signals barge-in: playback must stop now.
type InterruptEvent struct{}

// PingEvent is a server keepalive.
type PingEvent struct{}

// PongEvent answers a client keepalive.
type PongEvent struct{}

// UnknownEvent is any frame whose type is not recognised.
type UnknownEvent struct {
	Type string
	Raw  json.RawMessage
}

func (*ConnectedEvent) eventType() string  { return EventTypeConnected }
func (*TranscriptEvent) eventType() string { return EventTypeTranscript }
func (*ResponseEvent) eventType() string   { return EventTypeResponse }
func (*AudioEvent) eventType() string      { return EventTypeAudio }
func (*StateEvent) eventType() string      { return EventTypeState }
func (*ErrorEvent) eventType() string      { return EventTypeError }
func (*InterruptEvent) eventType() string  { return EventTypeInterrupt }
func (*PingEvent) eventType() string       { return EventTypePing }
func (*PongEvent) eventType() string       { return EventTypePong }
func (e *UnknownEvent) eventType() string  { return e.Type }

// DecodeEvent parses a text frame.
func DecodeEvent(data []byte) (Event, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("bridge: decode frame: %w", err)
	}

	var ev Event
	switch env.Type {
	case EventTypeConnected:
		ev = &ConnectedEvent{}
	case EventTypeTranscript:
		ev = &TranscriptEvent{}
	case EventTypeResponse:
		ev = &ResponseEvent{}
	case EventTypeAudio:
		ev = &AudioEvent{}
	case EventTypeState:
		ev = &StateEvent{}
	case EventTypeError:
		ev = &ErrorEvent{}
	case EventTypeInterrupt:
		return &InterruptEvent{}, nil
	case EventTypePing:
		return &PingEvent{}, nil
	case EventTypePong:
		return &PongEvent{}, nil
	default:
		return &UnknownEvent{Type: env.Type, Raw: append(json.RawMessage(nil), data...)}, nil
	}
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("bridge: decode %s frame: %w", env.Type, err)
	}
	if se, ok := ev.(*StateEvent); ok {
		se.To = AgentState(strings.ToUpper(string(se.To)))
	}
	return ev, nil
}

// AuthFrame is the first frame sent on every channel.
type AuthFrame struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// NewAuthFrame returns the authentication frame for token.
func NewAuthFrame(token string) AuthFrame {
	return AuthFrame{Type: "auth", Token: token}
}

// controlFrame is a type-only outbound frame.
type controlFrame struct {
	Type string `json:"type"`
}

var (
	pingFrame = controlFrame{Type: EventTypePing}
	stopFrame = controlFrame{Type: "stop"}
)

// truncate shortens frame contents for logging.
func truncate(b []byte) string {
	const limit = 500
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
