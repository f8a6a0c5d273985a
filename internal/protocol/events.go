package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Event types carried in the "type" field of every frame.
const (
	TypeJoin    = "join"
	TypeChat    = "chat"
	TypeSystem  = "system"
	TypeMessage = "message"
	TypeUsers   = "users"
)

var ErrUnknownEventType = errors.New("unknown event type")

// Frame wraps every WS message. ID is only set on server‑originated frames.
type Frame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event is implemented by every payload variant.
type Event interface {
	EventType() string
}

// ──────────────────────────── Client → server ────────────────────────────────

type Join struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

type Chat struct {
	Message string `json:"message"`
}

// ──────────────────────────── Server → client ────────────────────────────────

type System struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type Message struct {
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type Users struct {
	Users     []string `json:"users"`
	Timestamp string   `json:"timestamp"`
}

func (Join) EventType() string    { return TypeJoin }
func (Chat) EventType() string    { return TypeChat }
func (System) EventType() string  { return TypeSystem }
func (Message) EventType() string { return TypeMessage }
func (Users) EventType() string   { return TypeUsers }

// Encode serialises ev into a single text frame. An empty id is omitted.
func Encode(id string, ev Event) ([]byte, error) {
	if u, ok := ev.(Users); ok && u.Users == nil {
		u.Users = []string{}
		ev = u
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", ev.EventType(), err)
	}
	return json.Marshal(Frame{Type: ev.EventType(), ID: id, Payload: payload})
}

// Decode parses a frame and its payload into the matching variant.
// Unknown types yield ErrUnknownEventType; the frame id is returned either way.
func Decode(data []byte) (string, Event, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return "", nil, fmt.Errorf("decode frame: %w", err)
	}

	var (
		ev  Event
		err error
	)
	switch f.Type {
	case TypeJoin:
		ev, err = decodePayload[Join](f)
	case TypeChat:
		ev, err = decodePayload[Chat](f)
	case TypeSystem:
		ev, err = decodePayload[System](f)
	case TypeMessage:
		ev, err = decodePayload[Message](f)
	case TypeUsers:
		ev, err = decodePayload[Users](f)
	default:
		return f.ID, nil, fmt.Errorf("%w: %q", ErrUnknownEventType, f.Type)
	}
	return f.ID, ev, err
}

func decodePayload[T Event](f Frame) (Event, error) {
	var p T
	if len(f.Payload) > 0 {
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", f.Type, err)
		}
	}
	return p, nil
}
