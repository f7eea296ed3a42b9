package core

import (
	"encoding/json"
	"fmt"
)

// Control is an in-band message a client sends over its connection.
// It is either Keepalive or JoinSession.
type Control interface {
	control()
}

// Keepalive is the literal "ping". It changes nothing and gets no reply.
type Keepalive struct{}

// JoinSession moves the connection to another game session.
type JoinSession struct {
	SessionID int64
}

func (Keepalive) control()   {}
func (JoinSession) control() {}

type joinSessionFrame struct {
	GameID *int64 `json:"game_id"`
}

// ParseControl decodes one text frame. Malformed input yields an error
// wrapping ErrMalformedControl.
func ParseControl(text string) (Control, error) {
	if text == "ping" || text == "ping\n" {
		return Keepalive{}, nil
	}

	var frame joinSessionFrame
	if err := json.Unmarshal([]byte(text), &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedControl, err)
	}
	if frame.GameID == nil {
		return nil, fmt.Errorf("%w: missing game_id", ErrMalformedControl)
	}
	if *frame.GameID < 0 {
		return nil, fmt.Errorf("%w: negative game_id %d", ErrMalformedControl, *frame.GameID)
	}
	return JoinSession{SessionID: *frame.GameID}, nil
}

// Apply executes a parsed control message for connection id and reports
// whether registry state changed.
func (r *Registry) Apply(id string, c Control) bool {
	switch c := c.(type) {
	case JoinSession:
		return r.SetSession(id, c.SessionID)
	default:
		return false
	}
}
