// Package bus mirrors relay traffic onto an external publish/subscribe system
// so that other processes observe game sessions.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Channel is the fixed channel every mirrored message is published on.
const Channel = "games"

const defaultPublishTimeout = 2 * time.Second

// ErrPublish wraps every failure to hand a message to the bus.
var ErrPublish = errors.New("bus publish failed")

// Payload is the body consumers on the bus parse.
type Payload struct {
	FEN    string `json:"fen"`
	GameID int64  `json:"game_id"`
}

// Message is the wire envelope published as a single JSON string.
type Message struct {
	ID      string  `json:"id"`
	Channel string  `json:"channel"`
	Payload Payload `json:"payload"`
}

// NewMessage addresses payload text for gameID to Channel under a fresh id.
func NewMessage(gameID int64, fen string) Message {
	return Message{
		ID:      uuid.NewString(),
		Channel: Channel,
		Payload: Payload{FEN: fen, GameID: gameID},
	}
}

// Encode renders the message as published on the wire.
func (m Message) Encode() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode bus message: %w", err)
	}
	return string(data), nil
}

// Publisher hands messages to the bus. Publish is one-way: success means the
// bus accepted the message, nothing more.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// KeyValueStore is implemented by buses that can also hold expiring keys.
type KeyValueStore interface {
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
}

// PresenceKey names the key advertising a registered connection token.
func PresenceKey(token string) string {
	return "relay:conn:" + token
}

// Noop accepts and discards everything. Used when no bus is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Message) error { return nil }
func (Noop) Close() error                           { return nil }

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
