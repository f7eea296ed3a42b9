package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS publishes mirrored messages on a NATS subject named after the channel.
type NATS struct {
	conn    *nats.Conn
	timeout time.Duration
}

// NewNATS dials url. Reconnects are retried forever once connected.
func NewNATS(url string, timeout time.Duration) (*NATS, error) {
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	conn, err := nats.Connect(url,
		nats.Name("rooklift-relay"),
		nats.Timeout(timeout),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return &NATS{conn: conn, timeout: timeout}, nil
}

// Publish sends the encoded message and flushes so that a dead server
// surfaces as an error instead of a silently buffered frame.
func (n *NATS) Publish(ctx context.Context, msg Message) error {
	data, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}

	if err := n.conn.Publish(msg.Channel, []byte(data)); err != nil {
		return fmt.Errorf("%w: subject %s: %w", ErrPublish, msg.Channel, err)
	}

	ctx, cancel := withTimeout(ctx, n.timeout)
	defer cancel()
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("%w: flush %s: %w", ErrPublish, msg.Channel, err)
	}
	return nil
}

// Close drops the connection.
func (n *NATS) Close() error {
	n.conn.Close()
	return nil
}
