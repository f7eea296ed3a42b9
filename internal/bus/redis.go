package bus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis publishes on a Redis channel and stores presence keys.
type Redis struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedis connects lazily to the server at rawURL. Both
// redis://host:port/db URLs and bare host:port addresses are accepted.
func NewRedis(rawURL string, timeout time.Duration) (*Redis, error) {
	opts, err := parseRedisURL(rawURL)
	if err != nil {
		return nil, err
	}
	return NewRedisFromClient(redis.NewClient(opts), timeout), nil
}

// NewRedisFromClient wraps an existing client. The bus takes ownership of it.
func NewRedisFromClient(client *redis.Client, timeout time.Duration) *Redis {
	return &Redis{client: client, timeout: timeout}
}

func parseRedisURL(rawURL string) (*redis.Options, error) {
	if !strings.Contains(rawURL, "://") {
		return &redis.Options{Addr: rawURL}, nil
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return opts, nil
}

// Ping checks the server is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

// Publish issues PUBLISH on msg.Channel with the JSON-encoded message.
func (r *Redis) Publish(ctx context.Context, msg Message) error {
	data, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.client.Publish(ctx, msg.Channel, data).Err(); err != nil {
		return fmt.Errorf("%w: channel %s: %w", ErrPublish, msg.Channel, err)
	}
	return nil
}

// SetWithTTL stores value under key. A zero ttl keeps the key forever.
func (r *Redis) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Close releases the client's connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
