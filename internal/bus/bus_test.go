package bus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZakFarmer/rooklift-ws-service/internal/config"
)

func TestNewMessageAddressesGamesChannel(t *testing.T) {
	msg := NewMessage(42, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1")

	assert.Equal(t, "games", msg.Channel)
	assert.Equal(t, int64(42), msg.Payload.GameID)
	_, err := uuid.Parse(msg.ID)
	assert.NoError(t, err)

	other := NewMessage(42, "x")
	assert.NotEqual(t, msg.ID, other.ID)
}

func TestEncodeMatchesWireContract(t *testing.T) {
	msg := Message{ID: "6f1c", Channel: Channel, Payload: Payload{FEN: "hello", GameID: 10}}

	data, err := msg.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"6f1c","channel":"games","payload":{"fen":"hello","game_id":10}}`, data)

	var decoded Message
	require.NoError(t, json.Unmarshal([]byte(data), &decoded))
	assert.Equal(t, msg, decoded)
}

func TestPresenceKey(t *testing.T) {
	assert.Equal(t, "relay:conn:abc", PresenceKey("abc"))
}

func TestNoopAcceptsEverything(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.Publish(context.Background(), NewMessage(1, "x")))
	assert.NoError(t, p.Close())
}

func TestParseRedisURL(t *testing.T) {
	opts, err := parseRedisURL("redis://127.0.0.1:6379/3")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", opts.Addr)
	assert.Equal(t, 3, opts.DB)

	opts, err = parseRedisURL("cache:6380")
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)

	_, err = parseRedisURL("http://cache:6379")
	assert.Error(t, err)
}

func TestRedisPublishFailureWrapsErrPublish(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	r := NewRedisFromClient(client, time.Second)
	t.Cleanup(func() { _ = r.Close() })

	err := r.Publish(context.Background(), NewMessage(1, "x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPublish)

	assert.Error(t, r.SetWithTTL(context.Background(), PresenceKey("t"), "1:1", time.Minute))
	assert.Error(t, r.Ping(context.Background()))
}

func TestNATSConnectFailure(t *testing.T) {
	_, err := NewNATS("nats://127.0.0.1:1", 200*time.Millisecond)
	assert.Error(t, err)
}

func TestOpenSelectsDriver(t *testing.T) {
	p, err := Open(config.BusConfig{Driver: "none"})
	require.NoError(t, err)
	assert.IsType(t, Noop{}, p)

	p, err = Open(config.BusConfig{Driver: "redis", RedisURL: "redis://127.0.0.1:6379/0"})
	require.NoError(t, err)
	assert.IsType(t, &Redis{}, p)
	_, isKV := p.(KeyValueStore)
	assert.True(t, isKV)
	require.NoError(t, p.Close())

	_, err = Open(config.BusConfig{Driver: "kafka"})
	assert.Error(t, err)
}
