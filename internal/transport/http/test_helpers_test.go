package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ZakFarmer/rooklift-ws-service/internal/bus"
	"github.com/ZakFarmer/rooklift-ws-service/internal/config"
	"github.com/ZakFarmer/rooklift-ws-service/internal/core"
	"github.com/ZakFarmer/rooklift-ws-service/internal/metrics"
	"github.com/ZakFarmer/rooklift-ws-service/internal/proto"
)

const waitFor = 2 * time.Second

// recordingPublisher captures mirrored messages and can be told to fail.
type recordingPublisher struct {
	mu       sync.Mutex
	messages []bus.Message
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, msg bus.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *recordingPublisher) published() []bus.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]bus.Message(nil), p.messages...)
}

// memoryStore is an in-memory bus.KeyValueStore.
type memoryStore struct {
	mu   sync.Mutex
	keys map[string]string
	ttls map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *memoryStore) SetWithTTL(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = value
	s.ttls[key] = ttl
	return nil
}

func (s *memoryStore) get(key string) (string, time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.keys[key]
	return v, s.ttls[key], ok
}

type testSetup struct {
	cfg  config.Config
	opts []Option
}

type testOption func(*testSetup)

func withConfig(mutate func(*config.Config)) testOption {
	return func(s *testSetup) { mutate(&s.cfg) }
}

func withServerOption(opt Option) testOption {
	return func(s *testSetup) { s.opts = append(s.opts, opt) }
}

type testEnv struct {
	ts        *httptest.Server
	server    *http.Server
	registry  *core.Registry
	publisher *recordingPublisher
	metrics   *metrics.Relay
}

func startTestServer(t *testing.T, opts ...testOption) *testEnv {
	t.Helper()

	setup := testSetup{cfg: config.Default()}
	setup.cfg.Addr = ":0"
	for _, opt := range opts {
		opt(&setup)
	}

	logger := zerolog.Nop()
	registry := core.NewRegistry()
	publisher := &recordingPublisher{}
	gatherer := prometheus.NewRegistry()
	m := metrics.New(gatherer, registry)
	router := core.NewRouter(registry, publisher, m)

	serverOpts := append([]Option{WithMetrics(m, gatherer)}, setup.opts...)
	server := NewServer(registry, router, &setup.cfg, &logger, serverOpts...)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, server: server, registry: registry, publisher: publisher, metrics: m}
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := e.ts.Client().Post(e.ts.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) register(t *testing.T, userID, gameID int64) proto.RegisterResponse {
	t.Helper()
	resp := e.postJSON(t, "/register", map[string]int64{"user_id": userID, "game_id": gameID})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out proto.RegisterResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (e *testEnv) broadcast(t *testing.T, gameID int64, userID *int64, message string) *http.Response {
	t.Helper()
	return e.postJSON(t, "/broadcast", proto.BroadcastRequest{GameID: &gameID, UserID: userID, Message: &message})
}

func (e *testEnv) wsURL(path string) string {
	return strings.Replace(e.ts.URL, "http", "ws", 1) + path
}

// connect registers a connection, opens its websocket and waits until the
// registry sees it attached.
func (e *testEnv) connect(t *testing.T, userID, gameID int64) (*websocket.Conn, string) {
	t.Helper()
	reg := e.register(t, userID, gameID)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, e.wsURL(reg.URL), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })

	require.Eventually(t, func() bool {
		entry, ok := e.registry.Lookup(reg.Token)
		return ok && entry.Attached()
	}, waitFor, 10*time.Millisecond)
	return conn, reg.Token
}

// join sends a join frame and waits for the registry to apply it.
func (e *testEnv) join(t *testing.T, conn *websocket.Conn, token string, gameID int64) {
	t.Helper()
	writeText(t, conn, `{"game_id":`+jsonInt(gameID)+`}`)
	require.Eventually(t, func() bool {
		entry, ok := e.registry.Lookup(token)
		return ok && entry.SessionID == gameID
	}, waitFor, 10*time.Millisecond)
}

func writeText(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(text)))
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	typ, data, err := conn.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, websocket.MessageText, typ)
	return string(data)
}

func jsonInt(v int64) string {
	data, _ := json.Marshal(v)
	return string(data)
}

func ptr[T any](v T) *T { return &v }
