package http

import (
	"context"
	"errors"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ZakFarmer/rooklift-ws-service/internal/config"
	"github.com/ZakFarmer/rooklift-ws-service/internal/core"
	"github.com/ZakFarmer/rooklift-ws-service/internal/metrics"
	"github.com/ZakFarmer/rooklift-ws-service/internal/proto"
)

const writeTimeout = 10 * time.Second

var (
	errNonText     = errors.New("non-text frame")
	errIdleTimeout = errors.New("idle timeout")
)

// WSHandler upgrades connections for registered tokens and bridges them to
// the registry: one read loop and one write loop per socket.
type WSHandler struct {
	registry *core.Registry
	metrics  *metrics.Relay
	log      *zerolog.Logger

	maxMessageBytes  int64
	sendBuffer       int
	idleTimeout      time.Duration
	controlRateLimit int

	closing  context.Context
	shutdown context.CancelFunc
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(registry *core.Registry, cfg *config.Config, logger *zerolog.Logger, m *metrics.Relay) *WSHandler {
	closing, shutdown := context.WithCancel(context.Background())
	return &WSHandler{
		registry:         registry,
		metrics:          m,
		log:              logger,
		maxMessageBytes:  cfg.MaxMessageBytes,
		sendBuffer:       cfg.SendBuffer,
		idleTimeout:      cfg.IdleTimeout,
		controlRateLimit: cfg.ControlRateLimit,
		closing:          closing,
		shutdown:         shutdown,
	}
}

// Shutdown closes every live socket with StatusGoingAway.
func (h *WSHandler) Shutdown() {
	h.shutdown()
}

// Handle serves GET /ws/:id. The token must have been registered first.
func (h *WSHandler) Handle(c *gin.Context) {
	id := c.Param("id")

	entry, ok := h.registry.Lookup(id)
	if !ok {
		c.JSON(http.StatusNotFound, proto.ErrorResponse{Error: core.ErrUnknownConnection.Error(), Code: core.ErrCodeNotFound})
		return
	}
	// A concurrent second upgrade can still slip past this check; the later
	// Attach wins and the first socket stops receiving.
	if entry.Attached() {
		c.JSON(http.StatusConflict, proto.ErrorResponse{Error: core.ErrAlreadyAttached.Error(), Code: core.ErrCodeAlreadyAttached})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Str("conn_id", id).Msg("ws accept error")
		return
	}

	h.serve(c.Request.Context(), conn, id)
}

func (h *WSHandler) serve(ctx context.Context, conn *websocket.Conn, id string) {
	defer conn.CloseNow()
	if h.maxMessageBytes > 0 {
		conn.SetReadLimit(h.maxMessageBytes)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := context.AfterFunc(h.closing, func() {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
	})
	defer stop()

	out := core.NewOutbound(h.sendBuffer)
	defer out.Close()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.writeLoop(ctx, conn, id, out)
	}()

	if !h.registry.Attach(id, out) {
		cancel()
		<-errCh
		conn.Close(websocket.StatusPolicyViolation, "unknown connection token")
		return
	}
	h.log.Info().Str("conn_id", id).Msg("connected")

	go func() {
		errCh <- h.readLoop(ctx, conn, id)
	}()

	err := <-errCh
	cancel() // stop the other goroutine
	<-errCh

	h.registry.Unregister(id)
	out.Close()

	status, reason := closeStatus(err)
	if status == websocket.StatusInternalError {
		h.log.Warn().Err(err).Str("conn_id", id).Msg("ws connection closed with error")
	}
	conn.Close(status, reason)
	h.log.Info().Str("conn_id", id).Msg("disconnected")
}

func closeStatus(err error) (websocket.StatusCode, string) {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return websocket.StatusNormalClosure, "closing"
	case errors.Is(err, errNonText):
		return websocket.StatusUnsupportedData, "text frames only"
	case errors.Is(err, errIdleTimeout):
		return websocket.StatusPolicyViolation, "idle timeout"
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway, websocket.StatusNoStatusRcvd:
		return websocket.StatusNormalClosure, "closing"
	}
	return websocket.StatusInternalError, "internal error"
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, id string) error {
	limiter := newRateLimiter(h.controlRateLimit)

	for {
		readCtx, cancelRead := ctx, context.CancelFunc(func() {})
		if h.idleTimeout > 0 {
			readCtx, cancelRead = context.WithTimeout(ctx, h.idleTimeout)
		}

		typ, data, err := conn.Read(readCtx)
		idle := errors.Is(readCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
		cancelRead()

		if err != nil {
			h.log.Debug().Err(err).Str("conn_id", id).Msg("read ws frame")
			if idle {
				return errIdleTimeout
			}
			return err
		}
		if typ != websocket.MessageText || !utf8.Valid(data) {
			h.log.Warn().Str("conn_id", id).Msg("non-text frame, closing")
			return errNonText
		}

		h.handleControl(id, string(data), limiter)
	}
}

func (h *WSHandler) handleControl(id, text string, limiter *rateLimiter) {
	if !limiter.allow() {
		h.metrics.ObserveRateLimited()
		h.log.Warn().Str("conn_id", id).Msg("control rate limit exceeded, frame ignored")
		return
	}

	ctrl, err := core.ParseControl(text)
	if err != nil {
		h.metrics.ObserveMalformedControl()
		h.log.Warn().Err(err).Str("conn_id", id).Msg("ignoring malformed control message")
		return
	}

	switch c := ctrl.(type) {
	case core.Keepalive:
		h.log.Debug().Str("conn_id", id).Msg("keepalive")
	case core.JoinSession:
		if h.registry.Apply(id, c) {
			h.log.Info().Str("conn_id", id).Int64("game_id", c.SessionID).Msg("joined game")
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, id string, out *core.Outbound) error {
	for {
		select {
		case payload := <-out.C():
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, []byte(payload))
			cancel()
			if err != nil {
				h.log.Error().Err(err).Str("conn_id", id).Msg("write ws payload")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
