package http

import (
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ZakFarmer/rooklift-ws-service/internal/bus"
	"github.com/ZakFarmer/rooklift-ws-service/internal/config"
	"github.com/ZakFarmer/rooklift-ws-service/internal/core"
	"github.com/ZakFarmer/rooklift-ws-service/internal/metrics"
)

// Option customises the server.
type Option func(*options)

type options struct {
	presence    bus.KeyValueStore
	presenceTTL time.Duration
	metrics     *metrics.Relay
	gatherer    prometheus.Gatherer
}

// WithPresence advertises each registered token in kv for ttl.
func WithPresence(kv bus.KeyValueStore, ttl time.Duration) Option {
	return func(o *options) {
		o.presence = kv
		o.presenceTTL = ttl
	}
}

// WithMetrics records relay metrics in m and serves g on /metrics.
func WithMetrics(m *metrics.Relay, g prometheus.Gatherer) Option {
	return func(o *options) {
		o.metrics = m
		o.gatherer = g
	}
}

// NewServer builds an HTTP server with the control-plane and websocket routes.
func NewServer(registry *core.Registry, router *core.Router, cfg *config.Config, logger *zerolog.Logger, opts ...Option) *stdhttp.Server {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(CORSMiddleware(), gin.Recovery(), LoggerMiddleware(logger))

	api := NewControlHandlers(registry, router, logger, o.presence, o.presenceTTL)
	ws := NewWSHandler(registry, cfg, logger, o.metrics)

	engine.GET("/health", healthHandler)
	engine.POST("/register", api.Register)
	engine.DELETE("/register/:id", api.Unregister)
	engine.POST("/broadcast", api.Broadcast)
	engine.GET("/ws/:id", ws.Handle)
	if o.gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(o.gatherer, promhttp.HandlerOpts{})))
	}

	server := &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	// Hijacked websocket connections are not tracked by Shutdown.
	server.RegisterOnShutdown(ws.Shutdown)
	return server
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
