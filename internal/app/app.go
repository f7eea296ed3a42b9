package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ZakFarmer/rooklift-ws-service/internal/bus"
	"github.com/ZakFarmer/rooklift-ws-service/internal/config"
	"github.com/ZakFarmer/rooklift-ws-service/internal/core"
	"github.com/ZakFarmer/rooklift-ws-service/internal/metrics"
	transporthttp "github.com/ZakFarmer/rooklift-ws-service/internal/transport/http"
)

const busPingTimeout = 3 * time.Second

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	registry        *core.Registry
	bus             bus.Publisher
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	publisher, err := bus.Open(cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("init bus: %w", err)
	}
	return newWithPublisher(cfg, logger, publisher), nil
}

func newWithPublisher(cfg *config.Config, logger *zerolog.Logger, publisher bus.Publisher) *App {
	if r, ok := publisher.(*bus.Redis); ok {
		ctx, cancel := context.WithTimeout(context.Background(), busPingTimeout)
		// Not fatal: go-redis reconnects and broadcasts report 502 until it does.
		if err := r.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("redis not reachable at startup")
		}
		cancel()
	}
	logger.Info().Str("driver", cfg.Bus.Driver).Msg("bus initialized")

	registry := core.NewRegistry()

	var opts []transporthttp.Option
	var m *metrics.Relay
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(reg, registry)
		opts = append(opts, transporthttp.WithMetrics(m, reg))
	}
	if kv, ok := publisher.(bus.KeyValueStore); ok && cfg.Bus.PresenceTTL > 0 {
		opts = append(opts, transporthttp.WithPresence(kv, cfg.Bus.PresenceTTL))
	}

	router := core.NewRouter(registry, publisher, m)
	server := transporthttp.NewServer(registry, router, cfg, logger, opts...)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		registry:        registry,
		bus:             publisher,
		log:             logger,
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// cleanup closes the bus connection.
func (a *App) cleanup() {
	if a.bus == nil {
		return
	}
	if err := a.bus.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close bus")
		return
	}
	a.log.Info().Int("registered", a.registry.Len()).Msg("bus closed")
}
