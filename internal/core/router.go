package core

import (
	"context"
	"fmt"

	"github.com/ZakFarmer/rooklift-ws-service/internal/bus"
	"github.com/ZakFarmer/rooklift-ws-service/internal/metrics"
)

// Delivery summarises one fan-out pass. It is informational only; partial
// delivery is never reported as a failure.
type Delivery struct {
	Matched   int
	Delivered int
	Dropped   int
	Skipped   int
}

// Router fans relay messages out to registry entries and mirrors them onto the bus.
type Router struct {
	registry *Registry
	bus      bus.Publisher
	metrics  *metrics.Relay
}

// NewRouter builds a router. A nil publisher disables mirroring; nil metrics are ignored.
func NewRouter(registry *Registry, publisher bus.Publisher, m *metrics.Relay) *Router {
	return &Router{registry: registry, bus: publisher, metrics: m}
}

// Route delivers msg to every attached entry it matches, then publishes it to
// the bus whatever the local outcome. Only a bus failure is returned.
func (r *Router) Route(ctx context.Context, msg RelayMessage) (Delivery, error) {
	var d Delivery

	for _, e := range r.registry.SnapshotMatching(msg.Matches) {
		d.Matched++
		if e.Outbound == nil {
			d.Skipped++
			continue
		}
		if e.Outbound.Send(msg.Payload) {
			d.Delivered++
		} else {
			d.Dropped++
		}
	}
	r.metrics.ObserveFanOut(d.Delivered, d.Dropped)

	if r.bus == nil {
		return d, nil
	}
	if err := r.bus.Publish(ctx, bus.NewMessage(msg.SessionID, msg.Payload)); err != nil {
		r.metrics.ObserveBusFailure()
		return d, fmt.Errorf("mirror game %d: %w", msg.SessionID, err)
	}
	return d, nil
}
