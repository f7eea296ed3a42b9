// Package metrics exposes prometheus collectors for the relay.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "rooklift"

// Counts is the registry view sampled at scrape time.
type Counts interface {
	Len() int
	Attached() int
}

// Relay holds the relay's collectors. A nil *Relay records nothing.
type Relay struct {
	Broadcasts       prometheus.Counter
	Deliveries       prometheus.Counter
	Drops            prometheus.Counter
	BusFailures      prometheus.Counter
	MalformedControl prometheus.Counter
	RateLimited      prometheus.Counter
}

// New creates the relay collectors and registers them, together with gauges
// sampling counts, on reg.
func New(reg prometheus.Registerer, counts Counts) *Relay {
	m := &Relay{
		Broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "broadcasts_total",
			Help:      "Total number of fan-out passes.",
		}),
		Deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "deliveries_total",
			Help:      "Payloads queued to live connections.",
		}),
		Drops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "drops_total",
			Help:      "Payloads dropped because a connection queue was full or closing.",
		}),
		BusFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "publish_failures_total",
			Help:      "Failed publishes to the external bus.",
		}),
		MalformedControl: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "malformed_control_total",
			Help:      "Control frames that could not be parsed.",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "rate_limited_total",
			Help:      "Control frames ignored by the per-connection rate limit.",
		}),
	}

	reg.MustRegister(
		m.Broadcasts, m.Deliveries, m.Drops, m.BusFailures, m.MalformedControl, m.RateLimited,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "entries",
			Help:      "Registered connection entries, attached or pending.",
		}, func() float64 { return float64(counts.Len()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "attached_connections",
			Help:      "Entries with a live websocket.",
		}, func() float64 { return float64(counts.Attached()) }),
	)
	return m
}

// ObserveFanOut records one broadcast pass.
func (m *Relay) ObserveFanOut(delivered, dropped int) {
	if m == nil {
		return
	}
	m.Broadcasts.Inc()
	m.Deliveries.Add(float64(delivered))
	m.Drops.Add(float64(dropped))
}

// ObserveBusFailure records a failed publish.
func (m *Relay) ObserveBusFailure() {
	if m == nil {
		return
	}
	m.BusFailures.Inc()
}

// ObserveMalformedControl records an unparseable control frame.
func (m *Relay) ObserveMalformedControl() {
	if m == nil {
		return
	}
	m.MalformedControl.Inc()
}

// ObserveRateLimited records a control frame dropped by the rate limit.
func (m *Relay) ObserveRateLimited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}
