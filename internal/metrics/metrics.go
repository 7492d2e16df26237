package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/venudhannoju-glitch/ChitChat/internal/session"
)

const namespace = "chitchat"

// Metrics holds the server's Prometheus collectors. It implements
// session.Observer.
type Metrics struct {
	registry *prometheus.Registry

	roomsCreated   prometheus.Counter
	roomsPaired    prometheus.Counter
	roomsDestroyed *prometheus.CounterVec
	joinsRejected  *prometheus.CounterVec
	eventsRelayed  *prometheus.CounterVec
	connections    prometheus.Gauge
	eventsDropped  prometheus.Counter
	framesLimited  prometheus.Counter
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		roomsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_created_total",
			Help:      "Rooms created.",
		}),
		roomsPaired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_paired_total",
			Help:      "Successful second joins.",
		}),
		roomsDestroyed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_destroyed_total",
			Help:      "Rooms removed from the registry, by reason.",
		}, []string{"reason"}),
		joinsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "joins_rejected_total",
			Help:      "Rejected join attempts, by reason.",
		}, []string{"reason"}),
		eventsRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_relayed_total",
			Help:      "Events relayed between partners, by type.",
		}, []string{"type"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Open WebSocket connections.",
		}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Outbound events dropped because a send buffer was full.",
		}),
		framesLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_rate_limited_total",
			Help:      "Inbound frames discarded by the per-connection rate limit.",
		}),
	}

	m.registry.MustRegister(
		m.roomsCreated,
		m.roomsPaired,
		m.roomsDestroyed,
		m.joinsRejected,
		m.eventsRelayed,
		m.connections,
		m.eventsDropped,
		m.framesLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// WatchRooms exports live room counts read from stats at scrape time.
func (m *Metrics) WatchRooms(stats func() session.Stats) {
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_waiting",
			Help:      "Live rooms with one member.",
		}, func() float64 { return float64(stats().Waiting) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_paired",
			Help:      "Live rooms with two members.",
		}, func() float64 { return float64(stats().Paired) }),
	)
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) RoomCreated() { m.roomsCreated.Inc() }
func (m *Metrics) RoomPaired()  { m.roomsPaired.Inc() }

func (m *Metrics) RoomDestroyed(reason session.DestroyReason) {
	m.roomsDestroyed.WithLabelValues(string(reason)).Inc()
}

func (m *Metrics) JoinRejected(err error) {
	reason := "other"
	switch {
	case errors.Is(err, session.ErrRoomNotFound):
		reason = "not_found"
	case errors.Is(err, session.ErrRoomFull):
		reason = "full"
	}
	m.joinsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) EventRelayed(t session.EventType) {
	m.eventsRelayed.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) ConnectionOpened() { m.connections.Inc() }
func (m *Metrics) ConnectionClosed() { m.connections.Dec() }
func (m *Metrics) EventDropped()     { m.eventsDropped.Inc() }
func (m *Metrics) FrameLimited()     { m.framesLimited.Inc() }

var _ session.Observer = (*Metrics)(nil)
