package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/rewards-realtime/internal/protocol"
)

// Collector owns every realtime metric. A nil *Collector is valid and
// records nothing, so components can run without metrics.
type Collector struct {
	namespace string
	subsystem string
	registry  *prometheus.Registry

	connected         prometheus.Gauge
	state             *prometheus.GaugeVec
	socketsOpened     prometheus.Counter
	socketsClosed     prometheus.Counter
	reconnects        prometheus.Counter
	reconnectDelay    prometheus.Histogram
	framesReceived    *prometheus.CounterVec
	messagesRouted    *prometheus.CounterVec
	sendsTotal        prometheus.Counter
	sendsDropped      prometheus.Counter
	journalBatchSize  prometheus.Histogram
	journalWriteError prometheus.Counter
}

// States exported on the state gauge.
var states = []string{"idle", "connecting", "open", "closed"}

// NewCollector creates a collector with its own registry unless WithRegistry is given.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		namespace: "rewards",
		subsystem: "realtime",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = prometheus.NewRegistry()
		c.registry.MustRegister(collectors.NewGoCollector())
	}

	c.initializeMetrics()
	return c
}

func (c *Collector) initializeMetrics() {
	auto := promauto.With(c.registry)

	c.connected = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: c.namespace,
		Subsystem: c.subsystem,
		Name:      "connected",
		Help:      "1 while the realtime connection is open",
	})

	c.state = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: c.namespace,
		Subsystem: c.subsystem,
		Name:      "state",
		Help:      "Current connection manager state (1 for the active state)",
	}, []string{"state"})

	c.socketsOpened = auto.NewCounter(prometheus.CounterOpts{
		Namespace: c.namespace,
		Subsystem: c.subsystem,
		Name:      "sockets_opened_total",
		Help:      "Total number of completed WebSocket handshakes",
	})

	c.socketsClosed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: c.namespace,
		Subsystem: c.subsystem,
		Name:      "sockets_closed_total",
		Help:      "Total number of sockets that closed or failed to open",
	})

	c.reconnects = auto.NewCounter(prometheus.CounterOpts{
		Namespace: c.namespace,
		Subsystem: c.subsystem,
		Name:      "reconnects_scheduled_total",
		Help:      "Total number of reconnect timers started",
	})

	c.reconnectDelay = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: c.namespace,
		Subsystem: c.subsystem,
		Name:      "reconnect_delay_seconds",
		Help:      "Backoff delay of scheduled reconnects",
		Buckets:   []float64{1, 2, 4, 8, 16, 30, 60},
	})

	c.framesReceived = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.namespace,
		Subsystem: c.subsystem,
		Name:      "frames_received_total",
		Help:      "Inbound frames by kind (message, ping, bare_ping, malformed)",
	}, []string{"kind"})

	c.messagesRouted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.namespace,
		Subsystem: c.subsystem,
		Name:      "messages_routed_total",
		Help:      "Inbound envelopes by message type",
	}, []string{"type"})

	c.sendsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: c.namespace,
		Subsystem: c.subsystem,
		Name:      "sends_total",
		Help:      "Outbound frames written to the socket",
	})

	c.sendsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: c.namespace,
		Subsystem: c.subsystem,
		Name:      "sends_dropped_total",
		Help:      "Outbound frames dropped because no connection was open",
	})

	c.journalBatchSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: c.namespace,
		Subsystem: "journal",
		Name:      "batch_size",
		Help:      "Rows per journal flush",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})

	c.journalWriteError = auto.NewCounter(prometheus.CounterOpts{
		Namespace: c.namespace,
		Subsystem: "journal",
		Name:      "write_errors_total",
		Help:      "Journal flushes that failed",
	})
}

// Registry returns the registry the metrics live on.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// SetConnected records the binary connection flag.
func (c *Collector) SetConnected(connected bool) {
	if c == nil {
		return
	}
	if connected {
		c.connected.Set(1)
	} else {
		c.connected.Set(0)
	}
}

// SetState marks state as the active manager state.
func (c *Collector) SetState(state string) {
	if c == nil {
		return
	}
	for _, s := range states {
		if s == state {
			c.state.WithLabelValues(s).Set(1)
		} else {
			c.state.WithLabelValues(s).Set(0)
		}
	}
}

// SocketOpened counts a completed handshake.
func (c *Collector) SocketOpened() {
	if c == nil {
		return
	}
	c.socketsOpened.Inc()
}

// SocketClosed counts a closed or failed socket.
func (c *Collector) SocketClosed() {
	if c == nil {
		return
	}
	c.socketsClosed.Inc()
}

// ReconnectScheduled counts a reconnect timer and its delay.
func (c *Collector) ReconnectScheduled(delay time.Duration) {
	if c == nil {
		return
	}
	c.reconnects.Inc()
	c.reconnectDelay.Observe(delay.Seconds())
}

// FrameReceived counts an inbound frame by kind.
func (c *Collector) FrameReceived(kind string) {
	if c == nil {
		return
	}
	c.framesReceived.WithLabelValues(kind).Inc()
}

// MessageRouted counts an inbound envelope by type. Types outside the
// protocol's known set share the "other" label.
func (c *Collector) MessageRouted(msgType string) {
	if c == nil {
		return
	}
	switch {
	case msgType == "":
		msgType = "unknown"
	case !protocol.KnownType(msgType):
		msgType = "other"
	}
	c.messagesRouted.WithLabelValues(msgType).Inc()
}

// Sent counts a written outbound frame.
func (c *Collector) Sent() {
	if c == nil {
		return
	}
	c.sendsTotal.Inc()
}

// SendDropped counts an outbound frame dropped while disconnected.
func (c *Collector) SendDropped() {
	if c == nil {
		return
	}
	c.sendsDropped.Inc()
}

// JournalFlushed records a successful journal flush of n rows.
func (c *Collector) JournalFlushed(n int) {
	if c == nil {
		return
	}
	c.journalBatchSize.Observe(float64(n))
}

// JournalWriteFailed counts a failed journal flush.
func (c *Collector) JournalWriteFailed() {
	if c == nil {
		return
	}
	c.journalWriteError.Inc()
}
