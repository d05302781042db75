package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "patchsync"

// Drop reasons for MessageDropped
const (
	ReasonParse     = "parse"
	ReasonIntegrity = "integrity"
	ReasonUnknown   = "unknown_command"
)

// Session results for SessionFinished
const (
	ResultOK        = "ok"
	ResultTransport = "transport_error"
	ResultFileError = "file_error"
)

// Metrics holds the client's Prometheus collectors on a private registry.
// All methods are safe on a nil receiver so components can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	messagesTotal   *prometheus.CounterVec
	messagesDropped *prometheus.CounterVec
	filesDeleted    prometheus.Counter
	filesWritten    prometheus.Counter
	bytesWritten    prometheus.Counter
	sessionsTotal   *prometheus.CounterVec
	connectionState prometheus.Gauge
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		messagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Messages received from the update server, by command",
		}, []string{"command"}),
		messagesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Messages dropped without effect, by reason",
		}, []string{"reason"}),
		filesDeleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_deleted_total",
			Help:      "Local files removed on server instruction",
		}),
		filesWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_written_total",
			Help:      "Local files written on server instruction",
		}),
		bytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_written_total",
			Help:      "Bytes of file content written",
		}),
		sessionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Completed sync sessions, by request and result",
		}, []string{"request", "result"}),
		connectionState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "Current connection state (0 disconnected, 1 connecting, 2 connected, 3 closing)",
		}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) MessageReceived(command string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(command).Inc()
}

func (m *Metrics) MessageDropped(reason string) {
	if m == nil {
		return
	}
	m.messagesDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) FileDeleted() {
	if m == nil {
		return
	}
	m.filesDeleted.Inc()
}

func (m *Metrics) FileWritten(n int) {
	if m == nil {
		return
	}
	m.filesWritten.Inc()
	m.bytesWritten.Add(float64(n))
}

func (m *Metrics) SessionFinished(request, result string) {
	if m == nil {
		return
	}
	m.sessionsTotal.WithLabelValues(request, result).Inc()
}

func (m *Metrics) SetConnectionState(state int) {
	if m == nil {
		return
	}
	m.connectionState.Set(float64(state))
}
