package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. Each instance owns its registry so
// several servers (and tests) can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Invocation metrics
	Invocations        *prometheus.CounterVec
	InvocationDuration *prometheus.HistogramVec
	InvocationsActive  prometheus.Gauge

	// Boundary metrics
	IPCMessages   *prometheus.CounterVec
	WSConnections prometheus.Gauge
	WindowsOpen   prometheus.Gauge
	ShellState    *prometheus.GaugeVec
	startTime     time.Time
	Uptime        prometheus.GaugeFunc

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current values for the JSON health endpoint.
type Snapshot struct {
	TotalRequests     int64 `json:"total_requests"`
	TotalInvocations  int64 `json:"total_invocations"`
	FailedInvocations int64 `json:"failed_invocations"`
	ActiveInvocations int64 `json:"active_invocations"`
	ActiveConnections int64 `json:"active_connections"`
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oneclick_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oneclick_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		Invocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oneclick_invocations_total",
				Help: "Total number of action invocations by outcome",
			},
			[]string{"action", "outcome"},
		),
		InvocationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oneclick_invocation_duration_seconds",
				Help:    "Child process wall time in seconds",
				Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"action"},
		),
		InvocationsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "oneclick_invocations_active",
				Help: "Number of child processes currently running",
			},
		),

		IPCMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oneclick_ipc_messages_total",
				Help: "Messages crossing the ipc boundary",
			},
			[]string{"direction", "channel"},
		),
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "oneclick_ws_connections",
				Help: "Number of open ipc websocket connections",
			},
		),
		WindowsOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "oneclick_windows_open",
				Help: "Number of live views of the shell window",
			},
		),
		ShellState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "oneclick_shell_state",
				Help: "1 for the current shell lifecycle state",
			},
			[]string{"state"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "oneclick_uptime_seconds",
			Help: "Process uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.mu.Unlock()
}

// InvocationStarted marks a child process as running.
func (m *Metrics) InvocationStarted() {
	m.InvocationsActive.Inc()
	m.mu.Lock()
	m.snapshot.ActiveInvocations++
	m.mu.Unlock()
}

// InvocationFinished records the outcome of one child process.
func (m *Metrics) InvocationFinished(action, outcome string, duration time.Duration) {
	m.InvocationsActive.Dec()
	m.Invocations.WithLabelValues(action, outcome).Inc()
	m.InvocationDuration.WithLabelValues(action).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.ActiveInvocations--
	m.snapshot.TotalInvocations++
	if outcome != "success" {
		m.snapshot.FailedInvocations++
	}
	m.mu.Unlock()
}

// RecordIPCMessage records one message in or out of the boundary.
func (m *Metrics) RecordIPCMessage(direction, channel string) {
	m.IPCMessages.WithLabelValues(direction, channel).Inc()
}

// IncWSConnections increments websocket connections.
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements websocket connections.
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// SetWindowsOpen sets the number of live window views.
func (m *Metrics) SetWindowsOpen(n int) {
	m.WindowsOpen.Set(float64(n))
}

// SetShellState marks state as current and clears the others.
func (m *Metrics) SetShellState(state string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		m.ShellState.WithLabelValues(s).Set(v)
	}
}

// Snapshot returns the current counters.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
