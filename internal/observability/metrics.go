package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	connectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vphoned",
			Subsystem: "control",
			Name:      "connections_total",
			Help:      "Control connections accepted.",
		},
	)
	connectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vphoned",
			Subsystem: "control",
			Name:      "connections_active",
			Help:      "Control connections currently open.",
		},
	)
	commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vphoned",
			Subsystem: "control",
			Name:      "commands_total",
			Help:      "Commands dispatched, by type and outcome.",
		},
		[]string{"type", "outcome"},
	)
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vphoned",
			Subsystem: "control",
			Name:      "command_duration_seconds",
			Help:      "Command handling duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"type", "outcome"},
	)
	streamedBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vphoned",
			Subsystem: "files",
			Name:      "streamed_bytes_total",
			Help:      "Inline file bytes moved, by direction.",
		},
		[]string{"direction"},
	)
	hidEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vphoned",
			Subsystem: "hid",
			Name:      "events_total",
			Help:      "Synthetic input events delivered.",
		},
	)
	hidChains = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vphoned",
			Subsystem: "hid",
			Name:      "chains_total",
			Help:      "Input chains completed, by name and outcome.",
		},
		[]string{"name", "outcome"},
	)
	hidQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vphoned",
			Subsystem: "hid",
			Name:      "queue_depth",
			Help:      "Input chains waiting for the delivery worker.",
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vphoned",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Admin HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vphoned",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			connectionsTotal, connectionsActive,
			commands, commandDuration,
			streamedBytes,
			hidEvents, hidChains, hidQueueDepth,
			httpRequests, httpDuration,
		)
	})
}

func RecordConnectionOpened() {
	RegisterMetrics()
	connectionsTotal.Inc()
	connectionsActive.Inc()
}

func RecordConnectionClosed() {
	RegisterMetrics()
	connectionsActive.Dec()
}

func RecordCommand(cmdType, outcome string, duration time.Duration) {
	RegisterMetrics()
	commands.WithLabelValues(cmdType, outcome).Inc()
	commandDuration.WithLabelValues(cmdType, outcome).Observe(duration.Seconds())
}

func RecordStreamedBytes(direction string, n int64) {
	RegisterMetrics()
	streamedBytes.WithLabelValues(direction).Add(float64(n))
}

func RecordHIDEvent() {
	RegisterMetrics()
	hidEvents.Inc()
}

func RecordChain(name, outcome string) {
	RegisterMetrics()
	hidChains.WithLabelValues(name, outcome).Inc()
}

func SetHIDQueueDepth(depth int) {
	RegisterMetrics()
	hidQueueDepth.Set(float64(depth))
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
