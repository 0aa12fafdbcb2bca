// Package metrics provides Prometheus-based metrics collection for skim.
package metrics

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	// Namespace for all skim metrics
	namespace = "skim"

	// Subsystems
	subsystemScan   = "scan"
	subsystemProbe  = "probe"
	subsystemReport = "report"
	subsystemSystem = "system"
)

// PrometheusMetrics holds all Prometheus metric collectors
type PrometheusMetrics struct {
	// Scan metrics
	scansTotal   *prometheus.CounterVec
	scanDuration prometheus.Histogram
	portsScanned *prometheus.CounterVec

	// Probe metrics
	probeAttempts *prometheus.CounterVec
	tlsDetected   prometheus.Counter
	activeProbes  prometheus.Gauge

	// Report metrics
	reportWrites *prometheus.CounterVec

	// System metrics
	goroutines prometheus.Gauge
	uptime     prometheus.Gauge

	startTime time.Time
	mu        sync.Mutex
	registry  *prometheus.Registry
}

// NewPrometheusMetrics creates a new Prometheus metrics instance with all collectors
// registered on a private registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	pm := &PrometheusMetrics{
		startTime: time.Now(),
		registry:  registry,
	}

	pm.initScanMetrics()
	pm.initProbeMetrics()
	pm.initReportMetrics()
	pm.initSystemMetrics()

	pm.registerMetrics()

	// Register standard Go and process collectors for runtime visibility
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return pm
}

// initScanMetrics initializes scan-related metrics
func (pm *PrometheusMetrics) initScanMetrics() {
	pm.scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "total",
			Help:      "Total number of scan runs by status",
		},
		[]string{"status"},
	)

	pm.scanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "duration_seconds",
			Help:      "Duration of scan runs in seconds",
			Buckets:   []float64{0.1, 0.5, 1.0, 5.0, 10.0, 30.0, 60.0, 300.0, 600.0},
		},
	)

	pm.portsScanned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "ports_total",
			Help:      "Total number of ports probed by resulting state",
		},
		[]string{"state"},
	)
}

// initProbeMetrics initializes per-port probe metrics
func (pm *PrometheusMetrics) initProbeMetrics() {
	pm.probeAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "attempts_total",
			Help:      "Total number of connect attempts by outcome",
		},
		[]string{"outcome"},
	)

	pm.tlsDetected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "tls_detected_total",
			Help:      "Total number of open ports that completed a TLS handshake",
		},
	)

	pm.activeProbes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "active",
			Help:      "Number of probes currently in flight",
		},
	)
}

// initReportMetrics initializes report sink metrics
func (pm *PrometheusMetrics) initReportMetrics() {
	pm.reportWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemReport,
			Name:      "writes_total",
			Help:      "Total number of report writes by sink and status",
		},
		[]string{"sink", "status"},
	)
}

// initSystemMetrics initializes system-related metrics
func (pm *PrometheusMetrics) initSystemMetrics() {
	pm.goroutines = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSystem,
			Name:      "goroutines",
			Help:      "Current number of goroutines",
		},
	)

	pm.uptime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSystem,
			Name:      "uptime_seconds",
			Help:      "Application uptime in seconds",
		},
	)
}

// registerMetrics registers all metrics with the Prometheus registry
func (pm *PrometheusMetrics) registerMetrics() {
	pm.registry.MustRegister(
		pm.scansTotal,
		pm.scanDuration,
		pm.portsScanned,
		pm.probeAttempts,
		pm.tlsDetected,
		pm.activeProbes,
		pm.reportWrites,
		pm.goroutines,
		pm.uptime,
	)
}

// GetRegistry returns the Prometheus registry for HTTP handler
func (pm *PrometheusMetrics) GetRegistry() *prometheus.Registry {
	return pm.registry
}

// IncrementScansTotal increments the total scan counter
func (pm *PrometheusMetrics) IncrementScansTotal(status string) {
	pm.scansTotal.WithLabelValues(status).Inc()
}

// RecordScanDuration records a scan duration
func (pm *PrometheusMetrics) RecordScanDuration(duration time.Duration) {
	pm.scanDuration.Observe(duration.Seconds())
}

// IncrementPortsScanned increments ports scanned counter
func (pm *PrometheusMetrics) IncrementPortsScanned(state string, count int) {
	pm.portsScanned.WithLabelValues(state).Add(float64(count))
}

// IncrementProbeAttempts increments the connect attempt counter
func (pm *PrometheusMetrics) IncrementProbeAttempts(outcome string) {
	pm.probeAttempts.WithLabelValues(outcome).Inc()
}

// IncrementTLSDetected increments the TLS detection counter
func (pm *PrometheusMetrics) IncrementTLSDetected() {
	pm.tlsDetected.Inc()
}

// AddActiveProbes adjusts the number of in-flight probes
func (pm *PrometheusMetrics) AddActiveProbes(delta int) {
	pm.activeProbes.Add(float64(delta))
}

// IncrementReportWrites increments the report write counter
func (pm *PrometheusMetrics) IncrementReportWrites(sink, status string) {
	pm.reportWrites.WithLabelValues(sink, status).Inc()
}

// UpdateSystemMetrics updates all system metrics with current values
func (pm *PrometheusMetrics) UpdateSystemMetrics() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.goroutines.Set(float64(runtime.NumGoroutine()))
	pm.uptime.Set(time.Since(pm.startTime).Seconds())
}

// GetUptime returns the application uptime
func (pm *PrometheusMetrics) GetUptime() time.Duration {
	return time.Since(pm.startTime)
}
