// Package metrics provides interfaces for metrics collection and monitoring.
package metrics

import "time"

//go:generate mockgen -source=interface.go -destination=mocks/mock_recorder.go -package=mocks

// Recorder is the metrics surface used by the scanner, the report store and
// the scheduler. It keeps those packages independent of the Prometheus types.
type Recorder interface {
	// IncrementScansTotal counts a finished scan run by status.
	IncrementScansTotal(status string)

	// RecordScanDuration records the wall-clock duration of a scan run.
	RecordScanDuration(duration time.Duration)

	// IncrementPortsScanned counts probed ports by resulting state.
	IncrementPortsScanned(state string, count int)

	// IncrementProbeAttempts counts connect attempts by outcome.
	IncrementProbeAttempts(outcome string)

	// IncrementTLSDetected counts ports that completed a TLS handshake.
	IncrementTLSDetected()

	// AddActiveProbes adjusts the number of probes currently in flight.
	AddActiveProbes(delta int)

	// IncrementReportWrites counts report sink writes by sink and status.
	IncrementReportWrites(sink, status string)
}

// Ensure that PrometheusMetrics and Noop implement Recorder.
var (
	_ Recorder = (*PrometheusMetrics)(nil)
	_ Recorder = Noop{}
)

// Noop discards every measurement.
type Noop struct{}

func (Noop) IncrementScansTotal(string)           {}
func (Noop) RecordScanDuration(time.Duration)     {}
func (Noop) IncrementPortsScanned(string, int)    {}
func (Noop) IncrementProbeAttempts(string)        {}
func (Noop) IncrementTLSDetected()                {}
func (Noop) AddActiveProbes(int)                  {}
func (Noop) IncrementReportWrites(string, string) {}
