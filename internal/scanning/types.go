package scanning

import (
	"time"
)

const (
	// ProtocolTCP is the only transport probed.
	ProtocolTCP = "TCP"

	// ServiceUnknown is shown when no classification rule matched.
	ServiceUnknown = "Unknown"
)

// Scan defaults.
const (
	DefaultTimeout           = 2 * time.Second
	DefaultMaxConcurrency    = 512
	DefaultRetries           = 2
	DefaultBannerSize        = 1024
	DefaultExhaustionBackoff = 1 * time.Second
)

// ScanConfig represents the configuration for a single scan run.
type ScanConfig struct {
	// Timeout bounds each connect, banner read and TLS handshake.
	Timeout time.Duration `validate:"gt=0"`
	// MaxConcurrency caps the number of probes in flight.
	MaxConcurrency int `validate:"min=1,max=65535"`
	// Retries is the total number of connect attempts per port.
	Retries int `validate:"min=1,max=10"`
	// BannerSize is the most bytes read from a single probe response.
	BannerSize int `validate:"min=1,max=65536"`
	// ExhaustionBackoff is the pause before retrying after the host ran out
	// of sockets or file descriptors.
	ExhaustionBackoff time.Duration `validate:"gte=0"`
	// Verbose logs every failed attempt and every closed port.
	Verbose bool
	// OutputPath is where the JSON report is written. Empty means no file.
	OutputPath string
}

// DefaultScanConfig returns a ScanConfig with default values.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		Timeout:           DefaultTimeout,
		MaxConcurrency:    DefaultMaxConcurrency,
		Retries:           DefaultRetries,
		BannerSize:        DefaultBannerSize,
		ExhaustionBackoff: DefaultExhaustionBackoff,
	}
}

// ScanResult is the outcome of probing a single port.
type ScanResult struct {
	Port     uint16
	IsOpen   bool
	Banner   string
	Service  string
	Protocol string
	// ResponseTime is the latency of the successful connect. Zero when closed.
	ResponseTime time.Duration
	// TLS is set only when a TLS handshake on the port succeeded.
	TLS *TLSInfo
	// Attempts is the number of connects made for this port.
	Attempts int
}

// ServiceName returns the service label, or ServiceUnknown if none was assigned.
func (r ScanResult) ServiceName() string {
	if r.Service == "" {
		return ServiceUnknown
	}
	return r.Service
}

// TLSInfo describes a completed TLS handshake.
type TLSInfo struct {
	Version string
	Cipher  string
	Cert    *CertInfo
}

// CertInfo holds the fields captured from the peer's leaf certificate.
type CertInfo struct {
	Subject   string
	Issuer    string
	NotBefore time.Time
	NotAfter  time.Time
}

// Statistics describes a scan run as a whole.
type Statistics struct {
	ScanID     string
	Target     string
	Address    string
	TotalPorts int
	OpenPorts  int
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}
