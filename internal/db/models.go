package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/anstrom/skim/internal/report"
	"github.com/anstrom/skim/internal/scanning"
)

// ScanRun is a row of scan_runs.
type ScanRun struct {
	ID              uuid.UUID `db:"id"`
	Target          string    `db:"target"`
	Address         string    `db:"address"`
	TotalPorts      int       `db:"total_ports"`
	OpenPorts       int       `db:"open_ports"`
	StartedAt       time.Time `db:"started_at"`
	FinishedAt      time.Time `db:"finished_at"`
	DurationSeconds float64   `db:"duration_seconds"`
	CreatedAt       time.Time `db:"created_at"`
}

// PortResult is a row of port_results.
type PortResult struct {
	ScanID              uuid.UUID  `db:"scan_id"`
	Port                int        `db:"port"`
	Protocol            string     `db:"protocol"`
	IsOpen              bool       `db:"is_open"`
	Banner              *string    `db:"banner"`
	Service             *string    `db:"service"`
	ResponseTimeSeconds *float64   `db:"response_time_seconds"`
	TLSVersion          *string    `db:"tls_version"`
	TLSCipher           *string    `db:"tls_cipher"`
	CertSubject         *string    `db:"cert_subject"`
	CertIssuer          *string    `db:"cert_issuer"`
	CertNotBefore       *time.Time `db:"cert_not_before"`
	CertNotAfter        *time.Time `db:"cert_not_after"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// newScanRun maps report statistics onto a scan_runs row. Reports without a
// parseable scan ID get a fresh one.
func newScanRun(stats scanning.Statistics) ScanRun {
	id, err := uuid.Parse(stats.ScanID)
	if err != nil {
		id = uuid.New()
	}
	return ScanRun{
		ID:              id,
		Target:          stats.Target,
		Address:         stats.Address,
		TotalPorts:      stats.TotalPorts,
		OpenPorts:       stats.OpenPorts,
		StartedAt:       stats.StartTime,
		FinishedAt:      stats.EndTime,
		DurationSeconds: stats.Duration.Seconds(),
	}
}

func newPortResult(scanID uuid.UUID, res *scanning.ScanResult) PortResult {
	row := PortResult{
		ScanID:   scanID,
		Port:     int(res.Port),
		Protocol: res.Protocol,
		IsOpen:   res.IsOpen,
		Banner:   nullable(res.Banner),
		Service:  nullable(res.Service),
	}
	if res.IsOpen {
		secs := res.ResponseTime.Seconds()
		row.ResponseTimeSeconds = &secs
	}
	if res.TLS != nil {
		row.TLSVersion = nullable(res.TLS.Version)
		row.TLSCipher = nullable(res.TLS.Cipher)
		if c := res.TLS.Cert; c != nil {
			notBefore, notAfter := c.NotBefore, c.NotAfter
			row.CertSubject = nullable(c.Subject)
			row.CertIssuer = nullable(c.Issuer)
			row.CertNotBefore = &notBefore
			row.CertNotAfter = &notAfter
		}
	}
	return row
}

// rowsFromReport converts a finalized report into table rows.
func rowsFromReport(r *report.Report) (ScanRun, []PortResult) {
	run := newScanRun(r.Stats)
	results := make([]PortResult, len(r.Results))
	for i := range r.Results {
		results[i] = newPortResult(run.ID, &r.Results[i])
	}
	return run, results
}
