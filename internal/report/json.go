package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/anstrom/skim/internal/errors"
	"github.com/anstrom/skim/internal/scanning"
)

const reportFilePerm = 0o644

// document is the on-disk report layout. Absent values encode as null.
type document struct {
	Metadata metadata `json:"metadata"`
	Results  []record `json:"results"`
}

type metadata struct {
	ScanID     string    `json:"scan_id"`
	Target     string    `json:"target"`
	Address    string    `json:"address"`
	TotalPorts int       `json:"total_ports"`
	OpenPorts  int       `json:"open_ports"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Duration   float64   `json:"duration"`
}

type record struct {
	Port         uint16   `json:"port"`
	IsOpen       bool     `json:"is_open"`
	Banner       *string  `json:"banner"`
	Service      *string  `json:"service"`
	Protocol     string   `json:"protocol"`
	ResponseTime *float64 `json:"response_time"`
	SSLInfo      *sslInfo `json:"ssl_info"`
}

type sslInfo struct {
	Version string    `json:"version"`
	Cipher  string    `json:"cipher"`
	Cert    *certInfo `json:"cert"`
}

type certInfo struct {
	Subject   string    `json:"subject"`
	Issuer    string    `json:"issuer"`
	ValidFrom time.Time `json:"valid_from"`
	ValidTo   time.Time `json:"valid_to"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toRecord(res *scanning.ScanResult) record {
	rec := record{
		Port:     res.Port,
		IsOpen:   res.IsOpen,
		Banner:   optional(res.Banner),
		Service:  optional(res.Service),
		Protocol: res.Protocol,
	}
	if res.IsOpen {
		secs := res.ResponseTime.Seconds()
		rec.ResponseTime = &secs
	}
	if res.TLS != nil {
		rec.SSLInfo = &sslInfo{Version: res.TLS.Version, Cipher: res.TLS.Cipher}
		if c := res.TLS.Cert; c != nil {
			rec.SSLInfo.Cert = &certInfo{
				Subject:   c.Subject,
				Issuer:    c.Issuer,
				ValidFrom: c.NotBefore,
				ValidTo:   c.NotAfter,
			}
		}
	}
	return rec
}

func (r *Report) document() document {
	doc := document{
		Metadata: metadata{
			ScanID:     r.Stats.ScanID,
			Target:     r.Stats.Target,
			Address:    r.Stats.Address,
			TotalPorts: r.Stats.TotalPorts,
			OpenPorts:  r.Stats.OpenPorts,
			StartTime:  r.Stats.StartTime,
			EndTime:    r.Stats.EndTime,
			Duration:   r.Stats.Duration.Seconds(),
		},
		Results: make([]record, len(r.Results)),
	}
	for i := range r.Results {
		doc.Results[i] = toRecord(&r.Results[i])
	}
	return doc
}

// MarshalJSON encodes the report in its persisted layout.
func (r *Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.document())
}

// WriteJSON writes the report to path with two-space indentation. The file
// is replaced atomically; on failure any existing file is left untouched.
func (r *Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r.document(), "", "  ")
	if err != nil {
		return errors.ErrReportWrite(path, fmt.Errorf("encode report: %w", err))
	}
	data = append(data, '\n')

	if err := writeAtomic(path, data, reportFilePerm); err != nil {
		return errors.ErrReportWrite(path, err)
	}
	return nil
}

// writeAtomic writes data to a temp file in the target directory, syncs it
// and renames it over path.
func writeAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
