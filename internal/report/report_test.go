package report_test

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/anstrom/skim/internal/errors"
	"github.com/anstrom/skim/internal/logging"
	metricsmocks "github.com/anstrom/skim/internal/metrics/mocks"
	"github.com/anstrom/skim/internal/report"
	"github.com/anstrom/skim/internal/report/mocks"
	"github.com/anstrom/skim/internal/scanning"
)

var scanStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleResults() []scanning.ScanResult {
	return []scanning.ScanResult{
		{Port: 9999, Protocol: scanning.ProtocolTCP, Attempts: 2},
		{
			Port: 443, IsOpen: true, Protocol: scanning.ProtocolTCP,
			Banner: "HTTP/1.0 400 Bad Request", Service: "HTTP",
			ResponseTime: 1500 * time.Microsecond,
			TLS: &scanning.TLSInfo{
				Version: "TLS 1.3",
				Cipher:  "TLS_AES_128_GCM_SHA256",
				Cert: &scanning.CertInfo{
					Subject:   "O=Acme Co",
					Issuer:    "O=Acme Co",
					NotBefore: scanStart.AddDate(-1, 0, 0),
					NotAfter:  scanStart.AddDate(1, 0, 0),
				},
			},
		},
		{Port: 22, IsOpen: true, Protocol: scanning.ProtocolTCP, Banner: "SSH-2.0-OpenSSH_9.0", Service: "SSH", ResponseTime: time.Millisecond},
		{Port: 135, IsOpen: true, Protocol: scanning.ProtocolTCP, ResponseTime: 2 * time.Millisecond},
	}
}

func sampleStats() scanning.Statistics {
	return scanning.Statistics{
		ScanID:    "7f0b5c1e-4d59-4a47-9a52-3b7e0c1f2a10",
		Target:    "scanme.example.test",
		Address:   "192.0.2.10",
		StartTime: scanStart,
		EndTime:   scanStart.Add(2500 * time.Millisecond),
	}
}

func TestFinalize(t *testing.T) {
	results := sampleResults()
	r := report.Finalize(results, sampleStats())

	ports := make([]uint16, len(r.Results))
	for i, res := range r.Results {
		ports[i] = res.Port
	}
	assert.Equal(t, []uint16{22, 135, 443, 9999}, ports)
	assert.Equal(t, 3, r.Stats.OpenPorts)
	assert.Equal(t, 4, r.Stats.TotalPorts)
	assert.Equal(t, 2500*time.Millisecond, r.Stats.Duration)

	// Input order is untouched.
	assert.Equal(t, uint16(9999), results[0].Port)

	open := r.OpenResults()
	require.Len(t, open, 3)
	assert.Equal(t, uint16(22), open[0].Port)
}

func TestFinalize_Scenario(t *testing.T) {
	r := report.Finalize([]scanning.ScanResult{
		{Port: 9999, Protocol: scanning.ProtocolTCP},
		{Port: 22, IsOpen: true, Protocol: scanning.ProtocolTCP, Banner: "SSH-2.0-OpenSSH_9.0", Service: "SSH"},
	}, sampleStats())

	assert.Equal(t, 1, r.Stats.OpenPorts)
	assert.Equal(t, 2, r.Stats.TotalPorts)
	assert.Equal(t, uint16(22), r.Results[0].Port)
	assert.Equal(t, "SSH", r.Results[0].Service)
}

func TestRenderTable(t *testing.T) {
	r := report.Finalize(sampleResults(), sampleStats())

	var buf bytes.Buffer
	require.NoError(t, r.RenderTable(&buf))
	out := buf.String()

	assert.Contains(t, out, "PORT")
	assert.Contains(t, out, "STATE")
	assert.Contains(t, out, "SERVICE")
	assert.Contains(t, out, "22/tcp")
	assert.Contains(t, out, "443/tcp")
	assert.Contains(t, out, "135/tcp")
	assert.Contains(t, out, "Unknown")
	assert.NotContains(t, out, "9999")
	assert.Contains(t, out, "Scanned 4 ports on scanme.example.test in 2.50s, 3 open")

	assert.Less(t, strings.Index(out, "22/tcp"), strings.Index(out, "135/tcp"))
	assert.Less(t, strings.Index(out, "135/tcp"), strings.Index(out, "443/tcp"))
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.json")
	r := report.Finalize(sampleResults(), sampleStats())

	require.NoError(t, r.WriteJSON(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"metadata\": {\n    \"scan_id\""))

	var doc struct {
		Metadata map[string]any   `json:"metadata"`
		Results  []map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "7f0b5c1e-4d59-4a47-9a52-3b7e0c1f2a10", doc.Metadata["scan_id"])
	assert.Equal(t, "scanme.example.test", doc.Metadata["target"])
	assert.Equal(t, "192.0.2.10", doc.Metadata["address"])
	assert.Equal(t, float64(4), doc.Metadata["total_ports"])
	assert.Equal(t, float64(3), doc.Metadata["open_ports"])
	assert.Equal(t, 2.5, doc.Metadata["duration"])
	assert.Equal(t, "2026-03-01T12:00:00Z", doc.Metadata["start_time"])

	openCount := 0
	for _, rec := range doc.Results {
		if rec["is_open"] == true {
			openCount++
		}
	}
	assert.Equal(t, doc.Metadata["open_ports"], float64(openCount))

	require.Len(t, doc.Results, 4)

	ssh := doc.Results[0]
	assert.Equal(t, float64(22), ssh["port"])
	assert.Equal(t, "SSH-2.0-OpenSSH_9.0", ssh["banner"])
	assert.Equal(t, "SSH", ssh["service"])
	assert.Equal(t, "TCP", ssh["protocol"])
	assert.Equal(t, 0.001, ssh["response_time"])
	assert.Nil(t, ssh["ssl_info"])

	unknown := doc.Results[1]
	assert.Contains(t, unknown, "banner")
	assert.Nil(t, unknown["banner"])
	assert.Nil(t, unknown["service"])

	tls := doc.Results[2]["ssl_info"].(map[string]any)
	assert.Equal(t, "TLS 1.3", tls["version"])
	assert.Equal(t, "TLS_AES_128_GCM_SHA256", tls["cipher"])
	cert := tls["cert"].(map[string]any)
	assert.Equal(t, "O=Acme Co", cert["subject"])
	assert.Equal(t, "O=Acme Co", cert["issuer"])
	assert.Equal(t, "2025-03-01T12:00:00Z", cert["valid_from"])
	assert.Equal(t, "2027-03-01T12:00:00Z", cert["valid_to"])

	closed := doc.Results[3]
	assert.Equal(t, false, closed["is_open"])
	assert.Nil(t, closed["response_time"])
	assert.Nil(t, closed["ssl_info"])
}

func TestWriteJSON_ReplacesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.json")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o600))

	r := report.Finalize(sampleResults(), sampleStats())
	require.NoError(t, r.WriteJSON(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWriteJSON_Failure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "scan.json")
	r := report.Finalize(sampleResults(), sampleStats())

	err := r.WriteJSON(path)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeFileWrite))
	assert.False(t, errors.IsFatal(err))

	var reportErr *errors.ReportError
	require.True(t, stderrors.As(err, &reportErr))
	assert.Equal(t, path, reportErr.Path)

	// The report is still usable after a failed write.
	assert.Equal(t, 3, r.Stats.OpenPorts)
	assert.Len(t, r.Results, 4)
}

func TestMarshalJSON(t *testing.T) {
	r := report.Finalize(sampleResults(), sampleStats())
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"results":[{"port":22`)
}

func TestPublisher_Publish(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockReportStore(ctrl)
	recorder := metricsmocks.NewMockRecorder(ctrl)

	r := report.Finalize(sampleResults(), sampleStats())
	path := filepath.Join(t.TempDir(), "out.json")

	store.EXPECT().Save(gomock.Any(), r).Return(nil)
	recorder.EXPECT().IncrementReportWrites("file", "success")
	recorder.EXPECT().IncrementReportWrites("database", "success")

	var console bytes.Buffer
	p := report.NewPublisher(&console, path, store, recorder, logging.Discard())
	require.NoError(t, p.Publish(context.Background(), r))

	assert.Contains(t, console.String(), "22/tcp")
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestPublisher_FailuresDoNotStopOtherOutputs(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockReportStore(ctrl)
	recorder := metricsmocks.NewMockRecorder(ctrl)

	r := report.Finalize(sampleResults(), sampleStats())
	badPath := filepath.Join(t.TempDir(), "missing", "out.json")
	dbErr := errors.ErrDatabaseConnection(stderrors.New("connection refused"))

	recorder.EXPECT().IncrementReportWrites("file", "error")
	store.EXPECT().Save(gomock.Any(), r).Return(dbErr)
	recorder.EXPECT().IncrementReportWrites("database", "error")

	p := report.NewPublisher(nil, badPath, store, recorder, logging.Discard())
	err := p.Publish(context.Background(), r)

	require.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
	var reportErr *errors.ReportError
	assert.True(t, stderrors.As(err, &reportErr))
}

func TestPublisher_NoOutputs(t *testing.T) {
	p := report.NewPublisher(nil, "", nil, nil, logging.Discard())
	assert.NoError(t, p.Publish(context.Background(), report.Finalize(nil, sampleStats())))
}
