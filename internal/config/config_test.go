package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/skim/internal/errors"
	"github.com/anstrom/skim/internal/logging"
	"github.com/anstrom/skim/internal/scanning"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 2*time.Second, cfg.Scanning.Timeout)
	assert.Equal(t, 512, cfg.Scanning.Concurrency)
	assert.Equal(t, 2, cfg.Scanning.Retries)
	assert.Equal(t, 1024, cfg.Scanning.BannerSize)
	assert.True(t, cfg.Scanning.Ping)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "@hourly", cfg.Watch.Schedule)
	assert.Equal(t, logging.LevelInfo, cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		wantCode errors.ErrorCode
		check    func(t *testing.T, cfg *Config)
	}{
		{
			name: "yaml",
			file: "skim.yaml",
			content: `
scanning:
  ports: "22,80,8000-8010"
  timeout: 500ms
  concurrency: 64
  retries: 3
  ping: false
resolver:
  nameserver: 9.9.9.9
output:
  path: /tmp/report.json
database:
  enabled: true
  host: db.internal
  database: skim
  username: skim
metrics:
  enabled: true
  listen_addr: ":9100"
watch:
  schedule: "*/15 * * * *"
logging:
  level: debug
  format: json
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "22,80,8000-8010", cfg.Scanning.Ports)
				assert.Equal(t, 500*time.Millisecond, cfg.Scanning.Timeout)
				assert.Equal(t, 64, cfg.Scanning.Concurrency)
				assert.Equal(t, 3, cfg.Scanning.Retries)
				assert.False(t, cfg.Scanning.Ping)
				assert.Equal(t, 1024, cfg.Scanning.BannerSize, "unset fields keep defaults")
				assert.Equal(t, "9.9.9.9", cfg.Resolver.Nameserver)
				assert.Equal(t, "/tmp/report.json", cfg.Output.Path)
				assert.True(t, cfg.Database.Enabled)
				assert.Equal(t, "db.internal", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, ":9100", cfg.Metrics.ListenAddr)
				assert.Equal(t, "*/15 * * * *", cfg.Watch.Schedule)
				assert.Equal(t, logging.FormatJSON, cfg.Logging.Format)
			},
		},
		{
			name:    "json",
			file:    "skim.json",
			content: `{"scanning": {"timeout": "1s", "retries": 1}, "output": {"path": "out.json"}}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, time.Second, cfg.Scanning.Timeout)
				assert.Equal(t, 1, cfg.Scanning.Retries)
				assert.Equal(t, "out.json", cfg.Output.Path)
			},
		},
		{
			name:     "malformed",
			file:     "bad.yaml",
			content:  "scanning: [unterminated",
			wantCode: errors.CodeConfiguration,
		},
		{
			name:     "bad duration",
			file:     "bad.yaml",
			content:  "scanning:\n  timeout: soon\n",
			wantCode: errors.CodeConfiguration,
		},
		{
			name:     "zero concurrency",
			file:     "zero.yaml",
			content:  "scanning:\n  concurrency: 0\n",
			wantCode: errors.CodeValidation,
		},
		{
			name:     "bad port list",
			file:     "ports.yaml",
			content:  "scanning:\n  ports: \"22,70000\"\n",
			wantCode: errors.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.file, tt.content))
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Nil(t, cfg)
				assert.True(t, errors.IsCode(err, tt.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		code   errors.ErrorCode
		field  string
	}{
		{"negative timeout", func(c *Config) { c.Scanning.Timeout = -time.Second }, errors.CodeValidation, "Timeout"},
		{"too many retries", func(c *Config) { c.Scanning.Retries = 11 }, errors.CodeValidation, "Retries"},
		{"database without host", func(c *Config) {
			c.Database.Enabled = true
			c.Database.Host = ""
		}, errors.CodeConfiguration, "database.host"},
		{"database without name", func(c *Config) {
			c.Database.Enabled = true
			c.Database.Username = "skim"
		}, errors.CodeConfiguration, "database.database"},
		{"database without user", func(c *Config) {
			c.Database.Enabled = true
			c.Database.Database = "skim"
		}, errors.CodeConfiguration, "database.username"},
		{"metrics without address", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.ListenAddr = ""
		}, errors.CodeConfiguration, "metrics.listen_addr"},
		{"bad schedule", func(c *Config) { c.Watch.Schedule = "every so often" }, errors.CodeConfiguration, "watch.schedule"},
		{"bad log level", func(c *Config) { c.Logging.Level = "chatty" }, errors.CodeConfiguration, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, errors.CodeConfiguration, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code), "got %v", err)

			var cfgErr *errors.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestValidate_EmptyScheduleAllowed(t *testing.T) {
	cfg := Default()
	cfg.Watch.Schedule = ""
	assert.NoError(t, cfg.Validate())
}

func TestScanConfig(t *testing.T) {
	cfg := Default()
	cfg.Scanning.Timeout = 750 * time.Millisecond
	cfg.Scanning.Concurrency = 8
	cfg.Scanning.Retries = 4
	cfg.Scanning.BannerSize = 256
	cfg.Scanning.ExhaustionBackoff = 0
	cfg.Output.Path = "report.json"
	cfg.Logging.Level = logging.LevelDebug

	assert.Equal(t, scanning.ScanConfig{
		Timeout:           750 * time.Millisecond,
		MaxConcurrency:    8,
		Retries:           4,
		BannerSize:        256,
		ExhaustionBackoff: 0,
		Verbose:           true,
		OutputPath:        "report.json",
	}, cfg.ScanConfig())
}
