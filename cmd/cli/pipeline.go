package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/anstrom/skim/internal/config"
	"github.com/anstrom/skim/internal/db"
	"github.com/anstrom/skim/internal/errors"
	"github.com/anstrom/skim/internal/logging"
	"github.com/anstrom/skim/internal/metrics"
	"github.com/anstrom/skim/internal/report"
	"github.com/anstrom/skim/internal/runner"
	"github.com/anstrom/skim/internal/scanning"
	"github.com/anstrom/skim/internal/target"
)

// Viper keys for the scan flags. They mirror the config file layout so the
// environment variables read naturally, e.g. SKIM_SCANNING_TIMEOUT.
const (
	keyPorts       = "scanning.ports"
	keyTimeout     = "scanning.timeout"
	keyConcurrency = "scanning.concurrency"
	keyRetries     = "scanning.retries"
	keyNoPing      = "scanning.no_ping"
	keyOutput      = "output.path"
	keyNameserver  = "resolver.nameserver"
	keyStore       = "database.enabled"
	keyMetricsAddr = "metrics.listen_addr"
)

var scanFlagKeys = map[string]string{
	"ports":        keyPorts,
	"timeout":      keyTimeout,
	"concurrency":  keyConcurrency,
	"retries":      keyRetries,
	"no-ping":      keyNoPing,
	"output":       keyOutput,
	"nameserver":   keyNameserver,
	"store":        keyStore,
	"metrics-addr": keyMetricsAddr,
}

// addScanFlags registers the flags shared by scan and watch.
func addScanFlags(cmd *cobra.Command) {
	defaults := config.Default()

	flags := cmd.Flags()
	flags.StringP("ports", "p", "", "ports to scan: single port, range a-b or comma list (default well-known ports)")
	flags.Float64P("timeout", "t", defaults.Scanning.Timeout.Seconds(), "per-operation timeout in seconds")
	flags.IntP("concurrency", "c", defaults.Scanning.Concurrency, "maximum probes in flight")
	flags.Int("retries", defaults.Scanning.Retries, "connection attempts per port")
	flags.StringP("output", "o", "", "write the JSON report to this file")
	flags.String("nameserver", "", "resolve the target through this DNS server (host[:port])")
	flags.Bool("no-ping", false, "skip the nmap reachability check")
	flags.Bool("store", false, "store the report in PostgreSQL")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address while scanning")
}

// bindScanFlags binds the shared flags to viper. It runs from PreRunE so
// that only the executing command owns the keys.
func bindScanFlags(flags *pflag.FlagSet) error {
	for name, key := range scanFlagKeys {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind %s flag: %w", name, err)
		}
	}
	return nil
}

// applyScanOverrides copies explicitly set flags and SKIM_* variables over
// the file configuration.
func applyScanOverrides(cfg *config.Config) error {
	if viper.IsSet(keyPorts) {
		cfg.Scanning.Ports = viper.GetString(keyPorts)
	}
	if viper.IsSet(keyTimeout) {
		timeout, err := parseSeconds(viper.GetString(keyTimeout))
		if err != nil {
			return errors.ErrConfigInvalid("timeout", viper.GetString(keyTimeout))
		}
		cfg.Scanning.Timeout = timeout
	}
	if viper.IsSet(keyConcurrency) {
		cfg.Scanning.Concurrency = viper.GetInt(keyConcurrency)
	}
	if viper.IsSet(keyRetries) {
		cfg.Scanning.Retries = viper.GetInt(keyRetries)
	}
	if viper.IsSet(keyNoPing) {
		cfg.Scanning.Ping = !viper.GetBool(keyNoPing)
	}
	if viper.IsSet(keyOutput) {
		cfg.Output.Path = viper.GetString(keyOutput)
	}
	if viper.IsSet(keyNameserver) {
		cfg.Resolver.Nameserver = viper.GetString(keyNameserver)
	}
	if viper.IsSet(keyStore) {
		cfg.Database.Enabled = viper.GetBool(keyStore)
	}
	if addr := viper.GetString(keyMetricsAddr); viper.IsSet(keyMetricsAddr) && addr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.ListenAddr = addr
	}
	return cfg.Validate()
}

// parseSeconds accepts fractional seconds ("2.5") or a Go duration ("500ms").
func parseSeconds(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// portsFromConfig returns the configured ports or the well-known list.
func portsFromConfig(cfg *config.Config) (scanning.PortSpec, error) {
	if cfg.Scanning.Ports == "" {
		return scanning.DefaultPorts(), nil
	}
	return scanning.ParsePortSpec(cfg.Scanning.Ports)
}

// outputFailed reports whether a run finished its scan and only a report
// output failed. Such failures are warnings.
func outputFailed(rep *report.Report, err error) bool {
	return err != nil && rep != nil && !errors.IsFatal(err)
}

// pipeline holds everything a scan pass needs, plus what must be released
// afterwards.
type pipeline struct {
	runner   *runner.Runner
	database *db.DB
	server   *metrics.Server
	logger   *logging.Logger
}

// newPipeline builds the resolver, scanner and outputs described by cfg.
// Console output goes to out.
func newPipeline(ctx context.Context, cfg *config.Config, out io.Writer, logger *logging.Logger) (*pipeline, error) {
	p := &pipeline{logger: logger}

	var recorder metrics.Recorder = metrics.Noop{}
	if cfg.Metrics.Enabled {
		pm := metrics.NewPrometheusMetrics()
		server := metrics.NewServer(cfg.Metrics.ListenAddr, pm, logger)
		if err := server.Start(); err != nil {
			return nil, errors.WrapConfigError(errors.CodeConfiguration, "failed to start metrics server", err)
		}
		p.server = server
		recorder = pm
	}

	var store report.ReportStore
	if cfg.Database.Enabled {
		database, err := db.ConnectAndMigrate(ctx, &cfg.Database.Config, logger)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.database = database
		store = db.NewReportRepository(database, logger)
	}

	scanner, err := scanning.NewScanner(cfg.ScanConfig(), recorder, logger)
	if err != nil {
		p.Close()
		return nil, err
	}

	var pinger runner.Pinger
	if cfg.Scanning.Ping {
		pinger = target.NewPinger(cfg.Scanning.PingTimeout, logger)
	}

	publisher := report.NewPublisher(out, cfg.Output.Path, store, recorder, logger)
	p.runner = runner.New(target.NewResolver(cfg.Resolver, logger), pinger, scanner, publisher, logger)
	return p, nil
}

// Close releases the database and stops the metrics server.
func (p *pipeline) Close() {
	if p.server != nil {
		if err := p.server.Shutdown(context.Background()); err != nil {
			p.logger.Warn("Failed to stop metrics server", "error", err)
		}
	}
	if p.database != nil {
		if err := p.database.Close(); err != nil {
			p.logger.Warn("Failed to close database connection", "error", err)
		}
	}
}
