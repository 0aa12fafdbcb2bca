package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan TARGET",
	Short: "Scan a host for open ports, banners and TLS",
	Long: `Connect to every requested port of TARGET, grab a service banner,
probe for TLS and classify the service. Open ports are printed as a table;
use --output for the full JSON report.

TARGET is an IPv4 or IPv6 literal or a hostname. Without --ports the
well-known port list is scanned. Interrupting the scan discards all
partial results.`,
	Example: `  skim scan scanme.nmap.org
  skim scan 192.168.1.10 -p 1-1024 -c 256
  skim scan example.com -p 22,80,443,8000-8100 -t 0.5 -o report.json
  skim scan db.internal --store --no-ping
  skim scan example.com --nameserver 9.9.9.9 --metrics-addr :9464`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindScanFlags(cmd.Flags())
	},
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	addScanFlags(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyScanOverrides(cfg); err != nil {
		return err
	}

	ports, err := portsFromConfig(cfg)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := newPipeline(ctx, cfg, cmd.OutOrStdout(), logger)
	if err != nil {
		return err
	}
	defer p.Close()

	rep, err := p.runner.Run(ctx, args[0], ports)
	if outputFailed(rep, err) {
		logger.WithError(err).Warn("Report incomplete")
		return nil
	}
	return err
}
