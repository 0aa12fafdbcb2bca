package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/anstrom/skim/internal/config"
	"github.com/anstrom/skim/internal/db"
	"github.com/anstrom/skim/internal/errors"
)

const defaultHistoryLimit = 10

var (
	historyLimit  int
	historyScanID string
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history TARGET",
	Short: "Show stored scans of a target",
	Long: `List the most recent scans of TARGET stored with --store, newest first.
With --scan-id, show the open ports recorded by that scan instead.

Requires the database section of the config file.`,
	Example: `  skim history example.com
  skim history example.com --limit 50
  skim history example.com --scan-id 0d2f3c6a-8a55-4d3b-9d4f-0b8b6a1c2e3f`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", defaultHistoryLimit, "number of scans to list")
	historyCmd.Flags().StringVar(&historyScanID, "scan-id", "", "show the open ports of one scan")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := checkHistoryOptions(cfg, historyLimit); err != nil {
		return err
	}

	var scanID uuid.UUID
	if historyScanID != "" {
		scanID, err = uuid.Parse(historyScanID)
		if err != nil {
			return errors.NewConfigFieldError(errors.CodeValidation, "invalid scan id", "scan-id", historyScanID)
		}
	}

	logger := newLogger(cfg.Logging)

	database, err := db.Connect(cmd.Context(), &cfg.Database.Config, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := database.Close(); closeErr != nil {
			logger.Warn("Failed to close database connection", "error", closeErr)
		}
	}()

	repo := db.NewReportRepository(database, logger)
	out := cmd.OutOrStdout()

	if scanID != uuid.Nil {
		results, err := repo.OpenPorts(cmd.Context(), scanID)
		if err != nil {
			return err
		}
		return renderPortHistory(out, results)
	}

	runs, err := repo.ListRuns(cmd.Context(), args[0], historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		_, err := fmt.Fprintf(out, "No stored scans for %s\n", args[0])
		return err
	}
	return renderRunHistory(out, runs)
}

// checkHistoryOptions rejects a non-positive limit and a config that cannot
// reach the report store, whether or not --store is enabled for scans.
func checkHistoryOptions(cfg *config.Config, limit int) error {
	if limit < 1 {
		return errors.NewConfigFieldError(errors.CodeValidation, "limit must be positive", "limit", limit)
	}
	cfg.Database.Enabled = true
	return cfg.Validate()
}

// renderRunHistory displays stored scan runs in a table format.
func renderRunHistory(w io.Writer, runs []db.ScanRun) error {
	table := tablewriter.NewWriter(w)
	table.Header("Scan ID", "Address", "Started", "Duration", "Ports", "Open")

	for i := range runs {
		run := &runs[i]
		if err := table.Append([]string{
			run.ID.String(),
			run.Address,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%.2fs", run.DurationSeconds),
			strconv.Itoa(run.TotalPorts),
			strconv.Itoa(run.OpenPorts),
		}); err != nil {
			return err
		}
	}

	return table.Render()
}

// renderPortHistory displays the open ports of one stored scan.
func renderPortHistory(w io.Writer, results []db.PortResult) error {
	table := tablewriter.NewWriter(w)
	table.Header("Port", "Service", "TLS", "Banner")

	for i := range results {
		res := &results[i]
		if err := table.Append([]string{
			fmt.Sprintf("%d/tcp", res.Port),
			valueOr(res.Service, "Unknown"),
			valueOr(res.TLSVersion, "-"),
			truncate(valueOr(res.Banner, ""), 60),
		}); err != nil {
			return err
		}
	}

	return table.Render()
}

func valueOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
