package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/anstrom/skim/internal/config"
	"github.com/anstrom/skim/internal/errors"
	"github.com/anstrom/skim/internal/logging"
	"github.com/anstrom/skim/internal/runner"
	"github.com/anstrom/skim/internal/scanning"
	"github.com/anstrom/skim/internal/scheduler"
)

const (
	keySchedule   = "watch.schedule"
	keyRunOnStart = "watch.run_on_start"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch TARGET [TARGET...]",
	Short: "Re-scan targets on a cron schedule",
	Long: `Scan each TARGET whenever the cron schedule fires until interrupted.
Every run produces a complete report: the table is printed, and the JSON
file and database store are written when configured.

The schedule is a standard five-field cron expression or a descriptor such
as @hourly or "@every 15m". A run that is still in progress when its next
tick fires is skipped.`,
	Example: `  skim watch example.com --schedule "*/15 * * * *"
  skim watch 10.0.0.5 10.0.0.6 --schedule @hourly --store
  skim watch example.com --schedule "@every 5m" -p 1-1024 -o latest.json`,
	Args: cobra.MinimumNArgs(1),
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := bindScanFlags(cmd.Flags()); err != nil {
			return err
		}
		if err := viper.BindPFlag(keySchedule, cmd.Flags().Lookup("schedule")); err != nil {
			return err
		}
		return viper.BindPFlag(keyRunOnStart, cmd.Flags().Lookup("run-on-start"))
	},
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addScanFlags(watchCmd)

	defaults := config.Default()
	watchCmd.Flags().String("schedule", defaults.Watch.Schedule, "cron schedule for re-scans")
	watchCmd.Flags().Bool("run-on-start", defaults.Watch.RunOnStart, "scan once immediately before the first tick")
}

func applyWatchOverrides(cfg *config.Config) error {
	if viper.IsSet(keySchedule) {
		cfg.Watch.Schedule = viper.GetString(keySchedule)
	}
	if viper.IsSet(keyRunOnStart) {
		cfg.Watch.RunOnStart = viper.GetBool(keyRunOnStart)
	}
	if cfg.Watch.Schedule == "" {
		return errors.NewConfigFieldError(errors.CodeConfiguration, "a schedule is required", "watch.schedule", "")
	}
	return applyScanOverrides(cfg)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyWatchOverrides(cfg); err != nil {
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

	sched := scheduler.NewScheduler(logger)
	ids, err := addWatchJobs(sched, p.runner, cfg.Watch.Schedule, args, ports, logger)
	if err != nil {
		return err
	}

	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	if cfg.Watch.RunOnStart {
		for _, id := range ids {
			go func() {
				_ = sched.RunNow(id)
			}()
		}
	}

	logger.Info("Watching targets", "targets", args, "schedule", cfg.Watch.Schedule)
	for _, job := range sched.Jobs() {
		logger.Info("Scan scheduled", "target", job.Name, "next_run", job.NextRun)
	}

	<-ctx.Done()
	logger.Info("Interrupted, stopping watch")
	sched.Stop()
	for _, job := range sched.Jobs() {
		logger.Info("Watch summary", "target", job.Name, "runs", job.Runs, "last_error", job.LastErr)
	}
	return nil
}

// addWatchJobs registers one scheduled scan per host.
func addWatchJobs(sched *scheduler.Scheduler, r *runner.Runner, schedule string,
	hosts []string, ports scanning.PortSpec, logger *logging.Logger) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(hosts))
	for _, host := range hosts {
		id, err := sched.AddJob(host, schedule, func(ctx context.Context) error {
			rep, err := r.Run(ctx, host, ports)
			if outputFailed(rep, err) {
				logger.WithTarget(host).WithError(err).Warn("Report incomplete")
				return nil
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
