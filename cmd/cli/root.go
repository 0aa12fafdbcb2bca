// Package cli provides the command-line interface for skim.
// It implements the Cobra command tree: one-shot scans, recurring watches
// and the stored scan history.
package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/anstrom/skim/internal/config"
	"github.com/anstrom/skim/internal/errors"
	"github.com/anstrom/skim/internal/logging"
)

const (
	defaultConfigFile = "config.yaml"
	envPrefix         = "SKIM"

	exitFailure = 1
	exitAborted = 130
)

var (
	cfgFile string
	verbose bool
)

// Build information - these will be set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "skim",
	Short: "Concurrent TCP/TLS reconnaissance scanner",
	Long: `skim connects to every requested port of a host, grabs a best-effort
service banner, probes for TLS, classifies the likely service and reports
the open ports as a table and an optional JSON file.`,
	Version:       getVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	if !stderrors.Is(err, errors.ErrUserAbort) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	if stderrors.Is(err, errors.ErrUserAbort) {
		return exitAborted
	}
	return exitFailure
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to bind verbose flag: %v\n", err)
	}
}

// initConfig records the config file and wires SKIM_* environment
// variables. The file itself is parsed by the config package; viper only
// layers flags and environment on top of it.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	configureEnv()

	if viper.GetBool("verbose") {
		fmt.Fprintln(os.Stderr, "Using config file:", getConfigFilePath())
	}
}

func configureEnv() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

// getConfigFilePath returns the config file in use, falling back to
// ./config.yaml.
func getConfigFilePath() string {
	if path := viper.ConfigFileUsed(); path != "" {
		return path
	}
	return defaultConfigFile
}

// loadConfig loads the config file and applies the global overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(getConfigFilePath())
	if err != nil {
		return nil, err
	}
	if viper.GetBool("verbose") {
		cfg.Logging.Level = logging.LevelDebug
	}
	return cfg, nil
}

// newLogger builds the process logger from configuration.
func newLogger(cfg logging.Config) *logging.Logger {
	logger, err := logging.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
		return logging.NewWithWriter(cfg, os.Stderr)
	}
	return logger
}

// getVersion returns the version string.
func getVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime)
}

// SetVersion sets the version information (called from main).
func SetVersion(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
	rootCmd.Version = getVersion()
}

// SetOutput redirects command output, mainly for tests.
func SetOutput(w io.Writer) {
	rootCmd.SetOut(w)
	rootCmd.SetErr(w)
}
