package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kebairia/appbackup/internal/config"
	"github.com/kebairia/appbackup/internal/logger"
	"github.com/kebairia/appbackup/internal/operations"
	"github.com/spf13/cobra"
)

var (
	// ConfigFile is the path to the YAML configuration.
	ConfigFile string
	// LogLevel overrides log.level from the configuration when set.
	LogLevel string

	cfg config.Config
	log logger.Logger = logger.Nop()

	// rootCmd is the base command for bacli.
	rootCmd = &cobra.Command{
		Use:   "bacli",
		Short: "Back up and restore an application's database and files",
		Long: `bacli creates full, database and files backups of an application,
keeps them in a catalogue with per-type retention, and restores them.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}
)

// setup loads and validates the configuration and builds the logger.
func setup(cmd *cobra.Command, _ []string) error {
	if err := cfg.Load(ConfigFile); err != nil {
		return err
	}
	if LogLevel != "" {
		cfg.Log.Level = LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	l, err := logger.New(logger.Options{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	log = l
	return nil
}

// newOrchestrator wires the orchestrator from the loaded configuration.
func newOrchestrator(ctx context.Context) (*operations.Orchestrator, error) {
	return operations.NewFromConfig(ctx, cfg, log)
}

// Execute runs the root command. SIGINT and SIGTERM cancel the running
// operation, which then cleans up after itself.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Error("command failed", "error", err.Error())
		logger.Cleanup()
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	logger.Cleanup()
}

func init() {
	rootCmd.PersistentFlags().
		StringVarP(&ConfigFile, "config", "c", "./configs/config.yaml", "path to YAML config file")
	rootCmd.PersistentFlags().
		StringVar(&LogLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(scheduleCmd)
}
