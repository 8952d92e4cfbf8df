// Package cli provides the operator command-line interface for voc2ticket.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/raphaelgruber/voc2ticket/internal/app"
	"github.com/raphaelgruber/voc2ticket/internal/config"
	"github.com/spf13/cobra"
)

const startupTimeout = 30 * time.Second

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool
	watch   bool

	// Process-wide state built in PersistentPreRunE
	cfg         config.Config
	application *app.App
	closeLog    func() error
	stopWatch   func()
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "voc2ticket",
	Short: "Turn customer feedback into Jira tickets through a guided chat",
	Long: `voc2ticket drafts Jira tickets from free-form customer feedback (VOC).

A conversation is matched against a catalog of ticket templates, the
template fields are filled in by the model, and the draft is previewed
until the operator confirms it. Similar past cases and guidance documents
are retrieved as reference context.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		var logger *slog.Logger
		logger, closeLog = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		slog.SetDefault(logger)

		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()

		var err error
		application, err = app.New(ctx, cfg, app.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("initialize: %w", err)
		}

		if watch {
			stopWatch, err = application.WatchSettings(cmd.Context())
			if err != nil {
				slog.Warn("settings watcher unavailable", "error", err)
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stopWatch != nil {
			stopWatch()
		}
		if application != nil {
			if err := application.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close: %v\n", err)
			}
		}
		if closeLog != nil {
			_ = closeLog()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&watch, "watch-settings", true, "reload adapters when the settings file changes")

	// Add subcommands
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(corpusCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(ticketCmd)
	rootCmd.AddCommand(statsCmd)
}
