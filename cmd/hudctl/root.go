// Package main provides the CLI entrypoint for hudctl.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gogpu/gg"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/hudbridge/internal/config"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		configPath string
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "hudctl",
	Short: "Drive and inspect the hudbridge overlay compositor",
	Long: `hudctl drives the hudbridge overlay compositor without a game engine.

It plays scenario scripts against a display manager, renders the composited
overlay into PNG frames and inspects the live surface stack in a terminal UI.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(globalOpts.configPath)
		if err != nil {
			// Logger is not configured yet; keep defaults so the error is readable.
			setupLogger(slog.LevelInfo)
			return fmt.Errorf("failed to load config: %w", err)
		}

		level, err := config.ParseLevel(cfg.Log.Level)
		if err != nil {
			return err
		}
		if globalOpts.verbose {
			level = slog.LevelDebug
		}
		setupLogger(level)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/hudbridge/hudbridge.toml)")
}

// setupLogger configures the global slog logger. At debug level the
// rasteriser logs through the same handler.
func setupLogger(level slog.Level) {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, opts)
	logger = slog.New(handler)
	slog.SetDefault(logger)

	if level <= slog.LevelDebug {
		gg.SetLogger(logger.With("component", "gg"))
	}
}
