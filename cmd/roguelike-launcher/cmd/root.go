package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/roguelike-launcher/internal/config"
	"github.com/oshokin/roguelike-launcher/internal/service/app"
	"github.com/oshokin/roguelike-launcher/internal/service/console"
	"github.com/oshokin/roguelike-launcher/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel overrides the configured console log level.
	logLevel string

	// rootCmd represents the base command, which starts the interactive launcher.
	rootCmd = &cobra.Command{
		Use:   "roguelike-launcher",
		Short: "Install, update and launch macOS builds of open-source roguelikes.",
		Long: `Keeps Cataclysm: DDA (experimental and stable), Cataclysm: Bright Nights and
Dungeon Crawl Stone Soup up to date.

Each game lives in its own folder under the base directory. Upgrades download
the newest macOS build, replace the application bundle and carry saves,
backups, memorials, graveyards and templates over to the new version.

Without a subcommand the interactive launcher starts. Only one interactive
launcher runs at a time; starting another one brings the first to the front.
The install subcommand refuses to run while the interactive launcher is open.`,
		Args: cobra.NoArgs,
		RunE: runInteractive,
	}
)

// runInteractive starts the interactive session.
func runInteractive(cmd *cobra.Command, _ []string) error {
	return withSignals(func(ctx context.Context) error {
		return app.Run(ctx, options(cmd))
	})
}

// withSignals runs fn with a context canceled on SIGINT or SIGTERM.
func withSignals(fn func(ctx context.Context) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return fn(ctx)
}

// options builds the command options from flags and the command streams.
func options(cmd *cobra.Command) *app.Options {
	return &app.Options{
		ConfigPath: configPath,
		LogLevel:   logLevel,
		In:         cmd.InOrStdin(),
		Out:        cmd.OutOrStdout(),
		Picker:     console.TeaPicker(cmd.InOrStdin(), cmd.OutOrStdout()),
	}
}

// Execute runs the roguelike-launcher CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup persistent flags shared by every subcommand.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigPath(), "path to configuration file")
	rootCmd.PersistentFlags().
		StringVarP(&logLevel, "log-level", "l", "", "console log level: debug, info, warn or error")

	rootCmd.AddCommand(runCmd, statusCmd, installCmd, notesCmd, launchCmd, folderCmd, webCmd, onlineCmd)
}
