package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/oshokin/roguelike-launcher/internal/domain/game"
	"github.com/oshokin/roguelike-launcher/internal/service/app"
)

var (
	// runCmd starts the interactive launcher explicitly.
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Start the interactive launcher.",
		Long: `Checks every channel for new releases, prints the status table and reads
commands (refresh, status, install, notes, launch, folder, web, online, help,
quit)
from standard input.`,
		Args: cobra.NoArgs,
		RunE: runInteractive,
	}

	// statusCmd prints the status table once.
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Check every channel and print installed and latest versions.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSignals(func(ctx context.Context) error {
				return app.Status(ctx, options(cmd))
			})
		},
	}

	// installCmd installs or updates one channel.
	installCmd = channelCommand("install [channel]",
		"Download and install the newest macOS build of a channel.",
		app.Install)

	// notesCmd prints release notes.
	notesCmd = channelCommand("notes [channel]",
		"Print the release notes of a channel's newest build.",
		app.Notes)

	// launchCmd starts an installed game.
	launchCmd = channelCommand("launch [channel]",
		"Start the installed game of a channel.",
		app.Launch)

	// folderCmd opens a channel folder.
	folderCmd = channelCommand("folder [channel]",
		"Open the install folder of a channel.",
		app.Folder)

	// webCmd opens a release page.
	webCmd = channelCommand("web [channel]",
		"Open the release page of a channel's newest build.",
		app.Web)

	// onlineCmd opens the web lobby.
	onlineCmd = channelCommand("online [channel]",
		"Play a channel in the browser (Dungeon Crawl Stone Soup only).",
		app.Online)
)

// channelAction is a one-shot command taking an optional channel name.
type channelAction func(ctx context.Context, opts *app.Options, channel string) error

// channelCommand builds a subcommand whose argument names a channel:
// experimental, stable, bn or dcss. Without one a picker is shown.
func channelCommand(use, short string, action channelAction) *cobra.Command {
	return &cobra.Command{
		Use:       use,
		Short:     short,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: channelNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			var channel string
			if len(args) > 0 {
				channel = args[0]
			}

			return withSignals(func(ctx context.Context) error {
				return action(ctx, options(cmd), channel)
			})
		},
	}
}

// channelNames lists the accepted channel arguments for shell completion.
func channelNames() []string {
	channels := game.Channels()

	names := make([]string, 0, len(channels))
	for _, ch := range channels {
		names = append(names, string(ch))
	}

	return names
}
