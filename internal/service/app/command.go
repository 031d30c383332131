package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/oshokin/roguelike-launcher/internal/config"
	"github.com/oshokin/roguelike-launcher/internal/domain/game"
	"github.com/oshokin/roguelike-launcher/internal/logger"
	"github.com/oshokin/roguelike-launcher/internal/service/console"
	"github.com/oshokin/roguelike-launcher/internal/service/installer"
	"github.com/oshokin/roguelike-launcher/internal/service/instance"
	"github.com/oshokin/roguelike-launcher/internal/service/launcher"
	"github.com/oshokin/roguelike-launcher/internal/service/opener"
)

// Options controls every launcher command.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// LogLevel overrides the configured console log level.
	LogLevel string
	// In is the command input.
	In io.Reader
	// Out receives command output.
	Out io.Writer
	// Picker chooses a channel when none is given.
	Picker console.Picker
	// InstallerOptions customize the installer, mostly for tests.
	InstallerOptions []installer.Option
	// Opener replaces the desktop opener when set.
	Opener opener.Opener
}

var (
	// ErrLauncherRunning is returned by one-shot installs while the
	// interactive launcher owns the install directory.
	ErrLauncherRunning = errors.New("the launcher is running, install from its console")
	// errUnknownLogLevel is returned for unsupported --log-level values.
	errUnknownLogLevel = errors.New("unknown log level")
)

// setup loads settings and configures logging. File logging is only enabled
// when withFile is set, so a second instance leaves no trace.
func setup(opts *Options, withFile bool) (*config.Config, func(), error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	levelName := cfg.LogLevel
	if opts.LogLevel != "" {
		levelName = opts.LogLevel
	}

	level, ok := logger.ParseLogLevel(levelName)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", errUnknownLogLevel, levelName)
	}

	fileOpts := logger.FileOptions{Level: level}
	if withFile {
		fileOpts.Path = cfg.LogFilePath()
	}

	closeLog, err := logger.Setup(level, fileOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("set up logging: %w", err)
	}

	return cfg, closeLog, nil
}

// Run starts the interactive launcher. A second instance signals the first
// one and returns nil without touching anything.
func Run(ctx context.Context, opts *Options) error {
	cfg, closeLog, err := setup(opts, false)
	if err != nil {
		return err
	}

	defer closeLog()

	// Context loggers are bound when named, so name after every Setup.
	base := ctx
	ctx = logger.WithName(base, "roguelike-launcher")

	// The console does not exist yet when the guard starts serving.
	var front atomic.Pointer[console.Console]

	guard, err := instance.Acquire(ctx, cfg.SocketPath, cfg.ShowTimeout, instance.PresenterFunc(func(ctx context.Context) {
		if c := front.Load(); c != nil {
			c.BringToFront(ctx)
		}
	}))
	if errors.Is(err, instance.ErrAlreadyRunning) {
		_, _ = fmt.Fprintln(opts.Out, "The launcher is already running; it was brought to the front.")

		return nil
	}

	if err != nil {
		return fmt.Errorf("acquire single instance: %w", err)
	}

	defer func() {
		if closeErr := guard.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Close instance socket", "error", closeErr)
		}
	}()

	// This process owns the launcher now, so it may write its log file.
	if cfg, closeLog, err = setup(opts, true); err != nil {
		return err
	}

	defer closeLog()

	ctx = logger.WithName(base, "roguelike-launcher")

	core, err := launcher.Build(ctx, cfg, opts.Opener, opts.InstallerOptions...)
	if err != nil {
		return fmt.Errorf("initialise launcher: %w", err)
	}

	logger.InfoKV(ctx, "Launcher started", "base_dir", cfg.BaseDir, "socket", cfg.SocketPath)

	var consoleOpts []console.Option
	if opts.Picker != nil {
		consoleOpts = append(consoleOpts, console.WithPicker(opts.Picker))
	}

	c := console.New(core, opts.In, opts.Out, consoleOpts...)
	front.Store(c)

	return c.Run(ctx)
}

// open assembles the core for a one-shot command.
func open(ctx context.Context, opts *Options) (*launcher.Core, func(), error) {
	cfg, closeLog, err := setup(opts, true)
	if err != nil {
		return nil, nil, err
	}

	core, err := launcher.Build(ctx, cfg, opts.Opener, opts.InstallerOptions...)
	if err != nil {
		closeLog()

		return nil, nil, fmt.Errorf("initialise launcher: %w", err)
	}

	return core, closeLog, nil
}

// pick resolves the channel argument, asking the picker when it is empty.
func pick(ctx context.Context, opts *Options, core *launcher.Core, name, action string) (game.Channel, error) {
	if name != "" {
		return game.ParseChannel(name)
	}

	if opts.Picker == nil {
		return "", fmt.Errorf("a channel is required: one of %v", core.Channels())
	}

	return opts.Picker(ctx, "Choose a channel to "+action, core.Statuses())
}

// Status refreshes every channel and prints the status table.
func Status(ctx context.Context, opts *Options) error {
	core, closeLog, err := open(ctx, opts)
	if err != nil {
		return err
	}

	defer closeLog()

	ctx = logger.WithName(ctx, "status")

	message := "Ready"
	if failures := core.RefreshAll(ctx); len(failures) > 0 {
		message = fmt.Sprintf("Could not check %d channel(s), see the log", len(failures))
	}

	return console.Render(opts.Out, console.View{Statuses: core.Statuses(), Message: message})
}

// Install refreshes the channel and installs its build, printing progress.
// It holds the single-instance socket for the whole install and refuses to
// run next to an interactive launcher.
func Install(ctx context.Context, opts *Options, channel string) error {
	cfg, closeLog, err := setup(opts, true)
	if err != nil {
		return err
	}

	defer closeLog()

	ctx = logger.WithName(ctx, "install")

	guard, err := instance.Acquire(ctx, cfg.SocketPath, cfg.ShowTimeout, nil)
	if errors.Is(err, instance.ErrAlreadyRunning) {
		return ErrLauncherRunning
	}

	if err != nil {
		return fmt.Errorf("acquire single instance: %w", err)
	}

	defer func() {
		if closeErr := guard.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Close instance socket", "error", closeErr)
		}
	}()

	core, err := launcher.Build(ctx, cfg, opts.Opener, opts.InstallerOptions...)
	if err != nil {
		return fmt.Errorf("initialise launcher: %w", err)
	}

	ch, err := pick(ctx, opts, core, channel, "install")
	if err != nil {
		return err
	}

	if _, err = core.Refresh(ctx, ch); err != nil {
		return fmt.Errorf("check %s: %w", ch, err)
	}

	status, err := core.Status(ch)
	if err != nil {
		return err
	}

	if status.UpToDate {
		_, _ = fmt.Fprintf(opts.Out, "%s is up to date (%s)\n", ch, status.Installed)

		return nil
	}

	var lastStage installer.Stage

	return core.Install(ctx, ch, func(e installer.Event) {
		switch {
		case e.Stage == installer.StageFailed:
			return
		case e.Warning || e.Stage != lastStage || e.Stage == installer.StageDone:
			lastStage = e.Stage
			_, _ = fmt.Fprintln(opts.Out, e.Text)
		}
	})
}

// Notes refreshes the channel and prints its release notes.
func Notes(ctx context.Context, opts *Options, channel string) error {
	core, closeLog, err := open(ctx, opts)
	if err != nil {
		return err
	}

	defer closeLog()

	ctx = logger.WithName(ctx, "notes")

	ch, err := pick(ctx, opts, core, channel, "read notes of")
	if err != nil {
		return err
	}

	info, err := core.Refresh(ctx, ch)
	if err != nil {
		return fmt.Errorf("check %s: %w", ch, err)
	}

	tag := info.BuildTag
	if tag == "" {
		tag = info.LatestTag
	}

	_, _ = fmt.Fprintf(opts.Out, "%s %s\n\n%s\n", ch, tag, core.Notes(ch))

	return nil
}

// Launch starts the installed game of the channel.
func Launch(ctx context.Context, opts *Options, channel string) error {
	core, closeLog, err := open(ctx, opts)
	if err != nil {
		return err
	}

	defer closeLog()

	ctx = logger.WithName(ctx, "launch")

	ch, err := pick(ctx, opts, core, channel, "launch")
	if err != nil {
		return err
	}

	return core.Launch(ctx, ch)
}

// Folder opens the install folder of the channel.
func Folder(ctx context.Context, opts *Options, channel string) error {
	core, closeLog, err := open(ctx, opts)
	if err != nil {
		return err
	}

	defer closeLog()

	ctx = logger.WithName(ctx, "folder")

	ch, err := pick(ctx, opts, core, channel, "open")
	if err != nil {
		return err
	}

	return core.OpenFolder(ctx, ch)
}

// Web opens the release page of the channel's newest build.
func Web(ctx context.Context, opts *Options, channel string) error {
	core, closeLog, err := open(ctx, opts)
	if err != nil {
		return err
	}

	defer closeLog()

	ctx = logger.WithName(ctx, "web")

	ch, err := pick(ctx, opts, core, channel, "open the release page of")
	if err != nil {
		return err
	}

	// Without a fresh release the page falls back to the release list.
	if _, err = core.Refresh(ctx, ch); err != nil {
		logger.WarnKV(ctx, "Release check failed", "channel", ch, "error", err)
	}

	return core.OpenReleasePage(ctx, ch)
}

// Online opens the web lobby of the channel.
func Online(ctx context.Context, opts *Options, channel string) error {
	core, closeLog, err := open(ctx, opts)
	if err != nil {
		return err
	}

	defer closeLog()

	ctx = logger.WithName(ctx, "online")

	ch, err := pick(ctx, opts, core, channel, "play online")
	if err != nil {
		return err
	}

	return core.PlayOnline(ctx, ch)
}
