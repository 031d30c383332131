package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/oshokin/roguelike-launcher/internal/domain/game"
	"github.com/oshokin/roguelike-launcher/internal/logger"
	"github.com/oshokin/roguelike-launcher/internal/service/installer"
	"github.com/oshokin/roguelike-launcher/internal/service/launcher"
)

// Core is the part of the launcher core the console drives.
type Core interface {
	RefreshAll(ctx context.Context) map[game.Channel]error
	Statuses() []launcher.ChannelStatus
	Notes(ch game.Channel) string
	StartInstall(ctx context.Context, ch game.Channel) (<-chan installer.Event, error)
	Launch(ctx context.Context, ch game.Channel) error
	OpenFolder(ctx context.Context, ch game.Channel) error
	OpenReleasePage(ctx context.Context, ch game.Channel) error
	PlayOnline(ctx context.Context, ch game.Channel) error
}

// Console reads commands and prints results.
type Console struct {
	// core executes the commands.
	core Core
	// in is the command source.
	in io.Reader
	// out receives all output.
	out io.Writer
	// picker chooses a channel when a command omits it.
	picker Picker

	// outMu serializes writes from background installs.
	outMu sync.Mutex
	// installs tracks background installs.
	installs sync.WaitGroup
}

// Option customizes a Console.
type Option func(*Console)

// WithPicker enables interactive channel selection.
func WithPicker(p Picker) Option {
	return func(c *Console) {
		c.picker = p
	}
}

// New creates a console over the core.
func New(core Core, in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		core: core,
		in:   in,
		out:  out,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

const helpText = `Commands:
  refresh            check every channel for new releases
  status             show the status table
  install [channel]  download and install the channel build
  notes [channel]    show release notes
  launch [channel]   start the installed game
  folder [channel]   open the channel folder
  web [channel]      open the release page
  online [channel]   play in the browser
  help               show this help
  quit               exit the launcher`

// errQuit ends the command loop.
var errQuit = errors.New("quit")

// Run refreshes every channel, prints the status table and executes commands
// until quit, end of input or ctx cancellation. It waits for running installs.
func (c *Console) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "console")

	c.refresh(ctx)

	// Installs keep ctx; only the reader stops when Run returns.
	readCtx, stopReading := context.WithCancel(ctx)
	defer stopReading()

	var (
		lines   = make(chan string)
		scanErr = make(chan error, 1)
		// resume lets the reader take the next line once a command finished,
		// so the picker owns the input while it is open.
		resume = make(chan struct{}, 1)
	)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-readCtx.Done():
				return
			}

			select {
			case <-resume:
			case <-readCtx.Done():
				return
			}
		}

		scanErr <- scanner.Err()
	}()

	defer c.wait()

	for {
		c.printf("> ")

		select {
		case <-ctx.Done():
			c.printf("\n")

			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("read commands: %w", err)
					}
				default:
				}

				return nil
			}

			err := c.Execute(ctx, line)
			if errors.Is(err, errQuit) {
				return nil
			}

			if err != nil {
				c.printf("Error: %v\n", err)
			}

			resume <- struct{}{}
		}
	}
}

func (c *Console) wait() {
	c.installs.Wait()
}

// Execute runs one command line.
func (c *Console) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	command, args := strings.ToLower(fields[0]), fields[1:]

	switch command {
	case "refresh":
		c.refresh(ctx)

		return nil
	case "status":
		return c.render("")
	case "help", "?":
		c.printf("%s\n", helpText)

		return nil
	case "quit", "exit", "q":
		return errQuit
	case "install", "notes", "launch", "folder", "web", "online":
	default:
		return fmt.Errorf("unknown command %q, type help", command)
	}

	ch, err := c.channel(ctx, command, args)
	if err != nil {
		return err
	}

	switch command {
	case "install":
		return c.install(ctx, ch)
	case "notes":
		c.printf("%s\n", c.core.Notes(ch))

		return nil
	case "launch":
		if err = c.core.Launch(ctx, ch); err != nil {
			return err
		}

		c.printf("Launching %s...\n", ch)

		return nil
	case "folder":
		return c.core.OpenFolder(ctx, ch)
	case "online":
		return c.core.PlayOnline(ctx, ch)
	default:
		return c.core.OpenReleasePage(ctx, ch)
	}
}

// channel parses the argument or asks the picker.
func (c *Console) channel(ctx context.Context, command string, args []string) (game.Channel, error) {
	if len(args) > 0 {
		return game.ParseChannel(args[0])
	}

	if c.picker == nil {
		return "", fmt.Errorf("usage: %s <channel>", command)
	}

	return c.picker(ctx, "Choose a channel to "+command, c.core.Statuses())
}

func (c *Console) refresh(ctx context.Context) {
	c.printf("Checking for updates...\n")

	failures := c.core.RefreshAll(ctx)
	if len(failures) == 0 {
		_ = c.render("Ready")

		return
	}

	channels := make([]string, 0, len(failures))
	for ch := range failures {
		channels = append(channels, string(ch))
	}

	sort.Strings(channels)

	_ = c.render("Could not check: " + strings.Join(channels, ", "))
}

func (c *Console) render(message string) error {
	view := View{
		Statuses: c.core.Statuses(),
		Message:  message,
	}

	c.outMu.Lock()
	defer c.outMu.Unlock()

	return Render(c.out, view)
}

// BringToFront re-renders the status table when another launcher was started.
func (c *Console) BringToFront(context.Context) {
	_ = c.render("Launcher is already running here")
}

const progressStep = 10

func (c *Console) install(ctx context.Context, ch game.Channel) error {
	events, err := c.core.StartInstall(ctx, ch)
	if err != nil {
		return err
	}

	c.installs.Add(1)

	go func() {
		defer c.installs.Done()

		c.follow(events)
	}()

	return nil
}

// follow prints stage changes and every tenth of download progress.
func (c *Console) follow(events <-chan installer.Event) {
	var (
		stage    = installer.StageIdle
		reported = -1
	)

	for e := range events {
		switch {
		case e.Stage == installer.StageDone:
			_ = c.render(e.Text)
		case e.Stage == installer.StageFailed:
			c.printf("%s install failed: %v\n", e.Channel, e.Err)
		case e.Warning:
			c.printf("Warning: %s\n", e.Text)
		case e.Stage != stage:
			stage = e.Stage
			c.printf("%s\n", e.Text)
		case e.Fraction >= 0:
			percent := int(math.Floor(e.Fraction * 100))
			if step := percent / progressStep; step > reported {
				reported = step
				c.printf("%s: %d%%\n", e.Channel, step*progressStep)
			}
		}
	}
}

func (c *Console) printf(format string, args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()

	_, _ = fmt.Fprintf(c.out, format, args...)
}
