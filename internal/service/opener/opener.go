// Package opener hands bundles, folders and URLs to the desktop.
package opener

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ErrUnsupportedOS indicates the current OS has no known opener.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// Opener opens a path or URL with the default application.
type Opener interface {
	Open(ctx context.Context, target string) error
}

// Command starts the platform opener for each target.
type Command struct {
	// Name overrides the opener executable.
	Name string
}

// New returns the opener of the current OS:
// - macOS: `open`
// - Linux: `xdg-open`
func New() *Command {
	return &Command{}
}

func (c *Command) name() (string, error) {
	if c.Name != "" {
		return c.Name, nil
	}

	osName := strings.ToLower(runtime.GOOS)

	switch {
	case strings.Contains(osName, "darwin"):
		return "open", nil
	case strings.Contains(osName, "linux"):
		return "xdg-open", nil
	default:
		return "", fmt.Errorf("%s: %w", runtime.GOOS, ErrUnsupportedOS)
	}
}

// Open starts the opener asynchronously; the desktop takes over the rest.
func (c *Command) Open(ctx context.Context, target string) error {
	name, err := c.name()
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(context.WithoutCancel(ctx), name, target) //nolint:gosec // Targets are our own paths and URLs.
	if err = cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}

	// Reap the child without blocking the caller.
	go func() {
		_ = cmd.Wait()
	}()

	return nil
}
