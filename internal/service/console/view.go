package console

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/oshokin/roguelike-launcher/internal/service/launcher"
)

// View is everything the status screen shows.
type View struct {
	// Statuses are the channel rows in display order.
	Statuses []launcher.ChannelStatus
	// Message is the status line under the table.
	Message string
}

const notAvailable = "-"

// Render writes the view to w. It depends on nothing but its arguments.
func Render(w io.Writer, view View) error {
	rows := make([][]string, 0, len(view.Statuses))
	for i := range view.Statuses {
		status := &view.Statuses[i]
		rows = append(rows, []string{
			string(status.Channel),
			status.Title,
			orDash(status.Installed),
			orDash(status.Latest),
			orDash(status.Build),
			StateLabel(status),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("CHANNEL", "GAME", "INSTALLED", "LATEST", "MAC BUILD", "STATE").
		Rows(rows...)

	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}

	if view.Message != "" {
		if _, err := fmt.Fprintln(w, view.Message); err != nil {
			return err
		}
	}

	return nil
}

// StateLabel summarizes what the user can do with the channel.
func StateLabel(status *launcher.ChannelStatus) string {
	switch {
	case status.Installing:
		return "installing"
	case status.RefreshErr != nil && !status.Refreshed:
		return "check failed"
	case !status.Refreshed:
		return "not checked"
	case status.UpToDate && status.BuildLags:
		return "up to date (newer release has no Mac build)"
	case status.UpToDate:
		return "up to date"
	case !status.HasBuild:
		return "no Mac build"
	case status.IsInstalled():
		return "update available"
	default:
		return "not installed"
	}
}

func orDash(s string) string {
	if s == "" {
		return notAvailable
	}

	return s
}
