package console

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/oshokin/roguelike-launcher/internal/domain/game"
	"github.com/oshokin/roguelike-launcher/internal/service/launcher"
)

// ErrNothingSelected is returned when the picker is dismissed.
var ErrNothingSelected = errors.New("no channel selected")

// Picker asks the user to choose a channel.
type Picker func(ctx context.Context, title string, statuses []launcher.ChannelStatus) (game.Channel, error)

// channelItem is one row of the channel list.
type channelItem struct {
	// status is the channel shown.
	status launcher.ChannelStatus
}

func (i channelItem) Title() string {
	return fmt.Sprintf("%s (%s)", i.status.Title, i.status.Channel)
}

func (i channelItem) Description() string {
	return fmt.Sprintf("installed %s | mac build %s | %s",
		orDash(i.status.Installed), orDash(i.status.Build), StateLabel(&i.status))
}

func (i channelItem) FilterValue() string {
	return string(i.status.Channel)
}

type pickerModel struct {
	list     list.Model
	selected game.Channel
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if item, ok := m.list.SelectedItem().(channelItem); ok {
				m.selected = item.status.Channel

				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)

	return m, cmd
}

func (m pickerModel) View() string {
	return m.list.View() + "\nSelect: Enter | Quit: Esc/q\n"
}

const (
	pickerWidth  = 80
	pickerChrome = 6
)

// TeaPicker shows an interactive list on the given terminal streams.
func TeaPicker(in io.Reader, out io.Writer) Picker {
	return func(ctx context.Context, title string, statuses []launcher.ChannelStatus) (game.Channel, error) {
		items := make([]list.Item, 0, len(statuses))
		for _, status := range statuses {
			items = append(items, channelItem{status: status})
		}

		l := list.New(items, list.NewDefaultDelegate(), pickerWidth, len(items)*3+pickerChrome)
		l.Title = title
		l.SetShowStatusBar(false)
		l.SetFilteringEnabled(false)

		prog := tea.NewProgram(pickerModel{list: l},
			tea.WithContext(ctx),
			tea.WithInput(in),
			tea.WithOutput(out),
		)

		final, err := prog.Run()
		if err != nil {
			return "", fmt.Errorf("run channel picker: %w", err)
		}

		if m, ok := final.(pickerModel); ok && m.selected != "" {
			return m.selected, nil
		}

		return "", ErrNothingSelected
	}
}
