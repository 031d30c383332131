package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/roguelike-launcher/internal/domain/game"
	"github.com/oshokin/roguelike-launcher/internal/service/installer"
	"github.com/oshokin/roguelike-launcher/internal/service/launcher"
)

// fakeCore records calls and replays canned install events.
type fakeCore struct {
	mu       sync.Mutex
	calls    []string
	failures map[game.Channel]error
	events   []installer.Event
}

func (f *fakeCore) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call)
}

func (f *fakeCore) RefreshAll(context.Context) map[game.Channel]error {
	f.record("refresh")

	return f.failures
}

func (f *fakeCore) Statuses() []launcher.ChannelStatus {
	return []launcher.ChannelStatus{
		{Channel: game.Stable, Title: "Cataclysm: DDA Stable", Installed: "0.G", Latest: "0.H", Build: "0.H", HasBuild: true, Refreshed: true},
		{Channel: game.DCSS, Title: "Dungeon Crawl Stone Soup", Latest: "0.32.1", Refreshed: true},
	}
}

func (f *fakeCore) Notes(ch game.Channel) string {
	return "notes of " + string(ch)
}

func (f *fakeCore) StartInstall(_ context.Context, ch game.Channel) (<-chan installer.Event, error) {
	f.record("install " + string(ch))

	events := make(chan installer.Event, len(f.events))
	for _, e := range f.events {
		events <- e
	}

	close(events)

	return events, nil
}

func (f *fakeCore) Launch(_ context.Context, ch game.Channel) error {
	f.record("launch " + string(ch))

	return launcher.ErrNotInstalled
}

func (f *fakeCore) OpenFolder(_ context.Context, ch game.Channel) error {
	f.record("folder " + string(ch))

	return nil
}

func (f *fakeCore) OpenReleasePage(_ context.Context, ch game.Channel) error {
	f.record("web " + string(ch))

	return nil
}

func (f *fakeCore) PlayOnline(_ context.Context, ch game.Channel) error {
	f.record("online " + string(ch))

	if ch != game.DCSS {
		return launcher.ErrNoOnlinePlay
	}

	return nil
}

// TestRender prints one row per channel and the message.
func TestRender(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	err := Render(&out, View{Statuses: (&fakeCore{}).Statuses(), Message: "Ready"})
	require.NoError(t, err)

	text := out.String()
	require.Contains(t, text, "CHANNEL")
	require.Contains(t, text, "update available")
	require.Contains(t, text, "no Mac build")
	require.Contains(t, text, "0.32.1")
	require.True(t, strings.HasSuffix(text, "Ready\n"))
}

// TestStateLabel covers the channel states shown to the user.
func TestStateLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status launcher.ChannelStatus
		want   string
	}{
		{"installing", launcher.ChannelStatus{Installing: true}, "installing"},
		{"check failed", launcher.ChannelStatus{RefreshErr: errors.New("down")}, "check failed"},
		{"not checked", launcher.ChannelStatus{}, "not checked"},
		{"up to date", launcher.ChannelStatus{Refreshed: true, UpToDate: true, HasBuild: true}, "up to date"},
		{"lagging", launcher.ChannelStatus{Refreshed: true, UpToDate: true, BuildLags: true}, "up to date (newer release has no Mac build)"},
		{"fresh", launcher.ChannelStatus{Refreshed: true, HasBuild: true}, "not installed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tt.want, StateLabel(&tt.status))
		})
	}
}

// TestRun executes commands until quit and waits for installs.
func TestRun(t *testing.T) {
	t.Parallel()

	core := &fakeCore{events: []installer.Event{
		{Channel: game.Stable, Stage: installer.StageDownloading, Fraction: -1, Text: "Downloading stable 0.H..."},
		{Channel: game.Stable, Stage: installer.StageDownloading, Fraction: 0.5},
		{Channel: game.Stable, Stage: installer.StageDownloading, Fraction: 1},
		{Channel: game.Stable, Stage: installer.StageUnmounting, Fraction: -1, Text: "Could not unmount", Warning: true},
		{Channel: game.Stable, Stage: installer.StageDone, Fraction: 1, Text: "stable 0.H installed successfully"},
	}}

	input := strings.NewReader("status\nnotes stable\ninstall stable\nlaunch dcss\nweb bn\nbogus\nnotes\nquit\nfolder stable\n")

	var out bytes.Buffer

	require.NoError(t, New(core, input, &out).Run(context.Background()))

	text := out.String()
	require.Contains(t, text, "Checking for updates...")
	require.Contains(t, text, "notes of stable")
	require.Contains(t, text, "stable: 50%")
	require.Contains(t, text, "stable: 100%")
	require.Contains(t, text, "Warning: Could not unmount")
	require.Contains(t, text, "stable 0.H installed successfully")
	require.Contains(t, text, "Error: not installed")
	require.Contains(t, text, `unknown command "bogus"`)
	require.Contains(t, text, "usage: notes <channel>")

	require.Equal(t, []string{"refresh", "install stable", "launch dcss", "web bn"}, core.calls)
}

// TestExecute_UsesPicker asks for a channel when none is given.
func TestExecute_UsesPicker(t *testing.T) {
	t.Parallel()

	core := &fakeCore{}

	var asked string

	picker := func(_ context.Context, title string, statuses []launcher.ChannelStatus) (game.Channel, error) {
		asked = title
		require.Len(t, statuses, 2)

		return game.DCSS, nil
	}

	c := New(core, strings.NewReader(""), &bytes.Buffer{}, WithPicker(picker))
	require.NoError(t, c.Execute(context.Background(), "folder"))
	require.Equal(t, "Choose a channel to folder", asked)
	require.Equal(t, []string{"folder dcss"}, core.calls)

	require.ErrorIs(t, c.Execute(context.Background(), "web nethack"), game.ErrUnknownChannel)
}

// TestExecute_Online opens the lobby and reports channels without one.
func TestExecute_Online(t *testing.T) {
	t.Parallel()

	core := &fakeCore{}
	c := New(core, strings.NewReader(""), &bytes.Buffer{})

	require.NoError(t, c.Execute(context.Background(), "online dcss"))
	require.ErrorIs(t, c.Execute(context.Background(), "online stable"), launcher.ErrNoOnlinePlay)
	require.Equal(t, []string{"online dcss", "online stable"}, core.calls)
}

// TestBringToFront re-renders the status table.
func TestBringToFront(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	New(&fakeCore{}, strings.NewReader(""), &out).BringToFront(context.Background())
	require.Contains(t, out.String(), "Launcher is already running here")
}
