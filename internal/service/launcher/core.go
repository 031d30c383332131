package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/oshokin/roguelike-launcher/internal/config"
	"github.com/oshokin/roguelike-launcher/internal/domain/game"
	"github.com/oshokin/roguelike-launcher/internal/logger"
	"github.com/oshokin/roguelike-launcher/internal/repository/ledger"
	"github.com/oshokin/roguelike-launcher/internal/service/installer"
	"github.com/oshokin/roguelike-launcher/internal/service/opener"
	"github.com/oshokin/roguelike-launcher/internal/service/resolver"
)

// Resolver refreshes release information.
type Resolver interface {
	Resolve(ctx context.Context, ch game.Channel) (game.ReleaseInfo, error)
	ResolveAll(ctx context.Context) map[game.Channel]resolver.Result
}

// Dependencies are the collaborators of a Core.
type Dependencies struct {
	// BaseDir holds every channel directory.
	BaseDir string
	// Catalog describes the channels.
	Catalog *game.Catalog
	// Book is the version ledger.
	Book *ledger.Book
	// Resolver fetches release feeds.
	Resolver Resolver
	// Installer performs upgrades.
	Installer *installer.Installer
	// Opener hands paths and URLs to the desktop.
	Opener opener.Opener
}

// eventBuffer lets an install run ahead of a slow UI.
const eventBuffer = 64

var (
	// ErrNotInstalled is returned when acting on a channel without a bundle.
	ErrNotInstalled = errors.New("not installed")
	// ErrNoOnlinePlay is returned for channels without a web lobby.
	ErrNoOnlinePlay = errors.New("no online play")
	// errDependencyMissing is returned for incomplete Dependencies.
	errDependencyMissing = errors.New("launcher dependency is missing")
)

// Core is the UI-facing launcher state.
type Core struct {
	// deps are the collaborators.
	deps Dependencies

	// mu guards releases and refreshErrs.
	mu sync.RWMutex
	// releases holds the last successful refresh per channel.
	releases map[game.Channel]game.ReleaseInfo
	// refreshErrs holds the last refresh failure per channel.
	refreshErrs map[game.Channel]error
}

// New creates the core and makes sure every channel directory exists.
func New(deps Dependencies) (*Core, error) {
	if deps.BaseDir == "" || deps.Catalog == nil || deps.Book == nil ||
		deps.Resolver == nil || deps.Installer == nil || deps.Opener == nil {
		return nil, errDependencyMissing
	}

	for _, ch := range deps.Catalog.Channels() {
		def, err := deps.Catalog.Lookup(ch)
		if err != nil {
			return nil, err
		}

		if err = os.MkdirAll(def.Dir(deps.BaseDir), config.DefaultDirPermissions); err != nil {
			return nil, fmt.Errorf("create %s directory: %w", ch, err)
		}
	}

	return &Core{
		deps:        deps,
		releases:    make(map[game.Channel]game.ReleaseInfo),
		refreshErrs: make(map[game.Channel]error),
	}, nil
}

// Channels returns the catalog channels in display order.
func (c *Core) Channels() []game.Channel {
	return c.deps.Catalog.Channels()
}

// Definition returns the channel definition.
func (c *Core) Definition(ch game.Channel) (*game.Definition, error) {
	return c.deps.Catalog.Lookup(ch)
}

// BaseDir returns the install root.
func (c *Core) BaseDir() string {
	return c.deps.BaseDir
}

// Refresh re-reads the feed of one channel. On failure the previous release
// information is kept.
func (c *Core) Refresh(ctx context.Context, ch game.Channel) (game.ReleaseInfo, error) {
	info, err := c.deps.Resolver.Resolve(ctx, ch)
	c.store(ch, info, err)

	if err != nil {
		return c.Release(ch), err
	}

	return info, nil
}

// RefreshAll re-reads every feed concurrently and returns the failures.
func (c *Core) RefreshAll(ctx context.Context) map[game.Channel]error {
	failures := make(map[game.Channel]error)

	for ch, result := range c.deps.Resolver.ResolveAll(ctx) {
		c.store(ch, result.Info, result.Err)

		if result.Err != nil {
			failures[ch] = result.Err
		}
	}

	return failures
}

func (c *Core) store(ch game.Channel, info game.ReleaseInfo, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.refreshErrs[ch] = err

		return
	}

	delete(c.refreshErrs, ch)
	c.releases[ch] = info
}

// Release returns the last refreshed information of the channel.
func (c *Core) Release(ch game.Channel) game.ReleaseInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info, ok := c.releases[ch]
	if !ok {
		return game.ReleaseInfo{Channel: ch}
	}

	return info
}

// Installed returns the resolved installed version, "" when not installed.
func (c *Core) Installed(ch game.Channel) string {
	def, err := c.deps.Catalog.Lookup(ch)
	if err != nil {
		return ""
	}

	return c.deps.Book.Installed(ch, def.BundlePath(c.deps.BaseDir))
}

// Status reconciles the ledger, the filesystem and the last refresh.
func (c *Core) Status(ch game.Channel) (ChannelStatus, error) {
	def, err := c.deps.Catalog.Lookup(ch)
	if err != nil {
		return ChannelStatus{}, err
	}

	c.mu.RLock()
	info, refreshed := c.releases[ch]
	refreshErr := c.refreshErrs[ch]
	c.mu.RUnlock()

	installed := c.Installed(ch)

	return ChannelStatus{
		Channel:    ch,
		Title:      def.Title,
		Installed:  installed,
		Latest:     info.LatestTag,
		Build:      info.BuildTag,
		HasBuild:   info.HasBuild(),
		UpToDate:   installed != "" && info.BuildTag != "" && installed == info.BuildTag,
		BuildLags:  info.BuildLags(),
		Installing: c.deps.Installer.Busy(ch),
		Refreshed:  refreshed,
		RefreshErr: refreshErr,
	}, nil
}

// Statuses returns Status for every channel in display order.
func (c *Core) Statuses() []ChannelStatus {
	result := make([]ChannelStatus, 0, len(c.Channels()))

	for _, ch := range c.Channels() {
		status, err := c.Status(ch)
		if err != nil {
			continue
		}

		result = append(result, status)
	}

	return result
}

// Notes returns the release notes of the channel's build.
func (c *Core) Notes(ch game.Channel) string {
	info := c.Release(ch)
	if info.Notes == "" {
		return game.NoNotes
	}

	return info.Notes
}

// NoBuildMessage explains why a channel cannot be installed.
func NoBuildMessage(info game.ReleaseInfo) string {
	if info.LatestTag != info.BuildTag {
		build := info.BuildTag
		if build == "" {
			build = "none"
		}

		return fmt.Sprintf("No Mac build yet for %s. Latest Mac build: %s", info.LatestTag, build)
	}

	return fmt.Sprintf("No Mac download found for %s version", info.Channel)
}

// installable returns the build to install or a no-build error.
func (c *Core) installable(ch game.Channel) (game.ReleaseInfo, error) {
	if _, err := c.deps.Catalog.Lookup(ch); err != nil {
		return game.ReleaseInfo{}, err
	}

	info := c.Release(ch)
	if !info.HasBuild() {
		return info, &installer.Error{
			Kind:    installer.KindNoBuild,
			Channel: ch,
			Err:     errors.New(NoBuildMessage(info)), //nolint:err113 // The message is built for the UI.
		}
	}

	return info, nil
}

// Install upgrades the channel to its refreshed build, delivering events
// to handle synchronously.
func (c *Core) Install(ctx context.Context, ch game.Channel, handle installer.Handler) error {
	info, err := c.installable(ch)
	if err != nil {
		return err
	}

	return c.deps.Installer.Install(ctx, info, handle)
}

// StartInstall runs the install in the background. Refusals are returned
// directly; otherwise every event is sent on the returned channel, which is
// closed after the terminal event. The caller must drain it.
func (c *Core) StartInstall(ctx context.Context, ch game.Channel) (<-chan installer.Event, error) {
	info, err := c.installable(ch)
	if err != nil {
		return nil, err
	}

	release, err := c.deps.Installer.Reserve(ch)
	if err != nil {
		return nil, err
	}

	events := make(chan installer.Event, eventBuffer)

	go func() {
		defer close(events)
		defer release()

		err := c.deps.Installer.InstallReserved(ctx, info, func(e installer.Event) {
			events <- e
		})
		if err != nil {
			logger.DebugKV(ctx, "Background install ended", "channel", ch, "error", err)
		}
	}()

	return events, nil
}

// Launch opens the installed bundle of the channel.
func (c *Core) Launch(ctx context.Context, ch game.Channel) error {
	def, err := c.deps.Catalog.Lookup(ch)
	if err != nil {
		return err
	}

	bundle := def.BundlePath(c.deps.BaseDir)
	if _, err = os.Stat(bundle); err != nil {
		return fmt.Errorf("launch %s: %w", ch, ErrNotInstalled)
	}

	logger.InfoKV(ctx, "Launching", "channel", ch, "bundle", bundle)

	return c.deps.Opener.Open(ctx, bundle)
}

// OpenFolder reveals the channel directory.
func (c *Core) OpenFolder(ctx context.Context, ch game.Channel) error {
	def, err := c.deps.Catalog.Lookup(ch)
	if err != nil {
		return err
	}

	dir := def.Dir(c.deps.BaseDir)
	if err = os.MkdirAll(dir, config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create %s directory: %w", ch, err)
	}

	return c.deps.Opener.Open(ctx, dir)
}

// OpenReleasePage opens the web page of the channel's build.
func (c *Core) OpenReleasePage(ctx context.Context, ch game.Channel) error {
	def, err := c.deps.Catalog.Lookup(ch)
	if err != nil {
		return err
	}

	page := c.Release(ch).PageURL
	if page == "" {
		page = def.ReleasePageURL("")
	}

	return c.deps.Opener.Open(ctx, page)
}

// PlayOnline opens the channel's web lobby in the browser.
func (c *Core) PlayOnline(ctx context.Context, ch game.Channel) error {
	def, err := c.deps.Catalog.Lookup(ch)
	if err != nil {
		return err
	}

	if def.OnlineURL == "" {
		return fmt.Errorf("%s: %w", ch, ErrNoOnlinePlay)
	}

	logger.InfoKV(ctx, "Opening online lobby", "channel", ch, "url", def.OnlineURL)

	return c.deps.Opener.Open(ctx, def.OnlineURL)
}
