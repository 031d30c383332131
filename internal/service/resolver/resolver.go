package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oshokin/roguelike-launcher/internal/api/github"
	"github.com/oshokin/roguelike-launcher/internal/domain/game"
	"github.com/oshokin/roguelike-launcher/internal/logger"
)

// Feed reads release lists from the upstream host.
type Feed interface {
	// LatestRelease returns the release the host marks as latest.
	LatestRelease(ctx context.Context, owner, repo string) (*github.Release, error)
	// Releases returns recent releases, newest first.
	Releases(ctx context.Context, owner, repo string) ([]github.Release, error)
}

// Resolver fetches and evaluates release feeds for catalog channels.
type Resolver struct {
	// feed is the upstream release source.
	feed Feed
	// catalog holds the channel definitions.
	catalog *game.Catalog
	// now is the clock stamped into results.
	now func() time.Time
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithClock replaces the wall clock used for FetchedAt.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// errNilFeed is returned when no feed is supplied.
var errNilFeed = errors.New("release feed is required")

// New creates a Resolver over the catalog.
func New(feed Feed, catalog *game.Catalog, opts ...Option) (*Resolver, error) {
	if feed == nil {
		return nil, errNilFeed
	}

	r := &Resolver{
		feed:    feed,
		catalog: catalog,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Resolve fetches the feed of one channel and selects its releases.
func (r *Resolver) Resolve(ctx context.Context, ch game.Channel) (game.ReleaseInfo, error) {
	def, err := r.catalog.Lookup(ch)
	if err != nil {
		return game.ReleaseInfo{}, err
	}

	ctx = logger.WithKV(logger.WithName(ctx, "resolver"), "channel", ch)

	var releases []github.Release

	switch def.Feed {
	case game.FeedLatest:
		var release *github.Release

		release, err = r.feed.LatestRelease(ctx, def.Owner, def.Repo)
		if release != nil {
			releases = []github.Release{*release}
		}
	default:
		releases, err = r.feed.Releases(ctx, def.Owner, def.Repo)
	}

	if err != nil {
		return game.ReleaseInfo{}, fmt.Errorf("fetch %s releases: %w", ch, err)
	}

	info := Select(def, releases, r.now())

	logger.DebugKV(ctx, "Releases resolved",
		"latest", info.LatestTag,
		"build", info.BuildTag,
		"asset", info.AssetName)

	return info, nil
}

// Result is the outcome of resolving one channel.
type Result struct {
	// Info is valid when Err is nil.
	Info game.ReleaseInfo
	// Err is the fetch failure of the channel.
	Err error
}

// ResolveAll resolves every catalog channel concurrently. A failing channel
// does not cancel the others.
func (r *Resolver) ResolveAll(ctx context.Context) map[game.Channel]Result {
	var (
		mu      sync.Mutex
		group   errgroup.Group
		results = make(map[game.Channel]Result)
	)

	for _, ch := range r.catalog.Channels() {
		group.Go(func() error {
			info, err := r.Resolve(ctx, ch)
			if err != nil {
				logger.WarnKV(ctx, "Release check failed", "channel", ch, "error", err)
			}

			mu.Lock()
			results[ch] = Result{Info: info, Err: err}
			mu.Unlock()

			return nil
		})
	}

	_ = group.Wait()

	return results
}
