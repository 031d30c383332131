package ledger

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/oshokin/roguelike-launcher/internal/domain/game"
	"github.com/oshokin/roguelike-launcher/internal/logger"
)

// Book is the in-memory view of the ledger, loaded once at startup.
type Book struct {
	// repo persists the versions.
	repo Repository
	// versions is the last loaded or recorded mapping.
	versions game.Versions
	// mu serialises record-and-save so concurrent installs never lose an entry.
	mu sync.RWMutex
}

// Open loads the ledger. Any failure leaves the book empty.
func Open(ctx context.Context, repo Repository) *Book {
	return &Book{
		repo:     repo,
		versions: Load(ctx, repo),
	}
}

// Load reads the repository and returns an empty mapping on any failure.
func Load(ctx context.Context, repo Repository) game.Versions {
	versions, err := repo.Load(ctx)

	switch {
	case err == nil:
		return versions.Clone()
	case errors.Is(err, ErrNotFound):
		logger.Debug(ctx, "No ledger yet, nothing is known to be installed")
	default:
		logger.WarnKV(ctx, "Ledger is unreadable, assuming nothing is installed", "error", err)
	}

	return game.Versions{}
}

// Save persists the versions, logging and swallowing failures.
// It reports whether the write went through.
func Save(ctx context.Context, repo Repository, versions game.Versions) bool {
	if err := repo.Save(ctx, versions); err != nil {
		logger.ErrorKV(ctx, "Failed to persist ledger", "error", err)

		return false
	}

	return true
}

// ResolveInstalled joins a ledger record with the filesystem: "" when the
// bundle is missing, the recorded tag when present, UnknownVersion when the
// bundle exists without a record.
func ResolveInstalled(versions game.Versions, ch game.Channel, bundlePath string) string {
	if _, err := os.Stat(bundlePath); err != nil {
		return ""
	}

	if tag, ok := versions.Get(ch); ok {
		return tag
	}

	return game.UnknownVersion
}

// Installed returns the resolved installed version of the channel.
func (b *Book) Installed(ch game.Channel, bundlePath string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return ResolveInstalled(b.versions, ch, bundlePath)
}

// Snapshot returns a copy of the recorded versions.
func (b *Book) Snapshot() game.Versions {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.versions.Clone()
}

// Record stores the tag for the channel and persists the whole ledger.
// Other channels are refreshed from the file first, so records written by
// another launcher process since Open are kept. The in-memory record is
// updated even when persisting fails.
func (b *Book) Record(ctx context.Context, ch game.Channel, tag string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if current, err := b.repo.Load(ctx); err == nil {
		for other, otherTag := range current {
			if other != ch {
				b.versions[other] = otherTag
			}
		}
	}

	b.versions[ch] = tag

	saved := Save(ctx, b.repo, b.versions)
	if saved {
		logger.InfoKV(ctx, "Ledger updated", "channel", ch, "tag", tag)
	}

	return saved
}
