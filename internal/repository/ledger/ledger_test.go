package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/roguelike-launcher/internal/domain/game"
)

var errTestSave = errors.New("test save error")

// memoryRepository is a minimal in-memory Repository implementation for tests.
type memoryRepository struct {
	// versions is returned from Load.
	versions game.Versions
	// loadErr is returned from Load.
	loadErr error
	// saveErr is returned from Save.
	saveErr error
	// saved stores the last mapping passed to Save.
	saved game.Versions
}

func (m *memoryRepository) Load(context.Context) (game.Versions, error) {
	return m.versions, m.loadErr
}

func (m *memoryRepository) Save(_ context.Context, v game.Versions) error {
	m.saved = v.Clone()

	return m.saveErr
}

// TestFileRepository_NotFound verifies Load returns ErrNotFound for a missing file.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "missing.json"), game.Channels())

	v, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, v)
}

// TestFileRepository_SaveLoad_Roundtrip ensures save(load()) reproduces the mapping.
func TestFileRepository_SaveLoad_Roundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "versions.json")
	repo := NewFileRepository(path, game.Channels())
	ctx := context.Background()

	want := game.Versions{
		game.Stable:       "0.H-RELEASE",
		game.Experimental: "cdda-experimental-2024-05-01-0000",
	}

	require.NoError(t, repo.Save(ctx, want))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, want, got)

	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, got))

	again, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, got, again)

	second, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, string(first), string(second))

	// Absent channels are written as null.
	require.JSONEq(t, `{
		"experimental": "cdda-experimental-2024-05-01-0000",
		"stable": "0.H-RELEASE",
		"bn": null,
		"dcss": null
	}`, string(second))

	// No stale swap files are left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

// TestFileRepository_Corrupt reports decode errors for garbage content.
func TestFileRepository_Corrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "versions.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileRepository(path, game.Channels()).Load(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

// TestLoad_DegradesToEmpty covers the "nothing installed" fallback for every failure.
func TestLoad_DegradesToEmpty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "versions.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o600))

	require.Empty(t, Load(ctx, NewFileRepository(path, game.Channels())))
	require.Empty(t, Load(ctx, &memoryRepository{loadErr: ErrNotFound}))
	require.Empty(t, Load(ctx, &memoryRepository{loadErr: errTestSave}))
	require.NotNil(t, Load(ctx, &memoryRepository{}))
}

// TestResolveInstalled checks that the filesystem is authoritative.
func TestResolveInstalled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bundle := filepath.Join(dir, "Cataclysm.app")
	versions := game.Versions{game.Stable: "0.H"}

	// Record without bundle reads as not installed.
	require.Empty(t, ResolveInstalled(versions, game.Stable, bundle))

	require.NoError(t, os.MkdirAll(bundle, 0o755))
	require.Equal(t, "0.H", ResolveInstalled(versions, game.Stable, bundle))

	// Bundle without record reads as unknown.
	require.Equal(t, game.UnknownVersion, ResolveInstalled(versions, game.Experimental, bundle))
}

// TestBook_Record updates only the given channel and swallows save failures.
func TestBook_Record(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := &memoryRepository{versions: game.Versions{game.Experimental: "exp-1"}}
	book := Open(ctx, repo)

	require.True(t, book.Record(ctx, game.Stable, "0.H"))
	require.Equal(t, game.Versions{game.Experimental: "exp-1", game.Stable: "0.H"}, repo.saved)

	repo.saveErr = errTestSave
	require.False(t, book.Record(ctx, game.Stable, "0.I"))

	snapshot := book.Snapshot()
	require.Equal(t, "0.I", snapshot[game.Stable])

	// Snapshots are copies.
	snapshot[game.Stable] = "mutated"
	require.Equal(t, "0.I", book.Snapshot()[game.Stable])
}

// TestBook_RecordKeepsOtherProcessRecords merges records written through
// another book on the same file.
func TestBook_RecordKeepsOtherProcessRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "versions.json")

	interactive := Open(ctx, NewFileRepository(path, game.Channels()))
	oneShot := Open(ctx, NewFileRepository(path, game.Channels()))

	require.True(t, oneShot.Record(ctx, game.Stable, "0.H"))
	require.True(t, interactive.Record(ctx, game.Experimental, "exp-1"))

	got, err := NewFileRepository(path, game.Channels()).Load(ctx)
	require.NoError(t, err)
	require.Equal(t, game.Versions{game.Stable: "0.H", game.Experimental: "exp-1"}, got)
	require.Equal(t, "0.H", interactive.Snapshot()[game.Stable])
}

// TestBook_Installed resolves through the filesystem.
func TestBook_Installed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	book := Open(context.Background(), &memoryRepository{versions: game.Versions{game.BrightNights: "cbn-1"}})

	bundle := filepath.Join(dir, "bn", "Cataclysm.app")
	require.Empty(t, book.Installed(game.BrightNights, bundle))

	require.NoError(t, os.MkdirAll(bundle, 0o755))
	require.Equal(t, "cbn-1", book.Installed(game.BrightNights, bundle))
}
