package installer

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParseMountPoint reads the volume from hdiutil attach output.
func TestParseMountPoint(t *testing.T) {
	t.Parallel()

	output := "/dev/disk4          \tGUID_partition_scheme          \t\n" +
		"/dev/disk4s1        \tApple_HFS                      \t/Volumes/Cataclysm DDA  \n" +
		"/dev/disk5s1        \tApple_HFS                      \t/Volumes/Other\n"

	mountPoint, ok := ParseMountPoint(output)
	require.True(t, ok)
	require.Equal(t, "/Volumes/Cataclysm DDA", mountPoint)

	_, ok = ParseMountPoint("/dev/disk4\tGUID_partition_scheme\n")
	require.False(t, ok)
}

// TestLocateBundle prefers the channel bundle name and rejects ambiguity.
func TestLocateBundle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Other.app"), 0o755))

	found, err := locateBundle(dir, "Cataclysm.app")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "Other.app"), found)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Third.app"), 0o755))

	_, err = locateBundle(dir, "Cataclysm.app")
	require.ErrorIs(t, err, errAmbiguousBundle)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Cataclysm.app"), 0o755))

	found, err = locateBundle(dir, "Cataclysm.app")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "Cataclysm.app"), found)

	_, err = locateBundle(t.TempDir(), "Cataclysm.app")
	require.ErrorIs(t, err, errNoBundle)
}

// TestCopyTree keeps symlinks as links.
func TestCopyTree(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "Game.app")
	writeTree(t, src, map[string]string{"Contents/Frameworks/lib.1.dylib": "lib"})
	require.NoError(t, os.Symlink("lib.1.dylib", filepath.Join(src, "Contents", "Frameworks", "lib.dylib")))

	dst := filepath.Join(t.TempDir(), "Game.app")
	require.NoError(t, copyTree(src, dst))

	link, err := os.Readlink(filepath.Join(dst, "Contents", "Frameworks", "lib.dylib"))
	require.NoError(t, err)
	require.Equal(t, "lib.1.dylib", link)
	requireFile(t, filepath.Join(dst, "Contents", "Frameworks", "lib.1.dylib"), "lib")
}

func writeZip(t *testing.T, path string) {
	t.Helper()

	file, err := os.Create(path)
	require.NoError(t, err)

	w := zip.NewWriter(file)

	add := func(name string, mode os.FileMode, content string) {
		header := &zip.FileHeader{Name: name, Method: zip.Deflate}
		header.SetMode(mode)

		entry, createErr := w.CreateHeader(header)
		require.NoError(t, createErr)

		_, createErr = entry.Write([]byte(content))
		require.NoError(t, createErr)
	}

	add("stone_soup/Dungeon Crawl Stone Soup - Tiles.app/Contents/MacOS/crawl", 0o755, "binary")
	add("stone_soup/Dungeon Crawl Stone Soup - Tiles.app/Contents/MacOS/crawl-link", os.ModeSymlink|0o777, "crawl")
	add("__MACOSX/._stone_soup", 0o644, "metadata")

	require.NoError(t, w.Close())
	require.NoError(t, file.Close())
}

// TestZipMounter extracts zipped bundles and unwraps a single top folder.
func TestZipMounter(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	archive := filepath.Join(work, "dcss.zip")
	writeZip(t, archive)

	mounter := NewArchiveMounter()

	volume, err := mounter.Mount(context.Background(), archive, work)
	require.NoError(t, err)
	require.False(t, volume.Attached)
	require.Equal(t, filepath.Join(work, extractDirName, "stone_soup"), volume.Path)

	bundle, err := locateBundle(volume.Path, "Dungeon Crawl Stone Soup - Tiles.app")
	require.NoError(t, err)

	link, err := os.Readlink(filepath.Join(bundle, "Contents", "MacOS", "crawl-link"))
	require.NoError(t, err)
	require.Equal(t, "crawl", link)

	info, err := os.Stat(filepath.Join(bundle, "Contents", "MacOS", "crawl"))
	require.NoError(t, err)
	require.NotZero(t, info.Mode().Perm()&0o100)

	require.NoError(t, mounter.Unmount(context.Background(), volume))
}

// TestZipMounter_RejectsEscapes refuses entries outside the target, by name
// or through a symlink extracted earlier.
func TestZipMounter_RejectsEscapes(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	archive := filepath.Join(work, "evil.zip")

	file, err := os.Create(archive)
	require.NoError(t, err)

	w := zip.NewWriter(file)
	entry, err := w.Create("../escape.txt")
	require.NoError(t, err)

	_, err = entry.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, file.Close())

	_, err = (&ZipMounter{}).Mount(context.Background(), archive, work)
	require.ErrorIs(t, err, errUnsafePath)

	// A link extracted first must not carry later entries outside.
	outside := t.TempDir()
	linked := filepath.Join(work, "linked.zip")

	file, err = os.Create(linked)
	require.NoError(t, err)

	w = zip.NewWriter(file)

	header := &zip.FileHeader{Name: "link"}
	header.SetMode(os.ModeSymlink | 0o777)

	entry, err = w.CreateHeader(header)
	require.NoError(t, err)

	_, err = entry.Write([]byte(outside))
	require.NoError(t, err)

	entry, err = w.Create("link/pwned.txt")
	require.NoError(t, err)

	_, err = entry.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, file.Close())

	_, err = (&ZipMounter{}).Mount(context.Background(), linked, t.TempDir())
	require.ErrorIs(t, err, errUnsafePath)
	require.NoFileExists(t, filepath.Join(outside, "pwned.txt"))
}

// TestStageString names every stage.
func TestStageString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "locating-bundle", StageLocatingBundle.String())
	require.Equal(t, "unknown", Stage(99).String())
	require.True(t, StageFailed.Terminal())
	require.False(t, StageMounting.Terminal())
}
