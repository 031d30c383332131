package installer

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ZipMounter extracts .zip archives into the work directory.
type ZipMounter struct{}

const (
	extractDirName = "extracted"
	macOSMetadata  = "__MACOSX"
)

// Mount extracts archive and returns the directory that holds the bundle.
// An archive wrapping everything in one folder yields that folder.
func (*ZipMounter) Mount(ctx context.Context, archive, workDir string) (Volume, error) {
	root := filepath.Join(workDir, extractDirName)
	if err := extractZip(ctx, archive, root); err != nil {
		return Volume{}, err
	}

	path, err := unwrapSingleDir(root)
	if err != nil {
		return Volume{}, err
	}

	return Volume{Path: path}, nil
}

// Unmount is a no-op; the work directory is removed by the installer.
func (*ZipMounter) Unmount(context.Context, Volume) error {
	return nil
}

func extractZip(ctx context.Context, archive, root string) error {
	reader, err := zip.OpenReader(archive)
	if errors.Is(err, zip.ErrInsecurePath) {
		if reader != nil {
			_ = reader.Close()
		}

		return fmt.Errorf("%w: %w", errUnsafePath, err)
	}

	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	defer func() {
		_ = reader.Close()
	}()

	for _, file := range reader.File {
		if err = ctx.Err(); err != nil {
			return err
		}

		if err = extractEntry(file, root); err != nil {
			return err
		}
	}

	return nil
}

func extractEntry(file *zip.File, root string) error {
	name := filepath.FromSlash(file.Name)
	if !filepath.IsLocal(name) {
		return fmt.Errorf("%w: %s", errUnsafePath, file.Name)
	}

	target := filepath.Join(root, name)
	if err := refuseSymlinkPath(root, name); err != nil {
		return fmt.Errorf("%w: %s", err, file.Name)
	}

	mode := file.Mode()

	switch {
	case mode.IsDir():
		return os.MkdirAll(target, dirMode(mode))
	case mode&os.ModeSymlink != 0:
		return extractSymlink(file, target)
	}

	if err := os.MkdirAll(filepath.Dir(target), defaultDirMode); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", file.Name, err)
	}

	defer func() {
		_ = src.Close()
	}()

	perm := mode.Perm()
	if perm == 0 {
		// Archives written without unix attributes carry no permissions.
		perm = defaultFileMode
	}

	return writeFile(target, src, perm)
}

func extractSymlink(file *zip.File, target string) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", file.Name, err)
	}

	defer func() {
		_ = src.Close()
	}()

	link, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("read link %s: %w", file.Name, err)
	}

	if err = os.MkdirAll(filepath.Dir(target), defaultDirMode); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	return os.Symlink(string(link), target)
}

func unwrapSingleDir(root string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", fmt.Errorf("read extracted archive: %w", err)
	}

	var dirs []os.DirEntry

	for _, entry := range entries {
		if entry.Name() == macOSMetadata {
			continue
		}

		if strings.HasSuffix(entry.Name(), bundleSuffix) || !entry.IsDir() {
			return root, nil
		}

		dirs = append(dirs, entry)
	}

	if len(dirs) != 1 {
		return root, nil
	}

	return filepath.Join(root, dirs[0].Name()), nil
}

// refuseSymlinkPath fails when any already extracted component of name,
// including name itself, is a symlink. Writing there would follow the link.
func refuseSymlinkPath(root, name string) error {
	current := root

	for part := range strings.SplitSeq(name, string(filepath.Separator)) {
		current = filepath.Join(current, part)

		info, err := os.Lstat(current)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("inspect %s: %w", current, err)
		}

		if info.Mode()&fs.ModeSymlink != 0 {
			return errUnsafePath
		}
	}

	return nil
}
