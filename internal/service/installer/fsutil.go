package installer

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	defaultDirMode  = 0o755
	defaultFileMode = 0o644
	bundleSuffix    = ".app"
)

func dirMode(mode fs.FileMode) fs.FileMode {
	if perm := mode.Perm(); perm != 0 {
		return perm | 0o700
	}

	return defaultDirMode
}

// copyTree copies src into dst, recreating symlinks instead of following them.
func copyTree(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), defaultDirMode); err != nil {
		return err
	}

	return filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		target := filepath.Join(dst, rel)

		switch {
		case entry.Type()&fs.ModeSymlink != 0:
			link, linkErr := os.Readlink(path)
			if linkErr != nil {
				return linkErr
			}

			return os.Symlink(link, target)
		case entry.IsDir():
			info, infoErr := entry.Info()
			if infoErr != nil {
				return infoErr
			}

			return os.MkdirAll(target, dirMode(info.Mode()))
		case entry.Type().IsRegular():
			return copyFile(path, target)
		default:
			// Sockets and devices never belong in a bundle.
			return nil
		}
	})
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src) //nolint:gosec // Source is inside a bundle we manage.
	if err != nil {
		return err
	}

	defer func() {
		_ = in.Close()
	}()

	return writeFile(dst, in, info.Mode().Perm())
}

func writeFile(path string, r io.Reader, perm fs.FileMode) error {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm) //nolint:gosec // Path is ours.
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, r); err != nil {
		_ = out.Close()

		return fmt.Errorf("write %s: %w", path, err)
	}

	return out.Close()
}

// moveTree renames src to dst, copying when they live on different devices.
func moveTree(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), defaultDirMode); err != nil {
		return err
	}

	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	if err := copyTree(src, dst); err != nil {
		return err
	}

	return os.RemoveAll(src)
}

func exists(path string) bool {
	_, err := os.Lstat(path)

	return err == nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}
