package installer

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Volume is a mounted or extracted build.
type Volume struct {
	// Path is the directory holding the application bundle.
	Path string
	// Attached is set when Path must be detached afterwards.
	Attached bool
}

// Mounter makes the contents of a downloaded archive browsable.
type Mounter interface {
	// Mount exposes archive as a directory; workDir is scratch space.
	Mount(ctx context.Context, archive, workDir string) (Volume, error)
	// Unmount releases a volume returned by Mount.
	Unmount(ctx context.Context, volume Volume) error
}

// DefaultHDIUtil is the macOS disk image tool.
const DefaultHDIUtil = "hdiutil"

// DiskImageMounter attaches .dmg files with hdiutil.
type DiskImageMounter struct {
	// Command overrides the hdiutil executable.
	Command string
}

func (m *DiskImageMounter) command() string {
	if m.Command == "" {
		return DefaultHDIUtil
	}

	return m.Command
}

// Mount attaches the image read-only without showing it in Finder.
func (m *DiskImageMounter) Mount(ctx context.Context, archive, _ string) (Volume, error) {
	//nolint:gosec // The command is hdiutil and the image path is ours.
	output, err := exec.CommandContext(ctx, m.command(),
		"attach", "-nobrowse", "-readonly", "-noautoopen", archive).CombinedOutput()
	if err != nil {
		return Volume{}, fmt.Errorf("hdiutil attach: %w: %s", err, strings.TrimSpace(string(output)))
	}

	mountPoint, ok := ParseMountPoint(string(output))
	if !ok {
		return Volume{}, errNoMountPoint
	}

	return Volume{Path: mountPoint, Attached: true}, nil
}

// Unmount detaches the volume.
func (m *DiskImageMounter) Unmount(ctx context.Context, volume Volume) error {
	if !volume.Attached {
		return nil
	}

	//nolint:gosec // The command is hdiutil and the mount point came from it.
	output, err := exec.CommandContext(ctx, m.command(), "detach", volume.Path).CombinedOutput()
	if err != nil {
		return fmt.Errorf("hdiutil detach: %w: %s", err, strings.TrimSpace(string(output)))
	}

	return nil
}

// ParseMountPoint extracts the mount point from hdiutil attach output: the
// last tab-separated field of the first line mentioning /Volumes/.
func ParseMountPoint(output string) (string, bool) {
	for line := range strings.SplitSeq(output, "\n") {
		if !strings.Contains(line, "/Volumes/") {
			continue
		}

		fields := strings.Split(line, "\t")

		mountPoint := strings.TrimSpace(fields[len(fields)-1])
		if mountPoint == "" {
			return "", false
		}

		return mountPoint, true
	}

	return "", false
}

// ArchiveMounter dispatches on the archive extension.
type ArchiveMounter struct {
	// DiskImage handles .dmg files.
	DiskImage Mounter
	// Zip handles .zip files.
	Zip Mounter
}

// NewArchiveMounter returns the default hdiutil and zip mounters.
func NewArchiveMounter() *ArchiveMounter {
	return &ArchiveMounter{
		DiskImage: &DiskImageMounter{},
		Zip:       &ZipMounter{},
	}
}

// Mount implements Mounter.
func (m *ArchiveMounter) Mount(ctx context.Context, archive, workDir string) (Volume, error) {
	if strings.EqualFold(filepath.Ext(archive), ".zip") {
		return m.Zip.Mount(ctx, archive, workDir)
	}

	return m.DiskImage.Mount(ctx, archive, workDir)
}

// Unmount implements Mounter.
func (m *ArchiveMounter) Unmount(ctx context.Context, volume Volume) error {
	if !volume.Attached {
		return nil
	}

	return m.DiskImage.Unmount(ctx, volume)
}
