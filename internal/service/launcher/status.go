package launcher

import "github.com/oshokin/roguelike-launcher/internal/domain/game"

// ChannelStatus is the reconciled view of one channel.
type ChannelStatus struct {
	// Channel identifies the slot.
	Channel game.Channel
	// Title is the display name.
	Title string
	// Installed is the resolved installed version, "" when not installed.
	Installed string
	// Latest is the newest release tag, "" until refreshed.
	Latest string
	// Build is the newest tag with a macOS build.
	Build string
	// HasBuild is set when Build can be downloaded.
	HasBuild bool
	// UpToDate is set when Installed equals Build.
	UpToDate bool
	// BuildLags is set when Latest has no macOS build yet.
	BuildLags bool
	// Installing is set while an install of the channel runs.
	Installing bool
	// Refreshed is set once a refresh succeeded.
	Refreshed bool
	// RefreshErr is the last refresh failure.
	RefreshErr error
}

// IsInstalled reports whether a bundle is present.
func (s *ChannelStatus) IsInstalled() bool {
	return s.Installed != ""
}

// UpdateAvailable reports whether installing would change the bundle.
func (s *ChannelStatus) UpdateAvailable() bool {
	return s.HasBuild && !s.UpToDate
}
