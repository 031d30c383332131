package game

import (
	"maps"
	"time"
)

const (
	// UnknownVersion is reported for a bundle that exists without a ledger record.
	UnknownVersion = "Unknown Version"
	// NoNotes replaces an absent release body.
	NoNotes = "No patch notes available"
)

// ReleaseInfo is the per-channel result of a refresh. It is never persisted.
type ReleaseInfo struct {
	// Channel is the slot the information belongs to.
	Channel Channel
	// LatestTag is the newest release of the channel, installable or not.
	LatestTag string
	// BuildTag is the newest release that ships a macOS build, or "".
	BuildTag string
	// DownloadURL is the macOS asset of BuildTag, or "".
	DownloadURL string
	// AssetName is the file name of the macOS asset.
	AssetName string
	// Notes is the release body of BuildTag, or of LatestTag when nothing qualifies.
	Notes string
	// PageURL is the release web page.
	PageURL string
	// FetchedAt is when the feed was read.
	FetchedAt time.Time
}

// HasBuild reports whether an installable build was found.
func (r ReleaseInfo) HasBuild() bool {
	return r.DownloadURL != ""
}

// BuildLags reports whether the newest release has no macOS build yet.
func (r ReleaseInfo) BuildLags() bool {
	return r.LatestTag != "" && r.BuildTag != r.LatestTag
}

// Versions maps channels to installed version tags. A missing key means
// nothing is recorded for the channel.
type Versions map[Channel]string

// Get returns the recorded tag of the channel.
func (v Versions) Get(ch Channel) (string, bool) {
	tag, ok := v[ch]

	return tag, ok && tag != ""
}

// Clone returns an independent copy.
func (v Versions) Clone() Versions {
	if v == nil {
		return Versions{}
	}

	return maps.Clone(v)
}
