package game

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Channel identifies an independent install slot with its own directory and
// version record.
type Channel string

// Known channels.
const (
	Experimental Channel = "experimental"
	Stable       Channel = "stable"
	BrightNights Channel = "bn"
	DCSS         Channel = "dcss"
)

// ErrUnknownChannel is returned for names outside the fixed channel set.
var ErrUnknownChannel = errors.New("unknown channel")

// Channels returns every known channel in display order.
func Channels() []Channel {
	return []Channel{Experimental, Stable, BrightNights, DCSS}
}

// ParseChannel converts user input into a Channel.
func ParseChannel(s string) (Channel, error) {
	ch := Channel(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(Channels(), ch) {
		return "", fmt.Errorf("%q: %w", s, ErrUnknownChannel)
	}

	return ch, nil
}

// String implements fmt.Stringer.
func (c Channel) String() string {
	return string(c)
}

// FeedKind selects which release endpoint a channel polls.
type FeedKind int

const (
	// FeedList polls the full release list, newest first.
	FeedList FeedKind = iota
	// FeedLatest polls the single latest release.
	FeedLatest
)

// AssetRule decides whether a release asset is a build for this platform.
// Matching is case-insensitive on the asset name.
type AssetRule struct {
	// AllOf lists substrings that must all be present.
	AllOf []string
	// AnyOf lists substrings of which at least one must be present, when non-empty.
	AnyOf []string
	// Extensions lists accepted archive suffixes.
	Extensions []string
}

// Match reports whether the asset name satisfies the rule.
func (r AssetRule) Match(name string) bool {
	name = strings.ToLower(name)

	for _, part := range r.AllOf {
		if !strings.Contains(name, part) {
			return false
		}
	}

	if len(r.AnyOf) > 0 && !slices.ContainsFunc(r.AnyOf, func(part string) bool {
		return strings.Contains(name, part)
	}) {
		return false
	}

	return slices.ContainsFunc(r.Extensions, func(ext string) bool {
		return strings.HasSuffix(name, ext)
	})
}

// Definition describes where a channel's releases come from and how its
// build is installed.
type Definition struct {
	// Channel is the slot this definition belongs to.
	Channel Channel
	// Title is the human-readable game and track name.
	Title string
	// Owner is the upstream repository owner.
	Owner string
	// Repo is the upstream repository name.
	Repo string
	// Feed selects the release endpoint.
	Feed FeedKind
	// Category, when set, must appear in a release tag (case-insensitive).
	Category string
	// Assets decides which asset is the macOS build.
	Assets AssetRule
	// BundleName is the name of the installed application bundle.
	BundleName string
	// DataDir is the bundle-relative directory holding user data, or "".
	DataDir string
	// UserDataFolders are the DataDir subfolders preserved across upgrades.
	UserDataFolders []string
	// ProcessNames are executable names of the running game.
	ProcessNames []string
	// OnlineURL is a web lobby for playing in the browser, or "".
	OnlineURL string
}

// MatchesCategory reports whether the release tag belongs to this channel.
func (d *Definition) MatchesCategory(tag string) bool {
	if d.Category == "" {
		return true
	}

	return strings.Contains(strings.ToLower(tag), strings.ToLower(d.Category))
}

// Dir returns the channel install directory under base.
func (d *Definition) Dir(base string) string {
	return filepath.Join(base, string(d.Channel))
}

// BundlePath returns where the installed bundle lives under base.
func (d *Definition) BundlePath(base string) string {
	return filepath.Join(d.Dir(base), d.BundleName)
}

// ReleasePageURL returns the web page of the tag, or of all releases when tag is empty.
func (d *Definition) ReleasePageURL(tag string) string {
	page := fmt.Sprintf("https://github.com/%s/%s/releases", d.Owner, d.Repo)
	if tag == "" {
		return page
	}

	return page + "/tag/" + tag
}

// PreservesUserData reports whether upgrades must carry user folders over.
func (d *Definition) PreservesUserData() bool {
	return d.DataDir != "" && len(d.UserDataFolders) > 0
}
