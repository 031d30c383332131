package resolver

import (
	"time"

	"github.com/oshokin/roguelike-launcher/internal/api/github"
	"github.com/oshokin/roguelike-launcher/internal/domain/game"
)

// Select picks the latest tag and the newest installable build from releases,
// which must be ordered newest first.
func Select(def *game.Definition, releases []github.Release, fetchedAt time.Time) game.ReleaseInfo {
	info := game.ReleaseInfo{
		Channel:   def.Channel,
		FetchedAt: fetchedAt,
	}

	var latest *github.Release

	for i := range releases {
		release := &releases[i]
		if !def.MatchesCategory(release.TagName) {
			continue
		}

		if latest == nil {
			latest = release
		}

		asset := findAsset(def, release.Assets)
		if asset == nil {
			continue
		}

		// Tag, asset and notes always come from the same release.
		info.BuildTag = release.TagName
		info.DownloadURL = asset.DownloadURL
		info.AssetName = asset.Name
		info.Notes = release.Notes(game.NoNotes)

		break
	}

	if latest != nil {
		info.LatestTag = latest.TagName
	}

	if info.BuildTag == "" {
		info.Notes = game.NoNotes
		if latest != nil {
			info.Notes = latest.Notes(game.NoNotes)
		}
	}

	info.PageURL = pageURL(def, &info, releases)

	return info
}

func findAsset(def *game.Definition, assets []github.Asset) *github.Asset {
	for i := range assets {
		if assets[i].DownloadURL != "" && def.Assets.Match(assets[i].Name) {
			return &assets[i]
		}
	}

	return nil
}

// pageURL prefers the page the feed reports for the shown release.
func pageURL(def *game.Definition, info *game.ReleaseInfo, releases []github.Release) string {
	tag := info.BuildTag
	if tag == "" {
		tag = info.LatestTag
	}

	for i := range releases {
		if releases[i].TagName == tag && tag != "" && releases[i].HTMLURL != "" {
			return releases[i].HTMLURL
		}
	}

	return def.ReleasePageURL(tag)
}
