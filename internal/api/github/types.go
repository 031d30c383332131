package github

import "time"

// Release is one entry of a release feed.
type Release struct {
	// TagName is the git tag of the release.
	TagName string `json:"tag_name"`
	// Name is the release title.
	Name string `json:"name"`
	// Body is the free-text release notes; nil when absent.
	Body *string `json:"body"`
	// HTMLURL is the release web page.
	HTMLURL string `json:"html_url"`
	// Prerelease marks releases not promoted to "latest".
	Prerelease bool `json:"prerelease"`
	// PublishedAt is when the release was published.
	PublishedAt time.Time `json:"published_at"`
	// Assets are the downloadable files of the release.
	Assets []Asset `json:"assets"`
}

// Asset is a downloadable file attached to a release.
type Asset struct {
	// Name is the file name.
	Name string `json:"name"`
	// Size is the file size in bytes.
	Size int64 `json:"size"`
	// DownloadURL is the public download location.
	DownloadURL string `json:"browser_download_url"`
}

// Notes returns the release body or fallback when the body is absent.
func (r *Release) Notes(fallback string) string {
	if r.Body == nil {
		return fallback
	}

	return *r.Body
}
