// Package resolver turns upstream release feeds into per-channel ReleaseInfo.
// Selection is a pure function of the feed; fetching runs channels concurrently.
package resolver
