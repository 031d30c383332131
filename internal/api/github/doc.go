// Package github reads release feeds from the GitHub REST API and downloads
// release assets.
//
// Requests go through go-retryablehttp: connection failures, 429 and 5xx
// responses are retried with exponential backoff up to a configured count.
package github
