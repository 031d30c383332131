package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/oshokin/roguelike-launcher/internal/version"
)

const (
	defaultRetryWaitMin = 500 * time.Millisecond
	defaultRetryWaitMax = 5 * time.Second

	dialTimeout           = 30 * time.Second
	keepAlive             = 30 * time.Second
	responseHeaderTimeout = 30 * time.Second
	tlsHandshakeTimeout   = 10 * time.Second

	// maxErrorBody limits how much of an error response is kept in the message.
	maxErrorBody = 512
)

var (
	// ErrBadStatus is returned for non-200 responses.
	ErrBadStatus = errors.New("unexpected http status")
	// ErrMalformedFeed is returned when a feed cannot be decoded.
	ErrMalformedFeed = errors.New("malformed release feed")
	// errBaseURLRequired is returned for an empty API root.
	errBaseURLRequired = errors.New("api base URL must be provided")
)

// Client reads release feeds and downloads assets.
type Client struct {
	// baseURL is the API root, e.g. https://api.github.com.
	baseURL *url.URL
	// token is sent as "Authorization: token ..." when set.
	token string
	// perPage is the page size of list feeds.
	perPage int
	// feeds performs bounded feed requests.
	feeds *retryablehttp.Client
	// downloads performs asset requests without an overall deadline.
	downloads *retryablehttp.Client
}

// Option configures the client.
type Option func(*Client)

// WithToken authenticates feed requests.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithPerPage sets the list feed page size.
func WithPerPage(perPage int) Option {
	return func(c *Client) {
		if perPage > 0 {
			c.perPage = perPage
		}
	}
}

// WithTimeout bounds a single feed request.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.feeds.HTTPClient.Timeout = timeout
		}
	}
}

// WithRetries sets the retry budget and backoff bounds of both clients.
func WithRetries(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		for _, rc := range []*retryablehttp.Client{c.feeds, c.downloads} {
			rc.RetryMax = retryMax
			if waitMin > 0 {
				rc.RetryWaitMin = waitMin
			}

			if waitMax > 0 {
				rc.RetryWaitMax = waitMax
			}
		}
	}
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api base URL: %w", err)
	}

	c := &Client{
		baseURL:   parsed,
		perPage:   30,
		feeds:     newRetryClient(),
		downloads: newRetryClient(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func newRetryClient() *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = defaultRetryWaitMin
	rc.RetryWaitMax = defaultRetryWaitMax
	rc.Logger = newLeveledLogger()
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.HTTPClient = &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   dialTimeout,
				KeepAlive: keepAlive,
			}).DialContext,
			ResponseHeaderTimeout: responseHeaderTimeout,
			TLSHandshakeTimeout:   tlsHandshakeTimeout,
		},
	}

	return rc
}

// LatestRelease fetches the single latest release of owner/repo.
func (c *Client) LatestRelease(ctx context.Context, owner, repo string) (*Release, error) {
	endpoint := c.endpoint(nil, "repos", owner, repo, "releases", "latest")

	var release Release
	if err := c.getJSON(ctx, endpoint, &release); err != nil {
		return nil, fmt.Errorf("get latest release of %s/%s: %w", owner, repo, err)
	}

	return &release, nil
}

// Releases fetches the first page of releases of owner/repo, newest first.
func (c *Client) Releases(ctx context.Context, owner, repo string) ([]Release, error) {
	query := url.Values{"per_page": []string{strconv.Itoa(c.perPage)}}
	endpoint := c.endpoint(query, "repos", owner, repo, "releases")

	var releases []Release
	if err := c.getJSON(ctx, endpoint, &releases); err != nil {
		return nil, fmt.Errorf("list releases of %s/%s: %w", owner, repo, err)
	}

	return releases, nil
}

// Download starts an asset download. The caller closes the response body.
func (c *Client) Download(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	req.Header.Set("Accept", "application/octet-stream")
	req.Header.Set("User-Agent", version.UserAgent())

	response, err := c.downloads.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", rawURL, err)
	}

	if response.StatusCode != http.StatusOK {
		defer func() {
			_ = response.Body.Close()
		}()

		return nil, fmt.Errorf("download %s, %s: %w", rawURL, response.Status, ErrBadStatus)
	}

	return response, nil
}

func (c *Client) endpoint(query url.Values, segments ...string) string {
	u := *c.baseURL
	u.Path = path.Join(append([]string{"/", u.Path}, segments...)...)
	u.RawQuery = query.Encode()

	return u.String()
}

func (c *Client) getJSON(ctx context.Context, endpoint string, target any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", version.UserAgent())

	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	response, err := c.feeds.Do(req)
	if err != nil {
		return err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBody))

		return fmt.Errorf("%s: %s: %w", response.Status, strings.TrimSpace(string(body)), ErrBadStatus)
	}

	if err = json.NewDecoder(response.Body).Decode(target); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedFeed, err)
	}

	return nil
}
