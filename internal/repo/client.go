// Package repo reads folder-per-record collections out of a GitHub
// repository through the contents API.
package repo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/cbout22/memview/internal/apperror"
	"github.com/cbout22/memview/internal/auth"
	"github.com/cbout22/memview/internal/config"
)

// maxBodyBytes bounds how much of a single response is read into memory.
const maxBodyBytes = 16 << 20

// errRateLimited marks responses that are worth retrying after a pause.
var errRateLimited = errors.New("rate limited")

// Client reads records from one repository. It holds a copy of the
// coordinates it was built with; the only state that changes across calls
// is the rate-limit counter.
type Client struct {
	coords      config.Coordinates
	http        *http.Client
	apiBase     string
	contentBase string
	branch      string
	folders     map[config.Collection]string
	concurrency int
	limiter     *rate.Limiter
	retries     int
	retryWait   time.Duration
	logger      *slog.Logger

	rateLimitHits atomic.Int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for API calls. The client's
// transport is wrapped so the token is still sent on every request.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithAPIBase(base string) Option {
	return func(c *Client) { c.apiBase = strings.TrimRight(base, "/") }
}

func WithContentBase(base string) Option {
	return func(c *Client) { c.contentBase = strings.TrimRight(base, "/") }
}

func WithBranch(branch string) Option {
	return func(c *Client) { c.branch = branch }
}

// WithFolders overrides the remote folder used for each collection.
// Collections missing from the map keep their own name as folder.
func WithFolders(folders map[config.Collection]string) Option {
	return func(c *Client) {
		for k, v := range folders {
			if v = strings.Trim(v, "/"); v != "" {
				c.folders[k] = v
			}
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithConcurrency bounds how many record fetches run at once.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithRateLimit paces outbound requests. A non-positive value disables pacing.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), int(math.Max(1, math.Ceil(perSecond))))
	}
}

// WithRetry sets how often a rate-limited request is retried and the first
// pause between attempts.
func WithRetry(retries int, initialWait time.Duration) Option {
	return func(c *Client) {
		if retries >= 0 {
			c.retries = retries
		}
		if initialWait > 0 {
			c.retryWait = initialWait
		}
	}
}

// New creates a Client for the given coordinates.
func New(coords config.Coordinates, opts ...Option) *Client {
	c := &Client{
		coords:      coords,
		apiBase:     config.DefaultAPIBase,
		contentBase: config.DefaultContentBase,
		branch:      config.DefaultBranch,
		folders:     make(map[config.Collection]string),
		concurrency: 4,
		limiter:     rate.NewLimiter(rate.Limit(10), 10),
		retries:     3,
		retryWait:   500 * time.Millisecond,
		logger:      slog.Default(),
	}
	for _, col := range config.ValidCollections() {
		c.folders[col] = string(col)
	}
	for _, opt := range opts {
		opt(c)
	}

	base := http.DefaultClient
	if c.http != nil {
		base = c.http
	}
	c.http = &http.Client{
		Timeout:       base.Timeout,
		CheckRedirect: base.CheckRedirect,
		Jar:           base.Jar,
		Transport:     auth.NewTransport(coords.Token, base.Transport),
	}
	return c
}

// FromSettings translates memview.toml settings into client options.
func FromSettings(s *config.Settings) []Option {
	return []Option{
		WithHTTPClient(&http.Client{Timeout: s.Timeout.Duration}),
		WithAPIBase(s.APIBase),
		WithContentBase(s.ContentBase),
		WithBranch(s.Branch),
		WithFolders(s.FolderMap()),
		WithConcurrency(s.Concurrency),
		WithRateLimit(s.RequestsPerSecond),
		WithRetry(s.Retries, 0),
	}
}

// Open creates a Client and, when the configured branch is "latest",
// resolves it to the repository's default branch first.
func Open(ctx context.Context, coords config.Coordinates, opts ...Option) (*Client, error) {
	c := New(coords, opts...)
	if c.branch != config.LatestBranch {
		return c, nil
	}
	branch, err := c.ResolveBranch(ctx)
	if err != nil {
		return nil, err
	}
	return New(coords, append(opts[:len(opts):len(opts)], WithBranch(branch))...), nil
}

// Branch returns the branch used for content reads and asset URLs.
func (c *Client) Branch() string {
	return c.branch
}

// RateLimitHits reports how many rate-limited responses the client has seen.
func (c *Client) RateLimitHits() int64 {
	return c.rateLimitHits.Load()
}

func (c *Client) folderFor(col config.Collection) string {
	if f, ok := c.folders[col]; ok {
		return f
	}
	return string(col)
}

func (c *Client) repoURL() string {
	return fmt.Sprintf("%s/repos/%s/%s", c.apiBase, url.PathEscape(c.coords.Owner), url.PathEscape(c.coords.Repository))
}

// contentsURL builds the contents API URL for a repository path.
func (c *Client) contentsURL(p string) string {
	u := c.repoURL() + "/contents/" + escapePath(p)
	if c.branch != "" && c.branch != config.LatestBranch {
		u += "?ref=" + url.QueryEscape(c.branch)
	}
	return u
}

func escapePath(p string) string {
	segments := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// get performs a GET and returns the body of a 200 response. Rate-limited
// responses are retried with exponential backoff; every other failure is
// returned as an *apperror.Error right away.
func (c *Client) get(ctx context.Context, op, rawURL string) ([]byte, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryWait
	eb.MaxInterval = 30 * time.Second
	eb.MaxElapsedTime = 2 * time.Minute
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.retries)), ctx)

	return backoff.RetryNotifyWithData(func() ([]byte, error) {
		body, err := c.getOnce(ctx, op, rawURL)
		if err != nil && !errors.Is(err, errRateLimited) {
			return nil, backoff.Permanent(err)
		}
		return body, err
	}, b, func(err error, wait time.Duration) {
		c.logger.Warn("rate limited, backing off",
			slog.String("op", op),
			slog.Duration("wait", wait),
			slog.Int64("hits", c.rateLimitHits.Load()),
		)
	})
}

func (c *Client) getOnce(ctx context.Context, op, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperror.Unavailable(op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: building request: %w", op, err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperror.Unavailable(op, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("github request",
		slog.String("op", op),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if isRateLimited(resp) {
		c.rateLimitHits.Add(1)
		return nil, &apperror.Error{
			Kind:    apperror.ErrServiceUnavailable,
			Op:      op,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("HTTP %d", resp.StatusCode),
			Err:     errRateLimited,
		}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperror.FromStatus(op, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, apperror.Unavailable(op, fmt.Errorf("reading response: %w", err))
	}
	return data, nil
}

// isRateLimited recognises both the secondary (429) and the primary
// (403 with an exhausted quota) GitHub rate limits.
func isRateLimited(resp *http.Response) bool {
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0"
}
