// Package gamingtools talks to paxdei.gaming.tools. It discovers recipe
// pages through DuckDuckGo's HTML endpoint and parses recipe and item
// pages into recipe values.
//
// The site has no API, so every lookup is a scrape. Failures are logged
// and converted to absence rather than surfaced as errors.
package gamingtools

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/joeminicucci/paxdei-crafting-bot/recipe"
)

const (
	// DefaultBaseURL is the recipe site all lookups run against.
	DefaultBaseURL = "https://paxdei.gaming.tools"

	// DefaultSearchURL is DuckDuckGo's HTML-only endpoint, used as the
	// recipe page directory.
	DefaultSearchURL = "https://html.duckduckgo.com/html/"

	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 10 * time.Second

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	fetchMaxElapsed = 5 * time.Second
)

// Config carries the knobs for NewClient. Zero values select defaults.
type Config struct {
	BaseURL    string
	SearchURL  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client scrapes paxdei.gaming.tools.
type Client struct {
	baseURL   string
	host      string
	searchURL string
	http      *http.Client
	log       *slog.Logger
}

var (
	_ recipe.Directory         = (*Client)(nil)
	_ recipe.Store             = (*Client)(nil)
	_ recipe.StackSizeProvider = (*Client)(nil)
)

// NewClient builds a Client from cfg, filling in defaults for any zero
// field.
func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	search := cfg.SearchURL
	if search == "" {
		search = DefaultSearchURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	host := base
	if u, err := url.Parse(base); err == nil && u.Host != "" {
		host = u.Host
	}
	return &Client{
		baseURL:   base,
		host:      host,
		searchURL: search,
		http:      hc,
		log:       logger,
	}
}

func newFetchBackoff() backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = fetchMaxElapsed
	return bo
}

// get fetches rawURL and returns the response body. Network errors, 5xx
// and 429 are retried with exponential backoff; any other non-200 status
// fails immediately.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode))
		}

		body, err = io.ReadAll(resp.Body)
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(newFetchBackoff(), ctx)); err != nil {
		return nil, err
	}
	return body, nil
}
