// Package scrape fetches web pages and converts their main content to
// markdown.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/poiesic/docsift/core"
	"golang.org/x/net/html"
)

var (
	// ErrInvalidURL is returned for URLs without a scheme or host.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrHTTPStatus is returned when the server answers with a non-2xx status.
	ErrHTTPStatus = errors.New("unexpected HTTP status")

	// ErrUnsupportedContent is returned when the response is not HTML.
	ErrUnsupportedContent = errors.New("content type not supported")
)

const (
	// DefaultTimeout bounds one fetch.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxBytes caps how much of a response body is read.
	DefaultMaxBytes = 10 << 20

	defaultUserAgent = "Mozilla/5.0 (compatible; docsift/1.0)"
)

// HTTPScraper fetches pages over HTTP.
type HTTPScraper struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	logger    *slog.Logger
}

// Option configures an HTTPScraper.
type Option func(*HTTPScraper) error

// WithClient sets the HTTP client. Default has DefaultTimeout.
func WithClient(c *http.Client) Option {
	return func(s *HTTPScraper) error {
		if c == nil {
			return errors.New("http client must not be nil")
		}
		s.client = c
		return nil
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(s *HTTPScraper) error {
		s.userAgent = ua
		return nil
	}
}

// WithMaxBytes caps the response body size.
func WithMaxBytes(n int64) Option {
	return func(s *HTTPScraper) error {
		if n < 1 {
			return fmt.Errorf("max bytes must be >= 1, got %d", n)
		}
		s.maxBytes = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *HTTPScraper) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "scraper")
		return nil
	}
}

// New creates an HTTPScraper.
func New(opts ...Option) (*HTTPScraper, error) {
	s := &HTTPScraper{
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: defaultUserAgent,
		maxBytes:  DefaultMaxBytes,
		logger:    slog.Default().With("component", "scraper"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ValidateURL checks that raw is an absolute http(s) URL.
func ValidateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return u, nil
}

// Scrape fetches rawURL and returns its main content as markdown. The page
// title falls back to the host name.
func (s *HTTPScraper) Scrape(ctx context.Context, rawURL string) (*core.WebPage, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		media, _, _ := mime.ParseMediaType(ct)
		if media != "text/html" && media != "application/xhtml+xml" {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedContent, ct)
		}
	}

	page, err := Convert(io.LimitReader(resp.Body, s.maxBytes), u)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("scraped page", "url", page.URL, "title", page.Title, "chars", len(page.Markdown))
	return page, nil
}

// Convert parses an HTML document and renders its main content as markdown.
func Convert(r io.Reader, u *url.URL) (*core.WebPage, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	title := ""
	if t := find(doc, func(n *html.Node) bool { return isElement(n, "title") }); t != nil {
		title = strings.TrimSpace(textOf(t))
	}
	if title == "" && u != nil {
		title = u.Host
	}

	strip(doc)
	root := mainContent(doc)

	var w mdWriter
	w.base = u
	w.render(root)

	page := &core.WebPage{Title: title, Markdown: Clean(w.String())}
	if u != nil {
		page.URL = u.String()
	}
	return page, nil
}
