// Package wikipedia searches the MediaWiki API and fetches plain-text page
// introductions.
package wikipedia

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/site-scorer/internal/resilience"
)

// DefaultEndpoint is the English Wikipedia API.
const DefaultEndpoint = "https://en.wikipedia.org/w/api.php"

// SearchResult is one search hit.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Page is a page introduction.
type Page struct {
	Title   string `json:"title"`
	Extract string `json:"extract"`
}

// Client searches Wikipedia and fetches page extracts.
type Client interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
	Extract(ctx context.Context, title string) (*Page, error)
}

// Option configures the client.
type Option func(*client)

// WithEndpoint overrides the API endpoint.
func WithEndpoint(u string) Option {
	return func(c *client) {
		c.endpoint = u
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// WithThrottle enforces a minimum interval between requests.
func WithThrottle(t *resilience.Throttle) Option {
	return func(c *client) {
		c.throttle = t
	}
}

// WithBreaker guards requests with a circuit breaker.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *client) {
		c.breaker = cb
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

type client struct {
	endpoint  string
	http      *http.Client
	throttle  *resilience.Throttle
	breaker   *resilience.CircuitBreaker
	userAgent string
}

// NewClient creates a Wikipedia client.
func NewClient(opts ...Option) Client {
	c := &client{
		endpoint:  DefaultEndpoint,
		http:      &http.Client{Timeout: 10 * time.Second},
		userAgent: "site-scorer/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchResponse struct {
	Query struct {
		Search []SearchResult `json:"search"`
	} `json:"query"`
}

type extractResponse struct {
	Query struct {
		Pages map[string]Page `json:"pages"`
	} `json:"query"`
}

// Search returns up to limit hits for query. Snippets are plain text.
func (c *client) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	params := url.Values{
		"action":   {"query"},
		"format":   {"json"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {strconv.Itoa(limit)},
		"srprop":   {"snippet"},
	}

	var resp searchResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}

	results := resp.Query.Search
	for i := range results {
		results[i].Snippet = StripMarkup(results[i].Snippet)
	}
	return results, nil
}

// Extract returns the plain-text introduction of title, following redirects.
// A page without an introduction returns an empty Extract.
func (c *client) Extract(ctx context.Context, title string) (*Page, error) {
	params := url.Values{
		"action":      {"query"},
		"format":      {"json"},
		"prop":        {"extracts"},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"titles":      {title},
		"redirects":   {"1"},
	}

	var resp extractResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}

	// Page ids are map keys; iterate in a stable order.
	ids := make([]string, 0, len(resp.Query.Pages))
	for id := range resp.Query.Pages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if p := resp.Query.Pages[id]; p.Extract != "" {
			return &p, nil
		}
	}
	return &Page{Title: title}, nil
}

func (c *client) get(ctx context.Context, params url.Values, v any) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		if err := c.throttle.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
		if err != nil {
			return eris.Wrap(err, "wikipedia: build request")
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.http.Do(req)
		if err != nil {
			return eris.Wrap(err, "wikipedia: request")
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode != http.StatusOK {
			return resilience.StatusError("wikipedia", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return eris.Wrap(err, "wikipedia: read body")
		}
		if err := json.Unmarshal(body, v); err != nil {
			return eris.Wrap(err, "wikipedia: parse response")
		}
		return nil
	})
}

// StripMarkup returns the text content of an HTML fragment such as a search
// snippet, with whitespace collapsed.
func StripMarkup(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
