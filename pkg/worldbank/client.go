// Package worldbank fetches economic indicator series from the World Bank v2
// API.
package worldbank

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"github.com/sells-group/site-scorer/internal/cache"
	"github.com/sells-group/site-scorer/internal/resilience"
)

// DefaultBaseURL is the public World Bank API.
const DefaultBaseURL = "https://api.worldbank.org/v2"

// Indicator codes used by the income estimator.
const (
	GDPPerCapita = "NY.GDP.PCAP.CD"
	GNIPerCapita = "NY.GNP.PCAP.CD"
	GDPTotal     = "NY.GDP.MKTP.CD"
	GNITotal     = "NY.GNP.MKTP.CD"
)

// Observation is one year of an indicator series. Value is nil when the
// World Bank has no figure for that year.
type Observation struct {
	Year  string   `json:"year"`
	Value *float64 `json:"value"`
}

// Client fetches indicator series.
type Client interface {
	Indicator(ctx context.Context, country, indicator string, start, end int) ([]Observation, error)
}

// Option configures the client.
type Option func(*client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *client) {
		c.baseURL = u
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

// WithBreaker guards requests with a circuit breaker.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *client) {
		c.breaker = cb
	}
}

// WithCache memoizes series by (country, indicator, start, end).
func WithCache(cc *cache.Cache[[]Observation]) Option {
	return func(c *client) {
		c.cache = cc
	}
}

type client struct {
	baseURL string
	http    *http.Client
	breaker *resilience.CircuitBreaker
	cache   *cache.Cache[[]Observation]
}

// NewClient creates a World Bank client.
func NewClient(opts ...Option) Client {
	c := &client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Indicator returns the series for country between start and end inclusive,
// sorted by year. A country with no data returns an empty slice.
func (c *client) Indicator(ctx context.Context, country, indicator string, start, end int) ([]Observation, error) {
	key := cache.Key(country, indicator, start, end)
	return c.cache.GetOrLoad(ctx, key, func(ctx context.Context) ([]Observation, error) {
		return resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) ([]Observation, error) {
			return c.fetch(ctx, country, indicator, start, end)
		})
	})
}

func (c *client) fetch(ctx context.Context, country, indicator string, start, end int) ([]Observation, error) {
	params := url.Values{
		"format":   {"json"},
		"date":     {fmt.Sprintf("%d:%d", start, end)},
		"per_page": {"100"},
	}
	reqURL := fmt.Sprintf("%s/country/%s/indicator/%s?%s",
		c.baseURL, url.PathEscape(country), url.PathEscape(indicator), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "worldbank: build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "worldbank: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.StatusError("worldbank", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "worldbank: read body")
	}
	return parseSeries(body)
}

// parseSeries decodes the [metadata, data] envelope.
func parseSeries(body []byte) ([]Observation, error) {
	if !gjson.ValidBytes(body) {
		return nil, eris.New("worldbank: parse response: invalid json")
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsArray() {
		return nil, eris.New("worldbank: parse response: expected array")
	}
	if msg := doc.Get("0.message.0.value"); msg.Exists() {
		return nil, eris.Errorf("worldbank: %s", msg.String())
	}

	data := doc.Get("1")
	if !data.IsArray() {
		return []Observation{}, nil
	}

	var out []Observation
	data.ForEach(func(_, item gjson.Result) bool {
		obs := Observation{Year: item.Get("date").String()}
		if v := item.Get("value"); v.Exists() && v.Type == gjson.Number {
			f := v.Float()
			obs.Value = &f
		}
		if obs.Year != "" {
			out = append(out, obs)
		}
		return true
	})

	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	if out == nil {
		out = []Observation{}
	}
	return out, nil
}
