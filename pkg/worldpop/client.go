// Package worldpop queries the WorldPop zonal statistics service for the
// population living inside a polygon.
package worldpop

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/site-scorer/internal/geo"
	"github.com/sells-group/site-scorer/internal/resilience"
)

// DefaultBaseURL is the public WorldPop stats service.
const DefaultBaseURL = "https://api.worldpop.org/v1/services/stats"

// DefaultDataset is the global per-country population dataset.
const DefaultDataset = "wpgppop"

// ErrNoData is returned when the service answers without a population total.
var ErrNoData = eris.New("worldpop: no total_population in response")

// Client queries population totals.
type Client interface {
	TotalPopulation(ctx context.Context, area *geom.Polygon, year int) (float64, error)
}

// Option configures the client.
type Option func(*client)

// WithBaseURL overrides the service URL.
func WithBaseURL(u string) Option {
	return func(c *client) {
		c.baseURL = u
	}
}

// WithDataset overrides the dataset name.
func WithDataset(d string) Option {
	return func(c *client) {
		if d != "" {
			c.dataset = d
		}
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

type client struct {
	baseURL string
	dataset string
	http    *http.Client
	breaker *resilience.CircuitBreaker
}

// NewClient creates a WorldPop client.
func NewClient(opts ...Option) Client {
	c := &client{
		baseURL: DefaultBaseURL,
		dataset: DefaultDataset,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TotalPopulation returns the population inside area for year.
func (c *client) TotalPopulation(ctx context.Context, area *geom.Polygon, year int) (float64, error) {
	fc, err := geo.FeatureCollectionJSON(area)
	if err != nil {
		return 0, eris.Wrap(err, "worldpop: encode area")
	}

	params := url.Values{
		"dataset":  {c.dataset},
		"year":     {strconv.Itoa(year)},
		"geojson":  {fc},
		"runasync": {"false"},
	}

	return resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) (float64, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
		if err != nil {
			return 0, eris.Wrap(err, "worldpop: build request")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return 0, eris.Wrap(err, "worldpop: request")
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode != http.StatusOK {
			return 0, resilience.StatusError("worldpop", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return 0, eris.Wrap(err, "worldpop: read body")
		}
		return parseTotal(body)
	})
}

func parseTotal(body []byte) (float64, error) {
	if !gjson.ValidBytes(body) {
		return 0, eris.New("worldpop: parse response: invalid json")
	}
	doc := gjson.ParseBytes(body)
	if doc.Get("error").Bool() {
		return 0, eris.Errorf("worldpop: %s", doc.Get("error_message").String())
	}
	total := doc.Get("data.total_population")
	if !total.Exists() || total.Type != gjson.Number {
		return 0, ErrNoData
	}
	return total.Float(), nil
}
