// Package geocode resolves coordinates to places (reverse geocoding) via
// Nominatim, GeoNames and BigDataCloud, and place names to coordinates via
// Nominatim search.
package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/site-scorer/internal/resilience"
)

// DefaultUserAgent identifies requests to the public geocoding services.
const DefaultUserAgent = "site-scorer/1.0 (+https://github.com/sells-group/site-scorer)"

// Place is the result of a reverse or forward geocode.
type Place struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"formatted_address"`
	CountryCode string  `json:"country_code"`
	Country     string  `json:"country"`
	Region      string  `json:"region"`
	City        string  `json:"city"`
	PostalCode  string  `json:"postal_code"`
	Source      string  `json:"source"`
}

// ReverseGeocoder resolves a coordinate to a Place. zoom follows the
// Nominatim convention (3 country, 10 city); services without zoom levels
// ignore it.
type ReverseGeocoder interface {
	Name() string
	Reverse(ctx context.Context, lat, lon float64, zoom int) (*Place, error)
}

// Searcher resolves a free-text place name to a Place.
type Searcher interface {
	Search(ctx context.Context, query string) (*Place, error)
}

// ErrNotFound is returned when a service answers but has no result.
var ErrNotFound = eris.New("geocode: no result")

// Option configures a provider.
type Option func(*base)

// WithBaseURL overrides the service base URL.
func WithBaseURL(u string) Option {
	return func(b *base) {
		b.baseURL = u
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(b *base) {
		b.http = hc
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(b *base) {
		if d > 0 {
			b.http = &http.Client{Timeout: d}
		}
	}
}

// WithThrottle enforces a minimum interval between requests.
func WithThrottle(t *resilience.Throttle) Option {
	return func(b *base) {
		b.throttle = t
	}
}

// WithBreaker guards requests with a circuit breaker.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(b *base) {
		b.breaker = cb
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(b *base) {
		if ua != "" {
			b.userAgent = ua
		}
	}
}

type base struct {
	name      string
	baseURL   string
	http      *http.Client
	throttle  *resilience.Throttle
	breaker   *resilience.CircuitBreaker
	userAgent string
}

func newBase(name, defaultURL string, opts []Option) base {
	b := base{
		name:      name,
		baseURL:   defaultURL,
		http:      &http.Client{Timeout: 10 * time.Second},
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// getJSON issues a throttled, breaker-guarded GET and decodes the body into v.
func (b *base) getJSON(ctx context.Context, reqURL string, v any) error {
	return b.breaker.Execute(ctx, func(ctx context.Context) error {
		if err := b.throttle.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return eris.Wrapf(err, "%s: build request", b.name)
		}
		req.Header.Set("User-Agent", b.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := b.http.Do(req)
		if err != nil {
			return eris.Wrapf(err, "%s: request", b.name)
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode != http.StatusOK {
			return resilience.StatusError(b.name, resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return eris.Wrapf(err, "%s: read body", b.name)
		}
		if err := json.Unmarshal(body, v); err != nil {
			return eris.Wrapf(err, "%s: parse response", b.name)
		}
		return nil
	})
}
