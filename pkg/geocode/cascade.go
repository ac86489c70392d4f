package geocode

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/site-scorer/internal/cache"
	"github.com/sells-group/site-scorer/internal/resilience"
)

// ErrNoCountry is returned by a cascade step whose answer has no country code.
var ErrNoCountry = eris.New("geocode: no country code")

// Cascade tries reverse geocoders in order and returns the first answer that
// carries a country code.
type Cascade struct {
	providers []ReverseGeocoder
	cache     *cache.Cache[*Place]
}

// CascadeOption configures the Cascade.
type CascadeOption func(*Cascade)

// WithCascadeCache memoizes answers by (lat, lon, zoom).
func WithCascadeCache(c *cache.Cache[*Place]) CascadeOption {
	return func(cc *Cascade) {
		cc.cache = c
	}
}

// NewCascade creates a Cascade over providers.
func NewCascade(providers []ReverseGeocoder, opts ...CascadeOption) *Cascade {
	c := &Cascade{providers: providers}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements ReverseGeocoder.
func (c *Cascade) Name() string { return "cascade" }

// Reverse implements ReverseGeocoder.
func (c *Cascade) Reverse(ctx context.Context, lat, lon float64, zoom int) (*Place, error) {
	return c.cache.GetOrLoad(ctx, cache.Key("reverse", lat, lon, zoom), func(ctx context.Context) (*Place, error) {
		strategies := make([]resilience.Strategy[*Place], 0, len(c.providers))
		for _, p := range c.providers {
			p := p
			strategies = append(strategies, resilience.Strategy[*Place]{
				Name: p.Name(),
				Run: func(ctx context.Context) (*Place, error) {
					place, err := p.Reverse(ctx, lat, lon, zoom)
					if err != nil {
						return nil, err
					}
					if place == nil || place.CountryCode == "" {
						return nil, ErrNoCountry
					}
					return place, nil
				},
			})
		}

		place, source, err := resilience.FirstSuccess(ctx, strategies...)
		if err != nil {
			return nil, eris.Wrap(err, "geocode: all reverse geocoders failed")
		}
		zap.L().Debug("reverse geocode resolved",
			zap.String("source", source),
			zap.String("country_code", place.CountryCode),
		)
		return place, nil
	})
}

// Cached memoizes a single reverse geocoder by (lat, lon, zoom).
type Cached struct {
	inner ReverseGeocoder
	cache *cache.Cache[*Place]
}

// NewCached wraps g with c. A nil cache disables memoization.
func NewCached(g ReverseGeocoder, c *cache.Cache[*Place]) *Cached {
	return &Cached{inner: g, cache: c}
}

// Name implements ReverseGeocoder.
func (c *Cached) Name() string { return c.inner.Name() }

// Reverse implements ReverseGeocoder.
func (c *Cached) Reverse(ctx context.Context, lat, lon float64, zoom int) (*Place, error) {
	return c.cache.GetOrLoad(ctx, cache.Key(c.inner.Name(), lat, lon, zoom), func(ctx context.Context) (*Place, error) {
		return c.inner.Reverse(ctx, lat, lon, zoom)
	})
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
