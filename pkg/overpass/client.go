// Package overpass runs Overpass QL queries against an Overpass API endpoint
// and flattens the answer into a deterministic element list.
package overpass

import (
	"context"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	goverpass "github.com/serjvanilla/go-overpass"
	"go.uber.org/zap"

	"github.com/sells-group/site-scorer/internal/resilience"
)

// DefaultEndpoint is the public Overpass interpreter.
const DefaultEndpoint = "https://overpass-api.de/api/interpreter"

// Element types.
const (
	TypeNode = string(goverpass.ElementTypeNode)
	TypeWay  = string(goverpass.ElementTypeWay)
)

// Element is a node or way from a query answer. Ways carry the centre of their
// bounds (or the mean of their member nodes) as Lat/Lon.
type Element struct {
	Type string
	ID   int64
	Lat  float64
	Lon  float64
	Tags map[string]string

	// HasPosition is false for ways without bounds or member coordinates.
	HasPosition bool
}

// Querier is the interface consumed by the scorers.
type Querier interface {
	Query(ctx context.Context, q string) ([]Element, error)
	Count(ctx context.Context, q string) (int, error)
}

// Option configures the Client.
type Option func(*Client)

// WithEndpoint overrides the interpreter URL.
func WithEndpoint(u string) Option {
	return func(c *Client) {
		c.endpoint = u
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxParallel bounds concurrent requests issued by one client.
func WithMaxParallel(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxParallel = n
		}
	}
}

// WithThrottle enforces a minimum interval between requests.
func WithThrottle(t *resilience.Throttle) Option {
	return func(c *Client) {
		c.throttle = t
	}
}

// WithBreaker guards requests with a circuit breaker.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *Client) {
		c.breaker = cb
	}
}

// WithTransport sets the base round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = rt
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// Client runs Overpass queries.
type Client struct {
	endpoint    string
	timeout     time.Duration
	maxParallel int
	throttle    *resilience.Throttle
	breaker     *resilience.CircuitBreaker
	transport   http.RoundTripper
	userAgent   string
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		endpoint:    DefaultEndpoint,
		timeout:     45 * time.Second,
		maxParallel: 1,
		transport:   http.DefaultTransport,
		userAgent:   "site-scorer/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query runs q and returns its nodes and ways sorted by type then id.
func (c *Client) Query(ctx context.Context, q string) ([]Element, error) {
	return resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) ([]Element, error) {
		if err := c.throttle.Wait(ctx); err != nil {
			return nil, err
		}

		rt := &queryTransport{ctx: ctx, base: c.transport, userAgent: c.userAgent}
		hc := &http.Client{Timeout: c.timeout, Transport: rt}
		api := goverpass.NewWithSettings(c.endpoint, c.maxParallel, hc)

		start := time.Now()
		result, err := api.Query(q)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, eris.Wrap(ctxErr, "overpass: query")
			}
			if status := int(rt.status.Load()); status != 0 && status != http.StatusOK {
				return nil, eris.Wrap(resilience.StatusError("overpass", status), err.Error())
			}
			return nil, eris.Wrap(err, "overpass: query")
		}

		elements := flatten(&result)
		zap.L().Debug("overpass query",
			zap.Int("elements", len(elements)),
			zap.Duration("elapsed", time.Since(start)),
		)
		return elements, nil
	})
}

// Count runs q and returns the number of elements that carry tags. Untagged
// member nodes pulled in by recursion are not counted.
func (c *Client) Count(ctx context.Context, q string) (int, error) {
	elements, err := c.Query(ctx, q)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range elements {
		if len(e.Tags) > 0 {
			n++
		}
	}
	return n, nil
}

func flatten(result *goverpass.Result) []Element {
	elements := make([]Element, 0, len(result.Nodes)+len(result.Ways))

	for _, node := range result.Nodes {
		elements = append(elements, Element{
			Type:        TypeNode,
			ID:          node.ID,
			Lat:         node.Lat,
			Lon:         node.Lon,
			Tags:        node.Tags,
			HasPosition: true,
		})
	}

	for _, way := range result.Ways {
		e := Element{Type: TypeWay, ID: way.ID, Tags: way.Tags}
		switch {
		case way.Bounds != nil:
			e.Lat = (way.Bounds.Min.Lat + way.Bounds.Max.Lat) / 2
			e.Lon = (way.Bounds.Min.Lon + way.Bounds.Max.Lon) / 2
			e.HasPosition = true
		case len(way.Nodes) > 0:
			var lat, lon float64
			var n int
			for _, node := range way.Nodes {
				if node == nil || (node.Lat == 0 && node.Lon == 0) {
					continue
				}
				lat += node.Lat
				lon += node.Lon
				n++
			}
			if n > 0 {
				e.Lat = lat / float64(n)
				e.Lon = lon / float64(n)
				e.HasPosition = true
			}
		}
		elements = append(elements, e)
	}

	sort.Slice(elements, func(i, j int) bool {
		if elements[i].Type != elements[j].Type {
			return elements[i].Type < elements[j].Type
		}
		return elements[i].ID < elements[j].ID
	})
	return elements
}

// queryTransport binds a request to the caller's context and records the
// upstream status so failures can be classified.
type queryTransport struct {
	ctx       context.Context
	base      http.RoundTripper
	userAgent string
	status    atomic.Int64
}

func (t *queryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(t.ctx)
	r.Header.Set("User-Agent", t.userAgent)
	resp, err := t.base.RoundTrip(r)
	if err != nil {
		return nil, err
	}
	t.status.Store(int64(resp.StatusCode))
	return resp, nil
}
