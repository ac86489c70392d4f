package overpass

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/site-scorer/internal/resilience"
)

const sampleResponse = `{
  "version": 0.6,
  "generator": "Overpass API",
  "osm3s": {"timestamp_osm_base": "2024-05-01T10:00:00Z", "copyright": "ODbL"},
  "elements": [
    {"type": "node", "id": 1, "lat": 13.0830, "lon": 80.2710, "tags": {"shop": "bakery", "name": "Sunrise Bakery"}},
    {"type": "way", "id": 10, "nodes": [2, 3], "tags": {"amenity": "cafe", "name": "Bean There"}},
    {"type": "node", "id": 3, "lat": 13.0840, "lon": 80.2720},
    {"type": "node", "id": 2, "lat": 13.0820, "lon": 80.2700}
  ]
}`

func newTestServer(t *testing.T, status int, body string, gotQuery *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotQuery != nil {
			*gotQuery = r.FormValue("data")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestQuery(t *testing.T) {
	var got string
	srv := newTestServer(t, http.StatusOK, sampleResponse, &got)

	c := New(WithEndpoint(srv.URL))
	q := Union(25, NodesAndWays(`["amenity"~"cafe"]`, Around(500, 13.0827, 80.2707)), true)
	elements, err := c.Query(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, q, got)

	require.Len(t, elements, 4)
	assert.Equal(t, TypeNode, elements[0].Type)
	assert.Equal(t, int64(1), elements[0].ID)
	assert.Equal(t, "Sunrise Bakery", elements[0].Tags["name"])
	assert.Equal(t, int64(2), elements[1].ID)
	assert.Equal(t, int64(3), elements[2].ID)

	way := elements[3]
	assert.Equal(t, TypeWay, way.Type)
	assert.Equal(t, int64(10), way.ID)
	assert.True(t, way.HasPosition)
	assert.InDelta(t, 13.0830, way.Lat, 1e-9)
	assert.InDelta(t, 80.2710, way.Lon, 1e-9)
}

func TestCount_OnlyTaggedElements(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, sampleResponse, nil)

	n, err := New(WithEndpoint(srv.URL)).Count(context.Background(), "[out:json];node(1);out body;")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestQuery_Empty(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"version":0.6,"osm3s":{"timestamp_osm_base":"2024-05-01T10:00:00Z"},"elements":[]}`, nil)

	elements, err := New(WithEndpoint(srv.URL)).Query(context.Background(), "[out:json];node(1);out body;")
	require.NoError(t, err)
	assert.Empty(t, elements)
}

func TestQuery_TransientStatus(t *testing.T) {
	srv := newTestServer(t, http.StatusTooManyRequests, `rate limited`, nil)

	_, err := New(WithEndpoint(srv.URL)).Query(context.Background(), "[out:json];node(1);out body;")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestQuery_BreakerShortCircuits(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	cb := resilience.NewCircuitBreaker("overpass", resilience.CircuitBreakerConfig{FailureThreshold: 1})
	c := New(WithEndpoint(srv.URL), WithBreaker(cb))
	for i := 0; i < 3; i++ {
		_, err := c.Query(context.Background(), "[out:json];node(1);out body;")
		require.Error(t, err)
	}
	assert.Equal(t, 1, calls)
}

func TestQuery_CancelledContext(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, sampleResponse, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(WithEndpoint(srv.URL)).Query(ctx, "[out:json];node(1);out body;")
	require.Error(t, err)
}

func TestQueryBuilders(t *testing.T) {
	assert.Equal(t, "(around:1000,13.0827,80.2707)", Around(1000, 13.0827, 80.2707))
	assert.Equal(t, "(1.5,-2,3,4.25)", BBox(1.5, -2, 3, 4.25))

	q := Union(25, []string{`node["shop"](1,2,3,4)`}, false)
	assert.True(t, strings.HasPrefix(q, "[out:json][timeout:25];"))
	assert.Contains(t, q, `node["shop"](1,2,3,4);`)
	assert.Contains(t, q, "out body;")
	assert.NotContains(t, q, "out skel")

	assert.Equal(t, []string{`node["shop"](x)`, `way["shop"](x)`}, NodesAndWays(`["shop"]`, "(x)"))
}
