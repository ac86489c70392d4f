package worldpop

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/sells-group/site-scorer/internal/geo"
	"github.com/sells-group/site-scorer/internal/resilience"
)

func TestTotalPopulation(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`{"status":"finished","error":false,"data":{"total_population":84211.7}}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	pop, err := c.TotalPopulation(context.Background(), geo.Circle(geo.Point{Lat: 13.0827, Lon: 80.2707}, 1), 2020)
	require.NoError(t, err)
	assert.InDelta(t, 84211.7, pop, 1e-9)

	q := got.URL.Query()
	assert.Equal(t, "wpgppop", q.Get("dataset"))
	assert.Equal(t, "2020", q.Get("year"))
	fc := gjson.Parse(q.Get("geojson"))
	assert.Equal(t, "FeatureCollection", fc.Get("type").String())
	assert.Equal(t, "Polygon", fc.Get("features.0.geometry.type").String())
	assert.Equal(t, int64(37), fc.Get("features.0.geometry.coordinates.0.#").Int())
}

func TestTotalPopulation_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":true,"error_message":"geojson is not valid"}`))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).TotalPopulation(context.Background(), geo.Circle(geo.Point{}, 1), 2020)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geojson is not valid")
}

func TestTotalPopulation_MissingTotal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"created","taskid":"abc"}`))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).TotalPopulation(context.Background(), geo.Circle(geo.Point{}, 1), 2020)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestTotalPopulation_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).TotalPopulation(context.Background(), geo.Circle(geo.Point{}, 1), 2020)
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}
