package geo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircle(t *testing.T) {
	center := Point{Lat: 13.0827, Lon: 80.2707}
	poly := Circle(center, 1)

	coords := poly.Coords()
	require.Len(t, coords, 1)
	ring := coords[0]
	require.Len(t, ring, 37)
	assert.Equal(t, ring[0], ring[36], "ring must be closed")

	// First vertex is due north: latitude offset r/111.32, no longitude offset.
	assert.InDelta(t, center.Lon, ring[0][0], 1e-9)
	assert.InDelta(t, center.Lat+1/111.32, ring[0][1], 1e-9)

	for _, c := range ring {
		d := HaversineKM(center, Point{Lat: c[1], Lon: c[0]})
		assert.InDelta(t, 1.0, d, 0.02)
	}
}

func TestFeatureCollectionJSON(t *testing.T) {
	s, err := FeatureCollectionJSON(Circle(Point{Lat: 40.7128, Lon: -74.0060}, 2))
	require.NoError(t, err)

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Type       string         `json:"type"`
			Properties map[string]any `json:"properties"`
			Geometry   struct {
				Type        string          `json:"type"`
				Coordinates [][][2]float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal([]byte(s), &doc))

	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 1)
	f := doc.Features[0]
	assert.Equal(t, "Feature", f.Type)
	assert.NotNil(t, f.Properties)
	assert.Empty(t, f.Properties)
	assert.Equal(t, "Polygon", f.Geometry.Type)
	require.Len(t, f.Geometry.Coordinates, 1)
	assert.Len(t, f.Geometry.Coordinates[0], 37)
}
