package geo

import (
	"encoding/json"
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// circleVertices is the number of distinct vertices of an approximated circle.
const circleVertices = 36

// Circle approximates a circle of radiusKM around center as a closed polygon
// with 36 vertices. Offsets use 111.32 km per degree of latitude and
// 111.32·cos(lat) km per degree of longitude.
func Circle(center Point, radiusKM float64) *geom.Polygon {
	ring := make([]geom.Coord, 0, circleVertices+1)
	cosLat := math.Cos(radians(center.Lat))
	for i := 0; i < circleVertices; i++ {
		a := 2 * math.Pi * float64(i) / circleVertices
		dLat := radiusKM / 111.32 * math.Cos(a)
		dLon := radiusKM / (111.32 * cosLat) * math.Sin(a)
		ring = append(ring, geom.Coord{center.Lon + dLon, center.Lat + dLat})
	}
	ring = append(ring, ring[0])
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{ring})
}

// FeatureCollectionJSON wraps a polygon in a single-feature GeoJSON
// FeatureCollection with empty properties.
func FeatureCollectionJSON(p *geom.Polygon) (string, error) {
	fc := &geojson.FeatureCollection{
		Features: []*geojson.Feature{{
			Geometry:   p,
			Properties: map[string]interface{}{},
		}},
	}
	b, err := json.Marshal(fc)
	if err != nil {
		return "", eris.Wrap(err, "geo: marshal feature collection")
	}
	return string(b), nil
}
