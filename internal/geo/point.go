// Package geo provides the spherical geometry shared by the scorers:
// great-circle distances, destination points, random sampling within a
// radius, search boxes and area density classification.
package geo

import (
	"math"
	"math/rand"
)

// EarthRadiusKM is the mean Earth radius used for all great-circle math.
const EarthRadiusKM = 6371.0

// metresPerDegree approximates one degree of latitude for search boxes.
const metresPerDegree = 111000.0

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Valid reports whether p lies within [-90,90] × [-180,180] and is finite.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// NorthernHemisphere reports whether p is on or north of the equator.
func (p Point) NorthernHemisphere() bool {
	return p.Lat >= 0
}

// HaversineKM returns the great-circle distance between two points in km.
func HaversineKM(a, b Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := lat2 - lat1
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKM * c
}

// HaversineM returns the great-circle distance between two points in metres.
func HaversineM(a, b Point) float64 {
	return HaversineKM(a, b) * 1000
}

// Destination returns the point reached by travelling distanceKM from origin
// along the initial bearing (radians, clockwise from north).
func Destination(origin Point, distanceKM, bearing float64) Point {
	lat1 := radians(origin.Lat)
	lon1 := radians(origin.Lon)
	ang := distanceKM / EarthRadiusKM

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(ang) +
		math.Cos(lat1)*math.Sin(ang)*math.Cos(bearing))
	lon2 := lon1 + math.Atan2(math.Sin(bearing)*math.Sin(ang)*math.Cos(lat1),
		math.Cos(ang)-math.Sin(lat1)*math.Sin(lat2))

	return Point{Lat: degrees(lat2), Lon: degrees(lon2)}
}

// SamplePoints returns n points within radiusKM of center. The center is
// always first; the rest are uniform over the disc (distance r·√U, bearing
// 2πU) drawn from rng.
func SamplePoints(center Point, radiusKM float64, n int, rng *rand.Rand) []Point {
	if n <= 0 {
		return nil
	}
	points := make([]Point, 0, n)
	points = append(points, center)
	for i := 1; i < n; i++ {
		d := radiusKM * math.Sqrt(rng.Float64())
		bearing := 2 * math.Pi * rng.Float64()
		points = append(points, Destination(center, d, bearing))
	}
	return points
}

// BBox is a south/west/north/east search box in degrees.
type BBox struct {
	South float64
	West  float64
	North float64
	East  float64
}

// BoxAround returns the square box of half-side radiusM/111000 degrees
// centred on p.
func BoxAround(p Point, radiusM float64) BBox {
	d := radiusM / metresPerDegree
	return BBox{
		South: p.Lat - d,
		West:  p.Lon - d,
		North: p.Lat + d,
		East:  p.Lon + d,
	}
}

// CircleAreaKM2 returns the area used for density figures, π≈3.1416.
func CircleAreaKM2(radiusKM float64) float64 {
	return 3.1416 * radiusKM * radiusKM
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Clamp bounds v to [lo, hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
