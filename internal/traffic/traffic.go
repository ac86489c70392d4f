// Package traffic scores how busy an area is from POI density, an estimated
// population density and road density, all read from OpenStreetMap.
package traffic

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/site-scorer/internal/geo"
	"github.com/sells-group/site-scorer/internal/resilience"
	"github.com/sells-group/site-scorer/internal/tables"
	"github.com/sells-group/site-scorer/pkg/geocode"
	"github.com/sells-group/site-scorer/pkg/overpass"
)

// DefaultRadiusKM is used when the caller passes no radius.
const DefaultRadiusKM = 1.0

// Normalization maxima per km².
const (
	maxPOIDensity        = 50.0
	maxPopulationDensity = 20000.0
	maxRoadDensity       = 10.0
)

// Component weights.
const (
	weightPOI        = 0.4
	weightPopulation = 0.3
	weightRoads      = 0.3
)

// Placeholder counts used when Overpass cannot answer.
const (
	fallbackPOITimeout  = 100
	fallbackPOI         = 60
	fallbackRoads       = 12
	fallbackPerCategory = 10
)

// countryZoom asks the reverse geocoder for country-level detail only.
const countryZoom = 3

const queryTimeoutSecs = 25

// Degraded input names reported in Result.DegradedInputs.
const (
	InputPOICount     = "poi_count"
	InputAreaPOICount = "area_poi_count"
	InputRoadCount    = "road_count"
	InputCountry      = "country"
	InputPOIBreakdown = "poi_breakdown"
)

// Categories lists the POI breakdown categories in report order.
var Categories = []string{
	"commercial", "retail", "food", "education",
	"healthcare", "transport", "entertainment", "public",
}

// categoryMembers holds the tag keys and values that place an element in a
// category. An element may count towards several categories.
var categoryMembers = map[string][]string{
	"commercial":    {"shop", "office", "commercial"},
	"retail":        {"supermarket", "mall", "convenience", "department_store"},
	"food":          {"restaurant", "cafe", "fast_food", "bar", "pub"},
	"education":     {"school", "university", "college", "kindergarten"},
	"healthcare":    {"hospital", "clinic", "pharmacy", "doctors"},
	"transport":     {"bus_station", "train_station", "subway_entrance", "taxi"},
	"entertainment": {"cinema", "theatre", "arts_centre", "nightclub"},
	"public":        {"library", "post_office", "courthouse", "townhall"},
}

// poiKeys are the tag keys whose values are matched against categories.
var poiKeys = []string{"shop", "amenity", "office"}

// Factors holds the normalized components, each in [0,1].
type Factors struct {
	POI        float64 `json:"poi"`
	Population float64 `json:"population"`
	Roads      float64 `json:"roads"`
}

// Result is the traffic score for one site.
type Result struct {
	TrafficScore      float64        `json:"traffic_score"`
	POIDensity        float64        `json:"poi_density"`
	PopulationDensity float64        `json:"population_density"`
	RoadDensity       float64        `json:"road_density"`
	POIBreakdown      map[string]int `json:"poi_breakdown"`
	NormalizedFactors Factors        `json:"normalized_factors"`
	AreaClass         string         `json:"area_class"`
	CountryCode       string         `json:"country_code,omitempty"`
	Degraded          bool           `json:"degraded"`
	DegradedInputs    []string       `json:"degraded_inputs,omitempty"`
}

// Scorer computes traffic scores.
type Scorer struct {
	overpass overpass.Querier
	geocoder geocode.ReverseGeocoder
	tables   *tables.Tables
}

// New creates a Scorer. A nil geocoder leaves every site on the default
// country density.
func New(q overpass.Querier, g geocode.ReverseGeocoder, t *tables.Tables) *Scorer {
	if t == nil {
		t = tables.Default()
	}
	return &Scorer{overpass: q, geocoder: g, tables: t}
}

// Score computes the traffic score around center. Upstream failures never
// fail the call: each missing input is replaced by its placeholder and listed
// in DegradedInputs.
func (s *Scorer) Score(ctx context.Context, center geo.Point, radiusKM float64) (*Result, error) {
	if !center.Valid() {
		return nil, eris.Errorf("traffic: invalid coordinate (%v, %v)", center.Lat, center.Lon)
	}
	if radiusKM <= 0 || math.IsNaN(radiusKM) || math.IsInf(radiusKM, 0) {
		radiusKM = DefaultRadiusKM
	}

	res := &Result{}
	degrade := func(input string, err error) {
		res.Degraded = true
		res.DegradedInputs = append(res.DegradedInputs, input)
		zap.L().Warn("traffic: using placeholder",
			zap.String("input", input),
			zap.Float64("lat", center.Lat),
			zap.Float64("lon", center.Lon),
			zap.Error(err),
		)
	}

	radiusM := radiusKM * 1000
	area := geo.CircleAreaKM2(radiusKM)

	// POI count and category breakdown share one query.
	pois, err := s.pois(ctx, center, radiusM)
	poiCount := 0
	if err != nil {
		poiCount = poiFallback(err)
		degrade(InputPOICount, err)
		res.POIBreakdown = placeholderBreakdown()
		degrade(InputPOIBreakdown, err)
	} else {
		poiCount = countTagged(pois)
		res.POIBreakdown = Breakdown(pois)
	}

	// Area class from the POI count in the classification box.
	areaCount := poiCount
	if radiusM != geo.ClassifyRadiusM || err != nil {
		areaPOIs, aerr := s.pois(ctx, center, geo.ClassifyRadiusM)
		if aerr != nil {
			areaCount = poiFallback(aerr)
			degrade(InputAreaPOICount, aerr)
		} else {
			areaCount = countTagged(areaPOIs)
		}
	}
	res.AreaClass = geo.Classify(areaCount)

	baseDensity := s.tables.CountryDensity.Default
	if code, cerr := s.countryCode(ctx, center); cerr != nil {
		degrade(InputCountry, cerr)
	} else {
		res.CountryCode = code
		baseDensity = s.tables.CountryDensity.Get(code)
	}
	popDensity := baseDensity * geo.DensityMultiplier(res.AreaClass)

	roads, err := s.roadCount(ctx, center, radiusM)
	if err != nil {
		roads = fallbackRoads
		degrade(InputRoadCount, err)
	}

	poiDensity := float64(poiCount) / area
	roadDensity := float64(roads) / area

	f := Factors{
		POI:        geo.Clamp(poiDensity/maxPOIDensity, 0, 1),
		Population: geo.Clamp(popDensity/maxPopulationDensity, 0, 1),
		Roads:      geo.Clamp(roadDensity/maxRoadDensity, 0, 1),
	}
	score := (f.POI*weightPOI + f.Population*weightPopulation + f.Roads*weightRoads) * 100

	res.TrafficScore = geo.Round(geo.Clamp(score, 0, 100), 1)
	res.POIDensity = geo.Round(poiDensity, 2)
	res.PopulationDensity = geo.Round(popDensity, 2)
	res.RoadDensity = geo.Round(roadDensity, 2)
	res.NormalizedFactors = Factors{
		POI:        geo.Round(f.POI, 2),
		Population: geo.Round(f.Population, 2),
		Roads:      geo.Round(f.Roads, 2),
	}

	zap.L().Info("traffic: score computed",
		zap.Float64("traffic_score", res.TrafficScore),
		zap.Int("poi_count", poiCount),
		zap.Int("road_count", roads),
		zap.String("area_class", res.AreaClass),
		zap.Bool("degraded", res.Degraded),
	)
	return res, nil
}

func (s *Scorer) pois(ctx context.Context, center geo.Point, radiusM float64) ([]overpass.Element, error) {
	if s.overpass == nil {
		return nil, eris.New("traffic: no overpass client")
	}
	b := geo.BoxAround(center, radiusM)
	box := overpass.BBox(b.South, b.West, b.North, b.East)
	q := overpass.Union(queryTimeoutSecs, []string{
		`node["shop"]` + box,
		`node["amenity"]` + box,
		`node["office"]` + box,
	}, false)
	return s.overpass.Query(ctx, q)
}

func (s *Scorer) roadCount(ctx context.Context, center geo.Point, radiusM float64) (int, error) {
	if s.overpass == nil {
		return 0, eris.New("traffic: no overpass client")
	}
	b := geo.BoxAround(center, radiusM)
	q := overpass.Union(queryTimeoutSecs, []string{
		`way["highway"]` + overpass.BBox(b.South, b.West, b.North, b.East),
	}, false)
	elements, err := s.overpass.Query(ctx, q)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range elements {
		if _, ok := e.Tags["highway"]; ok {
			n++
		}
	}
	return n, nil
}

func (s *Scorer) countryCode(ctx context.Context, center geo.Point) (string, error) {
	if s.geocoder == nil {
		return "", eris.New("traffic: no reverse geocoder")
	}
	place, err := s.geocoder.Reverse(ctx, center.Lat, center.Lon, countryZoom)
	if err != nil {
		return "", err
	}
	if place.CountryCode == "" {
		return "", geocode.ErrNoCountry
	}
	return place.CountryCode, nil
}

// Breakdown counts elements per category. Every category key is present.
func Breakdown(elements []overpass.Element) map[string]int {
	out := make(map[string]int, len(Categories))
	for _, c := range Categories {
		out[c] = 0
	}
	for _, e := range elements {
		if len(e.Tags) == 0 {
			continue
		}
		for _, c := range Categories {
			if inCategory(e.Tags, categoryMembers[c]) {
				out[c]++
			}
		}
	}
	return out
}

func inCategory(tags map[string]string, members []string) bool {
	for _, m := range members {
		if _, ok := tags[m]; ok {
			return true
		}
		for _, k := range poiKeys {
			if tags[k] == m {
				return true
			}
		}
	}
	return false
}

func placeholderBreakdown() map[string]int {
	out := make(map[string]int, len(Categories))
	for _, c := range Categories {
		out[c] = fallbackPerCategory
	}
	return out
}

func countTagged(elements []overpass.Element) int {
	n := 0
	for _, e := range elements {
		if len(e.Tags) > 0 {
			n++
		}
	}
	return n
}

func poiFallback(err error) int {
	if resilience.IsTimeout(err) {
		return fallbackPOITimeout
	}
	return fallbackPOI
}
