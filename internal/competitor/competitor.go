// Package competitor finds named businesses of the requested types around a
// site and summarizes how close and how dense they are.
package competitor

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/site-scorer/internal/geo"
	"github.com/sells-group/site-scorer/internal/model"
	"github.com/sells-group/site-scorer/pkg/overpass"
)

// DefaultRadiusM is used for standalone searches without a radius.
const DefaultRadiusM = 500.0

// DefaultBusinessTypes are searched when none are given.
var DefaultBusinessTypes = []string{"restaurant", "cafe"}

// Summary statuses.
const (
	StatusSuccess      = "success"
	StatusNoCompetitor = "no_competitors_found"
)

const (
	queryTimeoutSecs = 25
	unknownType      = "unknown"
	noAddress        = "Address not specified"
	densityPi        = 3.14159
)

// amenityTypes are matched against the amenity tag; anything else is
// treated as a shop value.
var amenityTypes = map[string]bool{
	"restaurant": true,
	"cafe":       true,
	"fast_food":  true,
	"bank":       true,
	"pharmacy":   true,
	"hospital":   true,
	"school":     true,
	"fuel":       true,
	"cinema":     true,
	"theatre":    true,
	"bar":        true,
}

// stopNames are placeholder names mappers leave on unnamed venues.
var stopNames = map[string]bool{"yes": true, "no": true, "unknown": true, "none": true}

// addressKeys are tried in order for the street part of an address.
var addressKeys = []string{"addr:street", "addr:road", "addr:full"}

// Competitor is one named business near the site.
type Competitor struct {
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	Distance      float64 `json:"distance"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	OSMID         int64   `json:"osm_id"`
	OSMType       string  `json:"osm_type"`
	Address       string  `json:"address"`
	GoogleMapsURL string  `json:"google_maps_url"`
}

// Params describes one search. Radius is in metres.
type Params struct {
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	Radius        float64  `json:"radius"`
	BusinessTypes []string `json:"business_types"`
}

func (p Params) center() geo.Point {
	return geo.Point{Lat: p.Latitude, Lon: p.Longitude}
}

// Validate checks the coordinate, radius and every business type.
func (p Params) Validate() error {
	if !p.center().Valid() {
		return &model.ValidationError{Field: "coordinates", Message: "latitude must be in [-90,90] and longitude in [-180,180]"}
	}
	if !(p.Radius > 0) || math.IsInf(p.Radius, 1) {
		return &model.ValidationError{Field: "radius", Message: "must be positive"}
	}
	if len(p.BusinessTypes) == 0 {
		return &model.ValidationError{Field: "business_types", Message: "at least one is required"}
	}
	for _, bt := range p.BusinessTypes {
		if err := model.ValidateBusinessType(bt); err != nil {
			return err
		}
	}
	return nil
}

// Ref names one competitor in the statistics.
type Ref struct {
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
	Type     string  `json:"type"`
}

// Statistics summarizes the in-radius competitors.
type Statistics struct {
	Closest         Ref            `json:"closest"`
	Farthest        Ref            `json:"farthest"`
	AverageDistance float64        `json:"average_distance"`
	BusinessDensity float64        `json:"business_density"`
	CountByType     map[string]int `json:"count_by_type"`
}

// Summary is the structured search result.
type Summary struct {
	Status           string       `json:"status"`
	Message          string       `json:"message,omitempty"`
	TotalCompetitors int          `json:"total_competitors,omitempty"`
	SearchParameters Params       `json:"search_parameters"`
	Competitors      []Competitor `json:"competitors,omitempty"`
	Statistics       *Statistics  `json:"statistics,omitempty"`
}

// Finder queries Overpass for competitors.
type Finder struct {
	overpass overpass.Querier
}

// New creates a Finder.
func New(q overpass.Querier) *Finder {
	return &Finder{overpass: q}
}

// Search runs the query and returns every processed competitor sorted by
// distance, including any beyond the radius.
func (f *Finder) Search(ctx context.Context, p Params) ([]Competitor, error) {
	p = normalize(p)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	elements, err := f.overpass.Query(ctx, BuildQuery(p))
	if err != nil {
		return nil, eris.Wrap(err, "competitor: search")
	}
	return Process(p.center(), elements), nil
}

// Analyze searches and summarizes. A failed query is logged and reported as
// an empty result; only invalid parameters return an error.
func (f *Finder) Analyze(ctx context.Context, p Params) (*Summary, error) {
	p = normalize(p)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	competitors, err := f.Search(ctx, p)
	if err != nil {
		zap.L().Warn("competitor: query failed, reporting no competitors",
			zap.Float64("lat", p.Latitude),
			zap.Float64("lon", p.Longitude),
			zap.Float64("radius_m", p.Radius),
			zap.Error(err),
		)
		competitors = nil
	}
	s := Summarize(p, competitors)
	zap.L().Info("competitor: search complete",
		zap.String("status", s.Status),
		zap.Int("total_competitors", s.TotalCompetitors),
	)
	return s, nil
}

// Flat searches and returns only the in-radius competitors, nearest first.
func (f *Finder) Flat(ctx context.Context, p Params) ([]Competitor, error) {
	p = normalize(p)
	competitors, err := f.Search(ctx, p)
	if err != nil {
		return nil, err
	}
	return InRadius(competitors, p.Radius), nil
}

func normalize(p Params) Params {
	if p.Radius == 0 {
		p.Radius = DefaultRadiusM
	}
	if len(p.BusinessTypes) == 0 {
		p.BusinessTypes = DefaultBusinessTypes
	}
	types := make([]string, len(p.BusinessTypes))
	for i, bt := range p.BusinessTypes {
		types[i] = model.NormalizeBusinessType(bt)
	}
	p.BusinessTypes = types
	return p
}

// BuildQuery splits the business types into amenity and shop filters and
// renders one union over nodes and ways within the radius.
func BuildQuery(p Params) string {
	var amenities, shops []string
	for _, bt := range p.BusinessTypes {
		if amenityTypes[bt] {
			amenities = append(amenities, bt)
		} else {
			shops = append(shops, bt)
		}
	}

	around := overpass.Around(p.Radius, p.Latitude, p.Longitude)
	var stmts []string
	if len(amenities) > 0 {
		stmts = append(stmts, overpass.NodesAndWays(`["amenity"~"`+strings.Join(amenities, "|")+`"]`, around)...)
	}
	if len(shops) > 0 {
		stmts = append(stmts, overpass.NodesAndWays(`["shop"~"`+strings.Join(shops, "|")+`"]`, around)...)
	}
	return overpass.Union(queryTimeoutSecs, stmts, true)
}

// Process turns elements into competitors: unnamed, placeholder-named,
// duplicate and badly positioned elements are dropped. The result is sorted
// by distance from center.
func Process(center geo.Point, elements []overpass.Element) []Competitor {
	type key struct {
		typ string
		id  int64
	}
	seen := make(map[key]bool, len(elements))
	out := make([]Competitor, 0, len(elements))

	for _, e := range elements {
		if e.Type != overpass.TypeNode && e.Type != overpass.TypeWay {
			continue
		}
		name := strings.TrimSpace(e.Tags["name"])
		if name == "" || stopNames[strings.ToLower(name)] {
			continue
		}
		k := key{e.Type, e.ID}
		if seen[k] {
			continue
		}
		seen[k] = true

		pos := geo.Point{Lat: e.Lat, Lon: e.Lon}
		if !e.HasPosition || !pos.Valid() {
			continue
		}

		out = append(out, Competitor{
			Name:          name,
			Type:          businessType(e.Tags),
			Distance:      geo.HaversineM(center, pos),
			Latitude:      pos.Lat,
			Longitude:     pos.Lon,
			OSMID:         e.ID,
			OSMType:       e.Type,
			Address:       address(e.Tags),
			GoogleMapsURL: MapsURL(pos),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out
}

func businessType(tags map[string]string) string {
	if v := tags["amenity"]; v != "" {
		return v
	}
	if v := tags["shop"]; v != "" {
		return v
	}
	return unknownType
}

func address(tags map[string]string) string {
	var parts []string
	for _, k := range addressKeys {
		if v := tags[k]; v != "" {
			parts = append(parts, v)
			break
		}
	}
	if v := tags["addr:housenumber"]; v != "" {
		parts = append(parts, v)
	}
	if len(parts) == 0 {
		return noAddress
	}
	return strings.Join(parts, ", ")
}

// MapsURL returns a Google Maps link for p.
func MapsURL(p geo.Point) string {
	return "https://www.google.com/maps?q=" + formatFloat(p.Lat) + "," + formatFloat(p.Lon)
}

// InRadius keeps competitors no farther than radiusM, preserving order.
func InRadius(competitors []Competitor, radiusM float64) []Competitor {
	out := make([]Competitor, 0, len(competitors))
	for _, c := range competitors {
		if c.Distance <= radiusM {
			out = append(out, c)
		}
	}
	return out
}

// Summarize builds the structured result from distance-sorted competitors.
// Entries beyond the radius are excluded from every figure.
func Summarize(p Params, competitors []Competitor) *Summary {
	valid := InRadius(competitors, p.Radius)
	if len(valid) == 0 {
		return &Summary{
			Status:           StatusNoCompetitor,
			Message:          "No businesses found within " + formatFloat(p.Radius) + " meters",
			SearchParameters: p,
		}
	}

	byType := make(map[string][]Competitor)
	for _, c := range valid {
		byType[c.Type] = append(byType[c.Type], c)
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	listed := make([]Competitor, 0, len(valid))
	counts := make(map[string]int, len(byType))
	for _, t := range types {
		listed = append(listed, byType[t]...)
		counts[t] = len(byType[t])
	}

	closest, farthest := valid[0], valid[0]
	var total float64
	for _, c := range valid {
		if c.Distance < closest.Distance {
			closest = c
		}
		if c.Distance > farthest.Distance {
			farthest = c
		}
		total += c.Distance
	}
	radiusKM := p.Radius / 1000

	return &Summary{
		Status:           StatusSuccess,
		TotalCompetitors: len(valid),
		SearchParameters: p,
		Competitors:      listed,
		Statistics: &Statistics{
			Closest:         Ref{Name: closest.Name, Distance: closest.Distance, Type: closest.Type},
			Farthest:        Ref{Name: farthest.Name, Distance: farthest.Distance, Type: farthest.Type},
			AverageDistance: total / float64(len(valid)),
			BusinessDensity: float64(len(valid)) / (densityPi * radiusKM * radiusKM),
			CountByType:     counts,
		},
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
