// Package market estimates the friction a location puts on revenue: rent,
// regulation, seasonality and local competition density.
package market

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/site-scorer/internal/geo"
	"github.com/sells-group/site-scorer/internal/model"
	"github.com/sells-group/site-scorer/internal/tables"
	"github.com/sells-group/site-scorer/pkg/geocode"
	"github.com/sells-group/site-scorer/pkg/overpass"
)

// DefaultRadiusKM is used when the caller passes no radius.
const DefaultRadiusKM = 5.0

// Component names, also reported in Result.DegradedComponents.
const (
	ComponentRent        = "rent_index"
	ComponentRegulatory  = "regulatory_index"
	ComponentSeasonality = "seasonality_index"
	ComponentCompetition = "competition_density"
)

// Rent sources.
const (
	RentSourceOSM     = "osm"
	RentSourceCountry = "country_table"
	RentSourceDefault = "default"
)

// Fallback values used when a component cannot be computed.
const (
	fallbackRent        = 0.7
	fallbackRegulatory  = 0.6
	fallbackSeasonality = 0.8
	fallbackCompetition = 0.7
)

const (
	baseRent          = 500.0
	maxDensityFactor  = 5.0
	highRent          = 5000.0
	competitorPenalty = 0.09
	cityZoom          = 10
	queryTimeoutSecs  = 25
)

// foodTypes select the food-venue rent query instead of the shop query.
var foodTypes = map[string]bool{"restaurant": true, "cafe": true, "bar": true}

// Components holds one value per sub-index.
type Components struct {
	RentIndex          float64 `json:"rent_index"`
	RegulatoryIndex    float64 `json:"regulatory_index"`
	SeasonalityIndex   float64 `json:"seasonality_index"`
	CompetitionDensity float64 `json:"competition_density"`
}

// Weights are the sub-index weights; they sum to 1.
var Weights = Components{
	RentIndex:          0.4,
	RegulatoryIndex:    0.3,
	SeasonalityIndex:   0.2,
	CompetitionDensity: 0.1,
}

func (c Components) weighted(w Components) float64 {
	sum := c.RentIndex*w.RentIndex +
		c.RegulatoryIndex*w.RegulatoryIndex +
		c.SeasonalityIndex*w.SeasonalityIndex +
		c.CompetitionDensity*w.CompetitionDensity
	total := w.RentIndex + w.RegulatoryIndex + w.SeasonalityIndex + w.CompetitionDensity
	return sum / total
}

// Result is the market factor for one site.
type Result struct {
	MarketFactor       float64    `json:"market_factor"`
	Components         Components `json:"components"`
	Weights            Components `json:"weights"`
	Confidence         float64    `json:"confidence"`
	Notes              string     `json:"notes"`
	RentSource         string     `json:"rent_source"`
	CountryCode        string     `json:"country_code,omitempty"`
	DegradedComponents []string   `json:"degraded_components,omitempty"`
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithClock sets the time source used to pick the seasonality month.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		if now != nil {
			s.now = now
		}
	}
}

// Scorer computes market factors.
type Scorer struct {
	overpass overpass.Querier
	geocoder geocode.ReverseGeocoder
	tables   *tables.Tables
	now      func() time.Time
}

// New creates a Scorer. Nil clients are allowed; the components that need
// them fall back.
func New(q overpass.Querier, g geocode.ReverseGeocoder, t *tables.Tables, opts ...Option) *Scorer {
	if t == nil {
		t = tables.Default()
	}
	s := &Scorer{overpass: q, geocoder: g, tables: t, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the market factor for businessType around center. Upstream
// failures never fail the call; each affected component takes its fallback
// and is listed in DegradedComponents.
func (s *Scorer) Score(ctx context.Context, center geo.Point, businessType string, radiusKM float64) (*Result, error) {
	if !center.Valid() {
		return nil, eris.Errorf("market: invalid coordinate (%v, %v)", center.Lat, center.Lon)
	}
	if radiusKM <= 0 {
		radiusKM = DefaultRadiusKM
	}
	bt := model.NormalizeBusinessType(businessType)
	radiusM := radiusKM * 1000

	res := &Result{Weights: Weights}
	degrade := func(component string, err error) {
		res.DegradedComponents = append(res.DegradedComponents, component)
		zap.L().Warn("market: using fallback",
			zap.String("component", component),
			zap.String("business_type", bt),
			zap.Error(err),
		)
	}

	place, placeErr := s.place(ctx, center)
	if placeErr == nil {
		res.CountryCode = strings.ToUpper(place.CountryCode)
	}

	// Rent: OSM venue density, then the country table, then the default.
	count, err := s.count(ctx, rentQuery(center, radiusM, bt))
	switch {
	case err == nil:
		res.Components.RentIndex = RentIndexFromCount(count)
		res.RentSource = RentSourceOSM
	case placeErr == nil && place.Country != "":
		res.Components.RentIndex = geo.Clamp(s.tables.RentIndex.Get(place.Country), 0.3, 1.0)
		res.RentSource = RentSourceCountry
		degrade(ComponentRent, err)
	default:
		res.Components.RentIndex = fallbackRent
		res.RentSource = RentSourceDefault
		degrade(ComponentRent, err)
	}

	if res.CountryCode != "" {
		res.Components.RegulatoryIndex = s.tables.RegulatoryIndex.Get(res.CountryCode)
	} else {
		res.Components.RegulatoryIndex = fallbackRegulatory
		if placeErr == nil {
			placeErr = geocode.ErrNoCountry
		}
		degrade(ComponentRegulatory, placeErr)
	}

	if f, err := s.tables.Seasonality.Factor(bt, int(s.now().Month())); err != nil {
		res.Components.SeasonalityIndex = fallbackSeasonality
		degrade(ComponentSeasonality, err)
	} else {
		res.Components.SeasonalityIndex = f
	}

	competitors, err := s.count(ctx, competitionQuery(center, radiusM, s.tables.OSMTags.Get(bt)))
	if err != nil {
		res.Components.CompetitionDensity = fallbackCompetition
		degrade(ComponentCompetition, err)
	} else {
		res.Components.CompetitionDensity = CompetitionFromCount(competitors)
	}

	factor := geo.Clamp(res.Components.weighted(Weights)*s.tables.MarketAdjustments.Get(bt), 0.1, 1.0)
	res.MarketFactor = geo.Round(factor, 3)
	res.Confidence = Confidence(4-len(res.DegradedComponents), 4)
	res.Notes = Notes(res.Components, factor)

	zap.L().Info("market: factor computed",
		zap.Float64("market_factor", res.MarketFactor),
		zap.Float64("confidence", res.Confidence),
		zap.Strings("degraded", res.DegradedComponents),
	)
	return res, nil
}

func (s *Scorer) place(ctx context.Context, center geo.Point) (*geocode.Place, error) {
	if s.geocoder == nil {
		return nil, eris.New("market: no reverse geocoder")
	}
	return s.geocoder.Reverse(ctx, center.Lat, center.Lon, cityZoom)
}

func (s *Scorer) count(ctx context.Context, q string) (int, error) {
	if s.overpass == nil {
		return 0, eris.New("market: no overpass client")
	}
	return s.overpass.Count(ctx, q)
}

func rentQuery(center geo.Point, radiusM float64, bt string) string {
	filter := `["shop"]`
	if foodTypes[bt] {
		filter = `["amenity"~"restaurant|cafe|bar"]`
	}
	around := overpass.Around(radiusM, center.Lat, center.Lon)
	return overpass.Union(queryTimeoutSecs, overpass.NodesAndWays(filter, around), false)
}

func competitionQuery(center geo.Point, radiusM float64, tag string) string {
	around := overpass.Around(radiusM, center.Lat, center.Lon)
	return overpass.Union(queryTimeoutSecs, []string{"node" + tag + around}, false)
}

// RentIndexFromCount converts a commercial venue count into a rent index:
// more venues mean higher estimated rent and a lower index.
func RentIndexFromCount(count int) float64 {
	rent := baseRent * (1 + min(float64(count)/10, maxDensityFactor))
	return geo.Round(1-geo.Clamp(rent/highRent, 0.1, 1.0), 3)
}

// CompetitionFromCount converts a competitor count into a density index.
func CompetitionFromCount(count int) float64 {
	return geo.Round(max(0.1, 1-float64(count)*competitorPenalty), 3)
}

// Confidence is the share of components computed from live data, clamped
// to [0.5, 0.9].
func Confidence(live, total int) float64 {
	if total <= 0 {
		return 0.5
	}
	return geo.Clamp(float64(live)/float64(total), 0.5, 0.9)
}

// Notes explains the components and the overall factor.
func Notes(c Components, factor float64) string {
	var notes []string
	add := func(v, low, high float64, lowNote, highNote string) {
		switch {
		case v < low:
			notes = append(notes, lowNote)
		case v > high:
			notes = append(notes, highNote)
		}
	}
	add(c.RentIndex, 0.5, 0.8,
		"High rental costs may impact profitability.",
		"Favorable rental costs in this area.")
	add(c.RegulatoryIndex, 0.5, 0.7,
		"Regulatory environment may present challenges.",
		"Business-friendly regulatory environment.")
	add(c.SeasonalityIndex, 0.6, 0.9,
		"Significant seasonal variations expected.",
		"Favorable year-round business conditions.")
	add(c.CompetitionDensity, 0.5, 0.8,
		"High competition density may affect market share.",
		"Limited competition in the immediate area.")

	switch {
	case factor < 0.5:
		notes = append(notes, "Overall market conditions present significant challenges.")
	case factor > 0.8:
		notes = append(notes, "Favorable market conditions for business operations.")
	default:
		notes = append(notes, "Moderate market conditions with balanced opportunities and challenges.")
	}
	return strings.Join(notes, " ")
}
