// Package population estimates local demand against competitor supply and
// turns the ratio into a revenue multiplier for a business type.
package population

import (
	"context"
	"fmt"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/site-scorer/internal/geo"
	"github.com/sells-group/site-scorer/internal/model"
	"github.com/sells-group/site-scorer/internal/resilience"
	"github.com/sells-group/site-scorer/internal/tables"
	"github.com/sells-group/site-scorer/pkg/overpass"
	"github.com/sells-group/site-scorer/pkg/worldpop"
)

// Defaults.
const (
	DefaultRadiusKM = 2.0
	DefaultYear     = 2020
)

// Population sources, in cascade order.
const (
	SourceWorldPop     = "worldpop"
	SourceOSMBuildings = "osm_buildings"
	SourceAreaEstimate = "area_estimate"
)

// Degraded input names reported in Result.DegradedInputs.
const (
	InputPopulation  = "population"
	InputIncomeIndex = "income_index"
	InputCompetitors = "competitors"
)

const (
	minPopulation       = 100
	peoplePerBuilding   = 4
	urbanDensityFactor  = 1.5
	suburbanDensityKM2  = 1000
	fallbackIncomeIndex = 1.0

	// Every competitor is weighted as 10 ratings at price level 1.
	defaultRatingCount = 10
	defaultPriceLevel  = 1

	noCompetitionAdjustment = 1.8
	demandMidpoint          = 500000.0
	demandSteepness         = 1e-6

	queryTimeoutSecs = 25
)

const residentialFilter = `["building"~"residential|apartments|house|detached"]`

// Result is the demand analysis for one site.
type Result struct {
	Multiplier       float64    `json:"multiplier"`
	Confidence       float64    `json:"confidence"`
	Population       int        `json:"population"`
	PopulationSource string     `json:"population_source"`
	CompetitionCount int        `json:"competition_count"`
	IncomeIndex      float64    `json:"income_index"`
	Notes            string     `json:"notes"`
	Coordinates      [2]float64 `json:"coordinates"`
	RadiusKM         float64    `json:"radius_km"`
	Baseline         float64    `json:"baseline"`
	LocalAdjustment  float64    `json:"local_adjustment"`
	Degraded         bool       `json:"degraded"`
	DegradedInputs   []string   `json:"degraded_inputs,omitempty"`
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithYear sets the WorldPop dataset year.
func WithYear(year int) Option {
	return func(a *Analyzer) {
		if year > 0 {
			a.year = year
		}
	}
}

// Analyzer computes demand multipliers.
type Analyzer struct {
	overpass overpass.Querier
	worldpop worldpop.Client
	tables   *tables.Tables
	year     int
}

// New creates an Analyzer. Nil clients are allowed; the inputs that need
// them fall back.
func New(q overpass.Querier, wp worldpop.Client, t *tables.Tables, opts ...Option) *Analyzer {
	if t == nil {
		t = tables.Default()
	}
	a := &Analyzer{overpass: q, worldpop: wp, tables: t, year: DefaultYear}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze computes the demand multiplier for businessType around center.
func (a *Analyzer) Analyze(ctx context.Context, center geo.Point, businessType string, radiusKM float64) (*Result, error) {
	if !center.Valid() {
		return nil, eris.Errorf("population: invalid coordinate (%v, %v)", center.Lat, center.Lon)
	}
	if radiusKM <= 0 || math.IsNaN(radiusKM) || math.IsInf(radiusKM, 0) {
		radiusKM = DefaultRadiusKM
	}
	bt := model.NormalizeBusinessType(businessType)
	radiusM := radiusKM * 1000
	around := overpass.Around(radiusM, center.Lat, center.Lon)

	res := &Result{
		Coordinates: [2]float64{center.Lat, center.Lon},
		RadiusKM:    radiusKM,
		Baseline:    a.tables.BaselineMultipliers.Get(bt),
	}
	degrade := func(input string, err error) {
		res.Degraded = true
		res.DegradedInputs = append(res.DegradedInputs, input)
		zap.L().Warn("population: using fallback",
			zap.String("input", input),
			zap.Float64("lat", center.Lat),
			zap.Float64("lon", center.Lon),
			zap.Error(err),
		)
	}

	var worldPopErr error
	pop, source, err := resilience.FirstSuccess(ctx,
		resilience.Strategy[int]{Name: SourceWorldPop, Run: func(ctx context.Context) (int, error) {
			n, err := a.worldPopPopulation(ctx, center, radiusKM)
			worldPopErr = err
			return n, err
		}},
		resilience.Strategy[int]{Name: SourceOSMBuildings, Run: func(ctx context.Context) (int, error) {
			return a.buildingPopulation(ctx, around)
		}},
	)
	if err != nil {
		pop = int(math.Pi * radiusKM * radiusKM * suburbanDensityKM2)
		source = SourceAreaEstimate
	}
	if source != SourceWorldPop {
		if err == nil {
			err = worldPopErr
		}
		degrade(InputPopulation, err)
	}
	res.Population = max(pop, minPopulation)
	res.PopulationSource = source

	incomeIndex, err := a.incomeIndex(ctx, around)
	if err != nil {
		incomeIndex = fallbackIncomeIndex
		degrade(InputIncomeIndex, err)
	}
	res.IncomeIndex = geo.Round(incomeIndex, 2)

	competitors, err := a.competitors(ctx, around, a.tables.OSMTags.Get(bt))
	if err != nil {
		competitors = 0
		degrade(InputCompetitors, err)
	}
	res.CompetitionCount = competitors

	demand := float64(res.Population) * incomeIndex
	supply := float64(competitors * defaultRatingCount * defaultPriceLevel)
	res.LocalAdjustment = LocalAdjustment(demand, supply)
	res.Multiplier = geo.Round(res.Baseline*res.LocalAdjustment, 2)
	res.Confidence = geo.Round(Confidence(res.Population, competitors), 2)
	res.Notes = Notes(competitors)

	zap.L().Info("population: analysis computed",
		zap.Float64("multiplier", res.Multiplier),
		zap.Int("population", res.Population),
		zap.String("population_source", res.PopulationSource),
		zap.Int("competition_count", competitors),
		zap.Bool("degraded", res.Degraded),
	)
	return res, nil
}

// errZero marks a population tier that answered with nothing.
var errZero = eris.New("population: source returned zero")

func (a *Analyzer) worldPopPopulation(ctx context.Context, center geo.Point, radiusKM float64) (int, error) {
	if a.worldpop == nil {
		return 0, eris.New("population: no worldpop client")
	}
	total, err := a.worldpop.TotalPopulation(ctx, geo.Circle(center, radiusKM), a.year)
	if err != nil {
		return 0, err
	}
	if total <= 0 {
		return 0, errZero
	}
	return int(total), nil
}

func (a *Analyzer) buildingPopulation(ctx context.Context, around string) (int, error) {
	if a.overpass == nil {
		return 0, eris.New("population: no overpass client")
	}
	q := overpass.Union(queryTimeoutSecs, overpass.NodesAndWays(residentialFilter, around), false)
	buildings, err := a.overpass.Count(ctx, q)
	if err != nil {
		return 0, err
	}
	if buildings == 0 {
		return 0, errZero
	}
	return int(float64(buildings*peoplePerBuilding) * urbanDensityFactor), nil
}

// incomeIndex uses commercial density as an income proxy.
func (a *Analyzer) incomeIndex(ctx context.Context, around string) (float64, error) {
	if a.overpass == nil {
		return 0, eris.New("population: no overpass client")
	}
	statements := append(
		overpass.NodesAndWays(`["shop"]`, around),
		overpass.NodesAndWays(`["amenity"~"restaurant|cafe|bank"]`, around)...,
	)
	n, err := a.overpass.Count(ctx, overpass.Union(queryTimeoutSecs, statements, false))
	if err != nil {
		return 0, err
	}
	return IncomeIndexFromCount(n), nil
}

func (a *Analyzer) competitors(ctx context.Context, around, tag string) (int, error) {
	if a.overpass == nil {
		return 0, eris.New("population: no overpass client")
	}
	elements, err := a.overpass.Query(ctx, overpass.Union(queryTimeoutSecs, []string{"node" + tag + around}, false))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range elements {
		if e.Type == overpass.TypeNode {
			n++
		}
	}
	return n, nil
}

// IncomeIndexFromCount maps a commercial venue count to [0.5, 1.5].
func IncomeIndexFromCount(count int) float64 {
	return geo.Clamp(0.5+float64(count)*0.01, 0.5, 1.5)
}

// LocalAdjustment maps the demand/supply ratio onto [0.5, 2.0] with a
// logistic curve centred on a ratio of 500000. No supply earns a fixed bonus.
func LocalAdjustment(demand, supply float64) float64 {
	if supply == 0 {
		return noCompetitionAdjustment
	}
	ratio := demand / supply
	adj := 0.5 + 1.5/(1+math.Exp(-demandSteepness*(ratio-demandMidpoint)))
	return geo.Clamp(adj, 0.5, 2.0)
}

// Confidence weighs population size and competitor sample size, clamped to
// [0.5, 0.9].
func Confidence(population, competitors int) float64 {
	pop := min(float64(population)/5000, 1)
	comp := min(float64(competitors)/10, 1)
	return geo.Clamp(pop*0.6+comp*0.4, 0.5, 0.9)
}

// Notes summarizes the competition level.
func Notes(competitors int) string {
	switch {
	case competitors == 0:
		return "No direct competitors found. High opportunity but verify local demand."
	case competitors < 3:
		return fmt.Sprintf("Low competition (%d competitors). Good market conditions.", competitors)
	case competitors < 8:
		return fmt.Sprintf("Moderate competition (%d competitors). Viable market.", competitors)
	default:
		return fmt.Sprintf("High competition (%d competitors). Consider differentiation.", competitors)
	}
}
