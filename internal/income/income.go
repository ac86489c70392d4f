// Package income estimates the average income around a site by sampling
// points inside the radius, resolving each to a country and averaging the
// country's World Bank series.
package income

import (
	"context"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/site-scorer/internal/geo"
	"github.com/sells-group/site-scorer/internal/resilience"
	"github.com/sells-group/site-scorer/pkg/geocode"
	"github.com/sells-group/site-scorer/pkg/worldbank"
)

// Source values recorded per sample point.
const (
	SourceWorldBank = "world_bank"
	SourceEstimated = "estimated"
)

// geocodeZoom asks for city-level detail.
const geocodeZoom = 10

var (
	// ErrNoPoints is returned when no sample point produced any data.
	ErrNoPoints = eris.New("No successful data points found within radius")
	// ErrNoData is returned when the successful points carry no yearly value.
	ErrNoData = eris.New("No valid income data found within radius")
)

// Options controls one estimate.
type Options struct {
	Indicator    string
	StartYear    int
	EndYear      int
	RadiusKM     float64
	SamplePoints int
}

// DefaultOptions returns the standalone defaults: GDP per capita for
// 2020-2023 over 8 points in 2 km.
func DefaultOptions() Options {
	return Options{
		Indicator:    worldbank.GDPPerCapita,
		StartYear:    2020,
		EndYear:      2023,
		RadiusKM:     2,
		SamplePoints: 8,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Indicator == "" {
		o.Indicator = d.Indicator
	}
	if o.StartYear == 0 {
		o.StartYear = d.StartYear
	}
	if o.EndYear == 0 {
		o.EndYear = d.EndYear
	}
	if o.RadiusKM <= 0 {
		o.RadiusKM = d.RadiusKM
	}
	if o.SamplePoints <= 0 {
		o.SamplePoints = d.SamplePoints
	}
	return o
}

// Record is the averaged value for one year.
type Record struct {
	Year            string  `json:"year"`
	Value           float64 `json:"value"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// PointResult is the outcome for one sample point.
type PointResult struct {
	Point       geo.Point          `json:"point"`
	CountryCode string             `json:"country_code,omitempty"`
	Country     string             `json:"country,omitempty"`
	Source      string             `json:"source,omitempty"`
	Data        map[string]float64 `json:"data,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// Result is the income estimate for one site.
type Result struct {
	Records          []Record      `json:"data"`
	SuccessfulPoints int           `json:"successful_points"`
	TotalPoints      int           `json:"total_points"`
	Points           []PointResult `json:"points"`
}

// Estimator samples points and averages indicator values.
type Estimator struct {
	geocoder  geocode.ReverseGeocoder
	worldbank worldbank.Client
	throttle  *resilience.Throttle
	newRand   func() *rand.Rand
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithPointThrottle spaces consecutive sample points.
func WithPointThrottle(t *resilience.Throttle) Option {
	return func(e *Estimator) {
		e.throttle = t
	}
}

// WithSeed makes the sample points reproducible. Every estimate starts from
// the same seed.
func WithSeed(seed int64) Option {
	return func(e *Estimator) {
		e.newRand = func() *rand.Rand { return rand.New(rand.NewSource(seed)) } //nolint:gosec
	}
}

// New creates an Estimator. Without WithSeed the points differ per call.
func New(g geocode.ReverseGeocoder, wb worldbank.Client, opts ...Option) *Estimator {
	e := &Estimator{
		geocoder:  g,
		worldbank: wb,
		throttle:  resilience.NewThrottle(500 * time.Millisecond),
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Estimate samples opts.SamplePoints points around center and returns the
// per-year mean of the indicator across every point that produced data.
func (e *Estimator) Estimate(ctx context.Context, center geo.Point, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	if !center.Valid() {
		return nil, eris.Errorf("income: invalid coordinate (%v, %v)", center.Lat, center.Lon)
	}
	if opts.EndYear < opts.StartYear {
		return nil, eris.Errorf("income: end year %d before start year %d", opts.EndYear, opts.StartYear)
	}

	points := geo.SamplePoints(center, opts.RadiusKM, opts.SamplePoints, e.newRand())
	res := &Result{TotalPoints: len(points), Points: make([]PointResult, 0, len(points))}

	for _, p := range points {
		if err := e.throttle.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "income: wait between points")
		}

		pr, err := e.fetchPoint(ctx, p, opts)
		if err != nil {
			zap.L().Warn("income: sample point failed",
				zap.Float64("lat", p.Lat),
				zap.Float64("lon", p.Lon),
				zap.Error(err),
			)
			pr.Error = err.Error()
		} else if len(pr.Data) > 0 {
			res.SuccessfulPoints++
		}
		res.Points = append(res.Points, pr)
	}

	if res.SuccessfulPoints == 0 {
		return nil, ErrNoPoints
	}

	byYear := make(map[string][]float64)
	for _, pr := range res.Points {
		for year, v := range pr.Data {
			byYear[year] = append(byYear[year], v)
		}
	}
	if len(byYear) == 0 {
		return nil, ErrNoData
	}

	confidence := float64(res.SuccessfulPoints) / float64(res.TotalPoints) * 100
	if confidence > 100 {
		confidence = 100
	}
	for year, values := range byYear {
		res.Records = append(res.Records, Record{
			Year:            year,
			Value:           mean(values),
			ConfidenceScore: confidence,
		})
	}
	sort.Slice(res.Records, func(i, j int) bool {
		return res.Records[i].Year < res.Records[j].Year
	})

	zap.L().Info("income: estimate computed",
		zap.Int("successful_points", res.SuccessfulPoints),
		zap.Int("total_points", res.TotalPoints),
		zap.Int("years", len(res.Records)),
		zap.Float64("confidence", confidence),
	)
	return res, nil
}

// fetchPoint resolves one point to a country and reads its series. When the
// requested indicator is empty each year is estimated from alternatives.
func (e *Estimator) fetchPoint(ctx context.Context, p geo.Point, opts Options) (PointResult, error) {
	pr := PointResult{Point: p}

	place, err := e.geocoder.Reverse(ctx, p.Lat, p.Lon, geocodeZoom)
	if err != nil {
		return pr, eris.Wrap(err, "income: reverse geocode")
	}
	if place.CountryCode == "" {
		return pr, geocode.ErrNoCountry
	}
	pr.CountryCode = place.CountryCode
	pr.Country = place.Country

	series, err := e.worldbank.Indicator(ctx, place.CountryCode, opts.Indicator, opts.StartYear, opts.EndYear)
	if err != nil {
		zap.L().Warn("income: indicator fetch failed",
			zap.String("country", place.CountryCode),
			zap.String("indicator", opts.Indicator),
			zap.Error(err),
		)
		series = nil
	}

	if len(series) > 0 {
		pr.Source = SourceWorldBank
		pr.Data = make(map[string]float64, len(series))
		for _, obs := range series {
			if obs.Value != nil {
				pr.Data[obs.Year] = *obs.Value
			}
		}
		return pr, nil
	}

	pr.Source = SourceEstimated
	pr.Data = make(map[string]float64)
	for year := opts.StartYear; year <= opts.EndYear; year++ {
		alts := e.alternatives(ctx, place.CountryCode, year)
		if v, ok := EstimateFromAlternatives(alts); ok {
			pr.Data[strconv.Itoa(year)] = v
		}
	}
	return pr, nil
}

// alternatives fetches the four fallback indicators for one year. Missing
// or zero values are left out.
func (e *Estimator) alternatives(ctx context.Context, country string, year int) map[string]float64 {
	out := make(map[string]float64, 4)
	for _, ind := range []string{worldbank.GDPPerCapita, worldbank.GNIPerCapita, worldbank.GDPTotal, worldbank.GNITotal} {
		series, err := e.worldbank.Indicator(ctx, country, ind, year, year)
		if err != nil || len(series) == 0 {
			continue
		}
		if v := series[0].Value; v != nil && *v != 0 {
			out[ind] = *v
		}
	}
	return out
}

// EstimateFromAlternatives picks one income figure from alternative
// indicators: GDP per capita, then GNI per capita, then the mean of both
// totals, then whichever total exists.
func EstimateFromAlternatives(alts map[string]float64) (float64, bool) {
	if v, ok := alts[worldbank.GDPPerCapita]; ok {
		return v, v != 0
	}
	if v, ok := alts[worldbank.GNIPerCapita]; ok {
		return v, v != 0
	}
	gdp, hasGDP := alts[worldbank.GDPTotal]
	gni, hasGNI := alts[worldbank.GNITotal]
	switch {
	case hasGDP && hasGNI:
		v := (gdp + gni) / 2
		return v, v != 0
	case hasGDP:
		return gdp, gdp != 0
	case hasGNI:
		return gni, gni != 0
	}
	return 0, false
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
