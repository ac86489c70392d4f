package main

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/site-scorer/internal/cache"
	"github.com/sells-group/site-scorer/internal/competitor"
	"github.com/sells-group/site-scorer/internal/config"
	"github.com/sells-group/site-scorer/internal/culture"
	"github.com/sells-group/site-scorer/internal/income"
	"github.com/sells-group/site-scorer/internal/market"
	"github.com/sells-group/site-scorer/internal/pipeline"
	"github.com/sells-group/site-scorer/internal/population"
	"github.com/sells-group/site-scorer/internal/resilience"
	"github.com/sells-group/site-scorer/internal/tables"
	"github.com/sells-group/site-scorer/internal/traffic"
	"github.com/sells-group/site-scorer/pkg/geocode"
	"github.com/sells-group/site-scorer/pkg/overpass"
	"github.com/sells-group/site-scorer/pkg/wikipedia"
	"github.com/sells-group/site-scorer/pkg/worldbank"
	"github.com/sells-group/site-scorer/pkg/worldpop"
)

// scorerEnv holds the upstream clients and scorers shared by the analyze,
// per-scorer and serve commands.
type scorerEnv struct {
	Breakers  *resilience.ServiceBreakers
	Nominatim *geocode.Nominatim
	Geocoder  geocode.ReverseGeocoder

	Traffic     *traffic.Scorer
	Market      *market.Scorer
	Population  *population.Analyzer
	Income      *income.Estimator
	Competitors *competitor.Finder
	Culture     *culture.Scorer
	Pipeline    *pipeline.Pipeline

	IncomeOptions income.Options

	placeCache     *cache.Cache[*geocode.Place]
	indicatorCache *cache.Cache[[]worldbank.Observation]
}

// Close releases the caches.
func (e *scorerEnv) Close() {
	e.placeCache.Close()
	e.indicatorCache.Close()
	if states := e.Breakers.States(); len(states) > 0 {
		fields := make([]zap.Field, 0, len(states))
		for name, st := range states {
			fields = append(fields, zap.String(name, st.String()))
		}
		zap.L().Debug("circuit breaker states", fields...)
	}
}

// initEnv builds every client from cfg. Each upstream service gets its own
// throttle and circuit breaker; the reverse geocoders share a cache.
func initEnv(c *config.Config) (*scorerEnv, error) {
	tbl, err := tables.Load(c.Tables.Path)
	if err != nil {
		return nil, eris.Wrap(err, "load tables")
	}

	placeCache, err := cache.New[*geocode.Place]("reverse_geocode", c.Cache.MaxEntries)
	if err != nil {
		return nil, eris.Wrap(err, "create geocode cache")
	}
	indicatorCache, err := cache.New[[]worldbank.Observation]("worldbank", c.Cache.MaxEntries)
	if err != nil {
		placeCache.Close()
		return nil, eris.Wrap(err, "create indicator cache")
	}

	breakers := resilience.NewServiceBreakers(resilience.FromBreakerConfig(
		c.Breaker.FailureThreshold, c.Breaker.ResetTimeoutSecs,
	))
	ua := c.HTTP.UserAgent

	geoOpts := func(svc config.ServiceConfig, name string) []geocode.Option {
		return []geocode.Option{
			geocode.WithBaseURL(svc.BaseURL),
			geocode.WithTimeout(svc.Timeout()),
			geocode.WithThrottle(resilience.NewThrottle(svc.MinInterval())),
			geocode.WithBreaker(breakers.Get(name)),
			geocode.WithUserAgent(ua),
		}
	}
	nominatim := geocode.NewNominatim(geoOpts(c.Nominatim, "nominatim")...)
	geonames := geocode.NewGeoNames(c.GeoNames.Username, geoOpts(c.GeoNames.ServiceConfig, "geonames")...)
	bigDataCloud := geocode.NewBigDataCloud(geoOpts(c.BigDataCloud, "bigdatacloud")...)
	geocoder := geocode.NewCascade(
		[]geocode.ReverseGeocoder{nominatim, geonames, bigDataCloud},
		geocode.WithCascadeCache(placeCache),
	)

	op := overpass.New(
		overpass.WithEndpoint(c.Overpass.BaseURL),
		overpass.WithTimeout(c.Overpass.Timeout()),
		overpass.WithMaxParallel(c.Overpass.MaxParallel),
		overpass.WithThrottle(resilience.NewThrottle(c.Overpass.MinInterval())),
		overpass.WithBreaker(breakers.Get("overpass")),
		overpass.WithUserAgent(ua),
	)

	wb := worldbank.NewClient(
		worldbank.WithBaseURL(c.WorldBank.BaseURL),
		worldbank.WithTimeout(c.WorldBank.Timeout()),
		worldbank.WithBreaker(breakers.Get("worldbank")),
		worldbank.WithCache(indicatorCache),
	)

	wiki := wikipedia.NewClient(
		wikipedia.WithEndpoint(c.Wikipedia.BaseURL),
		wikipedia.WithTimeout(c.Wikipedia.Timeout()),
		wikipedia.WithThrottle(resilience.NewThrottle(c.Wikipedia.MinInterval())),
		wikipedia.WithBreaker(breakers.Get("wikipedia")),
		wikipedia.WithUserAgent(ua),
	)

	wp := worldpop.NewClient(
		worldpop.WithBaseURL(c.WorldPop.BaseURL),
		worldpop.WithDataset(c.WorldPop.Dataset),
		worldpop.WithTimeout(c.WorldPop.Timeout()),
		worldpop.WithBreaker(breakers.Get("worldpop")),
	)

	incomeOpts := []income.Option{
		income.WithPointThrottle(resilience.NewThrottle(time.Duration(c.Income.PointIntervalMs) * time.Millisecond)),
	}
	if c.Income.Seed != 0 {
		incomeOpts = append(incomeOpts, income.WithSeed(c.Income.Seed))
	}

	env := &scorerEnv{
		Breakers:    breakers,
		Nominatim:   nominatim,
		Geocoder:    geocoder,
		Traffic:     traffic.New(op, geocoder, tbl),
		Market:      market.New(op, geocoder, tbl),
		Population:  population.New(op, wp, tbl, population.WithYear(c.WorldPop.Year)),
		Income:      income.New(geocoder, wb, incomeOpts...),
		Competitors: competitor.New(op),
		Culture:     culture.New(geocoder, wiki),
		IncomeOptions: income.Options{
			Indicator:    c.Income.Indicator,
			StartYear:    c.Income.StartYear,
			EndYear:      c.Income.EndYear,
			SamplePoints: c.Income.SamplePoints,
		},
		placeCache:     placeCache,
		indicatorCache: indicatorCache,
	}
	env.Pipeline = pipeline.New(pipeline.Scorers{
		Traffic:     env.Traffic,
		Market:      env.Market,
		Population:  env.Population,
		Income:      env.Income,
		Competitors: env.Competitors,
		Culture:     env.Culture,
	})

	zap.L().Debug("scorer environment ready",
		zap.String("overpass", c.Overpass.BaseURL),
		zap.String("tables", c.Tables.Path),
	)
	return env, nil
}
