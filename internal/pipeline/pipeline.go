// Package pipeline runs every scorer for one site and assembles the report.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/site-scorer/internal/competitor"
	"github.com/sells-group/site-scorer/internal/culture"
	"github.com/sells-group/site-scorer/internal/geo"
	"github.com/sells-group/site-scorer/internal/income"
	"github.com/sells-group/site-scorer/internal/market"
	"github.com/sells-group/site-scorer/internal/model"
	"github.com/sells-group/site-scorer/internal/population"
	"github.com/sells-group/site-scorer/internal/traffic"
)

// Step names, in run order. They match the report keys.
const (
	StepTraffic     = "Traffic_Score"
	StepMarket      = "Market_Factor"
	StepPopulation  = "Population_Analysis"
	StepIncome      = "Income_Data"
	StepCompetitors = "Existing_Competitors"
	StepCulture     = "Cultural_Fit"
)

// Income sampling used for the combined report.
const (
	incomeStartYear    = 2020
	incomeEndYear      = 2022
	incomeSamplePoints = 5
)

// TrafficScorer scores traffic around a point.
type TrafficScorer interface {
	Score(ctx context.Context, center geo.Point, radiusKM float64) (*traffic.Result, error)
}

// MarketScorer computes the market factor.
type MarketScorer interface {
	Score(ctx context.Context, center geo.Point, businessType string, radiusKM float64) (*market.Result, error)
}

// DemandAnalyzer computes the population/demand multiplier.
type DemandAnalyzer interface {
	Analyze(ctx context.Context, center geo.Point, businessType string, radiusKM float64) (*population.Result, error)
}

// IncomeEstimator estimates area income.
type IncomeEstimator interface {
	Estimate(ctx context.Context, center geo.Point, opts income.Options) (*income.Result, error)
}

// CompetitorAnalyzer summarizes nearby competitors.
type CompetitorAnalyzer interface {
	Analyze(ctx context.Context, p competitor.Params) (*competitor.Summary, error)
}

// CultureScorer scores cultural fit.
type CultureScorer interface {
	Score(ctx context.Context, center geo.Point, businessType string, radiusKM float64) (*culture.Result, error)
}

// Scorers bundles the six scorers. A nil scorer reports an error section.
type Scorers struct {
	Traffic     TrafficScorer
	Market      MarketScorer
	Population  DemandAnalyzer
	Income      IncomeEstimator
	Competitors CompetitorAnalyzer
	Culture     CultureScorer
}

// StepStatus is the outcome of one step.
type StepStatus string

// Step statuses.
const (
	StepStatusComplete StepStatus = "complete"
	StepStatusFailed   StepStatus = "failed"
)

// StepResult records how one step ran.
type StepResult struct {
	Name     string     `json:"name"`
	Status   StepStatus `json:"status"`
	Duration int64      `json:"duration_ms"`
	Error    string     `json:"error,omitempty"`
}

// Pipeline orchestrates the scorers.
type Pipeline struct {
	scorers Scorers
	newID   func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRunID overrides the run id generator.
func WithRunID(f func() string) Option {
	return func(p *Pipeline) {
		if f != nil {
			p.newID = f
		}
	}
}

// New creates a Pipeline.
func New(s Scorers, opts ...Option) *Pipeline {
	p := &Pipeline{scorers: s, newID: uuid.NewString}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run validates site and runs every step in order. A failing or panicking
// step yields an error section under its own key; the other sections are
// unaffected. Only an invalid site returns an error.
func (p *Pipeline) Run(ctx context.Context, site model.Site) (*Report, error) {
	if err := site.Validate(); err != nil {
		return nil, err
	}

	runID := p.newID()
	log := zap.L().With(
		zap.String("run_id", runID),
		zap.Float64("lat", site.Latitude),
		zap.Float64("lon", site.Longitude),
		zap.String("business_type", site.BusinessType),
		zap.Float64("radius_km", site.RadiusKM),
	)
	log.Info("pipeline: starting analysis")

	rep := &Report{RunID: runID, Site: site}
	center := site.Point()

	track := func(name string, fn func(ctx context.Context) (any, error)) (section any) {
		start := time.Now()
		sr := StepResult{Name: name}
		defer func() {
			if r := recover(); r != nil {
				err := eris.Errorf("%s: panic: %v", name, r)
				section = ErrorSection{Error: err.Error()}
				sr.Status = StepStatusFailed
				sr.Error = err.Error()
				log.Error("pipeline: step panicked", zap.String("step", name), zap.Any("panic", r))
			}
			sr.Duration = time.Since(start).Milliseconds()
			rep.Steps = append(rep.Steps, sr)
		}()

		v, err := fn(ctx)
		if err != nil {
			sr.Status = StepStatusFailed
			sr.Error = err.Error()
			log.Error("pipeline: step failed",
				zap.String("step", name),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.Error(err),
			)
			return ErrorSection{Error: err.Error()}
		}
		sr.Status = StepStatusComplete
		log.Info("pipeline: step complete",
			zap.String("step", name),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return v
	}

	rep.Traffic = track(StepTraffic, func(ctx context.Context) (any, error) {
		if p.scorers.Traffic == nil {
			return nil, errNotConfigured(StepTraffic)
		}
		res, err := p.scorers.Traffic.Score(ctx, center, site.RadiusKM)
		if err != nil {
			return nil, err
		}
		return NewTrafficSection(center, res), nil
	})

	// The market factor always looks at the wider commercial area.
	rep.Market = track(StepMarket, func(ctx context.Context) (any, error) {
		if p.scorers.Market == nil {
			return nil, errNotConfigured(StepMarket)
		}
		return p.scorers.Market.Score(ctx, center, site.BusinessType, market.DefaultRadiusKM)
	})

	rep.Population = track(StepPopulation, func(ctx context.Context) (any, error) {
		if p.scorers.Population == nil {
			return nil, errNotConfigured(StepPopulation)
		}
		return p.scorers.Population.Analyze(ctx, center, site.BusinessType, site.RadiusKM)
	})

	rep.Income = track(StepIncome, func(ctx context.Context) (any, error) {
		if p.scorers.Income == nil {
			return nil, errNotConfigured(StepIncome)
		}
		opts := income.DefaultOptions()
		opts.StartYear = incomeStartYear
		opts.EndYear = incomeEndYear
		opts.SamplePoints = incomeSamplePoints
		opts.RadiusKM = site.RadiusKM
		res, err := p.scorers.Income.Estimate(ctx, center, opts)
		if err != nil {
			return nil, err
		}
		return IncomeSection{Data: res.Records}, nil
	})

	rep.Competitors = track(StepCompetitors, func(ctx context.Context) (any, error) {
		if p.scorers.Competitors == nil {
			return nil, errNotConfigured(StepCompetitors)
		}
		summary, err := p.scorers.Competitors.Analyze(ctx, competitor.Params{
			Latitude:      site.Latitude,
			Longitude:     site.Longitude,
			Radius:        site.RadiusM(),
			BusinessTypes: []string{site.BusinessType},
		})
		if err != nil {
			return nil, err
		}
		return CompetitorSection{Data: summary}, nil
	})

	rep.Culture = track(StepCulture, func(ctx context.Context) (any, error) {
		if p.scorers.Culture == nil {
			return nil, errNotConfigured(StepCulture)
		}
		res, err := p.scorers.Culture.Score(ctx, center, site.BusinessType, site.RadiusKM)
		if err != nil {
			return nil, err
		}
		return NewCultureSection(res), nil
	})

	log.Info("pipeline: analysis complete",
		zap.Strings("failed_steps", rep.Failed()),
	)
	return rep, nil
}

func errNotConfigured(step string) error {
	return eris.Errorf("%s: scorer not configured", step)
}
