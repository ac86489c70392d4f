package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/sells-group/site-scorer/internal/competitor"
	"github.com/sells-group/site-scorer/internal/culture"
	"github.com/sells-group/site-scorer/internal/income"
	"github.com/sells-group/site-scorer/internal/market"
	"github.com/sells-group/site-scorer/internal/model"
	"github.com/sells-group/site-scorer/internal/pipeline"
	"github.com/sells-group/site-scorer/internal/population"
	"github.com/sells-group/site-scorer/internal/traffic"
)

// scoreFunc runs a single scorer for a validated site.
type scoreFunc func(ctx context.Context, site model.Site) (any, error)

// scoreCommand describes one per-scorer subcommand.
type scoreCommand struct {
	use           string
	short         string
	defaultRadius float64
	flags         siteFlags
	build         func(env *scorerEnv) scoreFunc
}

var competitorsFlat bool

var scoreCommands = []*scoreCommand{
	{
		use:           "traffic",
		short:         "Score foot traffic from nearby POIs and roads",
		defaultRadius: traffic.DefaultRadiusKM,
		build:         func(env *scorerEnv) scoreFunc { return trafficScore(env.Traffic) },
	},
	{
		use:           "income",
		short:         "Estimate area income from World Bank indicators",
		defaultRadius: income.DefaultOptions().RadiusKM,
		build: func(env *scorerEnv) scoreFunc {
			return incomeScore(env.Income, env.IncomeOptions)
		},
	},
	{
		use:           "competitors",
		short:         "List existing competitors near the site",
		defaultRadius: model.DefaultRadiusKM,
		build: func(env *scorerEnv) scoreFunc {
			return competitorScore(env.Competitors, competitorsFlat)
		},
	},
	{
		use:           "culture",
		short:         "Score cultural fit of the business type",
		defaultRadius: culture.DefaultRadiusKM,
		build:         func(env *scorerEnv) scoreFunc { return cultureScore(env.Culture) },
	},
	{
		use:           "market",
		short:         "Compute the market factor",
		defaultRadius: market.DefaultRadiusKM,
		build:         func(env *scorerEnv) scoreFunc { return marketScore(env.Market) },
	},
	{
		use:           "population",
		short:         "Compute the population demand multiplier",
		defaultRadius: population.DefaultRadiusKM,
		build:         func(env *scorerEnv) scoreFunc { return populationScore(env.Population) },
	},
}

func (sc *scoreCommand) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:         sc.use,
		Short:       sc.short,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{jsonErrorsAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			site, err := sc.flags.site(nil)
			if err != nil {
				return err
			}

			env, err := initEnv(cfg)
			if err != nil {
				return err
			}
			defer env.Close()

			site, err = sc.flags.resolve(ctx, site, env.Nominatim)
			if err != nil {
				return err
			}
			return runScore(ctx, cmd.OutOrStdout(), site, sc.build(env))
		},
	}
	sc.flags.register(cmd, sc.defaultRadius)
	return cmd
}

// runScore validates site, runs fn and prints its result as JSON.
func runScore(ctx context.Context, w io.Writer, site model.Site, fn scoreFunc) error {
	if err := site.Validate(); err != nil {
		return err
	}
	v, err := fn(ctx, site)
	if err != nil {
		return err
	}
	return printJSON(w, v)
}

func trafficScore(s pipeline.TrafficScorer) scoreFunc {
	return func(ctx context.Context, site model.Site) (any, error) {
		res, err := s.Score(ctx, site.Point(), site.RadiusKM)
		if err != nil {
			return nil, err
		}
		return pipeline.NewTrafficSection(site.Point(), res), nil
	}
}

func incomeScore(e pipeline.IncomeEstimator, opts income.Options) scoreFunc {
	return func(ctx context.Context, site model.Site) (any, error) {
		o := opts
		o.RadiusKM = site.RadiusKM
		return e.Estimate(ctx, site.Point(), o)
	}
}

// competitorFinder is the part of the competitor finder the command uses.
type competitorFinder interface {
	pipeline.CompetitorAnalyzer
	Flat(ctx context.Context, p competitor.Params) ([]competitor.Competitor, error)
}

func competitorScore(f competitorFinder, flat bool) scoreFunc {
	return func(ctx context.Context, site model.Site) (any, error) {
		p := competitor.Params{
			Latitude:      site.Latitude,
			Longitude:     site.Longitude,
			Radius:        site.RadiusM(),
			BusinessTypes: []string{site.BusinessType},
		}
		if flat {
			return f.Flat(ctx, p)
		}
		return f.Analyze(ctx, p)
	}
}

func cultureScore(s pipeline.CultureScorer) scoreFunc {
	return func(ctx context.Context, site model.Site) (any, error) {
		res, err := s.Score(ctx, site.Point(), site.BusinessType, site.RadiusKM)
		if err != nil {
			return nil, err
		}
		return pipeline.NewCultureSection(res), nil
	}
}

func marketScore(s pipeline.MarketScorer) scoreFunc {
	return func(ctx context.Context, site model.Site) (any, error) {
		return s.Score(ctx, site.Point(), site.BusinessType, site.RadiusKM)
	}
}

func populationScore(a pipeline.DemandAnalyzer) scoreFunc {
	return func(ctx context.Context, site model.Site) (any, error) {
		return a.Analyze(ctx, site.Point(), site.BusinessType, site.RadiusKM)
	}
}

func init() {
	for _, sc := range scoreCommands {
		cmd := sc.command()
		if sc.use == "competitors" {
			cmd.Flags().BoolVar(&competitorsFlat, "flat", false, "print the sorted competitor list instead of the summary")
		}
		rootCmd.AddCommand(cmd)
	}
}
