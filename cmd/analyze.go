package main

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/site-scorer/internal/model"
	"github.com/sells-group/site-scorer/internal/pipeline"
)

const (
	formatJSON = "json"
	formatText = "text"
)

// analyzer runs the combined analysis for one site.
type analyzer interface {
	Run(ctx context.Context, site model.Site) (*pipeline.Report, error)
}

var (
	analyzeSite   siteFlags
	analyzeFormat string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [LAT LON TYPE RADIUS]",
	Short: "Run every scorer for one site and print the combined report",
	Long: "Runs the traffic, market, population, income, competitor and cultural-fit " +
		"scorers for one site. The location comes from --lat/--lon, --place, or the " +
		"positional arguments. Failures are printed as {\"error\": ...} on stdout.",
	Args:        siteArgs,
	Annotations: map[string]string{jsonErrorsAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		site, err := analyzeSite.site(args)
		if err != nil {
			return err
		}

		env, err := initEnv(cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		site, err = analyzeSite.resolve(ctx, site, env.Nominatim)
		if err != nil {
			return err
		}

		return runAnalyze(ctx, cmd.OutOrStdout(), env.Pipeline, site, analyzeFormat)
	},
}

// runAnalyze runs a and writes the report to w in the requested format.
func runAnalyze(ctx context.Context, w io.Writer, a analyzer, site model.Site, format string) error {
	if format != formatJSON && format != formatText {
		return eris.Errorf("unknown format %q (want json or text)", format)
	}

	rep, err := a.Run(ctx, site)
	if err != nil {
		return err
	}

	if format == formatText {
		_, err := io.WriteString(w, pipeline.FormatReport(rep))
		return eris.Wrap(err, "write report")
	}
	return printJSON(w, rep)
}

func init() {
	analyzeSite.register(analyzeCmd, model.DefaultRadiusKM)
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", formatJSON, "output format: json or text")
	rootCmd.AddCommand(analyzeCmd)
}
