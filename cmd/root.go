package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/site-scorer/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "site-scorer",
	Short: "Business site quality scoring",
	Long:  "Scores a candidate business location on traffic, market friction, demand, income, existing competitors and cultural fit using open data services.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(); err != nil {
			return err
		}

		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

// jsonErrorsAnnotation marks commands whose failures are reported as a JSON
// object on stdout with exit status 0.
const jsonErrorsAnnotation = "json-errors"

func main() {
	cmd, err := rootCmd.ExecuteC()
	if err == nil {
		return
	}
	if cmd != nil && cmd.Annotations[jsonErrorsAnnotation] == "true" {
		writeError(os.Stdout, err)
		return
	}
	os.Exit(1)
}
