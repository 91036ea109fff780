package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/air-quality-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "air-quality-cli",
	Short: "Per-city air quality, emissions and TRI facility analysis",
	Long: `Aggregates PM2.5 (OpenAQ, with cached and static fallbacks), CO2 emissions and
counts of Toxic Release Inventory facilities within Census place boundaries for a
fixed list of cities, then writes a CSV, a GeoJSON file and a Leaflet heat map.

Missing optional inputs under data/ are skipped; the run still completes.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		applyFlagOverrides(cmd, c)
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		report, err := newPipeline(cfg).Run(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Completed run %s, see %s/ folder.\n", report.RunID, cfg.Output.Dir)
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	f := rootCmd.Flags()
	f.String("data-dir", "", "directory holding the optional input files (overrides data.dir)")
	f.String("output-dir", "", "directory for exported artifacts (overrides output.dir)")
	f.Int("year", 0, "emissions year averaged into co2 (overrides analysis.year)")
	f.String("metrics-textfile", "", "write Prometheus run metrics to this file (overrides metrics.textfile)")
}

func applyFlagOverrides(cmd *cobra.Command, c *config.Config) {
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		c.Data.Dir = v
	}
	if v, _ := cmd.Flags().GetString("output-dir"); v != "" {
		c.Output.Dir = v
	}
	if v, _ := cmd.Flags().GetInt("year"); v != 0 {
		c.Analysis.Year = v
	}
	if v, _ := cmd.Flags().GetString("metrics-textfile"); v != "" {
		c.Metrics.Textfile = v
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, eris.ToString(err, true))
		os.Exit(1)
	}
}
