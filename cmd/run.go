package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medcoast/ges-cli/internal/chart"
	"github.com/medcoast/ges-cli/internal/export"
	"github.com/medcoast/ges-cli/internal/ges"
)

var (
	runCountry   string
	runStartYear int
	runEndYear   int
	runBufferKM  int
	runChartPath string
	runNoExport  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a coastal change analysis for one country",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		params := ges.Params{
			Country:   runCountry,
			StartYear: runStartYear,
			EndYear:   runEndYear,
			BufferKM:  runBufferKM,
		}
		if err := params.Validate(); err != nil {
			return err
		}

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		strip, err := env.Resolver.CoastalStrip(params.Country, params.BufferKM)
		if err != nil {
			return err
		}

		zap.L().Info("computing change index",
			zap.String("country", params.Country),
			zap.Int("start_year", params.StartYear),
			zap.Int("end_year", params.EndYear),
			zap.Int("buffer_km", params.BufferKM),
		)

		change, err := env.Pipeline.Run(ctx, strip.Analysis, params.StartYear, params.EndYear)
		if err != nil {
			return err
		}

		counts, err := env.Pipeline.ClassCounts(ctx, change.Diff)
		if err != nil {
			return err
		}

		fmt.Printf("GES change, %s %d-%d (%d km coastal strip)\n",
			params.Country, params.StartYear, params.EndYear, params.BufferKM)
		total := counts.Total()
		for _, cc := range counts {
			pct := 0.0
			if total > 0 {
				pct = 100 * float64(cc.Count) / float64(total)
			}
			fmt.Printf("  %-22s %12d  %5.1f%%\n", cc.Class.Label, cc.Count, pct)
		}
		fmt.Printf("  %-22s %12d\n", "total", total)

		if runChartPath != "" {
			png, err := chart.Render(counts, params.Country, params.StartYear, params.EndYear)
			if err != nil {
				return err
			}
			if err := os.WriteFile(runChartPath, png, 0o644); err != nil {
				return err
			}
			fmt.Printf("chart written to %s\n", runChartPath)
		}

		if !runNoExport {
			results := env.Exporter.Run(ctx, change, strip.Analysis)
			for _, r := range results {
				if r.Err != nil {
					fmt.Printf("export %s failed: %v\n", r.Name, r.Err)
				} else {
					fmt.Printf("exported %s\n", r.Path)
				}
			}
			if export.Failed(results) {
				zap.L().Warn("some exports failed")
			}
		}

		if env.History != nil {
			if rec, err := env.History.Save(ctx, params, counts); err != nil {
				zap.L().Warn("record run history", zap.Error(err))
			} else {
				zap.L().Info("run recorded", zap.String("id", rec.ID))
			}
		}

		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runCountry, "country", "", "country to analyze (see 'countries')")
	runCmd.Flags().IntVar(&runStartYear, "first", 2002, "first year of the comparison")
	runCmd.Flags().IntVar(&runEndYear, "last", 2022, "last year of the comparison")
	runCmd.Flags().IntVar(&runBufferKM, "buffer", 5, "coastal buffer distance in km")
	runCmd.Flags().StringVar(&runChartPath, "chart", "ges-chart.png", "bar chart output path (empty to skip)")
	runCmd.Flags().BoolVar(&runNoExport, "no-export", false, "skip GeoTIFF exports")
	runCmd.MarkFlagRequired("country") //nolint:errcheck
	rootCmd.AddCommand(runCmd)
}
