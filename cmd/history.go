package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/medcoast/ges-cli/internal/history"
)

var (
	historyCountry string
	historyLimit   int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded analysis runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.History.Path == "" {
			return eris.New("history path not configured")
		}
		store, err := history.NewSQLite(cfg.History.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return err
		}

		runs, err := store.List(ctx, history.Filter{
			Country: historyCountry,
			Limit:   historyLimit,
		})
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("no recorded runs")
			return nil
		}

		for _, r := range runs {
			fmt.Printf("%s  %s  %-12s %d-%d  %2d km  %d px\n",
				r.CreatedAt.Format("2006-01-02 15:04"),
				r.ID[:8],
				r.Params.Country,
				r.Params.StartYear, r.Params.EndYear,
				r.Params.BufferKM,
				r.Total,
			)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyCountry, "country", "", "filter by country")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum rows")
	rootCmd.AddCommand(historyCmd)
}
