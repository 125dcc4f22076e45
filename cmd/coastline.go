package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medcoast/ges-cli/internal/coastline"
)

var coastlineOut string

var coastlineCmd = &cobra.Command{
	Use:   "coastline <shapefile>",
	Short: "Convert a coastline shapefile to the GeoJSON asset format",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := coastline.ConvertFile(args[0], coastlineOut)
		if err != nil {
			return err
		}
		fmt.Printf("wrote %d features to %s\n", n, coastlineOut)
		return nil
	},
}

func init() {
	coastlineCmd.Flags().StringVar(&coastlineOut, "out", "coastlines.geojson", "output GeoJSON path")
	rootCmd.AddCommand(coastlineCmd)
}
