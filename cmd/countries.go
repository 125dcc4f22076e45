package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medcoast/ges-cli/internal/region"
)

var countriesCmd = &cobra.Command{
	Use:   "countries",
	Short: "List the supported countries",
	Run: func(cmd *cobra.Command, args []string) {
		for _, c := range region.Countries {
			fmt.Println(c)
		}
	},
}

func init() {
	rootCmd.AddCommand(countriesCmd)
}
