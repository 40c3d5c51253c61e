package cli

import (
	"github.com/spf13/cobra"

	"botwatch/internal/app"
)

var (
	inspectFile  string
	inspectCoins []string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Normalize a saved deviation payload and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.InspectOptions{
			Path:  inspectFile,
			Coins: inspectCoins,
		}

		return getApp().Inspect(opts)
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFile, "file", "", "Path to a saved deviation payload (required)")
	inspectCmd.Flags().StringSliceVar(&inspectCoins, "coins", nil, "Override the coin allowlist, e.g. BTC,ETH")
	inspectCmd.MarkFlagRequired("file")
}
