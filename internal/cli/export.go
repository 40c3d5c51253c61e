package cli

import (
	"github.com/spf13/cobra"

	"botwatch/internal/app"
)

var (
	exportBotID     string
	exportPair      string
	exportTimeRange string
	exportPNGPath   string
	exportCSVPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export deviation history as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			BotID:     exportBotID,
			Pair:      exportPair,
			TimeRange: exportTimeRange,
			PNGPath:   exportPNGPath,
			CSVPath:   exportCSVPath,
			MaxPoints: exportMaxPoints,
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportBotID, "bot", "", "Bot identifier (required)")
	exportCmd.Flags().StringVar(&exportPair, "pair", "", "Limit export to one pair key, e.g. BTC/USDT")
	exportCmd.Flags().StringVar(&exportTimeRange, "time-range", "24h", "Deviation history window requested from the backend")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum data points per series (defaults to config)")
	exportCmd.MarkFlagRequired("bot")
}
