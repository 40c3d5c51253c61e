package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"botwatch/internal/app"
)

var (
	showBotID     string
	showTimeRange string
	showCoin      string
	showLimit     int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the current deviation table for a bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			BotID:      showBotID,
			TimeRange:  showTimeRange,
			FilterCoin: showCoin,
			Limit:      showLimit,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().StringVar(&showBotID, "bot", "", "Bot identifier (required)")
	showCmd.Flags().StringVar(&showTimeRange, "time-range", "24h", "Deviation history window requested from the backend")
	showCmd.Flags().StringVar(&showCoin, "coin", "", "Only show pairs whose base coin matches")
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of pairs to display")
	showCmd.MarkFlagRequired("bot")
}
