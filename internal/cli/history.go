package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"botwatch/internal/app"
)

var (
	historyBotID string
	historyCoins []string
	historyFrom  string
	historyTo    string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Display backend price samples per coin",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.HistoryOptions{
			BotID: historyBotID,
			Coins: historyCoins,
		}

		if historyFrom != "" {
			from, err := time.Parse(time.RFC3339, historyFrom)
			if err != nil {
				return fmt.Errorf("invalid --from value: %w", err)
			}
			opts.From = from
		}

		if historyTo != "" {
			to, err := time.Parse(time.RFC3339, historyTo)
			if err != nil {
				return fmt.Errorf("invalid --to value: %w", err)
			}
			opts.To = to
		}

		return getApp().History(cmd.Context(), opts)
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyBotID, "bot", "", "Bot identifier (required)")
	historyCmd.Flags().StringSliceVar(&historyCoins, "coins", nil, "Limit to specific coins, e.g. BTC,ETH")
	historyCmd.Flags().StringVar(&historyFrom, "from", "", "Start timestamp (RFC3339, inclusive)")
	historyCmd.Flags().StringVar(&historyTo, "to", "", "End timestamp (RFC3339, exclusive)")
	historyCmd.MarkFlagRequired("bot")
}
