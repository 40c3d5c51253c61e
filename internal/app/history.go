package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"botwatch/internal/analytics"
)

// HistoryOptions configure the history command.
type HistoryOptions struct {
	BotID string
	Coins []string
	From  time.Time
	To    time.Time
}

// History prints recent backend price samples per coin. Coins whose history
// endpoint fails are omitted rather than failing the whole command.
func (a *App) History(ctx context.Context, opts HistoryOptions) error {
	if opts.BotID == "" {
		return errors.New("bot id is required")
	}

	ctx, cancel := a.fetchTimeout(ctx)
	defer cancel()

	client := a.newClient()

	coins := opts.Coins
	if len(coins) == 0 {
		fetched, err := client.FetchCoins(ctx, opts.BotID)
		if err != nil || len(fetched) == 0 {
			if err != nil {
				a.Logger.Warn().Err(err).Msg("coin allowlist unavailable, using fallback")
			}
			fetched = analytics.FallbackCoins
		}
		coins = fetched
	}

	series := client.FetchPriceHistories(ctx, opts.BotID, coins, opts.From, opts.To)
	if len(series) == 0 {
		fmt.Fprintln(os.Stdout, "no price history available")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Coin\tTimestamp\tPrice")
	for _, coin := range sortedPairs(series) {
		for _, p := range series[coin] {
			fmt.Fprintf(writer, "%s\t%s\t%s\n", coin, p.Timestamp, analytics.FormatPrice(p.BasePrice))
		}
	}
	writer.Flush()

	fmt.Fprintf(os.Stdout, "\n%d of %d coins returned history\n", len(series), len(coins))
	return nil
}
