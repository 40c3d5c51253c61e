package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"botwatch/internal/analytics"
	"botwatch/internal/api"
)

// Show prints the current deviation table for one bot.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	if opts.BotID == "" {
		return errors.New("bot id is required")
	}

	ctx, cancel := a.fetchTimeout(ctx)
	defer cancel()

	client := a.newClient()

	coins, err := client.FetchCoins(ctx, opts.BotID)
	if err != nil || len(coins) == 0 {
		if err != nil {
			a.Logger.Warn().Err(err).Msg("coin allowlist unavailable, using fallback")
		}
		coins = analytics.FallbackCoins
	}

	raw, err := client.FetchDeviations(ctx, opts.BotID, api.DeviationQuery{
		TimeRange: opts.TimeRange,
		BaseCoin:  opts.FilterCoin,
	})
	if err != nil {
		return err
	}

	set, err := analytics.Normalize(raw, coins)
	if errors.Is(err, analytics.ErrMalformedPayload) {
		fmt.Fprintln(os.Stdout, "no deviation data available")
		return nil
	}
	if err != nil {
		return err
	}
	if len(set.Records) == 0 {
		fmt.Fprintln(os.Stdout, "no deviation data available")
		return nil
	}

	req := analytics.DefaultPageRequest(opts.Limit)
	req.FilterCoin = opts.FilterCoin
	page := analytics.Paginate(set.Records, req, raw.ServerMeta(), analytics.DeviationColumns())

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Pair\tBase\tTarget\tBase Price\tTarget Price\tDeviation\tDir")
	for _, row := range analytics.ToTable(page.Items) {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			row.PairKey,
			row.BaseCoin,
			row.TargetCoin,
			row.BasePrice,
			row.TargetPrice,
			row.Deviation,
			row.Direction,
		)
	}
	writer.Flush()

	fmt.Fprintf(os.Stdout, "\n%d of %d pairs shown, %d tracked series\n",
		len(page.Items), page.TotalItems, len(set.TimeSeries))
	return nil
}
