package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"botwatch/internal/analytics"
)

// Inspect runs the normalization pipeline over a saved payload file, without
// touching the live backend. Useful for debugging odd backend responses.
func (a *App) Inspect(opts InspectOptions) error {
	if opts.Path == "" {
		return errors.New("payload file path is required")
	}

	data, err := os.ReadFile(opts.Path)
	if err != nil {
		return err
	}

	var raw analytics.RawDeviationResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse payload: %w", err)
	}

	coins := opts.Coins
	if len(coins) == 0 {
		coins = raw.Coins
	}
	if len(coins) == 0 {
		coins = analytics.FallbackCoins
	}

	set, err := analytics.Normalize(&raw, coins)
	if errors.Is(err, analytics.ErrMalformedPayload) {
		fmt.Fprintln(os.Stdout, "payload failed structural validation; a dashboard would render the empty state")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "allowlist: %v\n", coins)
	fmt.Fprintf(os.Stdout, "records: %d, series: %d\n\n", len(set.Records), len(set.TimeSeries))

	if len(set.Records) == 0 {
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Pair\tDeviation\tBucket\tDir")
	rows := analytics.ToTable(set.Records)
	for i, row := range rows {
		bucket := analytics.Bucket(set.Records[i].DeviationPercent)
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", row.PairKey, row.Deviation, bucket, row.Direction)
	}
	writer.Flush()
	return nil
}
