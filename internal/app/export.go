package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"botwatch/internal/analytics"
	"botwatch/internal/api"
)

// Export renders a bot's deviation time series as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.BotID == "" {
		return errors.New("bot id is required")
	}
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	ctx, cancel := a.fetchTimeout(ctx)
	defer cancel()

	client := a.newClient()

	coins, err := client.FetchCoins(ctx, opts.BotID)
	if err != nil || len(coins) == 0 {
		coins = analytics.FallbackCoins
	}

	raw, err := client.FetchDeviations(ctx, opts.BotID, api.DeviationQuery{TimeRange: opts.TimeRange})
	if err != nil {
		return err
	}

	set, err := analytics.Normalize(raw, coins)
	if err != nil {
		return fmt.Errorf("normalize payload: %w", err)
	}

	series := selectSeries(set.TimeSeries, opts.Pair)
	if len(series) == 0 {
		a.Logger.Info().Msg("no time series found for export")
		return nil
	}

	total := 0
	for pair, points := range series {
		series[pair] = downsamplePoints(points, opts.MaxPoints)
		total += len(series[pair])
	}
	a.Logger.Info().Int("series", len(series)).Int("points", total).Msg("exporting deviation history")

	if opts.CSVPath != "" {
		if err := writeSeriesCSV(opts.CSVPath, series); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeSeriesPNG(opts.PNGPath, series); err != nil {
			return err
		}
	}

	return nil
}

func selectSeries(all map[string][]analytics.TimeSeriesPoint, pair string) map[string][]analytics.TimeSeriesPoint {
	if pair == "" {
		return all
	}
	if points, ok := all[pair]; ok {
		return map[string][]analytics.TimeSeriesPoint{pair: points}
	}
	return nil
}

func downsamplePoints(points []analytics.TimeSeriesPoint, max int) []analytics.TimeSeriesPoint {
	if max <= 0 || len(points) <= max {
		return points
	}

	result := make([]analytics.TimeSeriesPoint, 0, max)
	step := float64(len(points)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(points) {
			idx = len(points) - 1
		}
		result = append(result, points[idx])
	}
	return result
}

func sortedPairs(series map[string][]analytics.TimeSeriesPoint) []string {
	pairs := make([]string, 0, len(series))
	for pair := range series {
		pairs = append(pairs, pair)
	}
	sort.Strings(pairs)
	return pairs
}

func writeSeriesCSV(path string, series map[string][]analytics.TimeSeriesPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"timestamp", "pair", "base_price", "target_price", "deviation_pct"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, pair := range sortedPairs(series) {
		for _, p := range series[pair] {
			record := []string{
				p.Timestamp,
				p.PairKey,
				analytics.FormatPrice(p.BasePrice),
				analytics.FormatPrice(p.TargetPrice),
				analytics.FormatPercent(p.DeviationPercent),
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}

	return writer.Error()
}

func writeSeriesPNG(path string, series map[string][]analytics.TimeSeriesPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	var chartSeries []chart.Series
	for _, pair := range sortedPairs(series) {
		var x []time.Time
		var y []float64
		for _, p := range series[pair] {
			ts, err := time.Parse(time.RFC3339, p.Timestamp)
			if err != nil {
				continue
			}
			x = append(x, ts)
			y = append(y, p.DeviationPercent)
		}
		if len(x) == 0 {
			continue
		}
		chartSeries = append(chartSeries, chart.TimeSeries{
			Name:    pair,
			XValues: x,
			YValues: y,
		})
	}
	if len(chartSeries) == 0 {
		return errors.New("no plottable points in selected series")
	}

	pctFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Deviation (%)",
			ValueFormatter: pctFormatter,
		},
		Series: chartSeries,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
