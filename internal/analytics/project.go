package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ChartSeries is one line of a chart.
type ChartSeries struct {
	Label  string    `json:"label"`
	Points []float64 `json:"points"`
}

// ChartData feeds a line-chart widget.
type ChartData struct {
	Labels []string      `json:"labels"`
	Series []ChartSeries `json:"series"`
}

// TableRow is one formatted row of the deviation table.
type TableRow struct {
	PairKey     string `json:"pairKey"`
	BaseCoin    string `json:"baseCoin"`
	TargetCoin  string `json:"targetCoin"`
	BasePrice   string `json:"basePrice"`
	TargetPrice string `json:"targetPrice"`
	Deviation   string `json:"deviation"`
	Direction   string `json:"direction"`
}

// Direction glyphs derived from the sign of the deviation; positive means
// the base is outperforming the target.
const (
	DirectionUp   = "▲"
	DirectionDown = "▼"
	DirectionFlat = "–"
)

// HeatmapCell assigns a pair to a deviation-magnitude tier.
type HeatmapCell struct {
	PairKey string `json:"pairKey"`
	Bucket  string `json:"bucket"`
}

// HeatmapBuckets is the fixed total order of deviation tiers rendered by the
// heatmap widget.
var HeatmapBuckets = []string{
	">10%",
	"5-10%",
	"2-5%",
	"0-2%",
	"0 to -2%",
	"-2 to -5%",
	"-5 to -10%",
	"<-10%",
	"unknown",
}

const chartTimeLayout = "Jan 02 15:04"

// ToTimeSeries projects the time-series index into chart shape. With a
// selected pair only that line is produced; otherwise every pair becomes a
// line, ordered by pair key. Labels are taken from the longest series and
// formatted here; the normalizer keeps raw ISO timestamps.
func ToTimeSeries(series map[string][]TimeSeriesPoint, selectedPair string) ChartData {
	pairs := make([]string, 0, len(series))
	for pair := range series {
		if selectedPair != "" && pair != selectedPair {
			continue
		}
		pairs = append(pairs, pair)
	}
	sort.Strings(pairs)

	out := ChartData{Labels: []string{}, Series: []ChartSeries{}}
	var longest []TimeSeriesPoint
	for _, pair := range pairs {
		points := series[pair]
		values := make([]float64, len(points))
		for i, p := range points {
			values[i] = p.DeviationPercent
		}
		out.Series = append(out.Series, ChartSeries{Label: pair, Points: values})
		if len(points) > len(longest) {
			longest = points
		}
	}

	for _, p := range longest {
		out.Labels = append(out.Labels, formatChartLabel(p.Timestamp))
	}
	return out
}

func formatChartLabel(iso string) string {
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return iso
	}
	return t.UTC().Format(chartTimeLayout)
}

// ToTable formats one page of records for rendering. Prices carry 4 decimals,
// or 6 below one unit to keep small-cap quotes readable; percentages carry 2.
func ToTable(pageItems []DeviationRecord) []TableRow {
	rows := make([]TableRow, 0, len(pageItems))
	for _, rec := range pageItems {
		rows = append(rows, TableRow{
			PairKey:     rec.PairKey,
			BaseCoin:    rec.BaseCoin,
			TargetCoin:  rec.TargetCoin,
			BasePrice:   FormatPrice(rec.BasePrice),
			TargetPrice: FormatPrice(rec.TargetPrice),
			Deviation:   FormatPercent(rec.DeviationPercent),
			Direction:   direction(rec.DeviationPercent),
		})
	}
	return rows
}

// FormatPrice renders a currency value with magnitude-dependent precision.
func FormatPrice(v float64) string {
	d := decimal.NewFromFloat(v)
	if d.Abs().LessThan(decimal.NewFromInt(1)) && !d.IsZero() {
		return d.StringFixed(6)
	}
	return d.StringFixed(4)
}

// FormatPercent renders a deviation percentage to two decimal places.
func FormatPercent(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2) + "%"
}

func direction(deviation float64) string {
	switch {
	case deviation > 0:
		return DirectionUp
	case deviation < 0:
		return DirectionDown
	default:
		return DirectionFlat
	}
}

// ToHeatmap assigns every record to its deviation tier, in record order.
func ToHeatmap(records []DeviationRecord) []HeatmapCell {
	cells := make([]HeatmapCell, 0, len(records))
	for _, rec := range records {
		cells = append(cells, HeatmapCell{PairKey: rec.PairKey, Bucket: Bucket(rec.DeviationPercent)})
	}
	return cells
}

// Bucket maps a deviation percent onto the fixed tier order.
func Bucket(deviation float64) string {
	switch {
	case math.IsNaN(deviation) || math.IsInf(deviation, 0):
		return "unknown"
	case deviation > 10:
		return ">10%"
	case deviation > 5:
		return "5-10%"
	case deviation > 2:
		return "2-5%"
	case deviation >= 0:
		return "0-2%"
	case deviation >= -2:
		return "0 to -2%"
	case deviation >= -5:
		return "-2 to -5%"
	case deviation >= -10:
		return "-5 to -10%"
	default:
		return "<-10%"
	}
}
