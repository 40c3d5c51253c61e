package analytics

import (
	"math"
	"reflect"
	"testing"
)

func TestBucketBoundaries(t *testing.T) {
	cases := []struct {
		deviation float64
		want      string
	}{
		{12.0, ">10%"},
		{10.0, "5-10%"},
		{5.0, "2-5%"},
		{2.0, "0-2%"},
		{0.0, "0-2%"},
		{-0.5, "0 to -2%"},
		{-2.0, "0 to -2%"},
		{-3.0, "-2 to -5%"},
		{-5.0, "-2 to -5%"},
		{-7.0, "-5 to -10%"},
		{-10.0, "-5 to -10%"},
		{-10.5, "<-10%"},
		{math.NaN(), "unknown"},
	}
	for _, tc := range cases {
		if got := Bucket(tc.deviation); got != tc.want {
			t.Errorf("Bucket(%v) = %q, want %q", tc.deviation, got, tc.want)
		}
	}
}

func TestHeatmapBucketOrder(t *testing.T) {
	want := []string{">10%", "5-10%", "2-5%", "0-2%", "0 to -2%", "-2 to -5%", "-5 to -10%", "<-10%", "unknown"}
	if !reflect.DeepEqual(HeatmapBuckets, want) {
		t.Fatalf("bucket order changed: %v", HeatmapBuckets)
	}
}

func TestToHeatmapKeepsRecordOrder(t *testing.T) {
	records := []DeviationRecord{
		{PairKey: "BTC/ETH", DeviationPercent: 11},
		{PairKey: "ETH/USDT", DeviationPercent: -1},
	}
	cells := ToHeatmap(records)
	if len(cells) != 2 || cells[0].PairKey != "BTC/ETH" || cells[1].PairKey != "ETH/USDT" {
		t.Fatalf("heatmap cells out of order: %+v", cells)
	}
	if cells[0].Bucket != ">10%" || cells[1].Bucket != "0 to -2%" {
		t.Fatalf("wrong buckets: %+v", cells)
	}
}

func TestToTableFormatting(t *testing.T) {
	rows := ToTable([]DeviationRecord{
		{PairKey: "BTC/ETH", BaseCoin: "BTC", TargetCoin: "ETH", BasePrice: 60123.456789, TargetPrice: 0.000123456, DeviationPercent: 3.456},
		{PairKey: "ETH/USDT", BaseCoin: "ETH", TargetCoin: "USDT", DeviationPercent: -1.2},
		{PairKey: "USDT/BTC", BaseCoin: "USDT", TargetCoin: "BTC"},
	})

	if rows[0].BasePrice != "60123.4568" {
		t.Errorf("large price = %q, want 4 decimals", rows[0].BasePrice)
	}
	if rows[0].TargetPrice != "0.000123" {
		t.Errorf("sub-unit price = %q, want 6 decimals", rows[0].TargetPrice)
	}
	if rows[0].Deviation != "3.46%" {
		t.Errorf("percent = %q, want 2 decimals", rows[0].Deviation)
	}

	if rows[0].Direction != DirectionUp || rows[1].Direction != DirectionDown || rows[2].Direction != DirectionFlat {
		t.Errorf("direction glyphs wrong: %q %q %q", rows[0].Direction, rows[1].Direction, rows[2].Direction)
	}
}

func TestToTimeSeriesSelectedPair(t *testing.T) {
	series := map[string][]TimeSeriesPoint{
		"BTC/ETH": {
			{Timestamp: "2026-08-20T10:00:00Z", PairKey: "BTC/ETH", DeviationPercent: 1.0},
			{Timestamp: "2026-08-20T10:05:00Z", PairKey: "BTC/ETH", DeviationPercent: 1.5},
		},
		"ETH/USDT": {
			{Timestamp: "2026-08-20T10:00:00Z", PairKey: "ETH/USDT", DeviationPercent: -0.5},
		},
	}

	single := ToTimeSeries(series, "BTC/ETH")
	if len(single.Series) != 1 || single.Series[0].Label != "BTC/ETH" {
		t.Fatalf("selected pair should yield one series: %+v", single.Series)
	}
	if !reflect.DeepEqual(single.Series[0].Points, []float64{1.0, 1.5}) {
		t.Errorf("points = %v", single.Series[0].Points)
	}
	if len(single.Labels) != 2 || single.Labels[0] != "Aug 20 10:00" {
		t.Errorf("labels = %v", single.Labels)
	}

	all := ToTimeSeries(series, "")
	if len(all.Series) != 2 {
		t.Fatalf("unset pair should yield every series, got %d", len(all.Series))
	}
	if all.Series[0].Label != "BTC/ETH" || all.Series[1].Label != "ETH/USDT" {
		t.Errorf("series not ordered by pair key: %+v", all.Series)
	}
	// Labels come from the longest series.
	if len(all.Labels) != 2 {
		t.Errorf("labels should follow the longest series: %v", all.Labels)
	}
}

func TestToTimeSeriesUnparseableTimestamp(t *testing.T) {
	series := map[string][]TimeSeriesPoint{
		"BTC/ETH": {{Timestamp: "not-a-time", PairKey: "BTC/ETH"}},
	}
	data := ToTimeSeries(series, "")
	if data.Labels[0] != "not-a-time" {
		t.Errorf("unparseable timestamps pass through raw, got %q", data.Labels[0])
	}
}
