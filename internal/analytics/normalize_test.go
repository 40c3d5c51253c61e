package analytics

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
)

func rawEntry(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal entry: %v", err)
	}
	return b
}

func TestNormalizeSingleRecord(t *testing.T) {
	raw := &RawDeviationResponse{
		Success: true,
		Coins:   []string{"BTC", "ETH"},
		LatestDeviations: map[string]json.RawMessage{
			"BTC": rawEntry(t, map[string]any{
				"ETH": 3.5,
				"prices": map[string]any{
					"ETH": map[string]float64{"basePrice": 60000, "targetPrice": 3000},
				},
			}),
		},
	}

	set, err := Normalize(raw, []string{"BTC", "ETH"})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if len(set.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(set.Records))
	}

	rec := set.Records[0]
	if rec.PairKey != "BTC/ETH" {
		t.Errorf("pairKey = %q, want BTC/ETH", rec.PairKey)
	}
	if rec.DeviationPercent != 3.5 {
		t.Errorf("deviationPercent = %v, want 3.5", rec.DeviationPercent)
	}
	if rec.BasePrice != 60000 || rec.TargetPrice != 3000 {
		t.Errorf("prices = %v/%v, want 60000/3000", rec.BasePrice, rec.TargetPrice)
	}
}

func TestNormalizeDropsUnlistedCoins(t *testing.T) {
	raw := &RawDeviationResponse{
		Success: true,
		LatestDeviations: map[string]json.RawMessage{
			"BTC": rawEntry(t, map[string]any{"ETH": 3.5}),
		},
	}

	set, err := Normalize(raw, []string{"BTC"})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if len(set.Records) != 0 {
		t.Fatalf("expected 0 records when target is not allowlisted, got %d", len(set.Records))
	}
}

func TestNormalizeMalformedPayload(t *testing.T) {
	for name, raw := range map[string]*RawDeviationResponse{
		"success false": {Success: false, LatestDeviations: map[string]json.RawMessage{}},
		"missing keys":  {Success: true},
		"nil response":  nil,
	} {
		set, err := Normalize(raw, []string{"BTC", "ETH"})
		if !errors.Is(err, ErrMalformedPayload) {
			t.Errorf("%s: error = %v, want ErrMalformedPayload", name, err)
		}
		if len(set.Records) != 0 || len(set.TimeSeries) != 0 {
			t.Errorf("%s: expected empty result set", name)
		}
	}
}

func TestNormalizeSkipsNullAndSelfPairs(t *testing.T) {
	raw := &RawDeviationResponse{
		Success: true,
		LatestDeviations: map[string]json.RawMessage{
			"BTC": rawEntry(t, map[string]any{
				"BTC":  1.0,
				"ETH":  nil,
				"USDT": 2.0,
			}),
		},
	}

	set, err := Normalize(raw, []string{"BTC", "ETH", "USDT"})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if len(set.Records) != 1 || set.Records[0].PairKey != "BTC/USDT" {
		t.Fatalf("expected only BTC/USDT, got %+v", set.Records)
	}
	for _, rec := range set.Records {
		if rec.BaseCoin == rec.TargetCoin {
			t.Errorf("record %s pairs a coin with itself", rec.PairKey)
		}
	}
}

func TestNormalizePricesDefaultToZero(t *testing.T) {
	raw := &RawDeviationResponse{
		Success: true,
		LatestDeviations: map[string]json.RawMessage{
			"BTC": rawEntry(t, map[string]any{"ETH": -1.2}),
		},
	}

	set, err := Normalize(raw, []string{"BTC", "ETH"})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	rec := set.Records[0]
	if rec.BasePrice != 0 || rec.TargetPrice != 0 {
		t.Fatalf("missing prices should default to 0, got %v/%v", rec.BasePrice, rec.TargetPrice)
	}
}

func TestNormalizeSnapshots(t *testing.T) {
	raw := &RawDeviationResponse{
		Success: true,
		LatestDeviations: map[string]json.RawMessage{
			"BTC": rawEntry(t, map[string]any{
				"ETH":          2.0,
				"baseSnapshot": map[string]any{"initialPrice": 50000.0, "unitsHeld": 0.5, "snapshotTimestamp": "2026-08-01T00:00:00Z"},
				"targetSnapshot": map[string]any{
					"ETH": map[string]any{"initialPrice": 2800.0, "unitsHeld": 4.0, "snapshotTimestamp": "2026-08-01T00:00:00Z"},
				},
			}),
		},
	}

	set, err := Normalize(raw, []string{"BTC", "ETH"})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	rec := set.Records[0]
	if rec.BaseSnapshot == nil || rec.BaseSnapshot.InitialPrice != 50000 {
		t.Errorf("base snapshot not carried: %+v", rec.BaseSnapshot)
	}
	if rec.TargetSnapshot == nil || rec.TargetSnapshot.UnitsHeld != 4 {
		t.Errorf("target snapshot not carried: %+v", rec.TargetSnapshot)
	}
}

func TestNormalizeSortedByAbsDeviation(t *testing.T) {
	raw := &RawDeviationResponse{
		Success: true,
		LatestDeviations: map[string]json.RawMessage{
			"BTC": rawEntry(t, map[string]any{"ETH": -8.0, "USDT": 1.0}),
			"ETH": rawEntry(t, map[string]any{"USDT": 3.0, "BTC": -1.0}),
		},
	}

	set, err := Normalize(raw, []string{"BTC", "ETH", "USDT"})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}

	for i := 1; i < len(set.Records); i++ {
		prev := math.Abs(set.Records[i-1].DeviationPercent)
		cur := math.Abs(set.Records[i].DeviationPercent)
		if cur > prev {
			t.Fatalf("records not sorted by abs deviation desc: %v before %v", prev, cur)
		}
	}
	if set.Records[0].PairKey != "BTC/ETH" {
		t.Errorf("largest deviation should rank first, got %s", set.Records[0].PairKey)
	}
	// Equal magnitudes keep encounter order: BTC/USDT before ETH/BTC.
	var ties []string
	for _, rec := range set.Records {
		if math.Abs(rec.DeviationPercent) == 1.0 {
			ties = append(ties, rec.PairKey)
		}
	}
	if !reflect.DeepEqual(ties, []string{"BTC/USDT", "ETH/BTC"}) {
		t.Errorf("tie order not stable: %v", ties)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	raw := &RawDeviationResponse{
		Success: true,
		TimeSeriesData: map[string][]RawPoint{
			"BTC/ETH": {{Timestamp: "2026-08-20T10:00:00Z", BasePrice: 60000, TargetPrice: 3000, DeviationPercent: 1.5}},
		},
		LatestDeviations: map[string]json.RawMessage{
			"BTC": rawEntry(t, map[string]any{"ETH": 1.5, "USDT": -1.5}),
		},
	}
	allow := []string{"BTC", "ETH", "USDT"}

	first, err1 := Normalize(raw, allow)
	second, err2 := Normalize(raw, allow)
	if err1 != nil || err2 != nil {
		t.Fatalf("Normalize returned errors: %v, %v", err1, err2)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("two passes over the same payload produced different output")
	}
	if got := second.TimeSeries["BTC/ETH"][0].PairKey; got != "BTC/ETH" {
		t.Errorf("time series point missing pair key: %q", got)
	}
}
