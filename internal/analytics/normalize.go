package analytics

import (
	"encoding/json"
	"errors"
	"math"
	"sort"
)

// ErrMalformedPayload marks a response that parsed as JSON but failed
// structural validation (success=false or required keys missing). Callers
// render an empty state for this, not a network-error banner.
var ErrMalformedPayload = errors.New("analytics: malformed deviation payload")

// Reserved keys inside a latestDeviations entry. Everything else is treated
// as a target-coin symbol.
const (
	keyPrices         = "prices"
	keyBaseSnapshot   = "baseSnapshot"
	keyTargetSnapshot = "targetSnapshot"
)

// ResultSet is the normalizer output: the flat record set plus the per-pair
// time-series index. Both are replaced wholesale on every successful fetch.
type ResultSet struct {
	Records    []DeviationRecord
	TimeSeries map[string][]TimeSeriesPoint
}

type pairPrices struct {
	BasePrice   float64 `json:"basePrice"`
	TargetPrice float64 `json:"targetPrice"`
}

// Normalize flattens a raw deviation response into records and a time-series
// index. Pairs whose deviation is null, whose coins are not both in
// allowedCoins, or whose target equals the base are dropped. Missing price
// entries default to zero: the backend may report a deviation before a fresh
// price sample exists, which is degraded data, not an error.
//
// Records come back stable-sorted by abs(deviationPercent) descending; ties
// keep encounter order. On a malformed payload the result is empty and the
// error is ErrMalformedPayload. Normalize never panics on bad input.
func Normalize(raw *RawDeviationResponse, allowedCoins []string) (ResultSet, error) {
	empty := ResultSet{Records: []DeviationRecord{}, TimeSeries: map[string][]TimeSeriesPoint{}}

	if raw == nil || !raw.Success || raw.LatestDeviations == nil {
		return empty, ErrMalformedPayload
	}

	allowed := make(map[string]struct{}, len(allowedCoins))
	for _, c := range allowedCoins {
		allowed[c] = struct{}{}
	}

	records := make([]DeviationRecord, 0, len(raw.LatestDeviations))

	// Map iteration order is random; walk base coins sorted so encounter
	// order, and therefore tie order after the stable sort, is deterministic.
	bases := make([]string, 0, len(raw.LatestDeviations))
	for base := range raw.LatestDeviations {
		bases = append(bases, base)
	}
	sort.Strings(bases)

	for _, base := range bases {
		if _, ok := allowed[base]; !ok {
			continue
		}
		records = append(records, normalizeBase(base, raw.LatestDeviations[base], allowed)...)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return math.Abs(records[i].DeviationPercent) > math.Abs(records[j].DeviationPercent)
	})

	series := make(map[string][]TimeSeriesPoint, len(raw.TimeSeriesData))
	for pairKey, points := range raw.TimeSeriesData {
		converted := make([]TimeSeriesPoint, 0, len(points))
		for _, p := range points {
			converted = append(converted, TimeSeriesPoint{
				Timestamp:        p.Timestamp,
				PairKey:          pairKey,
				BasePrice:        p.BasePrice,
				TargetPrice:      p.TargetPrice,
				DeviationPercent: p.DeviationPercent,
			})
		}
		series[pairKey] = converted
	}

	return ResultSet{Records: records, TimeSeries: series}, nil
}

// normalizeBase expands one latestDeviations entry. The entry mixes reserved
// structural keys with coin-symbol keys, so each key is classified before it
// is treated as a data point.
func normalizeBase(base string, entry json.RawMessage, allowed map[string]struct{}) []DeviationRecord {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(entry, &fields); err != nil {
		return nil
	}

	var (
		prices       map[string]pairPrices
		baseSnap     *Snapshot
		targetSnaps  map[string]Snapshot
		singleTarget *Snapshot
	)

	type candidate struct {
		target    string
		deviation float64
	}
	candidates := make([]candidate, 0, len(fields))

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := fields[key]
		switch key {
		case keyPrices:
			_ = json.Unmarshal(value, &prices)
		case keyBaseSnapshot:
			var s Snapshot
			if json.Unmarshal(value, &s) == nil {
				baseSnap = &s
			}
		case keyTargetSnapshot:
			// Usually keyed by target symbol; older payloads ship a single
			// snapshot object that applies to every target of this base.
			if err := json.Unmarshal(value, &targetSnaps); err != nil {
				var s Snapshot
				if json.Unmarshal(value, &s) == nil {
					singleTarget = &s
				}
			}
		default:
			var dev *float64
			if err := json.Unmarshal(value, &dev); err != nil || dev == nil {
				continue
			}
			candidates = append(candidates, candidate{target: key, deviation: *dev})
		}
	}

	records := make([]DeviationRecord, 0, len(candidates))
	for _, c := range candidates {
		if c.target == base {
			continue
		}
		if _, ok := allowed[c.target]; !ok {
			continue
		}

		rec := DeviationRecord{
			PairKey:          base + "/" + c.target,
			BaseCoin:         base,
			TargetCoin:       c.target,
			DeviationPercent: c.deviation,
			BaseSnapshot:     baseSnap,
		}
		if p, ok := prices[c.target]; ok {
			rec.BasePrice = p.BasePrice
			rec.TargetPrice = p.TargetPrice
		}
		if s, ok := targetSnaps[c.target]; ok {
			snap := s
			rec.TargetSnapshot = &snap
		} else if singleTarget != nil {
			rec.TargetSnapshot = singleTarget
		}
		records = append(records, rec)
	}
	return records
}
