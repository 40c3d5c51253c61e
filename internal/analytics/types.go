package analytics

import "encoding/json"

// Snapshot is the reference price/holdings state a deviation percentage is
// measured against. Immutable once received from the backend.
type Snapshot struct {
	InitialPrice      float64 `json:"initialPrice"`
	UnitsHeld         float64 `json:"unitsHeld"`
	SnapshotTimestamp string  `json:"snapshotTimestamp"`
}

// DeviationRecord is one normalized base/target pair observation. PairKey is
// unique within a single normalization pass and BaseCoin never equals
// TargetCoin.
type DeviationRecord struct {
	PairKey          string    `json:"pairKey"`
	BaseCoin         string    `json:"baseCoin"`
	TargetCoin       string    `json:"targetCoin"`
	BasePrice        float64   `json:"basePrice"`
	TargetPrice      float64   `json:"targetPrice"`
	DeviationPercent float64   `json:"deviationPercent"`
	BaseSnapshot     *Snapshot `json:"baseSnapshot,omitempty"`
	TargetSnapshot   *Snapshot `json:"targetSnapshot,omitempty"`
}

// TimeSeriesPoint is one historical sample for a pair. Points are kept in
// delivery order; any re-sorting happens on the pagination engine's output,
// never in place.
type TimeSeriesPoint struct {
	Timestamp        string  `json:"timestamp"`
	PairKey          string  `json:"pairKey"`
	BasePrice        float64 `json:"basePrice"`
	TargetPrice      float64 `json:"targetPrice"`
	DeviationPercent float64 `json:"deviationPercent"`
}

// RawPoint is the wire shape of a time-series sample before normalization.
type RawPoint struct {
	Timestamp        string  `json:"timestamp"`
	BasePrice        float64 `json:"basePrice"`
	TargetPrice      float64 `json:"targetPrice"`
	DeviationPercent float64 `json:"deviationPercent"`
}

// RawDeviationResponse mirrors GET /bots/{id}/deviations. LatestDeviations
// values are left raw because each entry mixes coin-symbol keys with the
// reserved structural keys; the normalizer classifies them.
type RawDeviationResponse struct {
	Success          bool                       `json:"success"`
	TimeSeriesData   map[string][]RawPoint      `json:"timeSeriesData"`
	LatestDeviations map[string]json.RawMessage `json:"latestDeviations"`
	Coins            []string                   `json:"coins"`
	TotalCount       *int                       `json:"totalCount,omitempty"`
	Page             *int                       `json:"page,omitempty"`
	Limit            *int                       `json:"limit,omitempty"`
}

// ServerMeta carries backend pagination metadata when the fetch itself was
// paginated server-side.
type ServerMeta struct {
	TotalCount int
	Page       int
	Limit      int
}

// ServerMeta extracts pagination metadata from the response, or nil when the
// backend did not paginate.
func (r *RawDeviationResponse) ServerMeta() *ServerMeta {
	if r == nil || r.TotalCount == nil || r.Page == nil || r.Limit == nil {
		return nil
	}
	return &ServerMeta{TotalCount: *r.TotalCount, Page: *r.Page, Limit: *r.Limit}
}

// SortDirection orders a sorted column.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// PageRequest captures the user's current pagination/sort/filter choices.
// A fresh value is derived on every interaction; Page resets to 1 whenever
// PageSize, FilterCoin, SortColumn, SortDirection, or the active pair
// selection changes.
type PageRequest struct {
	Page          int
	PageSize      int
	SortColumn    string
	SortDirection SortDirection
	FilterCoin    string
}

// DefaultPageRequest returns the view defaults used on first render and after
// a hard reset.
func DefaultPageRequest(pageSize int) PageRequest {
	if pageSize <= 0 {
		pageSize = 10
	}
	return PageRequest{
		Page:          1,
		PageSize:      pageSize,
		SortColumn:    ColumnDeviation,
		SortDirection: SortDesc,
	}
}

// FallbackCoins is the allowlist used when GET /bots/{id}/coins fails or
// returns nothing; the view degrades rather than failing closed.
var FallbackCoins = []string{"BTC", "ETH", "USDT"}
