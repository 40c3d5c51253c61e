// Package view holds the live, refreshable deviation view for a single bot:
// refresh policies, cancellation of superseded fetches, and the projected
// table/chart/heatmap data the dashboard consumes.
package view

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"botwatch/internal/analytics"
	"botwatch/internal/api"
	"botwatch/internal/metrics"
)

// Status of the view's refresh lifecycle.
type Status string

const (
	StatusIdle          Status = "idle"
	StatusLoading       Status = "loading"
	StatusSilentLoading Status = "silent-loading"
	StatusError         Status = "error"
)

// RefreshState is the single value object describing refresh progress.
// Updating it only through the transitions in Refresh keeps impossible
// combinations (loading and error at once) unrepresentable.
type RefreshState struct {
	Status          Status     `json:"status"`
	LastRefreshedAt *time.Time `json:"lastRefreshedAt"`
	ErrorMessage    string     `json:"errorMessage,omitempty"`
}

// Policy selects how a refresh interacts with rendered state.
type Policy string

const (
	// PolicyManual blocks the view behind a loading indicator.
	PolicyManual Policy = "manual"
	// PolicySilent refreshes in the background without disturbing rendered
	// data or pagination.
	PolicySilent Policy = "silent"
	// PolicyHardReset additionally restores filter/sort/pagination defaults
	// before issuing the request.
	PolicyHardReset Policy = "hard-reset"
)

// ErrTimedOut is surfaced when a refresh exceeded its time budget, distinct
// from a generic network failure.
var ErrTimedOut = errors.New("view: request timed out")

const timedOutMessage = "request timed out"

// Backend is the slice of the API client the view needs.
type Backend interface {
	FetchDeviations(ctx context.Context, botID string, q api.DeviationQuery) (*analytics.RawDeviationResponse, error)
	FetchCoins(ctx context.Context, botID string) ([]string, error)
}

// Options configure a bot view.
type Options struct {
	BotID     string
	PageSize  int
	TimeRange string
	Timeout   time.Duration
}

// RefreshOptions parameterise one refresh call. Empty fields keep the
// view's current time range and pair selection.
type RefreshOptions struct {
	Policy     Policy
	TimeRange  string
	PairFilter string
}

// View owns all per-bot analytics state. Nothing here is shared across
// concurrently open views of different bots.
type View struct {
	backend Backend
	logger  zerolog.Logger
	opts    Options

	mu           sync.Mutex
	state        RefreshState
	page         analytics.PageRequest
	selectedPair string
	timeRange    string
	set          analytics.ResultSet
	serverMeta   *analytics.ServerMeta

	// generation stamps each issued request; a response is applied only if
	// its generation is still current, so results land in issue order no
	// matter when they arrive.
	generation uint64
	cancel     context.CancelFunc
}

// New constructs an idle view with default pagination.
func New(backend Backend, opts Options, logger zerolog.Logger) *View {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &View{
		backend:   backend,
		logger:    logger.With().Str("component", "view").Str("bot", opts.BotID).Logger(),
		opts:      opts,
		state:     RefreshState{Status: StatusIdle},
		page:      analytics.DefaultPageRequest(opts.PageSize),
		timeRange: opts.TimeRange,
		set:       analytics.ResultSet{Records: []analytics.DeviationRecord{}, TimeSeries: map[string][]analytics.TimeSeriesPoint{}},
	}
}

// Refresh fetches and applies a new record set according to the policy. A new
// call aborts any still-pending prior request; only the most recently issued
// request's result is ever applied.
func (v *View) Refresh(ctx context.Context, opts RefreshOptions) error {
	start := time.Now()
	policy := opts.Policy
	if policy == "" {
		policy = PolicyManual
	}

	v.mu.Lock()
	v.generation++
	gen := v.generation
	if v.cancel != nil {
		v.cancel()
	}

	switch policy {
	case PolicyHardReset:
		v.page = analytics.DefaultPageRequest(v.opts.PageSize)
		v.selectedPair = ""
		v.timeRange = v.opts.TimeRange
		v.state.Status = StatusLoading
	case PolicySilent:
		v.state.Status = StatusSilentLoading
	default:
		v.state.Status = StatusLoading
	}

	if opts.TimeRange != "" && opts.TimeRange != v.timeRange {
		v.timeRange = opts.TimeRange
		v.page.Page = 1
	}
	if opts.PairFilter != "" && opts.PairFilter != v.selectedPair {
		v.selectedPair = opts.PairFilter
		v.page.Page = 1
	}

	fetchCtx, cancel := context.WithTimeout(ctx, v.opts.Timeout)
	v.cancel = cancel

	query := api.DeviationQuery{
		TimeRange: v.timeRange,
		BaseCoin:  v.page.FilterCoin,
		Page:      v.page.Page,
		Limit:     v.page.PageSize,
	}
	v.mu.Unlock()

	set, meta, err := v.fetch(fetchCtx, query)
	err = v.apply(gen, policy, set, meta, err)

	metrics.RefreshDuration.WithLabelValues(string(policy)).Observe(time.Since(start).Seconds())
	metrics.RefreshTotal.WithLabelValues(string(policy), outcome(err)).Inc()
	return err
}

func (v *View) fetch(ctx context.Context, query api.DeviationQuery) (analytics.ResultSet, *analytics.ServerMeta, error) {
	coins, err := v.backend.FetchCoins(ctx, v.opts.BotID)
	if err != nil || len(coins) == 0 {
		if err != nil {
			if ctx.Err() != nil {
				return analytics.ResultSet{}, nil, ctx.Err()
			}
			v.logger.Warn().Err(err).Msg("coin allowlist unavailable, using fallback")
		}
		coins = analytics.FallbackCoins
	}

	raw, err := v.backend.FetchDeviations(ctx, v.opts.BotID, query)
	if err != nil {
		return analytics.ResultSet{}, nil, err
	}

	set, err := analytics.Normalize(raw, coins)
	if err != nil {
		return set, nil, err
	}
	return set, raw.ServerMeta(), nil
}

// apply commits a refresh result, unless a newer request was issued in the
// meantime; stale results are discarded before any state mutation.
func (v *View) apply(gen uint64, policy Policy, set analytics.ResultSet, meta *analytics.ServerMeta, err error) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if gen != v.generation {
		v.logger.Debug().Uint64("generation", gen).Msg("discarding superseded refresh result")
		return nil
	}
	if v.cancel != nil {
		// Aborting an already-completed request is a no-op; this just
		// releases the timeout timer.
		v.cancel()
		v.cancel = nil
	}

	now := time.Now().UTC()

	switch {
	case err == nil:
		v.set = set
		v.serverMeta = meta
		v.state = RefreshState{Status: StatusIdle, LastRefreshedAt: &now}
		metrics.RecordsNormalized.WithLabelValues(v.opts.BotID).Set(float64(len(set.Records)))
		return nil

	case errors.Is(err, analytics.ErrMalformedPayload):
		// Structural failure is an empty state, not an error banner: replace
		// the data wholesale so the consumer renders "no data".
		v.logger.Warn().Msg("malformed deviation payload, rendering empty state")
		v.set = set
		v.serverMeta = nil
		v.state = RefreshState{Status: StatusIdle, LastRefreshedAt: &now}
		return nil

	case errors.Is(err, context.Canceled):
		// Aborted by the caller while still the current request, so no newer
		// refresh is coming to replace the in-flight marker. Drop back to idle
		// instead of showing a spinner with nothing in flight.
		v.state.Status = StatusIdle
		return nil

	case errors.Is(err, context.DeadlineExceeded):
		err = ErrTimedOut
		v.state.ErrorMessage = timedOutMessage

	default:
		v.state.ErrorMessage = err.Error()
	}

	// Prior data stays rendered on failure. A silent failure returns to idle
	// with only the message set, so the next auto-refresh tick retries.
	if policy == PolicySilent {
		v.state.Status = StatusIdle
		v.logger.Warn().Err(err).Msg("silent refresh failed, keeping rendered data")
		return nil
	}
	v.state.Status = StatusError
	return err
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Close aborts any in-flight request. Idempotent; aborting a completed
// request is a no-op.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.generation++
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
}

// State returns the current refresh state.
func (v *View) State() RefreshState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Request returns the current page request.
func (v *View) Request() analytics.PageRequest {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page
}

// SelectedPair returns the active pair selection, empty for all pairs.
func (v *View) SelectedPair() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selectedPair
}

// SetPage moves to an explicit page without resetting anything else.
func (v *View) SetPage(page int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if page < 1 {
		page = 1
	}
	v.page.Page = page
}

// SetPageSize changes the page size and resets to page 1.
func (v *View) SetPageSize(size int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if size <= 0 {
		return
	}
	if size != v.page.PageSize {
		v.page.PageSize = size
		v.page.Page = 1
	}
}

// SetSort changes the sort column/direction and resets to page 1.
func (v *View) SetSort(column string, dir analytics.SortDirection) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if column == v.page.SortColumn && dir == v.page.SortDirection {
		return
	}
	v.page.SortColumn = column
	v.page.SortDirection = dir
	v.page.Page = 1
}

// SetFilterCoin changes the base-coin filter and resets to page 1. An empty
// coin clears the filter.
func (v *View) SetFilterCoin(coin string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if coin == v.page.FilterCoin {
		return
	}
	v.page.FilterCoin = coin
	v.page.Page = 1
}

// SelectPair changes the active pair selection and resets to page 1.
func (v *View) SelectPair(pair string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if pair == v.selectedPair {
		return
	}
	v.selectedPair = pair
	v.page.Page = 1
}

// TableResult is the paginated, formatted table projection.
type TableResult struct {
	Rows       []analytics.TableRow `json:"rows"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"pageSize"`
	TotalItems int                  `json:"totalItems"`
	TotalPages int                  `json:"totalPages"`
}

// Table returns the current table page. Pages past the end are clamped here,
// per the pagination engine's caller contract.
func (v *View) Table() TableResult {
	v.mu.Lock()
	records := v.set.Records
	req := v.page
	meta := v.serverMeta
	v.mu.Unlock()

	page := analytics.Paginate(records, req, meta, analytics.DeviationColumns())
	if meta == nil && req.Page > page.TotalPages {
		req.Page = page.TotalPages
		page = analytics.Paginate(records, req, meta, analytics.DeviationColumns())
	}

	return TableResult{
		Rows:       analytics.ToTable(page.Items),
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalItems: page.TotalItems,
		TotalPages: page.TotalPages,
	}
}

// Series returns the chart projection for the selected pair, or all pairs
// when none is selected.
func (v *View) Series() analytics.ChartData {
	v.mu.Lock()
	series := v.set.TimeSeries
	pair := v.selectedPair
	v.mu.Unlock()
	return analytics.ToTimeSeries(series, pair)
}

// Heatmap returns the bucketed pair grid.
func (v *View) Heatmap() []analytics.HeatmapCell {
	v.mu.Lock()
	records := v.set.Records
	v.mu.Unlock()
	return analytics.ToHeatmap(records)
}

// Records exposes the normalized record set (shared slice; treat as
// read-only).
func (v *View) Records() []analytics.DeviationRecord {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.set.Records
}
