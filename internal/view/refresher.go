package view

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RefresherOptions tune the auto-refresh loop.
type RefresherOptions struct {
	Interval     time.Duration
	StartupDelay time.Duration
}

// Refresher periodically issues silent refreshes against one view. Ticks are
// skipped while the view is not idle, so silent refreshes never stack. The
// loop exits when its context is cancelled and stops the timer on every exit
// path.
type Refresher struct {
	opts   RefresherOptions
	view   *View
	logger zerolog.Logger
}

// NewRefresher constructs a Refresher instance.
func NewRefresher(v *View, opts RefresherOptions, logger zerolog.Logger) *Refresher {
	if opts.Interval <= 0 {
		panic("refresher interval must be positive")
	}
	return &Refresher{
		opts:   opts,
		view:   v,
		logger: logger.With().Str("component", "refresher").Logger(),
	}
}

// Run blocks, refreshing at each interval until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) error {
	if r.opts.StartupDelay > 0 {
		timer := time.NewTimer(r.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if status := r.view.State().Status; status != StatusIdle {
			r.logger.Debug().Str("status", string(status)).Msg("skipping tick, view not idle")
			continue
		}

		if err := r.view.Refresh(ctx, RefreshOptions{Policy: PolicySilent}); err != nil {
			// Silent refreshes already keep rendered data; just log.
			r.logger.Error().Err(err).Msg("auto refresh failed")
		}
	}
}
