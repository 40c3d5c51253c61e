package app

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"botwatch/internal/api"
	"botwatch/internal/config"
	"botwatch/internal/server"
	"botwatch/internal/view"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newClient() *api.Client {
	return api.New(api.Options{
		BaseURL:   a.Config.API.BaseURL,
		Token:     a.Config.API.Token,
		UserAgent: a.Config.API.UserAgent,
		Timeout:   a.Config.API.RequestTimeout,
	}, a.Logger)
}

func (a *App) newRegistry(client *api.Client) *view.Registry {
	return view.NewRegistry(func(botID string) *view.View {
		return view.New(client, view.Options{
			BotID:     botID,
			PageSize:  a.Config.View.PageSize,
			TimeRange: a.Config.Refresh.TimeRange,
			Timeout:   a.Config.API.RequestTimeout,
		}, a.Logger)
	})
}

// Run executes the long-running service: the dashboard-facing HTTP API plus
// one auto-refresher per configured bot.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := a.newClient()
	registry := a.newRegistry(client)
	defer registry.CloseAll()

	var wg sync.WaitGroup
	for _, botID := range a.Config.Refresh.Bots {
		v := registry.Get(botID)

		// Seed the view so the first dashboard request has data; failures
		// are non-fatal, the next tick retries.
		seedCtx, seedCancel := context.WithTimeout(ctx, a.Config.API.RequestTimeout)
		if err := v.Refresh(seedCtx, view.RefreshOptions{Policy: view.PolicyManual}); err != nil {
			a.Logger.Warn().Err(err).Str("bot", botID).Msg("initial refresh failed")
		}
		seedCancel()

		if !a.Config.Refresh.Auto {
			continue
		}
		refresher := view.NewRefresher(v, view.RefresherOptions{
			Interval:     a.Config.Refresh.Interval,
			StartupDelay: a.Config.Refresh.StartupDelay,
		}, a.Logger.With().Str("bot", botID).Logger())

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := refresher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.Logger.Error().Err(err).Msg("refresher stopped with error")
			}
		}()
	}

	srv := server.New(registry, server.Options{
		Addr:       a.Config.Server.Addr,
		CORSOrigin: a.Config.Server.CORSOrigin,
	}, a.Logger)

	a.Logger.Info().Int("bots", len(a.Config.Refresh.Bots)).Msg("starting botwatch service")
	err := srv.Run(ctx)
	wg.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("botwatch service stopped")
	return nil
}

// ShowOptions configure the show command.
type ShowOptions struct {
	BotID      string
	TimeRange  string
	FilterCoin string
	Limit      int
}

// ExportOptions hold parameters for exporting a pair's deviation history.
type ExportOptions struct {
	BotID     string
	Pair      string
	TimeRange string
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// InspectOptions configure offline payload inspection.
type InspectOptions struct {
	Path  string
	Coins []string
}

// fetchTimeout bounds one-shot CLI fetches.
func (a *App) fetchTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := a.Config.API.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}
