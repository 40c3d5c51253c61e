package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"botwatch/internal/analytics"
)

// Options parameterise the rebalancer backend client.
type Options struct {
	BaseURL   string
	Token     string
	UserAgent string
	Timeout   time.Duration
}

// Client talks to the rebalancer backend's read-only REST API. Every request
// carries the bearer token; auth failures surface as ordinary fetch errors.
type Client struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// New constructs a backend client.
func New(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "api_client").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// DeviationQuery narrows GET /bots/{id}/deviations.
type DeviationQuery struct {
	TimeRange string
	BaseCoin  string
	Page      int
	Limit     int
}

// PricePoint is one entry of GET /bots/{id}/price-history.
type PricePoint struct {
	Coin          string  `json:"coin"`
	Price         float64 `json:"price"`
	Timestamp     string  `json:"timestamp"`
	Source        string  `json:"source,omitempty"`
	Change        float64 `json:"change,omitempty"`
	ChangePercent float64 `json:"changePercent,omitempty"`
}

// HistoryQuery narrows GET /bots/{id}/price-history.
type HistoryQuery struct {
	From time.Time
	To   time.Time
	Coin string
}

// FetchDeviations retrieves the deviation analytics payload for one bot.
func (c *Client) FetchDeviations(ctx context.Context, botID string, q DeviationQuery) (*analytics.RawDeviationResponse, error) {
	params := url.Values{}
	if q.TimeRange != "" {
		params.Set("timeRange", q.TimeRange)
	}
	if q.BaseCoin != "" {
		params.Set("baseCoin", q.BaseCoin)
	}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var payload analytics.RawDeviationResponse
	if err := c.get(ctx, "/bots/"+url.PathEscape(botID)+"/deviations", params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FetchCoins retrieves the coin allowlist for one bot.
func (c *Client) FetchCoins(ctx context.Context, botID string) ([]string, error) {
	var coins []string
	if err := c.get(ctx, "/bots/"+url.PathEscape(botID)+"/coins", nil, &coins); err != nil {
		return nil, err
	}
	return coins, nil
}

// FetchPriceHistory retrieves one coin's price history.
func (c *Client) FetchPriceHistory(ctx context.Context, botID string, q HistoryQuery) ([]PricePoint, error) {
	params := url.Values{}
	if !q.From.IsZero() {
		params.Set("from", q.From.UTC().Format(time.RFC3339))
	}
	if !q.To.IsZero() {
		params.Set("to", q.To.UTC().Format(time.RFC3339))
	}
	if q.Coin != "" {
		params.Set("coin", q.Coin)
	}

	var points []PricePoint
	if err := c.get(ctx, "/bots/"+url.PathEscape(botID)+"/price-history", params, &points); err != nil {
		return nil, err
	}
	return points, nil
}

// FetchPriceHistories fetches histories for several coins. A failing coin is
// logged and omitted from the result; siblings still come through.
func (c *Client) FetchPriceHistories(ctx context.Context, botID string, coins []string, from, to time.Time) map[string][]analytics.TimeSeriesPoint {
	out := make(map[string][]analytics.TimeSeriesPoint, len(coins))
	for _, coin := range coins {
		points, err := c.FetchPriceHistory(ctx, botID, HistoryQuery{From: from, To: to, Coin: coin})
		if err != nil {
			c.logger.Warn().Err(err).Str("coin", coin).Msg("price history unavailable, omitting coin")
			continue
		}
		converted := make([]analytics.TimeSeriesPoint, 0, len(points))
		for _, p := range points {
			converted = append(converted, analytics.TimeSeriesPoint{
				Timestamp: p.Timestamp,
				PairKey:   coin,
				BasePrice: p.Price,
			})
		}
		out[coin] = converted
	}
	return out
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dest any) error {
	if c.baseURL == "" {
		return errors.New("api base url not configured")
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "botwatch/1.0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payloadBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return parseHTTPError(resp.StatusCode, payloadBytes)
	}

	if err := json.Unmarshal(payloadBytes, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Error != "" {
			return fmt.Errorf("backend error (%d): %s", status, apiErr.Error)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("backend error (%d): %s", status, apiErr.Message)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("backend error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("backend error (%d)", status)
}
