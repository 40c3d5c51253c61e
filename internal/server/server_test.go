package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"botwatch/internal/analytics"
	"botwatch/internal/api"
	"botwatch/internal/view"
)

// stubBackend serves a fixed payload immediately.
type stubBackend struct {
	payload *analytics.RawDeviationResponse
	err     error
}

func (s *stubBackend) FetchCoins(ctx context.Context, botID string) ([]string, error) {
	return []string{"BTC", "ETH", "USDT"}, nil
}

func (s *stubBackend) FetchDeviations(ctx context.Context, botID string, q api.DeviationQuery) (*analytics.RawDeviationResponse, error) {
	return s.payload, s.err
}

func testPayload(t *testing.T) *analytics.RawDeviationResponse {
	t.Helper()
	btc, err := json.Marshal(map[string]any{"ETH": 3.5, "USDT": -11.0})
	if err != nil {
		t.Fatal(err)
	}
	eth, err := json.Marshal(map[string]any{"USDT": 1.0})
	if err != nil {
		t.Fatal(err)
	}
	return &analytics.RawDeviationResponse{
		Success: true,
		LatestDeviations: map[string]json.RawMessage{
			"BTC": btc,
			"ETH": eth,
		},
		TimeSeriesData: map[string][]analytics.RawPoint{
			"BTC/ETH": {{Timestamp: "2026-08-20T10:00:00Z", DeviationPercent: 3.5}},
		},
	}
}

func newTestServer(t *testing.T, backend view.Backend) *httptest.Server {
	t.Helper()
	registry := view.NewRegistry(func(botID string) *view.View {
		return view.New(backend, view.Options{BotID: botID, PageSize: 10, Timeout: time.Second}, zerolog.Nop())
	})
	srv := New(registry, Options{}, zerolog.Nop())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, dest any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

func postJSON(t *testing.T, url string, dest any) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", nil)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if dest != nil {
		_ = json.NewDecoder(resp.Body).Decode(dest)
	}
	return resp
}

func TestRefreshAndTable(t *testing.T) {
	ts := newTestServer(t, &stubBackend{payload: testPayload(t)})

	var refreshed struct {
		State view.RefreshState `json:"state"`
	}
	resp := postJSON(t, ts.URL+"/api/bots/bot-1/refresh?policy=manual", &refreshed)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status = %d", resp.StatusCode)
	}
	if refreshed.State.Status != view.StatusIdle {
		t.Fatalf("state after refresh = %+v", refreshed.State)
	}

	var table struct {
		Rows       []analytics.TableRow `json:"rows"`
		Page       int                  `json:"page"`
		TotalItems int                  `json:"totalItems"`
		TotalPages int                  `json:"totalPages"`
	}
	getJSON(t, ts.URL+"/api/bots/bot-1/table?pageSize=2&sort=deviationPercent&dir=desc", &table)
	if table.TotalItems != 3 || table.TotalPages != 2 {
		t.Fatalf("table totals = %+v", table)
	}
	if len(table.Rows) != 2 || table.Rows[0].PairKey != "BTC/ETH" {
		t.Fatalf("rows = %+v", table.Rows)
	}

	// Asking for a filter resets pagination to page 1.
	getJSON(t, ts.URL+"/api/bots/bot-1/table?page=2", &table)
	if table.Page != 2 {
		t.Fatalf("page = %d, want 2", table.Page)
	}
	getJSON(t, ts.URL+"/api/bots/bot-1/table?coin=BTC", &table)
	if table.Page != 1 || table.TotalItems != 2 {
		t.Fatalf("filtered table = %+v", table)
	}
}

func TestHeatmapEndpoint(t *testing.T) {
	ts := newTestServer(t, &stubBackend{payload: testPayload(t)})
	postJSON(t, ts.URL+"/api/bots/bot-1/refresh", nil)

	var heatmap struct {
		Buckets []string                `json:"buckets"`
		Cells   []analytics.HeatmapCell `json:"cells"`
	}
	getJSON(t, ts.URL+"/api/bots/bot-1/heatmap", &heatmap)
	if len(heatmap.Buckets) != 9 {
		t.Fatalf("buckets = %v", heatmap.Buckets)
	}
	if len(heatmap.Cells) != 3 || heatmap.Cells[0].Bucket != "<-10%" {
		t.Fatalf("cells = %+v", heatmap.Cells)
	}
}

func TestSeriesEndpointSelectsPair(t *testing.T) {
	ts := newTestServer(t, &stubBackend{payload: testPayload(t)})
	postJSON(t, ts.URL+"/api/bots/bot-1/refresh", nil)

	var chart analytics.ChartData
	getJSON(t, ts.URL+"/api/bots/bot-1/series?pair=BTC/ETH", &chart)
	if len(chart.Series) != 1 || chart.Series[0].Label != "BTC/ETH" {
		t.Fatalf("chart = %+v", chart)
	}
}

func TestRefreshBadPolicy(t *testing.T) {
	ts := newTestServer(t, &stubBackend{payload: testPayload(t)})
	resp := postJSON(t, ts.URL+"/api/bots/bot-1/refresh?policy=frantic", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRefreshBackendFailure(t *testing.T) {
	ts := newTestServer(t, &stubBackend{err: errors.New("backend down")})
	resp := postJSON(t, ts.URL+"/api/bots/bot-1/refresh", nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, &stubBackend{payload: testPayload(t)})
	resp := getJSON(t, ts.URL+"/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}
}
