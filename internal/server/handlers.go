package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"botwatch/internal/analytics"
	"botwatch/internal/view"
)

// tableResponse bundles the table page with the refresh state so the
// dashboard renders both from one round trip.
type tableResponse struct {
	view.TableResult
	State view.RefreshState `json:"state"`
}

// handleTable applies any pagination/sort/filter query parameters through the
// view's setters (which enforce the page-reset rule) and returns the page.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	v := s.views.Get(chi.URLParam(r, "botID"))
	q := r.URL.Query()

	if size, ok := intParam(q.Get("pageSize")); ok {
		v.SetPageSize(size)
	}
	if sort := q.Get("sort"); sort != "" {
		dir := analytics.SortDirection(q.Get("dir"))
		if dir != analytics.SortAsc && dir != analytics.SortDesc {
			dir = analytics.SortDesc
		}
		v.SetSort(sort, dir)
	}
	if q.Has("coin") {
		v.SetFilterCoin(q.Get("coin"))
	}
	// Page last: setters above intentionally reset it to 1.
	if page, ok := intParam(q.Get("page")); ok {
		v.SetPage(page)
	}

	writeJSON(w, http.StatusOK, tableResponse{TableResult: v.Table(), State: v.State()})
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	v := s.views.Get(chi.URLParam(r, "botID"))
	if r.URL.Query().Has("pair") {
		v.SelectPair(r.URL.Query().Get("pair"))
	}
	writeJSON(w, http.StatusOK, v.Series())
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	v := s.views.Get(chi.URLParam(r, "botID"))
	writeJSON(w, http.StatusOK, map[string]any{
		"buckets": analytics.HeatmapBuckets,
		"cells":   v.Heatmap(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	v := s.views.Get(chi.URLParam(r, "botID"))
	writeJSON(w, http.StatusOK, v.State())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	v := s.views.Get(chi.URLParam(r, "botID"))
	q := r.URL.Query()

	policy := view.Policy(q.Get("policy"))
	switch policy {
	case view.PolicyManual, view.PolicySilent, view.PolicyHardReset:
	case "":
		policy = view.PolicyManual
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown refresh policy"})
		return
	}

	err := v.Refresh(r.Context(), view.RefreshOptions{
		Policy:     policy,
		TimeRange:  q.Get("timeRange"),
		PairFilter: q.Get("pair"),
	})
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error": err.Error(),
			"state": v.State(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": v.State()})
}

func intParam(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
