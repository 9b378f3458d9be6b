package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/serialbridge/serialbridge/server/internal/alerts"
	"github.com/serialbridge/serialbridge/server/internal/store"
)

// defaultRecordLimit caps GET /api/v1/records when no limit is given.
const defaultRecordLimit = 50

// Alerter exposes the active alert list. Satisfied by *alerts.Engine;
// may be nil when alerting is not configured.
type Alerter interface {
	Active() []*alerts.Alert
}

// Handler is the HTTP handler for all /api/v1/* read endpoints.
// It reads ingest state from the record store and returns JSON responses.
type Handler struct {
	store   *store.Store
	alerter Alerter
	mux     *http.ServeMux
}

// New creates a Handler wired to the given record store and registers all
// routes. alerter may be nil.
func New(st *store.Store, alerter Alerter) http.Handler {
	h := &Handler{store: st, alerter: alerter, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/sources", h.listSources)
	h.mux.HandleFunc("/api/v1/sources/", h.getSource) // subtree — extracts {name}
	h.mux.HandleFunc("/api/v1/records", h.records)
	h.mux.HandleFunc("/api/v1/alerts", h.alerts)
	h.mux.HandleFunc("/api/v1/overview", h.overview)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health — source count, record total, alert count.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := HealthResponse{
		Status:      "ok",
		SourceCount: len(h.store.Sources()),
		RecordTotal: h.store.Total(),
	}
	if h.alerter != nil {
		for _, a := range h.alerter.Active() {
			if a.State == "firing" {
				resp.ActiveAlerts++
			}
		}
	}
	jsonResp(w, http.StatusOK, resp)
}

// listSources returns GET /api/v1/sources — all tracked sources.
func (h *Handler) listSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, buildSources(h.store, time.Now()))
}

// getSource returns GET /api/v1/sources/{name} — a single source summary.
func (h *Handler) getSource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/v1/sources/")
	if name == "" {
		// Redirect bare /api/v1/sources/ to list handler.
		h.listSources(w, r)
		return
	}

	v, ok := h.store.Source(name)
	if !ok {
		jsonErr(w, http.StatusNotFound, "source not found")
		return
	}
	jsonResp(w, http.StatusOK, toSourceResponse(v, time.Now()))
}

// records returns GET /api/v1/records?limit=N — recent records, newest first.
func (h *Handler) records(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := defaultRecordLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			jsonErr(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	recs := h.store.Recent(limit)
	jsonResp(w, http.StatusOK, RecordsResponse{Records: recs, Count: len(recs)})
}

// alerts returns GET /api/v1/alerts — firing and recently resolved alerts.
func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.alerter == nil {
		jsonResp(w, http.StatusOK, []*alerts.Alert{})
		return
	}
	jsonResp(w, http.StatusOK, h.alerter.Active())
}

// overview returns GET /api/v1/overview — full JSON dump of all sources.
func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, BuildOverview(h.store))
}

// BuildOverview assembles the full source overview. Shared with the
// WebSocket hub's periodic broadcast.
func BuildOverview(st *store.Store) OverviewResponse {
	now := time.Now()
	return OverviewResponse{
		Sources:     buildSources(st, now),
		RecordTotal: st.Total(),
		GeneratedAt: now.UTC().Format(time.RFC3339),
	}
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// buildSources maps every tracked source to its JSON representation,
// sorted by name for stable output.
func buildSources(st *store.Store, now time.Time) []SourceResponse {
	views := st.Sources()
	out := make([]SourceResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toSourceResponse(v, now))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// toSourceResponse maps a store.SourceView to its JSON representation.
func toSourceResponse(v store.SourceView, now time.Time) SourceResponse {
	return SourceResponse{
		Source:      v.Source,
		LastSeen:    v.LastSeen.UTC().Format(time.RFC3339),
		Count:       v.Count,
		RecordsPM:   v.RatePM,
		Last:        v.Last,
		Diagnostics: computeDiagnostics(v, now),
	}
}
