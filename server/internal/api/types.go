package api

import "github.com/serialbridge/serialbridge/pkg/types"

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status       string `json:"status"`
	SourceCount  int    `json:"source_count"`
	RecordTotal  int64  `json:"record_total"`
	ActiveAlerts int    `json:"active_alerts"`
}

// SourceResponse is one source entry in GET /api/v1/sources or
// GET /api/v1/sources/{name}.
type SourceResponse struct {
	Source      string           `json:"source"`
	LastSeen    string           `json:"last_seen"` // RFC3339
	Count       int64            `json:"count"`
	RecordsPM   float64          `json:"records_pm"`
	Last        types.Record     `json:"last"`
	Diagnostics []DiagnosticHint `json:"diagnostics"`
}

// RecordsResponse is the payload for GET /api/v1/records.
type RecordsResponse struct {
	Records []types.Record `json:"records"` // newest first
	Count   int            `json:"count"`
}

// OverviewResponse is the payload for GET /api/v1/overview and the body of
// the WebSocket "overview" event.
type OverviewResponse struct {
	Sources     []SourceResponse `json:"sources"`
	RecordTotal int64            `json:"record_total"`
	GeneratedAt string           `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
