// Package api implements the HTTP REST API for serialbridge-server.
//
// New(store, alerter) returns an http.Handler that serves:
//
//	GET /api/v1/health          — source count, record total, active alerts
//	GET /api/v1/sources         — all tracked sources ([]SourceResponse)
//	GET /api/v1/sources/{name}  — single source; 404 if unknown
//	GET /api/v1/records         — recent records, newest first (?limit=N)
//	GET /api/v1/alerts          — firing and recently resolved alerts
//	GET /api/v1/overview        — full JSON dump: all sources + generated_at
//
// All endpoints:
//   - Respond with Content-Type: application/json
//   - Return 405 for non-GET methods
//   - Read state from the record store (silent sources drop out via TTL)
//
// JSON types are defined in types.go. No external HTTP framework is used.
package api
