// Package config loads the ingest server configuration from the `server:`
// section of config.yaml (a `bridge:` key in the same file is ignored, so
// one file can drive both binaries).
//
// Config fields:
//   - HTTPPort         — port for ingest, REST API and WebSocket (default 8080)
//   - Auth.Mode        — "apikey" or "none"
//   - Auth.KeyEnv      — environment variable holding the expected API key
//   - Auth.Header      — HTTP header name (default "x-api-key")
//   - Store.Capacity   — recent-record ring size (default 1000)
//   - Store.SourceTTL  — how long a silent source stays listed (default 5m)
//   - Store.RateWindow — sliding window for records/min rates (default 1m)
//   - WSInterval       — source-summary broadcast period (default 5s)
//   - Alerts           — evaluation interval, rules and webhook targets
//
// Load(path) applies defaults before unmarshalling, then validates.
package config
