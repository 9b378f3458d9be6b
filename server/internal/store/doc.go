// Package store holds the in-memory view of ingested records: a bounded
// ring of recent records plus per-source traffic summaries with TTL
// eviction and windowed records-per-minute rates.
package store
