// Package delivery posts enriched records to the ingest endpoint with a
// bounded, linearly backing-off retry policy.
//
// Each Deliver call is independent: the client keeps no queue and imposes no
// concurrency limit, so callers dispatch one goroutine per record and
// completion order is unspecified. A record whose retry budget is spent is
// reported back as an error and dropped — permanent failure of one record
// never affects the next.
package delivery
