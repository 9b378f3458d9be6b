// Package security inspects the ingest endpoint's TLS certificate at
// startup so an expired or soon-to-expire certificate shows up in the logs
// before deliveries start failing with opaque transport errors.
package security
