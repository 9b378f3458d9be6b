// Package types defines shared Go types used by both the bridge and the
// ingest server. A Record is the canonical in-memory representation of one
// decoded device line; the JSON encoding of a Record is the wire format.
package types
