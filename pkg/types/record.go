package types

import "time"

// Reserved wire fields injected by the bridge on every outbound record.
// The bridge overwrites these if the device supplies fields with the same
// names; provenance always wins over payload.
const (
	// FieldIngestedAt holds the RFC 3339 UTC timestamp of ingestion.
	FieldIngestedAt = "_ingested_at"

	// FieldSource holds the fixed source tag identifying the bridge.
	FieldSource = "_source"
)

// SourceTag is the value of FieldSource on every record this bridge emits.
const SourceTag = "arduino-serial"

// Record is one decoded device line: an arbitrary JSON object, plus the two
// reserved provenance fields once enriched. Records are treated as immutable
// after construction — copy before modifying.
type Record map[string]any

// Clone returns a shallow copy of the record. Nested values are shared;
// callers only ever replace top-level fields.
func (r Record) Clone() Record {
	out := make(Record, len(r)+2)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Source returns the source tag, or "" if the record has not been enriched.
func (r Record) Source() string {
	s, _ := r[FieldSource].(string)
	return s
}

// IngestedAt parses the ingestion timestamp. ok is false when the field is
// missing or not a valid RFC 3339 string.
func (r Record) IngestedAt() (t time.Time, ok bool) {
	s, _ := r[FieldIngestedAt].(string)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	return t, err == nil
}
