package codec

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/serialbridge/serialbridge/pkg/types"
)

// DecodeError reports a line that could not be parsed as a JSON object.
// Raw preserves the trimmed line so the operator can see exactly what the
// device sent.
type DecodeError struct {
	Raw string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("codec: not a JSON object: %q: %v", e.Raw, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode parses one delimiter-framed chunk into a Record.
//
// Surrounding whitespace is trimmed first, so CR-LF framed devices need no
// special handling. A line that is empty after trimming yields (nil, nil) —
// there is nothing to forward, but it is not an error. Anything else must
// parse as a single JSON object; partial or lenient parsing is deliberately
// not attempted.
func Decode(raw []byte) (types.Record, error) {
	line := strings.TrimSpace(string(raw))
	if line == "" {
		return nil, nil
	}

	var rec types.Record
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return nil, &DecodeError{Raw: line, Err: err}
	}
	if rec == nil {
		// JSON "null" unmarshals into a nil map without error.
		return nil, &DecodeError{Raw: line, Err: errNullValue}
	}
	return rec, nil
}

var errNullValue = fmt.Errorf("null is not an object")

// Enrich returns a copy of rec with the two reserved provenance fields set:
// types.FieldIngestedAt (now, RFC 3339 UTC) and types.FieldSource.
//
// If the device supplied fields with the reserved names they are overwritten —
// provenance is authoritative, and re-enriching always leaves exactly one of
// each reserved field. The input record is not modified.
func Enrich(rec types.Record, now time.Time) types.Record {
	out := rec.Clone()
	out[types.FieldIngestedAt] = now.UTC().Format(time.RFC3339)
	out[types.FieldSource] = types.SourceTag
	return out
}
