// Package codec decodes raw device lines into Records and enriches them with
// the reserved provenance fields before delivery.
//
// Decode is strict: a line either parses as one whole JSON object or it is
// rejected with a *DecodeError that preserves the raw text for logging.
// Blank lines (common when a device resets mid-transmission) decode to nil
// without error.
package codec
