// Package receiver implements the HTTP ingest endpoint that accepts JSON
// records from serialbridge instances.
//
// Receiver.ServeHTTP validates that the body is a single JSON object
// (400 Bad Request if not), then calls store.Add and publishes the record
// to the live stream. Authentication is enforced upstream by the HTTP
// middleware (see package auth), so the receiver itself only performs
// structural validation.
//
// New(st, pub) wires the receiver to the given record store and publisher.
package receiver
