// Package pipeline glues the supervised line stream to the codec and the
// delivery client: decode each line in arrival order, enrich, and dispatch
// delivery as an independent fire-and-forget task. A line that fails to
// decode is logged and skipped; it never touches the connection or other
// in-flight deliveries.
package pipeline
