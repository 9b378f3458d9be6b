// Package ws implements the WebSocket hub for serialbridge-server.
//
// Hub manages a set of connected clients. Every ingested record is pushed
// to all of them as it arrives (Hub.Publish, called by the receiver), and a
// source overview is broadcast on a configurable interval (default 5s in
// production).
//
// New(store, interval) creates a Hub.
// Hub.Run(ctx) starts the overview ticker — blocks until ctx is cancelled,
// then closes all active connections.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket, sends the current
// overview immediately on connect, then streams records and overviews.
//
// Message format sent to clients:
//
//	{ "event": "record",   "data": { /* one enriched record */ } }
//	{ "event": "overview", "data": { /* same schema as GET /api/v1/overview */ } }
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level. WebSocket endpoint is mounted at /ws/stream by the server.
package ws
