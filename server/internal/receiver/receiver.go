package receiver

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/serialbridge/serialbridge/server/internal/store"
	"github.com/serialbridge/serialbridge/pkg/types"
)

// maxBodyBytes bounds the request body; bridge records are single serial
// lines, so anything larger is not a legitimate sender.
const maxBodyBytes = 1 << 20

// Publisher receives every accepted record for fan-out to live subscribers.
type Publisher interface {
	Publish(rec types.Record)
}

// Receiver is the HTTP ingest endpoint the bridge posts records to.
// It validates each incoming record, stores it in the record store, and
// publishes it to the live stream.
type Receiver struct {
	store *store.Store
	pub   Publisher
}

// New creates a Receiver that writes accepted records to st and fans them
// out through pub. pub may be nil when no live stream is wired.
func New(st *store.Store, pub Publisher) *Receiver {
	return &Receiver{store: st, pub: pub}
}

// ServeHTTP handles POST /api/v1/ingest calls from serialbridge instances.
// The body must be a single JSON object. Accepted records get 202 Accepted;
// malformed bodies get 400 so the bridge does not burn its retry budget on
// them. Authentication is enforced by middleware before this is called.
func (r *Receiver) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(req.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var rec types.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		slog.Warn("receiver: malformed record rejected", "error", err)
		http.Error(w, "body must be a JSON object", http.StatusBadRequest)
		return
	}
	if rec == nil {
		http.Error(w, "body must be a JSON object", http.StatusBadRequest)
		return
	}

	r.store.Add(rec)
	if r.pub != nil {
		r.pub.Publish(rec)
	}

	slog.Debug("receiver: record stored",
		"source", rec.Source(),
		"fields", len(rec),
	)

	w.WriteHeader(http.StatusAccepted)
}
