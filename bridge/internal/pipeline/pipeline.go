package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/serialbridge/serialbridge/bridge/internal/codec"
	"github.com/serialbridge/serialbridge/bridge/internal/metrics"
	"github.com/serialbridge/serialbridge/pkg/types"
)

// Deliverer sends one enriched record to the ingest endpoint.
// Implemented by *delivery.Client.
type Deliverer interface {
	Deliver(ctx context.Context, rec types.Record) error
}

// Pipeline forwards decoded records from a line stream to a Deliverer.
type Pipeline struct {
	client Deliverer
	m      *metrics.Metrics
	wg     sync.WaitGroup

	// now is the enrichment clock. Injectable for tests.
	now func() time.Time
}

// New creates a Pipeline delivering through client.
func New(client Deliverer, m *metrics.Metrics) *Pipeline {
	return &Pipeline{client: client, m: m, now: time.Now}
}

// Run consumes lines until the channel closes or ctx is cancelled. Lines are
// decoded and enriched in strict arrival order; deliveries run concurrently
// and may complete in any order.
func (p *Pipeline) Run(ctx context.Context, lines <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			p.handle(ctx, line)
		}
	}
}

// Drain waits up to timeout for in-flight deliveries to finish. Returns
// false if the timeout elapsed first; shutdown proceeds regardless, so a
// record caught mid-retry may be lost. Best-effort by design.
func (p *Pipeline) Drain(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (p *Pipeline) handle(ctx context.Context, line []byte) {
	p.m.LinesTotal.Inc()

	rec, err := codec.Decode(line)
	if err != nil {
		p.m.DecodeErrorsTotal.Inc()
		slog.Warn("pipeline: discarding undecodable line", "err", err)
		return
	}
	if rec == nil {
		return // blank line, nothing to forward
	}

	enriched := codec.Enrich(rec, p.now())

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.client.Deliver(ctx, enriched); err != nil {
			p.m.DroppedTotal.Inc()
			slog.Error("pipeline: record dropped",
				"source", enriched.Source(),
				"err", err,
			)
			return
		}
		p.m.DeliveredTotal.Inc()
	}()
}
