package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/serialbridge/serialbridge/pkg/types"
)

// SourceView is a read-only summary of one source's recent traffic.
type SourceView struct {
	Source   string
	LastSeen time.Time
	Count    int64        // records accepted since startup
	RatePM   float64      // records per minute over the rate window
	Last     types.Record // most recent record
}

// Store is a thread-safe in-memory view of ingested records: a bounded ring
// of recent records plus per-source traffic summaries. A background goroutine
// (Run) periodically evicts sources that have stayed silent past the TTL;
// the recent ring keeps their records until overwritten.
type Store struct {
	mu       sync.RWMutex
	sources  map[string]*sourceState
	ring     []types.Record // fixed capacity, oldest overwritten first
	ringNext int
	ringLen  int
	total    int64

	ttl    time.Duration
	window time.Duration
	now    func() time.Time // injectable for deterministic tests
}

type sourceState struct {
	last     types.Record
	lastSeen time.Time
	count    int64
	arrivals []time.Time // arrival times within the rate window, oldest first
}

// New creates a Store keeping capacity recent records, evicting sources
// silent for ttl, and deriving rates over window.
func New(capacity int, ttl, window time.Duration) *Store {
	return &Store{
		sources: make(map[string]*sourceState),
		ring:    make([]types.Record, capacity),
		ttl:     ttl,
		window:  window,
		now:     time.Now,
	}
}

// Add stores rec. The source key comes from the record's source field;
// records from un-enriched senders group under the empty key.
// Callers must not modify rec after calling Add.
func (s *Store) Add(rec types.Record) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ring[s.ringNext] = rec
	s.ringNext = (s.ringNext + 1) % len(s.ring)
	if s.ringLen < len(s.ring) {
		s.ringLen++
	}
	s.total++

	src := rec.Source()
	st, ok := s.sources[src]
	if !ok {
		st = &sourceState{}
		s.sources[src] = st
	}
	st.last = rec
	st.lastSeen = now
	st.count++
	st.arrivals = append(st.arrivals, now)
	st.prune(now.Add(-s.window))
}

// prune drops arrival timestamps at or before cutoff.
func (st *sourceState) prune(cutoff time.Time) {
	i := 0
	for i < len(st.arrivals) && !st.arrivals[i].After(cutoff) {
		i++
	}
	if i > 0 {
		st.arrivals = append(st.arrivals[:0], st.arrivals[i:]...)
	}
}

// Sources returns a summary of every source currently tracked.
func (s *Store) Sources() []SourceView {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SourceView, 0, len(s.sources))
	for src, st := range s.sources {
		rate := float64(countAfter(st.arrivals, now.Add(-s.window))) *
			float64(time.Minute) / float64(s.window)
		out = append(out, SourceView{
			Source:   src,
			LastSeen: st.lastSeen,
			Count:    st.count,
			RatePM:   rate,
			Last:     st.last,
		})
	}
	return out
}

// Source returns the summary for one source and whether it is known.
func (s *Store) Source(name string) (SourceView, bool) {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sources[name]
	if !ok {
		return SourceView{}, false
	}
	rate := float64(countAfter(st.arrivals, now.Add(-s.window))) *
		float64(time.Minute) / float64(s.window)
	return SourceView{
		Source:   name,
		LastSeen: st.lastSeen,
		Count:    st.count,
		RatePM:   rate,
		Last:     st.last,
	}, true
}

// Recent returns up to limit most recent records, newest first.
func (s *Store) Recent(limit int) []types.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > s.ringLen {
		limit = s.ringLen
	}
	out := make([]types.Record, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (s.ringNext - i + len(s.ring)) % len(s.ring)
		out = append(out, s.ring[idx])
	}
	return out
}

// Total returns the number of records accepted since startup.
func (s *Store) Total() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

// Evict removes sources whose last record is older than now minus TTL.
// It returns the number of sources removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.ttl)
	removed := 0
	for src, st := range s.sources {
		if !st.lastSeen.After(cutoff) {
			delete(s.sources, src)
			removed++
		}
	}
	return removed
}

// Run starts the background TTL eviction loop. It ticks at half the TTL
// interval (minimum 1 second) so silent sources drop out promptly. Run
// blocks until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted silent sources", "count", n)
			}
		}
	}
}

// countAfter counts timestamps strictly after cutoff. arrivals is sorted
// oldest first.
func countAfter(arrivals []time.Time, cutoff time.Time) int {
	n := 0
	for i := len(arrivals) - 1; i >= 0; i-- {
		if !arrivals[i].After(cutoff) {
			break
		}
		n++
	}
	return n
}
