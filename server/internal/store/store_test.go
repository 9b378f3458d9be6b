package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/serialbridge/serialbridge/pkg/types"
)

func rec(v int) types.Record {
	return types.Record{
		"temp":                v,
		types.FieldSource:     types.SourceTag,
		types.FieldIngestedAt: "2026-08-31T12:00:00Z",
	}
}

// fixedClock returns a func() time.Time that always returns t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestAddAndSource(t *testing.T) {
	st := New(10, 5*time.Minute, time.Minute)
	st.Add(rec(1))

	v, ok := st.Source(types.SourceTag)
	if !ok {
		t.Fatal("Source: expected summary, got none")
	}
	if v.Count != 1 {
		t.Errorf("Count: got %d, want 1", v.Count)
	}
	if v.Last["temp"] != 1 {
		t.Errorf("Last[temp]: got %v, want 1", v.Last["temp"])
	}
}

func TestSource_Missing(t *testing.T) {
	st := New(10, 5*time.Minute, time.Minute)
	_, ok := st.Source("unknown")
	if ok {
		t.Fatal("Source on empty store: expected false, got true")
	}
}

func TestAdd_TracksLatest(t *testing.T) {
	st := New(10, 5*time.Minute, time.Minute)
	st.Add(rec(1))
	st.Add(rec(2))

	v, ok := st.Source(types.SourceTag)
	if !ok {
		t.Fatal("Source: expected summary after two Adds")
	}
	if v.Count != 2 {
		t.Errorf("Count: got %d, want 2", v.Count)
	}
	if v.Last["temp"] != 2 {
		t.Errorf("Last[temp]: got %v, want 2", v.Last["temp"])
	}
}

func TestRecent_NewestFirst(t *testing.T) {
	st := New(10, 5*time.Minute, time.Minute)
	for i := 1; i <= 3; i++ {
		st.Add(rec(i))
	}

	got := st.Recent(0)
	if len(got) != 3 {
		t.Fatalf("Recent: got %d records, want 3", len(got))
	}
	for i, want := range []int{3, 2, 1} {
		if got[i]["temp"] != want {
			t.Errorf("Recent[%d][temp]: got %v, want %d", i, got[i]["temp"], want)
		}
	}
}

func TestRecent_RespectsLimit(t *testing.T) {
	st := New(10, 5*time.Minute, time.Minute)
	for i := 1; i <= 5; i++ {
		st.Add(rec(i))
	}

	got := st.Recent(2)
	if len(got) != 2 {
		t.Fatalf("Recent(2): got %d records, want 2", len(got))
	}
	if got[0]["temp"] != 5 || got[1]["temp"] != 4 {
		t.Errorf("Recent(2): got temps %v, %v, want 5, 4", got[0]["temp"], got[1]["temp"])
	}
}

func TestRing_OverwritesOldest(t *testing.T) {
	st := New(3, 5*time.Minute, time.Minute)
	for i := 1; i <= 5; i++ {
		st.Add(rec(i))
	}

	got := st.Recent(0)
	if len(got) != 3 {
		t.Fatalf("Recent after overflow: got %d records, want 3", len(got))
	}
	for i, want := range []int{5, 4, 3} {
		if got[i]["temp"] != want {
			t.Errorf("Recent[%d][temp]: got %v, want %d", i, got[i]["temp"], want)
		}
	}
	if st.Total() != 5 {
		t.Errorf("Total: got %d, want 5", st.Total())
	}
}

func TestRatePM_OverWindow(t *testing.T) {
	base := time.Now()
	st := New(10, 5*time.Minute, time.Minute)

	// Three arrivals inside the window, one before it.
	st.now = fixedClock(base.Add(-2 * time.Minute))
	st.Add(rec(0))
	for i := 1; i <= 3; i++ {
		st.now = fixedClock(base.Add(-time.Duration(30-i) * time.Second))
		st.Add(rec(i))
	}

	st.now = fixedClock(base)
	v, ok := st.Source(types.SourceTag)
	if !ok {
		t.Fatal("Source: expected summary")
	}
	if v.RatePM != 3 {
		t.Errorf("RatePM: got %v, want 3", v.RatePM)
	}
}

func TestEvict_RemovesSilentSources(t *testing.T) {
	base := time.Now()
	st := New(10, 5*time.Minute, time.Minute)

	st.now = fixedClock(base.Add(-10 * time.Minute))
	st.Add(types.Record{types.FieldSource: "old-1"})
	st.Add(types.Record{types.FieldSource: "old-2"})

	st.now = fixedClock(base)
	st.Add(types.Record{types.FieldSource: "live"})

	removed := st.Evict(base)
	if removed != 2 {
		t.Errorf("Evict: removed %d, want 2", removed)
	}
	if len(st.Sources()) != 1 {
		t.Errorf("Sources after evict: got %d, want 1", len(st.Sources()))
	}
	if _, ok := st.Source("live"); !ok {
		t.Error("Evict removed a live source")
	}
}

func TestEvict_NoOp_AllLive(t *testing.T) {
	base := time.Now()
	st := New(10, 5*time.Minute, time.Minute)

	st.now = fixedClock(base)
	st.Add(rec(1))

	if removed := st.Evict(base); removed != 0 {
		t.Errorf("Evict on live source: removed %d, want 0", removed)
	}
}

func TestMultipleSources(t *testing.T) {
	st := New(10, 5*time.Minute, time.Minute)
	for _, src := range []string{"arduino-serial", "esp32-serial", "bench-rig"} {
		st.Add(types.Record{types.FieldSource: src})
	}

	if got := len(st.Sources()); got != 3 {
		t.Errorf("Sources: got %d, want 3", got)
	}
}

func TestUnsourcedRecordsGroupTogether(t *testing.T) {
	st := New(10, 5*time.Minute, time.Minute)
	st.Add(types.Record{"a": 1})
	st.Add(types.Record{"b": 2})

	v, ok := st.Source("")
	if !ok {
		t.Fatal("Source(\"\"): expected summary for un-enriched records")
	}
	if v.Count != 2 {
		t.Errorf("Count: got %d, want 2", v.Count)
	}
}

func TestConcurrentAdds(t *testing.T) {
	st := New(100, 5*time.Minute, time.Minute)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			st.Add(types.Record{types.FieldSource: "concurrent", "n": n})
		}(i)
	}
	wg.Wait()

	if st.Total() != 100 {
		t.Errorf("Total after concurrent adds: got %d, want 100", st.Total())
	}
	v, ok := st.Source("concurrent")
	if !ok || v.Count != 100 {
		t.Errorf("Source count: got %d (ok=%v), want 100", v.Count, ok)
	}
}

func TestConcurrentMixedOps(t *testing.T) {
	st := New(100, 5*time.Minute, time.Minute)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			st.Add(types.Record{types.FieldSource: fmt.Sprintf("src-%d", n%3)})
		}(i)
		go func() {
			defer wg.Done()
			st.Sources()
			st.Recent(10)
		}()
	}
	wg.Wait()
}
