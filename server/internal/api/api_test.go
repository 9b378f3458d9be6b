package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/serialbridge/serialbridge/pkg/types"
	"github.com/serialbridge/serialbridge/server/internal/alerts"
	"github.com/serialbridge/serialbridge/server/internal/api"
	"github.com/serialbridge/serialbridge/server/internal/store"
)

// --- test helpers -----------------------------------------------------------

func newStore(recs ...types.Record) *store.Store {
	st := store.New(100, 5*time.Minute, time.Minute)
	for _, r := range recs {
		st.Add(r)
	}
	return st
}

func rec(source string, temp float64) types.Record {
	return types.Record{
		"temp":                temp,
		types.FieldSource:     source,
		types.FieldIngestedAt: "2026-08-31T12:00:00Z",
	}
}

// fakeAlerter returns a fixed alert list.
type fakeAlerter struct {
	alerts []*alerts.Alert
}

func (f *fakeAlerter) Active() []*alerts.Alert { return f.alerts }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

// --- /api/v1/health ---------------------------------------------------------

func TestHealth_EmptyStore(t *testing.T) {
	h := api.New(newStore(), nil)
	rr := get(t, h, "/api/v1/health")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp map[string]interface{}
	decode(t, rr, &resp)

	if resp["status"] != "ok" {
		t.Errorf("status: got %v, want ok", resp["status"])
	}
	if resp["source_count"].(float64) != 0 {
		t.Errorf("source_count: got %v, want 0", resp["source_count"])
	}
}

func TestHealth_CountsSourcesAndAlerts(t *testing.T) {
	st := newStore(rec("arduino-serial", 22.5), rec("esp32-serial", 19.0))
	al := &fakeAlerter{alerts: []*alerts.Alert{
		{RuleName: "device-silent", State: "firing"},
		{RuleName: "flow-stopped", State: "resolved"},
	}}
	h := api.New(st, al)
	rr := get(t, h, "/api/v1/health")

	var resp map[string]interface{}
	decode(t, rr, &resp)

	if resp["source_count"].(float64) != 2 {
		t.Errorf("source_count: got %v, want 2", resp["source_count"])
	}
	if resp["record_total"].(float64) != 2 {
		t.Errorf("record_total: got %v, want 2", resp["record_total"])
	}
	// Only firing alerts are counted.
	if resp["active_alerts"].(float64) != 1 {
		t.Errorf("active_alerts: got %v, want 1", resp["active_alerts"])
	}
}

func TestHealth_MethodNotAllowed(t *testing.T) {
	h := api.New(newStore(), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/health", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

// --- /api/v1/sources --------------------------------------------------------

func TestListSources_Empty(t *testing.T) {
	h := api.New(newStore(), nil)
	rr := get(t, h, "/api/v1/sources")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp []interface{}
	decode(t, rr, &resp)
	if len(resp) != 0 {
		t.Errorf("sources: got %d items, want 0", len(resp))
	}
}

func TestListSources_SortedByName(t *testing.T) {
	h := api.New(newStore(
		rec("esp32-serial", 1),
		rec("arduino-serial", 2),
		rec("bench-rig", 3),
	), nil)
	rr := get(t, h, "/api/v1/sources")

	var resp []map[string]interface{}
	decode(t, rr, &resp)
	if len(resp) != 3 {
		t.Fatalf("sources: got %d, want 3", len(resp))
	}
	want := []string{"arduino-serial", "bench-rig", "esp32-serial"}
	for i, w := range want {
		if resp[i]["source"] != w {
			t.Errorf("sources[%d]: got %v, want %s", i, resp[i]["source"], w)
		}
	}
}

func TestListSources_FieldsPresent(t *testing.T) {
	h := api.New(newStore(rec("arduino-serial", 22.5)), nil)
	rr := get(t, h, "/api/v1/sources")

	var resp []map[string]interface{}
	decode(t, rr, &resp)
	if len(resp) != 1 {
		t.Fatalf("got %d items, want 1", len(resp))
	}
	s := resp[0]
	if s["source"] != "arduino-serial" {
		t.Errorf("source: got %v", s["source"])
	}
	if s["count"].(float64) != 1 {
		t.Errorf("count: got %v, want 1", s["count"])
	}
	if s["last_seen"] == "" || s["last_seen"] == nil {
		t.Error("last_seen: missing")
	}
	last := s["last"].(map[string]interface{})
	if last["temp"].(float64) != 22.5 {
		t.Errorf("last.temp: got %v, want 22.5", last["temp"])
	}
	if _, ok := s["diagnostics"].([]interface{}); !ok {
		t.Error("diagnostics: missing or not an array")
	}
}

// --- /api/v1/sources/{name} -------------------------------------------------

func TestGetSource_Found(t *testing.T) {
	h := api.New(newStore(rec("arduino-serial", 18.0)), nil)
	rr := get(t, h, "/api/v1/sources/arduino-serial")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}
	var s map[string]interface{}
	decode(t, rr, &s)
	if s["source"] != "arduino-serial" {
		t.Errorf("source: got %v", s["source"])
	}
}

func TestGetSource_NotFound(t *testing.T) {
	h := api.New(newStore(), nil)
	rr := get(t, h, "/api/v1/sources/does-not-exist")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

// --- /api/v1/records --------------------------------------------------------

func TestRecords_NewestFirst(t *testing.T) {
	h := api.New(newStore(
		rec("arduino-serial", 1),
		rec("arduino-serial", 2),
		rec("arduino-serial", 3),
	), nil)
	rr := get(t, h, "/api/v1/records")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp struct {
		Records []map[string]interface{} `json:"records"`
		Count   int                      `json:"count"`
	}
	decode(t, rr, &resp)
	if resp.Count != 3 {
		t.Fatalf("count: got %d, want 3", resp.Count)
	}
	for i, want := range []float64{3, 2, 1} {
		if resp.Records[i]["temp"].(float64) != want {
			t.Errorf("records[%d].temp: got %v, want %v", i, resp.Records[i]["temp"], want)
		}
	}
}

func TestRecords_LimitApplied(t *testing.T) {
	st := newStore()
	for i := 0; i < 10; i++ {
		st.Add(rec("arduino-serial", float64(i)))
	}
	h := api.New(st, nil)
	rr := get(t, h, "/api/v1/records?limit=4")

	var resp struct {
		Count int `json:"count"`
	}
	decode(t, rr, &resp)
	if resp.Count != 4 {
		t.Errorf("count: got %d, want 4", resp.Count)
	}
}

func TestRecords_BadLimit(t *testing.T) {
	h := api.New(newStore(), nil)
	for _, q := range []string{"limit=abc", "limit=0", "limit=-5"} {
		rr := get(t, h, "/api/v1/records?"+q)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status got %d, want 400", q, rr.Code)
		}
	}
}

// --- /api/v1/alerts ---------------------------------------------------------

func TestAlerts_NilAlerter_ReturnsEmptyArray(t *testing.T) {
	h := api.New(newStore(), nil)
	rr := get(t, h, "/api/v1/alerts")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp []interface{}
	decode(t, rr, &resp)
	if resp == nil {
		t.Error("alerts: got null, want []")
	}
	if len(resp) != 0 {
		t.Errorf("alerts: got %d items, want 0", len(resp))
	}
}

func TestAlerts_ReturnsActive(t *testing.T) {
	al := &fakeAlerter{alerts: []*alerts.Alert{
		{RuleName: "device-silent", Source: "arduino-serial", State: "firing"},
	}}
	h := api.New(newStore(), al)
	rr := get(t, h, "/api/v1/alerts")

	var resp []map[string]interface{}
	decode(t, rr, &resp)
	if len(resp) != 1 {
		t.Fatalf("alerts: got %d, want 1", len(resp))
	}
	if resp[0]["rule_name"] != "device-silent" {
		t.Errorf("rule_name: got %v", resp[0]["rule_name"])
	}
}

// --- /api/v1/overview -------------------------------------------------------

func TestOverview_AllSources(t *testing.T) {
	h := api.New(newStore(
		rec("arduino-serial", 1),
		rec("esp32-serial", 2),
	), nil)
	rr := get(t, h, "/api/v1/overview")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp map[string]interface{}
	decode(t, rr, &resp)
	if resp["generated_at"] == "" || resp["generated_at"] == nil {
		t.Error("generated_at: missing")
	}
	sources := resp["sources"].([]interface{})
	if len(sources) != 2 {
		t.Errorf("sources: got %d, want 2", len(sources))
	}
	if resp["record_total"].(float64) != 2 {
		t.Errorf("record_total: got %v, want 2", resp["record_total"])
	}
}

// --- diagnostics ------------------------------------------------------------

func TestDiagnostics_FreshSource_AllClear(t *testing.T) {
	h := api.New(newStore(rec("arduino-serial", 1)), nil)
	rr := get(t, h, "/api/v1/sources/arduino-serial")

	var s struct {
		Diagnostics []map[string]interface{} `json:"diagnostics"`
	}
	decode(t, rr, &s)
	if len(s.Diagnostics) != 1 {
		t.Fatalf("diagnostics: got %d, want 1", len(s.Diagnostics))
	}
	if s.Diagnostics[0]["key"] != "healthy" {
		t.Errorf("diagnostics[0].key: got %v, want healthy", s.Diagnostics[0]["key"])
	}
}

// --- Content-Type -----------------------------------------------------------

func TestContentTypeJSON(t *testing.T) {
	h := api.New(newStore(), nil)
	for _, path := range []string{
		"/api/v1/health",
		"/api/v1/sources",
		"/api/v1/records",
		"/api/v1/alerts",
		"/api/v1/overview",
	} {
		rr := get(t, h, path)
		ct := rr.Header().Get("Content-Type")
		if ct != "application/json" {
			t.Errorf("%s Content-Type: got %q, want application/json", path, ct)
		}
	}
}
