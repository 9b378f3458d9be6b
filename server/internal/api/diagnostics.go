package api

import (
	"fmt"
	"time"

	"github.com/serialbridge/serialbridge/server/internal/store"
)

// DiagnosticHint is one human-readable insight about a source's health.
// The UI displays these as chips on the source card; clicking one shows
// Detail — written in plain English explaining what to check.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier (used for dedup/ordering).
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label shown on the chip (≤ 5 words).
	Title string `json:"title"`
	// Detail is the full explanation shown on click/hover.
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with this hint.
	Value *float64 `json:"value,omitempty"`
}

// Silence thresholds for the diagnostics below.
const (
	silenceWarn = time.Minute
	silenceCrit = 5 * time.Minute
)

// computeDiagnostics derives human-readable diagnostic hints from one
// source's traffic summary. Diagnostics are ordered: critical first, then
// warnings, then info.
func computeDiagnostics(v store.SourceView, now time.Time) []DiagnosticHint {
	var hints []DiagnosticHint

	silence := now.Sub(v.LastSeen)

	// ── Silence ─────────────────────────────────────────────────────────────
	if silence >= silenceCrit {
		sec := silence.Seconds()
		hints = append(hints, DiagnosticHint{
			Key:   "source_silent",
			Level: "critical",
			Title: "Source silent",
			Detail: fmt.Sprintf(
				"No records from this source for %.0f seconds. "+
					"The bridge keeps retrying on its own, so if the device is merely "+
					"unplugged this will recover without intervention. "+
					"If the silence persists, check that the device is powered, the "+
					"cable is seated, and the bridge process is running — its logs "+
					"will show whether it is stuck reconnecting to the serial port "+
					"or failing to reach this server.",
				sec,
			),
			Value: &sec,
		})
		return hints // no point computing further without fresh data
	}
	if silence >= silenceWarn {
		sec := silence.Seconds()
		hints = append(hints, DiagnosticHint{
			Key:   "no_recent_data",
			Level: "warning",
			Title: "No recent data",
			Detail: fmt.Sprintf(
				"Last record arrived %.0f seconds ago. "+
					"For a device that emits continuously this usually means the "+
					"serial connection just dropped and the bridge is in its "+
					"reconnect loop. A brief gap is normal after replugging; a "+
					"growing one is worth a look at the bridge logs.",
				sec,
			),
			Value: &sec,
		})
	}

	// ── Flow stalled (recently seen but nothing in the rate window) ─────────
	if silence < silenceWarn && v.RatePM == 0 && v.Count > 0 {
		hints = append(hints, DiagnosticHint{
			Key:   "flow_stalled",
			Level: "info",
			Title: "Flow stalled",
			Detail: "This source has sent records before but nothing landed in " +
				"the current rate window. Devices that report on a slow cycle " +
				"look like this between reports — only worry if the device is " +
				"supposed to emit continuously.",
		})
	}

	// ── All clear ───────────────────────────────────────────────────────────
	if len(hints) == 0 {
		rate := v.RatePM
		hints = append(hints, DiagnosticHint{
			Key:   "healthy",
			Level: "ok",
			Title: "All clear",
			Detail: fmt.Sprintf(
				"Records are flowing at %.1f per minute with no gaps. "+
					"A sudden change in this rate is the earliest sign of trouble "+
					"on the device side, even while the connection stays up.",
				rate,
			),
			Value: &rate,
		})
	}

	return hints
}
