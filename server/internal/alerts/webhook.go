package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// deliver sends webhook notifications for a to all configured targets.
// Errors are logged but do not affect the caller.
func (e *Engine) deliver(a *Alert) {
	for _, wh := range e.webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = e.sendSlack(url, a)
		case "teams":
			err = e.sendTeams(url, a)
		case "pagerduty":
			err = e.sendPagerDuty(url, a)
		case "http":
			err = e.sendHTTP(url, a)
		default:
			slog.Warn("alerts: unknown webhook type — skipping", "type", wh.Type)
			continue
		}

		if err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type,
				"rule", a.RuleName,
				"source", a.Source,
				"err", err,
			)
		} else {
			slog.Debug("alerts: webhook delivered",
				"type", wh.Type,
				"rule", a.RuleName,
				"source", a.Source,
				"state", a.State,
			)
		}
	}
}

func (e *Engine) sendSlack(url string, a *Alert) error {
	body, _ := json.Marshal(map[string]interface{}{
		"text": fmt.Sprintf("*%s* %s", alertLabel(a), a.Message),
		"attachments": []map[string]interface{}{{
			"color": "#" + severityColor(a.Severity),
			"fields": []map[string]interface{}{
				{"title": "Source", "value": a.Source, "short": true},
				{"title": "Value", "value": fmt.Sprintf("%.2f", a.Value), "short": true},
			},
		}},
	})
	return e.post(url, body)
}

func (e *Engine) sendTeams(url string, a *Alert) error {
	payload := map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": severityColor(a.Severity),
		"summary":    a.RuleName,
		"title":      fmt.Sprintf("SerialBridge alert: %s", a.RuleName),
		"text":       a.Message,
		"sections": []map[string]interface{}{{
			"facts": []map[string]string{
				{"name": "Source", "value": a.Source},
				{"name": "Value", "value": fmt.Sprintf("%.2f", a.Value)},
				{"name": "State", "value": a.State},
			},
		}},
	}
	body, _ := json.Marshal(payload)
	return e.post(url, body)
}

// sendPagerDuty posts an Events API v2 payload. The dedup key is derived from
// the rule/source pair so the resolve event matches its trigger.
func (e *Engine) sendPagerDuty(url string, a *Alert) error {
	action := "trigger"
	if a.State == "resolved" {
		action = "resolve"
	}
	payload := map[string]interface{}{
		"event_action": action,
		"dedup_key":    a.RuleName + ":" + a.Source,
		"payload": map[string]interface{}{
			"summary":  a.Message,
			"source":   a.Source,
			"severity": pagerDutySeverity(a.Severity),
			"custom_details": map[string]interface{}{
				"rule":  a.RuleName,
				"value": a.Value,
			},
		},
	}
	body, _ := json.Marshal(payload)
	return e.post(url, body)
}

func (e *Engine) sendHTTP(url string, a *Alert) error {
	body, _ := json.Marshal(map[string]interface{}{"alert": a})
	return e.post(url, body)
}

func (e *Engine) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// alertLabel is the bracketed prefix for chat-style targets: the severity
// while firing, [RESOLVED] once the condition clears.
func alertLabel(a *Alert) string {
	if a.State == "resolved" {
		return "[RESOLVED]"
	}
	return severityLabel(a.Severity)
}

func severityLabel(s string) string {
	switch s {
	case "critical":
		return "[CRITICAL]"
	case "warning":
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

// pagerDutySeverity maps rule severities onto the set the Events API accepts.
func pagerDutySeverity(s string) string {
	switch s {
	case "critical", "warning":
		return s
	default:
		return "info"
	}
}

func severityColor(s string) string {
	switch s {
	case "critical":
		return "FF4F6A"
	case "warning":
		return "FFAB40"
	default:
		return "00D4FF"
	}
}
