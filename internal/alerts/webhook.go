package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/surstitch/leadboard/internal/config"
)

// payloads builds the request body for each supported webhook type.
var payloads = map[string]func(a *Alert) any{
	"slack": func(a *Alert) any {
		return map[string]string{"text": fmt.Sprintf("*%s* %s", badge(a), summary(a))}
	},
	"teams": func(a *Alert) any {
		return map[string]string{
			"@type":      "MessageCard",
			"@context":   "http://schema.org/extensions",
			"themeColor": colour(a),
			"summary":    a.RuleName,
			"title":      fmt.Sprintf("Leadboard %s: %s", badge(a), a.RuleName),
			"text":       summary(a),
		}
	},
	"http": func(a *Alert) any {
		return map[string]*Alert{"alert": a}
	},
}

// deliver posts a to every configured webhook. Failures are logged only.
func (e *Engine) deliver(a *Alert, hooks []config.WebhookConfig) {
	for _, wh := range hooks {
		build, ok := payloads[wh.Type]
		if !ok {
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}
		url := wh.URL()
		if url == "" {
			slog.Debug("alerts: webhook url unset, skipping", "type", wh.Type, "url_env", wh.URLEnv)
			continue
		}

		log := slog.With("type", wh.Type, "rule", a.RuleName, "state", a.State)
		if err := e.post(url, build(a)); err != nil {
			log.Error("alerts: webhook delivery failed", "err", err)
			continue
		}
		log.Debug("alerts: webhook delivered")
	}
}

func (e *Engine) post(url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook answered %s", resp.Status)
	}
	return nil
}

// summary is the one-line human text of a, naming the dataset.
func summary(a *Alert) string {
	if a.Dataset == "" {
		return a.Message
	}
	return fmt.Sprintf("%s (dataset %s)", a.Message, a.Dataset)
}

func badge(a *Alert) string {
	switch {
	case a.State == StateResolved:
		return "[RESOLVED]"
	case a.Severity == "critical":
		return "[CRITICAL]"
	case a.Severity == "warning":
		return "[WARNING]"
	}
	return "[INFO]"
}

func colour(a *Alert) string {
	switch {
	case a.State == StateResolved:
		return "2EB67D"
	case a.Severity == "critical":
		return "FF4F6A"
	case a.Severity == "warning":
		return "FFAB40"
	}
	return "00D4FF"
}
