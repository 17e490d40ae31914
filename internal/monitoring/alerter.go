package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/camera-db/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertBuildFailed    AlertType = "build_failed"
	AlertCategoryFailed AlertType = "category_failed"
	AlertSourceDegraded AlertType = "source_degraded"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// AlerterConfig configures the webhook alerter.
type AlerterConfig struct {
	WebhookURL      string
	AlertOnFallback bool // also alert when a fallback source served a category
}

// Alerter evaluates a finished run and sends alerts via webhook.
type Alerter struct {
	cfg    AlerterConfig
	client *http.Client
	now    func() time.Time
}

// NewAlerter creates a new Alerter.
func NewAlerter(cfg AlerterConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
}

// Evaluate returns the alerts a run warrants.
func (a *Alerter) Evaluate(run *model.RunResult) []Alert {
	var alerts []Alert
	now := a.now().UTC()

	if !run.OK() {
		alerts = append(alerts, Alert{
			Type:     AlertBuildFailed,
			Severity: "high",
			Message:  fmt.Sprintf("camera build %s for %s wrote no databases", run.ID, run.Scope),
			Details: map[string]any{
				"run_id":     run.ID,
				"scope":      run.Scope,
				"categories": len(run.Categories),
			},
			Timestamp: now,
		})
		return alerts
	}

	for _, c := range run.Categories {
		switch {
		case c.State == model.StateFailed:
			alerts = append(alerts, Alert{
				Type:     AlertCategoryFailed,
				Severity: "medium",
				Message:  fmt.Sprintf("%s database not regenerated: %s", c.Category, c.Reason()),
				Details: map[string]any{
					"run_id":   run.ID,
					"category": string(c.Category),
					"attempts": len(c.Attempts),
				},
				Timestamp: now,
			})
		case a.cfg.AlertOnFallback && c.State == model.StateWritten && c.Reason() != "":
			alerts = append(alerts, Alert{
				Type:     AlertSourceDegraded,
				Severity: "low",
				Message:  fmt.Sprintf("%s database built from fallback: %s", c.Category, c.Reason()),
				Details: map[string]any{
					"run_id":   run.ID,
					"category": string(c.Category),
					"records":  c.Records,
				},
				Timestamp: now,
			})
		}
	}
	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
