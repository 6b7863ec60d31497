// Package alerts delivers drift alerts to operators.
package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/joshuahuffman02/Camp-Everyday/internal/reconciliation"
)

// WebhookNotifier posts a Slack-compatible {"text": ...} payload to a URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string, client *http.Client) *WebhookNotifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookNotifier{url: url, client: client}
}

var _ reconciliation.Notifier = (*WebhookNotifier)(nil)

type payload struct {
	Text       string `json:"text"`
	Severity   string `json:"severity"`
	PayoutID   string `json:"payout_id"`
	TenantID   string `json:"campground_id"`
	DriftCents int64  `json:"drift_cents"`
}

func (n *WebhookNotifier) Notify(ctx context.Context, alert reconciliation.DriftAlert) error {
	body, err := json.Marshal(payload{
		Text:       fmt.Sprintf("[%s] %s", alert.Severity, alert.Message),
		Severity:   string(alert.Severity),
		PayoutID:   alert.PayoutID,
		TenantID:   alert.TenantID,
		DriftCents: alert.DriftCents,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post alert: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("post alert: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// LogNotifier writes alerts to the log. It is used when no webhook URL is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

var _ reconciliation.Notifier = (*LogNotifier)(nil)

func (n *LogNotifier) Notify(ctx context.Context, alert reconciliation.DriftAlert) error {
	n.logger.WarnContext(ctx, "alert (no webhook configured)",
		"message", alert.Message,
		"severity", alert.Severity,
		"payout_id", alert.PayoutID,
		"campground_id", alert.TenantID,
		"drift_cents", alert.DriftCents,
	)
	return nil
}

// New picks the webhook notifier when url is set, otherwise the log notifier.
func New(url string, logger *slog.Logger) reconciliation.Notifier {
	if url == "" {
		return NewLogNotifier(logger)
	}
	return NewWebhookNotifier(url, nil)
}
