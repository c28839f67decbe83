// Package notifier forwards raised alerts to an optional external
// webhook, the service-to-service counterpart of the dashboard push.
package notifier

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/snarayanan1095/Wellnest/internal/config"
	"github.com/snarayanan1095/Wellnest/internal/models"
)

// WebhookNotifier posts alerts as JSON to a configured URL with bounded
// retry. A nil notifier (no URL configured) is valid and does nothing.
type WebhookNotifier struct {
	client *resty.Client
	url    string
	logger *zap.Logger
}

// NewWebhookNotifier creates a notifier, or nil when no webhook URL is
// configured.
func NewWebhookNotifier(cfg config.NotifierConfig, logger *zap.Logger) *WebhookNotifier {
	if cfg.WebhookURL == "" {
		return nil
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Content-Type", "application/json")

	return &WebhookNotifier{
		client: client,
		url:    cfg.WebhookURL,
		logger: logger,
	}
}

// Notify delivers one alert. Failures are returned for logging but the
// caller treats them as best-effort; the alert is already persisted.
func (n *WebhookNotifier) Notify(ctx context.Context, alert models.Alert) error {
	if n == nil {
		return nil
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(alert).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("failed to post alert webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode())
	}

	n.logger.Debug("Alert forwarded to webhook",
		zap.String("alert_id", alert.AlertID),
		zap.Int("status_code", resp.StatusCode()),
	)
	return nil
}
