package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// WebhookNotifier posts text alerts to a chat webhook. Delivery is
// fire-and-forget: failures are logged and discarded, and the caller is
// never blocked on the sink.
type WebhookNotifier struct {
	client  *resty.Client
	url     string
	timeout time.Duration
	log     *slog.Logger
}

// NewWebhook creates a notifier for the given webhook URL.
func NewWebhook(url string, timeout time.Duration, logger *slog.Logger) *WebhookNotifier {
	client := resty.New().SetTimeout(timeout)
	return &WebhookNotifier{client: client, url: url, timeout: timeout, log: logger}
}

// Notify sends text to the webhook in the background. The request runs on a
// detached context so a finished HTTP request cannot cancel the alert.
func (n *WebhookNotifier) Notify(_ context.Context, text string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		resp, err := n.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(map[string]string{"text": text}).
			Post(n.url)
		if err != nil {
			n.log.Warn("notify.webhook.send", "err", err)
			return
		}
		if resp.IsError() {
			n.log.Warn("notify.webhook.status", "status", resp.StatusCode())
		}
	}()
}

// Nop is a notifier that discards every alert. Used when no webhook is
// configured.
type Nop struct{}

// Notify does nothing.
func (Nop) Notify(context.Context, string) {}
