// Package notify delivers client events to an external webhook.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Event names.
const (
	EventClientCreated = "client.created"
	EventClientTagged  = "client.tagged"
)

// Event is the JSON body posted to the webhook.
type Event struct {
	Event          string    `json:"event"`
	OrganizationID string    `json:"organizationId"`
	ClientID       string    `json:"clientId"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// Notifier publishes client events.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Webhook posts events as JSON to a fixed URL.
type Webhook struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger
}

// NewWebhook creates a notifier posting to url.
func NewWebhook(url string, timeout time.Duration, logger *zap.Logger) *Webhook {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "salon-crm-webhook")

	return &Webhook{httpClient: client, url: url, logger: logger}
}

func (w *Webhook) Notify(ctx context.Context, event Event) error {
	resp, err := w.httpClient.R().
		SetContext(ctx).
		SetBody(event).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("posting %s webhook: %w", event.Event, err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook %s returned status %d", event.Event, resp.StatusCode())
	}

	w.logger.Debug("webhook delivered",
		zap.String("event", event.Event),
		zap.String("client_id", event.ClientID),
		zap.Int("status_code", resp.StatusCode()))
	return nil
}

// Noop discards every event.
type Noop struct{}

func (Noop) Notify(context.Context, Event) error { return nil }
