// Package auditsink forwards login audit events to an external webhook.
package auditsink

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"babettepos/internal/domain"
)

type Client struct {
	webhookURL string
	http       *resty.Client
}

// NewClient retries transport errors and 5xx answers up to retries times
// with exponential backoff between retryWait and retryMaxWait. An empty URL
// yields a client whose Publish does nothing.
func NewClient(webhookURL string, timeout time.Duration, retries int, retryWait, retryMaxWait time.Duration) *Client {
	hc := resty.New().
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(retryMaxWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	return &Client{webhookURL: webhookURL, http: hc}
}

func (c *Client) Enabled() bool { return c.webhookURL != "" }

func (c *Client) Publish(ctx context.Context, event domain.AuditEvent) error {
	if !c.Enabled() {
		return nil
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Event-ID", event.ID).
		SetHeader("X-Event-Type", string(event.Type)).
		SetHeader("X-Idempotency-Key", event.ID).
		SetBody(event).
		Post(c.webhookURL)
	if err != nil {
		return fmt.Errorf("publish audit event %s: %w", event.ID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("publish audit event %s: webhook status %d", event.ID, resp.StatusCode())
	}
	return nil
}
