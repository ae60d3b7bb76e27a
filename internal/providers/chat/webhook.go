package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/smallbiznis/kado/internal/observability/tracing"
)

type Config struct {
	WebhookURL string
	AuthToken  string
	Timeout    time.Duration
}

// WebhookProvider posts messages to a chat platform inbound webhook.
type WebhookProvider struct {
	cfg    Config
	client *http.Client
}

func NewWebhook(cfg Config) *WebhookProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookProvider{
		cfg:    cfg,
		client: tracing.WrapHTTPClient(&http.Client{Timeout: timeout}),
	}
}

type webhookPayload struct {
	Channel string `json:"channel,omitempty"`
	UserID  int64  `json:"user_id,omitempty"`
	Text    string `json:"text"`
}

func (p *WebhookProvider) PostMessage(ctx context.Context, channelID string, message string) error {
	return p.post(ctx, webhookPayload{Channel: channelID, Text: message})
}

func (p *WebhookProvider) PostDirectMessage(ctx context.Context, memberExternalID int64, message string) error {
	return p.post(ctx, webhookPayload{UserID: memberExternalID, Text: message})
}

func (p *WebhookProvider) post(ctx context.Context, payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.AuthToken)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
