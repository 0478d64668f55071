package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/httputil"
	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/monitor"
)

// WebhookPublisher POSTs results as JSON to a fixed URL. The envelope
// carries a kind discriminator so one endpoint can receive both window
// results and episodes.
type WebhookPublisher struct {
	client httputil.HTTPClient
	url    string
}

// NewWebhookPublisher returns a publisher for the given endpoint. A nil
// client selects a standard HTTP client with a short timeout.
func NewWebhookPublisher(url string, client httputil.HTTPClient) *WebhookPublisher {
	if client == nil {
		client = httputil.NewStandardClient(&http.Client{Timeout: 10 * time.Second})
	}
	return &WebhookPublisher{client: client, url: url}
}

// webhookEnvelope is the POST body.
type webhookEnvelope struct {
	Kind    string                `json:"kind"`
	Window  *monitor.WindowResult `json:"window,omitempty"`
	Episode *monitor.Episode      `json:"episode,omitempty"`
}

func (p *WebhookPublisher) post(ctx context.Context, env webhookEnvelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook POST: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (p *WebhookPublisher) PublishResult(ctx context.Context, r monitor.WindowResult) error {
	return p.post(ctx, webhookEnvelope{Kind: "window", Window: &r})
}

func (p *WebhookPublisher) PublishEpisode(ctx context.Context, e monitor.Episode) error {
	return p.post(ctx, webhookEnvelope{Kind: "episode", Episode: &e})
}

func (p *WebhookPublisher) Close() error { return nil }
