package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxResponseBody bounds how much of an endpoint reply is kept for reports.
const maxResponseBody = 64 << 10

type webhookPayload struct {
	Content string `json:"content"`
}

// WebhookPoster posts {"content": ...} JSON to a webhook URL.
type WebhookPoster struct {
	client *http.Client
}

// NewWebhookPoster shares client across every post of a run.
func NewWebhookPoster(client *http.Client) *WebhookPoster {
	if client == nil {
		client = &http.Client{}
	}
	return &WebhookPoster{client: client}
}

func (p *WebhookPoster) Post(ctx context.Context, dest, content string) (Response, error) {
	b, err := json.Marshal(webhookPayload{Content: content})
	if err != nil {
		return Response{}, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dest, bytes.NewReader(b))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return Response{StatusCode: resp.StatusCode}, fmt.Errorf("read response: %w", err)
	}
	return Response{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}, nil
}
