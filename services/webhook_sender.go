package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/blogem/promptforge/models"
)

// DefaultWebhookTimeout bounds every outbound webhook call
const DefaultWebhookTimeout = 10 * time.Second

// OutboundRequest is one signed webhook POST
type OutboundRequest struct {
	URL     string
	Body    []byte
	Headers map[string]string
}

// Sender delivers webhook requests and reports the endpoint's status code
type Sender interface {
	Send(ctx context.Context, req *OutboundRequest) (int, error)
}

// HTTPSender posts webhook requests with a bounded timeout
type HTTPSender struct {
	client *http.Client
}

// NewHTTPSender creates a sender whose calls time out after timeout
func NewHTTPSender(timeout time.Duration) *HTTPSender {
	if timeout <= 0 {
		timeout = DefaultWebhookTimeout
	}
	return &HTTPSender{
		client: &http.Client{Timeout: timeout},
	}
}

// Send posts the body; a network error, timeout or non-2xx response is an upstream failure
func (s *HTTPSender) Send(ctx context.Context, req *OutboundRequest) (int, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return 0, fmt.Errorf("failed to build webhook request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "PromptForge-Webhooks/1.0")
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	defer resp.Body.Close()

	// Drain a bounded amount so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("%w: endpoint responded with status %d", models.ErrUpstream, resp.StatusCode)
	}

	return resp.StatusCode, nil
}
