package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds the single report request
const DefaultTimeout = 15 * time.Second

// maxResponseBody caps how much of the endpoint's reply is kept
const maxResponseBody = 1024 * 1024

// Settings is the immutable transport configuration built once at startup
type Settings struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// Transport delivers a report and returns the receiver's status code and body
type Transport interface {
	Send(ctx context.Context, r *Report) (int, string, error)
}

// HTTPTransport POSTs reports as JSON with the shared-secret header
type HTTPTransport struct {
	settings Settings
	client   *http.Client
	logger   *zap.Logger
}

// NewHTTPTransport creates an HTTP transport; a zero timeout means DefaultTimeout
func NewHTTPTransport(settings Settings, logger *zap.Logger) *HTTPTransport {
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}
	return &HTTPTransport{
		settings: settings,
		client:   &http.Client{Timeout: settings.Timeout},
		logger:   logger,
	}
}

func (t *HTTPTransport) Send(ctx context.Context, r *Report) (int, string, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return 0, "", fmt.Errorf("failed to encode report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", t.settings.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-Key", t.settings.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "deviceinfo-agent/"+r.AgentVersion)

	t.logger.Debug("Sending report",
		zap.String("endpoint", t.settings.Endpoint),
		zap.Int("bytes", len(payload)))

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("failed to read response: %w", err)
	}

	t.logger.Debug("Received response",
		zap.Int("status_code", resp.StatusCode),
		zap.Int("bytes", len(body)))

	return resp.StatusCode, string(body), nil
}
