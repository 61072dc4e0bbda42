package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/finansmanager/internal/domain"
)

// ProcessChatPath is the proxy endpoint.
const ProcessChatPath = "/api/process-chat"

// Proxy sends one message to the chat proxy.
type Proxy interface {
	ProcessChat(ctx context.Context, req domain.ProcessChatRequest) (*domain.Envelope, error)
}

// ProxyClient is the HTTP client for the chat proxy.
type ProxyClient struct {
	baseURL string
	client  *http.Client
}

var _ Proxy = (*ProxyClient)(nil)

// NewProxyClient creates a client for the proxy at baseURL.
func NewProxyClient(baseURL string, timeout time.Duration) *ProxyClient {
	return &ProxyClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// ProcessChat posts the request once. Any non-2xx status is an error.
func (c *ProxyClient) ProcessChat(ctx context.Context, req domain.ProcessChatRequest) (*domain.Envelope, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("ProcessChat: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ProcessChatPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ProcessChat: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ProcessChat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("Backend Proxy failed with status %d.", resp.StatusCode)
	}

	var env domain.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("ProcessChat: decoding response: %w", err)
	}
	return &env, nil
}
