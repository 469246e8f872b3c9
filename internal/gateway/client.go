package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://ai.gateway.lovable.dev/v1"
	defaultTimeout = 60 * time.Second

	maxErrorBodySize = 4 << 10
)

// Provider-signalled conditions. The client performs no automatic
// retries; retry policy, if any, belongs to the caller.
var (
	// ErrRateLimited is returned when the provider signals throttling (HTTP 429).
	ErrRateLimited = errors.New("rate limited by AI provider")
	// ErrQuotaExhausted is returned when the provider signals depleted credits (HTTP 402).
	ErrQuotaExhausted = errors.New("AI provider quota exhausted")
)

// Client communicates with an OpenAI-compatible chat completion gateway.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a completion client with the given API key.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// NewClientWithBaseURL creates a client pointing at a custom base URL (for testing).
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// Complete sends a chat completion request and returns the raw text of
// the single completion choice. The call is bounded by a 60s timeout.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: %s", ErrRateLimited, readErrorBody(resp.Body))
	case http.StatusPaymentRequired:
		return "", fmt.Errorf("%w: %s", ErrQuotaExhausted, readErrorBody(resp.Body))
	default:
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("response contained no completion choices")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func readErrorBody(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	return strings.TrimSpace(string(body))
}
