package translation

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

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

const (
	// CompletionPath is appended to the configured base URL.
	CompletionPath = "/v1/chat/completions"

	DefaultTimeout = 60 * time.Second
)

// ClientConfig is the immutable connection setup for a ChatClient.
type ClientConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// ChatClient talks to an OpenAI-compatible chat completion endpoint.
type ChatClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewChatClient creates a client for the given endpoint configuration.
func NewChatClient(cfg ClientConfig) *ChatClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ChatClient{
		apiKey:   strings.TrimSpace(cfg.APIKey),
		endpoint: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/") + CompletionPath,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Endpoint returns the full completion URL.
func (c *ChatClient) Endpoint() string {
	return c.endpoint
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

// Complete sends one system+user exchange and returns the trimmed content of
// the first choice. Non-200 responses come back as *BackendError, everything
// else that goes wrong as *TransportError.
func (c *ChatClient) Complete(ctx context.Context, comp Completion) (string, error) {
	reqBody := chatRequest{
		Model: comp.Model,
		Messages: []chatMessage{
			{Role: "system", Content: comp.System},
			{Role: "user", Content: comp.User},
		},
		MaxTokens: comp.MaxTokens,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", &TransportError{Op: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Op: "completion call", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Op: "read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &BackendError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if !gjson.ValidBytes(respBody) {
		return "", &TransportError{Op: "decode response", Err: errors.New("malformed JSON body")}
	}
	content := gjson.GetBytes(respBody, "choices.0.message.content")
	if !content.Exists() {
		return "", &TransportError{Op: "decode response", Err: errors.New("no choices in response")}
	}

	log.Debug().
		Str("model", comp.Model).
		Dur("elapsed", time.Since(start)).
		Int64("total_tokens", gjson.GetBytes(respBody, "usage.total_tokens").Int()).
		Msg("Completion received")

	return strings.TrimSpace(content.String()), nil
}
