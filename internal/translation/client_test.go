package translation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func completionHandler(t *testing.T, content string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{
						"role":    "assistant",
						"content": content,
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}
}

func TestChatClientRequestShape(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Fatalf("unexpected content type %q", got)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		completionHandler(t, "  こんにちは  \n")(w, r)
	}))
	defer server.Close()

	client := NewChatClient(ClientConfig{APIKey: "secret", BaseURL: server.URL + "/"})
	got, err := client.Complete(context.Background(), Completion{
		Model:     "demo-model",
		System:    "Translate the following text to Japanese.",
		User:      "Hello",
		MaxTokens: 60,
	})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got != "こんにちは" {
		t.Fatalf("expected trimmed content, got %q", got)
	}
	if captured.Model != "demo-model" || captured.MaxTokens != 60 {
		t.Fatalf("unexpected request %+v", captured)
	}
	if len(captured.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(captured.Messages))
	}
	if captured.Messages[0].Role != "system" || captured.Messages[0].Content != "Translate the following text to Japanese." {
		t.Fatalf("unexpected system message %+v", captured.Messages[0])
	}
	if captured.Messages[1].Role != "user" || captured.Messages[1].Content != "Hello" {
		t.Fatalf("unexpected user message %+v", captured.Messages[1])
	}
}

func TestChatClientEndpoint(t *testing.T) {
	client := NewChatClient(ClientConfig{BaseURL: " https://api.example.com/ "})
	if got := client.Endpoint(); got != "https://api.example.com/v1/chat/completions" {
		t.Fatalf("unexpected endpoint %q", got)
	}
}

func TestChatClientBackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("not found"))
	}))
	defer server.Close()

	client := NewChatClient(ClientConfig{APIKey: "k", BaseURL: server.URL})
	_, err := client.Complete(context.Background(), Completion{Model: "m", User: "Hello"})
	var backendErr *BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if backendErr.StatusCode != http.StatusNotFound || backendErr.Body != "not found" {
		t.Fatalf("unexpected backend error %+v", backendErr)
	}
	if backendErr.Marker() != "[Error: 404 - not found]" {
		t.Fatalf("unexpected marker %q", backendErr.Marker())
	}
}

func TestChatClientMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer server.Close()

	client := NewChatClient(ClientConfig{APIKey: "k", BaseURL: server.URL})
	_, err := client.Complete(context.Background(), Completion{Model: "m", User: "Hello"})
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestChatClientMissingChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewChatClient(ClientConfig{APIKey: "k", BaseURL: server.URL})
	_, err := client.Complete(context.Background(), Completion{Model: "m", User: "Hello"})
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestChatClientTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewChatClient(ClientConfig{APIKey: "k", BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	_, err := client.Complete(context.Background(), Completion{Model: "m", User: "Hello"})
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError on timeout, got %v", err)
	}
}

func TestChatClientConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewChatClient(ClientConfig{APIKey: "k", BaseURL: url})
	_, err := client.Complete(context.Background(), Completion{Model: "m", User: "Hello"})
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func jsonDecode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
