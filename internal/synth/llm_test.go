package synth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

func chatHandler(reply string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp := chatResponse{}
		resp.Choices = append(resp.Choices, struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		}{})
		resp.Choices[0].Message.Content = reply
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func newTestClient(t *testing.T, url string, retries int) *OpenAIClient {
	t.Helper()
	c, err := NewOpenAIClient(OpenAIConfig{
		BaseURL:    url,
		APIKey:     "test-key",
		Model:      "test-model",
		MaxRetries: retries,
	}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestOpenAIClient_Complete(t *testing.T) {
	srv := httptest.NewServer(chatHandler("  the answer  "))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	out, err := c.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatal(err)
	}
	if out != "the answer" {
		t.Errorf("expected trimmed completion, got %q", out)
	}
}

func TestOpenAIClient_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "throttled", http.StatusTooManyRequests)
			return
		}
		chatHandler("ok")(w, r)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 2)
	if _, err := c.Complete(context.Background(), "s", "u"); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestOpenAIClient_ClientErrorIsFatal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	if _, err := c.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("4xx should not be retried, got %d calls", calls.Load())
	}
}
