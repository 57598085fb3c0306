// Package synth turns retrieved chunks into grounded answers via an
// OpenAI-compatible chat completions endpoint.
package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// LLMClient generates a completion from a system and user message.
type LLMClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// SynthesisError reports a failed answer synthesis for one question.
type SynthesisError struct {
	Question string
	Reason   string
	Err      error
}

func (e *SynthesisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("synthesis failed for %q: %s: %v", e.Question, e.Reason, e.Err)
	}
	return fmt.Sprintf("synthesis failed for %q: %s", e.Question, e.Reason)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// OpenAIConfig configures the chat completions client.
type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	MaxTokens   int
	Temperature float64
}

// OpenAIClient calls an OpenAI-compatible /chat/completions endpoint with
// bounded retries and backoff on throttling and server errors.
type OpenAIClient struct {
	cfg    OpenAIConfig
	client *http.Client
	logger *zap.Logger
}

// chatRequest is the /chat/completions request format.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the /chat/completions response format.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIClient creates a chat completions client.
func NewOpenAIClient(cfg OpenAIConfig, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm client: missing API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &OpenAIClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// Complete sends one chat completion request, retrying throttled and failed
// attempts with backoff.
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}
	url := c.cfg.BaseURL + "/chat/completions"

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, backoff(attempt-1)); err != nil {
				return "", err
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("build chat request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			retryAfter := resp.Header.Get("Retry-After")
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("status %s", resp.Status)
			if secs, parseErr := strconv.Atoi(retryAfter); parseErr == nil {
				if err := sleepCtx(ctx, time.Duration(secs)*time.Second); err != nil {
					return "", err
				}
			}
			continue
		}
		if resp.StatusCode >= 300 {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			return "", fmt.Errorf("chat completion: status %s", resp.Status)
		}

		var parsed chatResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&parsed)
		_ = resp.Body.Close()
		if decodeErr != nil {
			lastErr = fmt.Errorf("decode chat response: %w", decodeErr)
			continue
		}
		if parsed.Error != nil {
			return "", fmt.Errorf("chat completion: %s", parsed.Error.Message)
		}
		if len(parsed.Choices) == 0 {
			lastErr = fmt.Errorf("chat completion: empty choices")
			continue
		}
		return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
	}
	return "", fmt.Errorf("chat completion retries exhausted: %w", lastErr)
}

// backoff returns the exponential delay for an attempt, capped at 5s.
func backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := 250 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

// sleepCtx sleeps for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
