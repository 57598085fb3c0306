package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

// RemoteConfig configures the remote embeddings client.
type RemoteConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	Timeout    time.Duration
	MaxRetries int
	BatchSize  int
	// MaxChars is the per-text limit; longer texts are truncated with a logged warning.
	MaxChars int
}

// RemoteEmbedder calls an OpenAI-compatible /embeddings endpoint. Requests are
// batched to amortize call overhead and retried with exponential backoff,
// honoring Retry-After on throttling responses.
type RemoteEmbedder struct {
	cfg    RemoteConfig
	client *http.Client
	logger *zap.Logger
}

// NewRemoteEmbedder creates a remote embedder. Dimensions must match what the
// configured model produces; the first response is validated against it.
func NewRemoteEmbedder(cfg RemoteConfig, logger *zap.Logger) (*RemoteEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("remote embedder: missing API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 8000
	}
	return &RemoteEmbedder{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// Name returns the provider identifier.
func (e *RemoteEmbedder) Name() string { return "remote:" + e.cfg.Model }

// Dimensions returns the embedding dimension.
func (e *RemoteEmbedder) Dimensions() int { return e.cfg.Dimensions }

// Embed returns the embedding for a single text.
func (e *RemoteEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in batches of the configured size. Oversized texts
// are truncated, never dropped, so the result always has one vector per input.
func (e *RemoteEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.cfg.BatchSize {
		end := start + e.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := make([]string, end-start)
		for i, text := range texts[start:end] {
			if len(text) > e.cfg.MaxChars {
				e.logger.Warn("embedding input truncated, fidelity reduced",
					zap.Int("original_chars", len(text)),
					zap.Int("max_chars", e.cfg.MaxChars),
				)
				text = truncateRunes(text, e.cfg.MaxChars)
			}
			batch[i] = text
		}
		vectors, err := e.embedOnce(ctx, batch)
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// embedOnce sends one batch with bounded retries.
func (e *RemoteEmbedder) embedOnce(ctx context.Context, batch []string) ([][]float32, error) {
	url := e.cfg.BaseURL + "/embeddings"
	body, err := json.Marshal(embeddingsRequest{Model: e.cfg.Model, Input: batch})
	if err != nil {
		return nil, &ProviderError{Provider: e.Name(), Reason: "encode request", Err: err}
	}

	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, retryDelay(attempt-1)); err != nil {
				return nil, err
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, &ProviderError{Provider: e.Name(), Reason: "build request", Err: err}
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

		resp, err := e.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
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
					return nil, err
				}
			}
			continue
		}
		if resp.StatusCode >= 300 {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			return nil, &ProviderError{Provider: e.Name(), Reason: fmt.Sprintf("status %s", resp.Status)}
		}

		var parsed embeddingsResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&parsed)
		_ = resp.Body.Close()
		if decodeErr != nil {
			lastErr = fmt.Errorf("decode response: %w", decodeErr)
			continue
		}
		if len(parsed.Data) != len(batch) {
			lastErr = fmt.Errorf("malformed response: %d embeddings for %d inputs", len(parsed.Data), len(batch))
			continue
		}
		vectors := make([][]float32, len(batch))
		for _, item := range parsed.Data {
			if item.Index < 0 || item.Index >= len(batch) {
				return nil, &ProviderError{Provider: e.Name(), Reason: fmt.Sprintf("malformed response: index %d out of range", item.Index)}
			}
			if len(item.Embedding) != e.cfg.Dimensions {
				return nil, &ProviderError{
					Provider: e.Name(),
					Reason:   fmt.Sprintf("dimension mismatch: got %d, expected %d", len(item.Embedding), e.cfg.Dimensions),
				}
			}
			vec := make([]float32, len(item.Embedding))
			for i, v := range item.Embedding {
				vec[i] = float32(v)
			}
			utils.NormalizeL2(vec)
			vectors[item.Index] = vec
		}
		return vectors, nil
	}
	return nil, &ProviderError{Provider: e.Name(), Reason: "retries exhausted", Err: lastErr}
}

// Close is a no-op for RemoteEmbedder.
func (e *RemoteEmbedder) Close() error { return nil }

// truncateRunes cuts text to at most maxBytes, backing up to the previous rune
// boundary so the result is never malformed UTF-8.
func truncateRunes(text string, maxBytes int) string {
	if len(text) <= maxBytes {
		return text
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// retryDelay returns the exponential backoff for the given attempt, capped at 5s.
func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := 200 * time.Millisecond << attempt
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
