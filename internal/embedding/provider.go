package embedding

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Provider wraps a primary embedder and a local fallback. The active embedder
// is resolved once per session: the first primary failure (after the primary's
// own bounded retries) trips the fallback permanently for this Provider, since
// an index must never mix vectors from two providers. Callers observe only the
// Embedder interface.
type Provider struct {
	primary  Embedder
	fallback Embedder
	logger   *zap.Logger

	mu       sync.RWMutex
	active   Embedder
	fellBack bool
}

// NewProvider creates a provider. primary may be nil, in which case the
// fallback serves from the start without counting as a fallback event.
func NewProvider(primary, fallback Embedder, logger *zap.Logger) *Provider {
	active := primary
	if active == nil {
		active = fallback
	}
	return &Provider{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		active:   active,
	}
}

// Embed embeds one text with the active embedder, tripping the fallback on
// primary failure.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts with the active embedder. A primary failure that is
// not a context cancellation switches to the fallback and retries the batch.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	active := p.current()
	out, err := active.EmbedBatch(ctx, texts)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		// Cancellation is the caller's doing, not a provider fault.
		return nil, err
	}
	if active != p.primary || p.fallback == nil {
		return nil, err
	}
	p.trip(err)
	return p.fallback.EmbedBatch(ctx, texts)
}

// Dimensions returns the active embedder's dimension. It changes when the
// fallback trips; callers building an index must re-check after embedding.
func (p *Provider) Dimensions() int { return p.current().Dimensions() }

// Name returns the active embedder's provider identifier.
func (p *Provider) Name() string { return p.current().Name() }

// FallbackTriggered reports whether the primary failed and the fallback took over.
func (p *Provider) FallbackTriggered() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fellBack
}

// Close closes both embedders.
func (p *Provider) Close() error {
	var err error
	if p.primary != nil {
		err = p.primary.Close()
	}
	if p.fallback != nil {
		if cerr := p.fallback.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (p *Provider) current() Embedder {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active
}

func (p *Provider) trip(cause error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fellBack {
		return
	}
	p.fellBack = true
	p.active = p.fallback
	p.logger.Warn("embedding provider fallback triggered",
		zap.String("from", p.primary.Name()),
		zap.String("to", p.fallback.Name()),
		zap.Int("fallback_dimensions", p.fallback.Dimensions()),
		zap.Error(cause),
	)
}
