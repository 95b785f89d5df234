// Package embedding decorates query embedders with request-scoped behavior.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfsearch/internal/domain"
	"github.com/kailas-cloud/shelfsearch/internal/logger"
)

// DefaultTimeout bounds a single query embedding so a slow provider only
// delays semantic search until the keyword fallback takes over.
const DefaultTimeout = 2 * time.Second

// InstrumentedEmbedder adds a per-call deadline, request logging and usage
// accounting to an embedder. Transport metrics are recorded in transport/openai.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps inner. A non-positive timeout uses DefaultTimeout.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string,
	timeout time.Duration, logger *zap.Logger,
) *InstrumentedEmbedder {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		timeout:  timeout,
		logger:   logger,
	}
}

// Embed delegates under the call deadline and records usage on the request
// context. Exceeding the deadline wraps both domain.ErrEmbeddingProviderError
// and context.DeadlineExceeded; a canceled caller context is returned as is.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	log := logger.FromContext(ctx, p.logger).With(
		zap.String("provider", p.provider),
		zap.String("model", p.model),
	)

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	result, err := p.inner.Embed(callCtx, text)
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("embedding timed out after %s: %w: %w",
				p.timeout, domain.ErrEmbeddingProviderError, context.DeadlineExceeded)
		}
		log.Warn("Embedding request failed", zap.Duration("duration", duration), zap.Error(err))
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	domain.UsageFromContext(ctx).Record(result)

	log.Debug("Embedding request completed",
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
		zap.Bool("cached", result.Cached),
	)
	return result, nil
}
