// Package embedding decorates embedding providers with chunking, logging and metrics.
package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/reviewdex/internal/domain"
	"github.com/kailas-cloud/reviewdex/internal/metrics"
)

// DefaultMaxAPIBatchSize: максимальный размер батча для одного API-запроса.
const DefaultMaxAPIBatchSize = 256

// InstrumentedEmbedder wraps the embedder of one mode with logging, sub-batching
// and the per-mode text counter. Request, duration and token metrics live in
// transport/openai.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	mode     string
	maxBatch int
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder serving mode.
func NewInstrumentedEmbedder(
	inner domain.Embedder, mode domain.Mode, model string, logger *zap.Logger,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:    inner,
		mode:     string(mode),
		maxBatch: DefaultMaxAPIBatchSize,
		logger:   logger.With(zap.String("mode", string(mode)), zap.String("model", model)),
	}
}

// WithMaxBatch overrides the sub-batch size sent to the provider.
func (p *InstrumentedEmbedder) WithMaxBatch(n int) *InstrumentedEmbedder {
	if n > 0 {
		p.maxBatch = n
	}
	return p
}

// Embed delegates a single text.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	res, err := p.inner.Embed(ctx, text)
	if err != nil {
		p.logger.Error("Embedding request failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.done(start, 1, res.PromptTokens, res.TotalTokens)
	return res, nil
}

// BatchEmbed splits texts into sub-batches of at most maxBatch and joins the
// vectors back in input order.
func (p *InstrumentedEmbedder) BatchEmbed(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	start := time.Now()

	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, 0, len(texts))}
	for offset := 0; offset < len(texts); offset += p.maxBatch {
		chunk := texts[offset:min(offset+p.maxBatch, len(texts))]

		res, err := p.embedChunk(ctx, chunk)
		if err != nil {
			p.logger.Error("Batch embedding request failed",
				zap.Int("chunk_offset", offset),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err),
			)
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
		}
		if len(res.Embeddings) != len(chunk) {
			return domain.BatchEmbeddingResult{}, fmt.Errorf(
				"chunk at %d: expected %d embeddings, got %d: %w",
				offset, len(chunk), len(res.Embeddings), domain.ErrEmbeddingProviderError,
			)
		}
		out.Embeddings = append(out.Embeddings, res.Embeddings...)
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens
	}

	p.done(start, len(texts), out.PromptTokens, out.TotalTokens)
	return out, nil
}

func (p *InstrumentedEmbedder) done(start time.Time, texts, promptTokens, totalTokens int) {
	metrics.EmbeddingTextsTotal.WithLabelValues(p.mode).Add(float64(texts))
	p.logger.Debug("Embedding completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("texts", texts),
		zap.Int("prompt_tokens", promptTokens),
		zap.Int("total_tokens", totalTokens),
	)
}

func (p *InstrumentedEmbedder) embedChunk(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	if be, ok := p.inner.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, p.inner, texts)
}
