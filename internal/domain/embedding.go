package domain

import (
	"context"
	"fmt"
)

// Mode selects how text is embedded: for storage or for search.
type Mode string

const (
	// ModeDocument embeds text that will be stored.
	ModeDocument Mode = "document"
	// ModeQuery embeds a search query.
	ModeQuery Mode = "query"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in a single API call.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries multiple embedding vectors and aggregate token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// BatchFallback вызывает Embed по одному для каждого текста, для провайдеров без batch.
func BatchFallback(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	embeddings := make([][]float32, len(texts))
	var totalPrompt, totalTokens int

	for i, text := range texts {
		res, err := e.Embed(ctx, text)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("fallback embed [%d]: %w", i, err)
		}
		embeddings[i] = res.Embedding
		totalPrompt += res.PromptTokens
		totalTokens += res.TotalTokens
	}

	return BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: totalPrompt,
		TotalTokens:  totalTokens,
	}, nil
}

// InstructionEmbedder prepends a mode-specific instruction before embedding.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder creates a decorator that prepends instruction text.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Embed prepends instruction and delegates to inner embedder.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, e.instruction+text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return result, nil
}

// BatchEmbed prepends instruction to each text and delegates to inner BatchEmbedder,
// falling back to per-text Embed when inner has no batch support.
func (e *InstructionEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = e.instruction + t
	}

	if be, ok := e.inner.(BatchEmbedder); ok {
		res, err := be.BatchEmbed(ctx, prefixed)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("instruction batch embed: %w", err)
		}
		return res, nil
	}

	res, err := BatchFallback(ctx, e.inner, prefixed)
	if err != nil {
		return BatchEmbeddingResult{}, fmt.Errorf("instruction batch embed fallback: %w", err)
	}
	return res, nil
}

// Gateway routes texts to the document or query embedder and guarantees
// one vector per input text, in input order.
type Gateway struct {
	document Embedder
	query    Embedder
}

// NewGateway creates a mode-aware embedding gateway.
func NewGateway(document, query Embedder) *Gateway {
	return &Gateway{document: document, query: query}
}

// Embed vectorizes texts in the given mode.
func (g *Gateway) Embed(ctx context.Context, texts []string, mode Mode) (BatchEmbeddingResult, error) {
	var e Embedder
	switch mode {
	case ModeDocument:
		e = g.document
	case ModeQuery:
		e = g.query
	default:
		return BatchEmbeddingResult{}, fmt.Errorf("%w: unknown embedding mode %q", ErrValidation, mode)
	}
	if len(texts) == 0 {
		return BatchEmbeddingResult{}, nil
	}

	var (
		res BatchEmbeddingResult
		err error
	)
	if be, ok := e.(BatchEmbedder); ok {
		res, err = be.BatchEmbed(ctx, texts)
	} else {
		res, err = BatchFallback(ctx, e, texts)
	}
	if err != nil {
		return BatchEmbeddingResult{}, fmt.Errorf("embed %s: %w", mode, err)
	}
	if len(res.Embeddings) != len(texts) {
		return BatchEmbeddingResult{}, fmt.Errorf(
			"%w: got %d vectors for %d texts", ErrEmbeddingProviderError, len(res.Embeddings), len(texts),
		)
	}
	UsageFromContext(ctx).AddTokens(res.TotalTokens)
	return res, nil
}

// EmbedQuery vectorizes a single search query.
func (g *Gateway) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	res, err := g.Embed(ctx, []string{text}, ModeQuery)
	if err != nil {
		return nil, err
	}
	return res.Embeddings[0], nil
}

// EmbedDocuments vectorizes texts for storage.
func (g *Gateway) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	res, err := g.Embed(ctx, texts, ModeDocument)
	if err != nil {
		return nil, err
	}
	return res.Embeddings, nil
}
