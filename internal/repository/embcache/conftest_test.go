package embcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/reviewdex/internal/db"
	"github.com/kailas-cloud/reviewdex/internal/domain"
)

// fakeEmbedder returns vec(text) = [len(text), 1, 2] and 5 tokens per text.
type fakeEmbedder struct {
	err        error
	calls      int
	batchCalls int
	texts      []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	f.calls++
	f.texts = append(f.texts, text)
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	return domain.EmbeddingResult{Embedding: vecFor(text), PromptTokens: 5, TotalTokens: 5}, nil
}

func (f *fakeEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	f.batchCalls++
	f.texts = append(f.texts, texts...)
	if f.err != nil {
		return domain.BatchEmbeddingResult{}, f.err
	}
	out := domain.BatchEmbeddingResult{PromptTokens: 5 * len(texts), TotalTokens: 5 * len(texts)}
	for _, t := range texts {
		out.Embeddings = append(out.Embeddings, vecFor(t))
	}
	return out, nil
}

// singleEmbedder has no batch support.
type singleEmbedder struct{ inner *fakeEmbedder }

func (s singleEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return s.inner.Embed(ctx, text)
}

func vecFor(text string) []float32 {
	return []float32{float32(len(text)), 1, 2}
}

type memKV struct {
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMemKV() *memKV {
	return &memKV{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func newTestCache(t *testing.T, inner domain.Embedder, cfg Config) (*CachedEmbedder, *memKV) {
	t.Helper()
	kv := newMemKV()
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 3
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Mode == "" {
		cfg.Mode = domain.ModeQuery
	}
	return New(inner, kv, cfg, zap.NewNop()), kv
}
