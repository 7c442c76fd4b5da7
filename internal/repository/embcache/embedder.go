// Package embcache caches embedding vectors in the key-value store so that
// repeated queries and re-ingested reviews skip the provider.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/reviewdex/internal/db"
	"github.com/kailas-cloud/reviewdex/internal/domain"
	"github.com/kailas-cloud/reviewdex/internal/metrics"
)

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Config scopes cache keys. Model and Dimensions are part of the key, so
// switching either starts from an empty cache.
type Config struct {
	KeyPrefix  string
	Model      string
	Dimensions int
	Mode       domain.Mode
	// TTL <= 0 keeps entries until evicted.
	TTL time.Duration
}

// CachedEmbedder serves vectors from the store and embeds only the misses.
// Hits report zero tokens.
type CachedEmbedder struct {
	inner  domain.Embedder
	store  store
	cfg    Config
	scope  string
	logger *zap.Logger
}

// New wraps inner with a cache.
func New(inner domain.Embedder, s store, cfg Config, logger *zap.Logger) *CachedEmbedder {
	return &CachedEmbedder{
		inner:  inner,
		store:  s,
		cfg:    cfg,
		scope:  cfg.Model + "\x00" + strconv.Itoa(cfg.Dimensions) + "\x00",
		logger: logger.With(zap.String("mode", string(cfg.Mode))),
	}
}

// Embed returns the cached vector for text or embeds and caches it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.key(text)
	if vec, ok := c.get(ctx, key); ok {
		c.count("hit", 1)
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	c.count("miss", 1)

	res, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	c.put(ctx, key, res.Embedding)
	return res, nil
}

// BatchEmbed looks every text up and sends only the misses to inner, in one
// batch. Vectors come back in input order.
func (c *CachedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var (
		missIdx   []int
		missTexts []string
	)
	for i, text := range texts {
		keys[i] = c.key(text)
		if vec, ok := c.get(ctx, keys[i]); ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	c.count("hit", len(texts)-len(missIdx))
	c.count("miss", len(missIdx))

	if len(missIdx) == 0 {
		return domain.BatchEmbeddingResult{Embeddings: out}, nil
	}

	res, err := c.embedMisses(ctx, missTexts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	if len(res.Embeddings) != len(missTexts) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf(
			"%w: got %d vectors for %d texts", domain.ErrEmbeddingProviderError, len(res.Embeddings), len(missTexts),
		)
	}
	for j, i := range missIdx {
		out[i] = res.Embeddings[j]
		c.put(ctx, keys[i], res.Embeddings[j])
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   out,
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

func (c *CachedEmbedder) embedMisses(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := c.inner.(domain.BatchEmbedder); ok {
		res, err := be.BatchEmbed(ctx, texts)
		if err != nil {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("embed %d uncached texts: %w", len(texts), err)
		}
		return res, nil
	}
	res, err := domain.BatchFallback(ctx, c.inner, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embed %d uncached texts: %w", len(texts), err)
	}
	return res, nil
}

func (c *CachedEmbedder) key(text string) string {
	h := sha256.Sum256([]byte(c.scope + text))
	return c.cfg.KeyPrefix + "emb_cache:" + hex.EncodeToString(h[:])
}

// get treats every store failure as a miss.
func (c *CachedEmbedder) get(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Embedding cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	vec, err := decodeVector(data)
	if err != nil || (c.cfg.Dimensions > 0 && len(vec) != c.cfg.Dimensions) {
		c.logger.Warn("Discarding corrupt cached embedding",
			zap.String("key", key), zap.Int("bytes", len(data)), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) put(ctx context.Context, key string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	if err := c.store.Set(ctx, key, encodeVector(vec), c.cfg.TTL); err != nil {
		c.logger.Warn("Embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedEmbedder) count(result string, n int) {
	if n > 0 {
		metrics.EmbeddingCacheTotal.WithLabelValues(string(c.cfg.Mode), result).Add(float64(n))
	}
}

// encodeVector writes FLOAT32 little-endian, the layout review records use.
func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("cached vector has %d bytes", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
