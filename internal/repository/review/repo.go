// Package review stores embedded reviews in one tenant-partitioned vector collection.
package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/reviewdex/internal/db"
	"github.com/kailas-cloud/reviewdex/internal/domain"
	"github.com/kailas-cloud/reviewdex/internal/domain/retrieval"
	domreview "github.com/kailas-cloud/reviewdex/internal/domain/review"
)

// store is the consumer interface for the review collection (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Config names the collection and its vector settings.
type Config struct {
	KeyPrefix  string
	Collection string
	Vector     domain.VectorConfig
}

// Repo implements the tenant store over FT vector search.
type Repo struct {
	store  store
	cfg    Config
	logger *zap.Logger
	newID  func() string
}

// New creates a review repository.
func New(s store, cfg Config, logger *zap.Logger) *Repo {
	if cfg.Vector == (domain.VectorConfig{}) {
		cfg.Vector = domain.DefaultVectorConfig()
	}
	return &Repo{store: s, cfg: cfg, logger: logger, newID: uuid.NewString}
}

func (r *Repo) prefix() string {
	return fmt.Sprintf("%s%s:", r.cfg.KeyPrefix, r.cfg.Collection)
}

func (r *Repo) indexName() string {
	return r.prefix() + "idx"
}

// EnsureCollection creates the collection index with a keyword index on the
// tenant field. Calling it on an existing collection is a no-op.
func (r *Repo) EnsureCollection(ctx context.Context) error {
	name := r.indexName()

	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", r.cfg.Collection, err)
	}
	if exists {
		return nil
	}

	def, err := buildIndex(name, r.prefix(), r.cfg.Vector)
	if err != nil {
		return err
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		// lost a race with a concurrent ingest
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create collection %s: %w", r.cfg.Collection, err)
	}

	r.logger.Info("collection created",
		zap.String("collection", r.cfg.Collection),
		zap.Int("dimensions", r.cfg.Vector.Dimensions),
	)
	return nil
}

// Upsert stores records under freshly generated ids and returns them in input order.
func (r *Repo) Upsert(ctx context.Context, records []domreview.Record) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}

	items := make([]db.HashSetItem, len(records))
	ids := make([]string, len(records))
	for i, rec := range records {
		if rec.TenantKey == "" {
			return nil, fmt.Errorf("%w: record %d has no tenant key", domain.ErrValidation, i)
		}
		if len(rec.Vector) != r.cfg.Vector.Dimensions {
			return nil, fmt.Errorf(
				"%w: record %d has %d dimensions, collection expects %d",
				domain.ErrValidation, i, len(rec.Vector), r.cfg.Vector.Dimensions,
			)
		}
		fields, err := recordToHash(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		ids[i] = r.newID()
		items[i] = db.HashSetItem{Key: r.prefix() + ids[i], Fields: fields}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return nil, fmt.Errorf("upsert %d records: %w", len(records), err)
	}
	return ids, nil
}

// Search returns up to limit hits for vector restricted to tenantKey,
// ordered by descending similarity.
func (r *Repo) Search(
	ctx context.Context, vector []float32, limit int, tenantKey string,
) ([]retrieval.ScoredResult, error) {
	if tenantKey == "" {
		return nil, fmt.Errorf("%w: tenant key is required", domain.ErrValidation)
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(),
		Filters:      []db.TagMatch{{Field: fieldTenant, Value: tenantKey}},
		Vector:       vector,
		K:            limit,
		EFRuntime:    r.cfg.Vector.EFRuntime,
		ReturnFields: []string{fieldTenant, fieldContent, fieldDetails},
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", r.cfg.Collection, err)
	}
	if sr == nil {
		return nil, nil
	}

	results := make([]retrieval.ScoredResult, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		res, err := entryToResult(entry)
		if err != nil {
			r.logger.Warn("skipping undecodable record", zap.String("key", entry.Key), zap.Error(err))
			continue
		}
		// never return a hit from another tenant
		if res.TenantKey() != tenantKey {
			r.logger.Error("cross-tenant hit dropped", zap.String("key", entry.Key))
			continue
		}
		results = append(results, res)
	}
	return results, nil
}
