package review

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/reviewdex/internal/db"
	"github.com/kailas-cloud/reviewdex/internal/domain"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetMultiFn   func(ctx context.Context, items []db.HashSetItem) error
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	searchKNNFn   func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

const testDim = 4

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	vc := domain.DefaultVectorConfig()
	vc.Dimensions = testDim
	repo := New(ms, Config{KeyPrefix: "reviewdex:", Collection: "reviews", Vector: vc}, zap.NewNop())
	n := 0
	repo.newID = func() string {
		n++
		return "id-" + string(rune('0'+n))
	}
	return repo, ms
}

func testVector() []float32 {
	vec := make([]float32, testDim)
	for i := range vec {
		vec[i] = 0.1
	}
	return vec
}
