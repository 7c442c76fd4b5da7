// Package db defines the storage contracts the review and tenant repositories
// consume. Drivers live in subpackages.
package db

import (
	"context"
	"time"
)

// Store is everything a driver provides. Repositories depend on the narrow
// interfaces below, wiring code on Store.
//
//nolint:interfacebloat // driver facade
type Store interface {
	Pinger
	KVStore
	HashStore
	IndexManager
	Searcher
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()
}

// Pinger checks connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore is a plain key-value store. The embedding cache lives here.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value; ttl <= 0 keeps it until evicted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// HashSetItem is one HSET: a key and the fields written to it.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore reads and writes hash records. Review records and tenant
// snapshots are both hashes.
type HashStore interface {
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// IndexManager manages FT indexes.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher runs KNN queries over an FT index.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}
