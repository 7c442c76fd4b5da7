package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/reviewdex/internal/db"
)

// Get returns the value stored at key, or db.ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.do(ctx, s.b().Get().Key(key).Build()).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: fmt.Errorf("key %s: %w", key, err)}
	}
	return data, nil
}

// Set stores value at key. A positive ttl sets an expiry in whole seconds.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cmd := s.b().Set().Key(key).Value(rueidis.BinaryString(value))
	var c rueidis.Completed
	if secs := int64(ttl / time.Second); secs > 0 {
		c = cmd.ExSeconds(secs).Build()
	} else {
		c = cmd.Build()
	}
	if err := s.do(ctx, c).Error(); err != nil {
		return &db.Error{Op: db.OpSet, Err: fmt.Errorf("key %s: %w", key, err)}
	}
	return nil
}
