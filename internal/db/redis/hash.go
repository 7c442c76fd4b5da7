package redis

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/reviewdex/internal/db"
)

// hsetBatch bounds how many HSET commands share one DoMulti pipeline.
var hsetBatch = 256

// HSetMulti writes the hashes in pipelined batches. Fields are written in
// sorted order so identical items produce identical commands.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	for start := 0; start < len(items); start += hsetBatch {
		end := min(start+hsetBatch, len(items))
		if err := s.writeBatch(ctx, items[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) writeBatch(ctx context.Context, items []db.HashSetItem) error {
	cmds := make([]rueidis.Completed, 0, len(items))
	for _, item := range items {
		if len(item.Fields) == 0 {
			return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("key %s: no fields", item.Key)}
		}
		names := make([]string, 0, len(item.Fields))
		for k := range item.Fields {
			names = append(names, k)
		}
		sort.Strings(names)

		cmd := s.b().Hset().Key(item.Key).FieldValue()
		for _, k := range names {
			cmd = cmd.FieldValue(k, item.Fields[k])
		}
		cmds = append(cmds, cmd.Build())
	}

	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("key %s: %w", items[i].Key, err)}
		}
	}
	return nil
}

// HGetAll returns every field of a hash. A missing key yields an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.do(ctx, s.b().Hgetall().Key(key).Build()).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: fmt.Errorf("key %s: %w", key, err)}
	}
	return m, nil
}
