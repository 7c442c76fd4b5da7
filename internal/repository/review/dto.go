package review

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/kailas-cloud/reviewdex/internal/db"
	"github.com/kailas-cloud/reviewdex/internal/domain/retrieval"
	domreview "github.com/kailas-cloud/reviewdex/internal/domain/review"
)

// recordToHash serializes a record into HSET fields.
func recordToHash(rec domreview.Record) (map[string]string, error) {
	details := rec.Details
	if details == nil {
		details = domreview.Details{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("marshal details: %w", err)
	}

	return map[string]string{
		fieldTenant:  rec.TenantKey,
		fieldContent: rec.Text,
		fieldDetails: string(raw),
		fieldVector:  vectorToBytes(rec.Vector),
	}, nil
}

// entryToResult converts a KNN hit back into a scored result.
func entryToResult(entry db.SearchEntry) (retrieval.ScoredResult, error) {
	details := domreview.Details{}
	if raw := entry.Fields[fieldDetails]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &details); err != nil {
			return retrieval.ScoredResult{}, fmt.Errorf("decode details of %s: %w", entry.Key, err)
		}
	}

	return retrieval.NewScoredResult(
		entry.Fields[fieldTenant],
		entry.Score,
		domreview.Snippet{Text: entry.Fields[fieldContent], Details: details},
	), nil
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
