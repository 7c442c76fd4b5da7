package redis

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/reviewdex/internal/db"
)

// ScoreField is the distance attribute FT.SEARCH attaches to KNN hits.
const ScoreField = "__vector_score"

// SearchKNN runs a KNN vector similarity search via FT.SEARCH.
// Hits come back ordered by descending cosine similarity.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if err := validateKNN(q); err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	raw, err := s.do(ctx, s.b().Arbitrary("FT.SEARCH").Args(knnArgs(q)...).Build()).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return parseKNNResult(raw)
}

func validateKNN(q *db.KNNQuery) error {
	switch {
	case q.IndexName == "":
		return errors.New("index name is required")
	case len(q.Vector) == 0:
		return errors.New("vector is required")
	case q.K <= 0:
		return fmt.Errorf("k must be positive, got %d", q.K)
	}
	return nil
}

func knnArgs(q *db.KNNQuery) []string {
	args := []string{q.IndexName, buildKNNQuery(q)}

	if len(q.ReturnFields) > 0 {
		fields := q.ReturnFields
		if !slices.Contains(fields, ScoreField) {
			fields = append(slices.Clone(fields), ScoreField)
		}
		args = append(args, "RETURN", strconv.Itoa(len(fields)))
		args = append(args, fields...)
	}

	// без LIMIT сервер отдаёт 10 строк даже при KNN 50
	return append(args,
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	)
}

func buildKNNQuery(q *db.KNNQuery) string {
	var sb strings.Builder
	if filter := buildFilter(q.Filters); filter != "" {
		sb.WriteString("(" + filter + ")")
	} else {
		sb.WriteString("*")
	}
	fmt.Fprintf(&sb, "=>[KNN %d @vector $BLOB", q.K)
	if q.EFRuntime > 0 {
		fmt.Fprintf(&sb, " EF_RUNTIME %d", q.EFRuntime)
	}
	sb.WriteString("]")
	return sb.String()
}

// parseKNNResult reads the RESP2 reply [total, key1, fields1, key2, fields2, ...].
func parseKNNResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("parse total: %w", err)}
	}

	entries := make([]db.SearchEntry, 0, len(raw)/2)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		pairs, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entry := db.SearchEntry{Key: key, Fields: parseFieldPairs(pairs)}
		if d, ok := entry.Fields[ScoreField]; ok {
			entry.Score = similarity(d)
			delete(entry.Fields, ScoreField)
		}
		entries = append(entries, entry)
	}

	// valkey-search has no SORTBY, order explicitly
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].Score > entries[b].Score
	})

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

// similarity converts a cosine distance to a similarity clamped at 0.
// Unparseable distances score 0 and fall below any positive threshold.
func similarity(distance string) float64 {
	d, err := strconv.ParseFloat(distance, 64)
	if err != nil {
		return 0
	}
	return max(0, 1-d)
}

func parseFieldPairs(pairs []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(pairs)/2)
	for j := 0; j+1 < len(pairs); j += 2 {
		name, errName := pairs[j].ToString()
		value, errValue := pairs[j+1].ToString()
		if errName != nil || errValue != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// buildFilter translates AND-ed tag matches into an FT.SEARCH pre-filter.
func buildFilter(matches []db.TagMatch) string {
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = buildTagFilter(m.Field, m.Value)
	}
	return strings.Join(parts, " ")
}

func buildTagFilter(key, value string) string {
	return "@" + key + ":{" + tagEscaper.Replace(value) + "}"
}

// tagSpecial is the query-syntax punctuation; "|" would otherwise read as tag OR.
const tagSpecial = `\,.<>{}[]"':;!@#$%^&*()-+=~|/? `

var tagEscaper = func() *strings.Replacer {
	pairs := make([]string, 0, 2*len(tagSpecial))
	for _, r := range tagSpecial {
		pairs = append(pairs, string(r), `\`+string(r))
	}
	return strings.NewReplacer(pairs...)
}()

func vectorToBytes(v []float32) string {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return string(buf)
}
