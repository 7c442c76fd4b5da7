// Package aggregate computes numeric statistics over review detail fields.
package aggregate

import (
	"encoding/json"

	"github.com/kailas-cloud/reviewdex/internal/domain/review"
)

// Aggregate is the mean of one detail field. Mean is nil when Count is zero.
type Aggregate struct {
	Field string   `json:"field"`
	Mean  *float64 `json:"mean"`
	Count int      `json:"sample_count"`
}

// Present reports whether at least one qualifying value was seen.
func (a Aggregate) Present() bool { return a.Mean != nil }

// Source is anything carrying review details.
type Source interface {
	Details() review.Details
}

// Average computes the mean of field over results. Only numeric values
// strictly greater than zero count; zero means "not rated" upstream.
func Average[S Source](field string, results []S) Aggregate {
	var sum float64
	var count int
	for _, r := range results {
		v, ok := Numeric(r.Details()[field])
		if !ok || v <= 0 {
			continue
		}
		sum += v
		count++
	}

	agg := Aggregate{Field: field, Count: count}
	if count > 0 {
		mean := sum / float64(count)
		agg.Mean = &mean
	}
	return agg
}

// Summarize computes one Aggregate per field over the same results.
func Summarize[S Source](fields []string, results []S) []Aggregate {
	out := make([]Aggregate, 0, len(fields))
	for _, f := range fields {
		out = append(out, Average(f, results))
	}
	return out
}

// Numeric converts integer, float and json.Number values. Booleans, strings
// and nil are not numeric.
func Numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
