package retrieval

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/kailas-cloud/reviewdex/internal/domain"
	"github.com/kailas-cloud/reviewdex/internal/domain/review"
)

func TestNewQuery_Defaults(t *testing.T) {
	q, err := NewQuery("1 Main St", "  how is the coffee  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Text() != "how is the coffee" {
		t.Errorf("expected trimmed text, got %q", q.Text())
	}
	if q.ResultCap() != 35 {
		t.Errorf("expected cap 35, got %d", q.ResultCap())
	}
	if q.ScoreThreshold() != 0.50 {
		t.Errorf("expected threshold 0.50, got %v", q.ScoreThreshold())
	}
}

func TestNewQuery_Validation(t *testing.T) {
	tests := []struct {
		name   string
		tenant string
		text   string
		opts   []Option
	}{
		{"empty tenant", "", "q", nil},
		{"empty text", "t", "   ", nil},
		{"long text", "t", strings.Repeat("a", MaxQueryLength+1), nil},
		{"zero cap", "t", "q", []Option{WithResultCap(0)}},
		{"cap too large", "t", "q", []Option{WithResultCap(MaxOverFetch)}},
		{"negative threshold", "t", "q", []Option{WithScoreThreshold(-0.01)}},
		{"threshold above one", "t", "q", []Option{WithScoreThreshold(1.01)}},
		{"nan threshold", "t", "q", []Option{WithScoreThreshold(math.NaN())}},
		{"infinite threshold", "t", "q", []Option{WithScoreThreshold(math.Inf(1))}},
		{"long multibyte text", "t", strings.Repeat("é", MaxQueryLength+1), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewQuery(tt.tenant, tt.text, tt.opts...)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestNewQuery_LengthCountsCharacters(t *testing.T) {
	// 4096 two-byte runes is 8192 bytes but still within the limit
	text := strings.Repeat("é", MaxQueryLength)
	if _, err := NewQuery("t", text); err != nil {
		t.Errorf("query of %d characters should be valid: %v", MaxQueryLength, err)
	}
}

func TestNewQuery_ThresholdBoundsInclusive(t *testing.T) {
	for _, th := range []float64{0, 1} {
		if _, err := NewQuery("t", "q", WithScoreThreshold(th)); err != nil {
			t.Errorf("threshold %v should be valid: %v", th, err)
		}
	}
}

func TestOverFetchLimit(t *testing.T) {
	tests := []struct {
		cap  int
		want int
	}{
		{35, 100},
		{10, 30},
		{1, 3},
		{33, 99},
		{34, 100},
		{MaxResultCap, 100},
	}
	for _, tt := range tests {
		q, err := NewQuery("t", "q", WithResultCap(tt.cap))
		if err != nil {
			t.Fatalf("cap %d: unexpected error: %v", tt.cap, err)
		}
		if got := q.OverFetchLimit(); got != tt.want {
			t.Errorf("OverFetchLimit(cap=%d) = %d, want %d", tt.cap, got, tt.want)
		}
		if q.OverFetchLimit() <= q.ResultCap() {
			t.Errorf("cap %d: over-fetch must exceed cap", tt.cap)
		}
	}
}

func hits(scores ...float64) []ScoredResult {
	out := make([]ScoredResult, len(scores))
	for i, s := range scores {
		out[i] = NewScoredResult("t", s, review.Snippet{Text: "r"})
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name      string
		in        []ScoredResult
		threshold float64
		cap       int
		wantLen   int
		wantCap   bool
	}{
		{"threshold inclusive", hits(0.9, 0.5, 0.49), 0.5, 10, 2, false},
		{"truncate to cap", hits(0.9, 0.8, 0.7, 0.6), 0.5, 2, 2, true},
		{"exactly cap", hits(0.9, 0.8), 0.5, 2, 2, true},
		{"all filtered", hits(0.3, 0.2), 0.5, 5, 0, false},
		{"empty", nil, 0.5, 5, 0, false},
		{"zero threshold keeps all", hits(0, 0.1), 0, 5, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, capReached := Filter(tt.in, tt.threshold, tt.cap)
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got), tt.wantLen)
			}
			if capReached != tt.wantCap {
				t.Errorf("capReached = %v, want %v", capReached, tt.wantCap)
			}
			for _, r := range got {
				if r.Score() < tt.threshold {
					t.Errorf("score %v below threshold %v", r.Score(), tt.threshold)
				}
			}
		})
	}
}

func TestFilter_PreservesOrder(t *testing.T) {
	got, _ := Filter(hits(0.95, 0.4, 0.85, 0.75), 0.5, 10)
	want := []float64{0.95, 0.85, 0.75}
	for i, r := range got {
		if r.Score() != want[i] {
			t.Errorf("position %d: score %v, want %v", i, r.Score(), want[i])
		}
	}
}

func TestOutcome_Failed(t *testing.T) {
	cause := errors.New("store down")
	o := Failed(cause)
	if o.OK() || len(o.Results) != 0 || !errors.Is(o.Err, cause) {
		t.Errorf("unexpected failed outcome: %+v", o)
	}
}
