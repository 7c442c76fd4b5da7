// Package sampling draws bounded, duplicate-free subsets from a harvested review pool.
package sampling

import (
	"fmt"
	"math/rand/v2"

	"github.com/kailas-cloud/reviewdex/internal/domain"
	"github.com/kailas-cloud/reviewdex/internal/domain/review"
)

// Selection is the sampled subset plus how much was available.
type Selection struct {
	Reviews   []review.Snippet
	Available int
	// Reduced is set when fewer than the requested count were available.
	Reduced bool
}

// Sampler selects reviews uniformly at random without replacement.
type Sampler struct {
	intN func(n int) int
}

// New creates a sampler backed by math/rand/v2.
func New() *Sampler {
	return &Sampler{intN: rand.IntN}
}

// NewWithSource creates a sampler with a custom index source, intN(n) must return [0, n).
func NewWithSource(intN func(n int) int) *Sampler {
	return &Sampler{intN: intN}
}

// Select returns the whole pool in order when it holds at most n reviews,
// otherwise exactly n distinct reviews in no particular order.
func (s *Sampler) Select(pool []review.Raw, n int) (Selection, error) {
	if n <= 0 {
		return Selection{}, fmt.Errorf("%w: sample size must be positive, got %d", domain.ErrValidation, n)
	}

	sel := Selection{Available: len(pool)}
	if len(pool) <= n {
		sel.Reviews = make([]review.Snippet, len(pool))
		for i := range pool {
			sel.Reviews[i] = pool[i].Snippet
		}
		sel.Reduced = len(pool) < n
		return sel, nil
	}

	// partial Fisher-Yates over indices; the pool itself is left untouched
	idx := make([]int, len(pool))
	for i := range idx {
		idx[i] = i
	}
	sel.Reviews = make([]review.Snippet, n)
	for i := 0; i < n; i++ {
		j := i + s.intN(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
		sel.Reviews[i] = pool[idx[i]].Snippet
	}
	return sel, nil
}
