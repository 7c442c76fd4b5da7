// Package review holds the review records flowing from the source to the tenant store.
package review

import "strings"

// Details maps a detail name (food, service, atmosphere, ...) to a scalar value
// as decoded from the source: float64, string, bool or nil.
type Details map[string]any

// Snippet is a review as decoded from one page. Text and Details are embedded
// and stored, the engagement fields only feed the harvest Summary.
type Snippet struct {
	Text    string
	Details Details
	// Rating is the reviewer's star rating, 0 when the source omits it.
	Rating           int
	Likes            int
	HasImages        bool
	HasOwnerResponse bool
}

// IsEmpty reports whether the snippet has no text to embed.
// Whitespace-only text counts as empty.
func (s Snippet) IsEmpty() bool { return strings.TrimSpace(s.Text) == "" }

// Raw is a review as harvested from the source.
// Seq is a 1-based running index across all pages of one pagination run.
type Raw struct {
	Seq       int
	TenantKey string
	Snippet
}

// Metadata is the place snapshot taken from the first page of a pagination run.
type Metadata struct {
	Title       string  `json:"title"`
	Address     string  `json:"address"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	PlaceID     string  `json:"place_id"`
}

// IsZero reports whether no metadata was captured.
func (m Metadata) IsZero() bool { return m == Metadata{} }

// TenantKey returns the key that partitions this place's records,
// the address when known and the place identifier otherwise.
func (m Metadata) TenantKey() string {
	if m.Address != "" {
		return m.Address
	}
	return m.PlaceID
}

// Topic is a keyword the source extracted from all reviews of a place.
type Topic struct {
	Keyword  string `json:"keyword"`
	Mentions int    `json:"mentions"`
}

// Page is one upstream response.
type Page struct {
	Reviews  []Snippet
	Metadata Metadata
	// Topics is only meaningful on the first page.
	Topics []Topic
	// NextCursor is empty when the source is exhausted.
	NextCursor string
}

// Record is an embedded review ready for upsert.
type Record struct {
	TenantKey string
	Vector    []float32
	Snippet
}
