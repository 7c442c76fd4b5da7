package db

// TagMatch is an exact-match pre-filter on a TAG field.
type TagMatch struct {
	Field string
	Value string
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Filters      []TagMatch // AND-ed
	Vector       []float32
	K            int
	EFRuntime    int // HNSW query-time candidate list, 0 = server default
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single record hit from a search, Score is cosine similarity in [0,1].
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
