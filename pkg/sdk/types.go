package reviewdex

// Metadata is the place snapshot stored with its reviews.
type Metadata struct {
	Title       string  `json:"title"`
	Address     string  `json:"address"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	PlaceID     string  `json:"place_id"`
}

// Aggregate is the mean of one review detail field. Mean is nil when no
// review rated the field.
type Aggregate struct {
	Field string   `json:"field"`
	Mean  *float64 `json:"mean"`
	Count int      `json:"sample_count"`
}

// Result is one retrieved review.
type Result struct {
	TenantKey string         `json:"tenant_key"`
	Snippet   string         `json:"snippet"`
	Details   map[string]any `json:"details"`
	Score     float64        `json:"score"`
}

// ReviewStats describes how the stored sample was drawn.
type ReviewStats struct {
	TotalAvailable int    `json:"total_available_reviews"`
	Selected       int    `json:"selected_reviews_count"`
	Stored         int    `json:"stored_reviews_count"`
	SamplingMethod string `json:"sampling_method"`
	Reduced        bool   `json:"reduced"`
}

// Topic is a keyword the source extracted from a place's reviews.
type Topic struct {
	Keyword  string `json:"keyword"`
	Mentions int    `json:"mentions"`
}

// ReviewSummary describes the whole harvested pool, before sampling.
// RatingDistribution is keyed by star count 1..5.
type ReviewSummary struct {
	Total              int         `json:"total_reviews"`
	AverageRating      float64     `json:"average_rating"`
	RatingDistribution map[int]int `json:"rating_distribution"`
	TotalLikes         int         `json:"total_likes"`
	WithImages         int         `json:"reviews_with_images"`
	WithOwnerResponse  int         `json:"reviews_with_response"`
	Topics             []Topic     `json:"topics,omitempty"`
}

// IngestRequest asks the server to harvest and store reviews for a place.
// Zero values use server defaults.
type IngestRequest struct {
	Place    string `json:"place"`
	Count    int    `json:"count,omitempty"`
	Language string `json:"language,omitempty"`
	MaxPages int    `json:"max_pages,omitempty"`
}

// IngestReport summarizes one ingestion.
type IngestReport struct {
	TenantKey    string        `json:"tenant_key"`
	Metadata     Metadata      `json:"metadata"`
	Pages        int           `json:"pages"`
	Stats        ReviewStats   `json:"review_stats"`
	Summary      ReviewSummary `json:"summary"`
	PartialError string        `json:"partial_error,omitempty"`
}

// SearchRequest is a tenant-scoped similarity search.
type SearchRequest struct {
	TenantKey      string   `json:"tenant_key"`
	Query          string   `json:"query"`
	ResultCap      *int     `json:"result_cap,omitempty"`
	ScoreThreshold *float64 `json:"score_threshold,omitempty"`
}

// SearchResponse holds filtered results and their aggregates.
type SearchResponse struct {
	TenantKey  string      `json:"tenant_key"`
	Results    []Result    `json:"results"`
	Fetched    int         `json:"fetched"`
	CapReached bool        `json:"cap_reached"`
	Aggregates []Aggregate `json:"aggregates"`
}

// ChatRequest is one question. Set exactly one of TenantKey and Place.
type ChatRequest struct {
	TenantKey      string   `json:"tenant_key,omitempty"`
	Place          string   `json:"place,omitempty"`
	Question       string   `json:"question"`
	ResultCap      *int     `json:"result_cap,omitempty"`
	ScoreThreshold *float64 `json:"score_threshold,omitempty"`
}

// ChatResponse is a grounded answer. Warnings list degraded stages.
type ChatResponse struct {
	Answer     string        `json:"answer"`
	TenantKey  string        `json:"tenant_key"`
	Metadata   Metadata      `json:"metadata"`
	Aggregates []Aggregate   `json:"aggregates"`
	Results    []Result      `json:"results"`
	CapReached bool          `json:"cap_reached"`
	Ingested   *IngestReport `json:"ingested,omitempty"`
	Warnings   []string      `json:"warnings,omitempty"`
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            `json:"status"` // "ok", "degraded", "error"
	Checks map[string]string `json:"checks"` // component → "ok"/"error"
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
