package domain

// VectorConfig holds the review collection's vector settings.
type VectorConfig struct {
	Dimensions     int
	DistanceMetric string
	M              int
	EFConstruction int
	EFRuntime      int
}

// DefaultVectorConfig returns settings tuned for text-embedding-3-small.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Dimensions:     1536,
		DistanceMetric: "cosine",
		M:              16,
		EFConstruction: 200,
		EFRuntime:      128,
	}
}
