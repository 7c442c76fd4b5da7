package review

import (
	"fmt"

	"github.com/kailas-cloud/reviewdex/internal/db"
	"github.com/kailas-cloud/reviewdex/internal/domain"
)

// Hash field layout of a stored review.
const (
	fieldTenant  = "tenant"
	fieldContent = "__content"
	fieldDetails = "__details"
	fieldVector  = "__vector"
)

// tagSeparator never occurs in addresses, unlike the default ",".
const tagSeparator = "|"

func buildIndex(name, prefix string, vc domain.VectorConfig) (*db.IndexDefinition, error) {
	distance := db.DistanceCosine
	if vc.DistanceMetric == "l2" {
		distance = db.DistanceL2
	}

	def, err := db.NewIndex(name).
		Prefix(prefix).
		Tag(fieldTenant, tagSeparator, true).
		VectorHNSW(fieldVector, "vector", vc.Dimensions, distance, vc.M, vc.EFConstruction).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build index %s: %w", name, err)
	}
	return def, nil
}
