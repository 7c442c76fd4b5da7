package pagination

import (
	"context"

	"github.com/kailas-cloud/reviewdex/internal/domain/review"
)

// PageSource returns one page of reviews for a place. An empty cursor asks for the first page.
type PageSource interface {
	FetchPage(ctx context.Context, placeID, language, cursor string) (review.Page, error)
}
