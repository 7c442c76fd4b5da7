package review

import "math"

// Summary describes a harvested review pool before sampling.
type Summary struct {
	Total int `json:"total_reviews"`
	// AverageRating divides the star total by Total, so unrated reviews pull
	// it down. Rounded to two decimals.
	AverageRating      float64     `json:"average_rating"`
	RatingDistribution map[int]int `json:"rating_distribution"`
	TotalLikes         int         `json:"total_likes"`
	WithImages         int         `json:"reviews_with_images"`
	WithOwnerResponse  int         `json:"reviews_with_response"`
	Topics             []Topic     `json:"topics,omitempty"`
}

// Summarize computes pool statistics. Ratings outside 1..5 are left out of
// the distribution but still counted in Total.
func Summarize(pool []Raw, topics []Topic) Summary {
	s := Summary{
		Total:              len(pool),
		RatingDistribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
		Topics:             topics,
	}
	stars := 0
	for _, r := range pool {
		if r.Rating >= 1 && r.Rating <= 5 {
			s.RatingDistribution[r.Rating]++
			stars += r.Rating
		}
		s.TotalLikes += r.Likes
		if r.HasImages {
			s.WithImages++
		}
		if r.HasOwnerResponse {
			s.WithOwnerResponse++
		}
	}
	if s.Total > 0 {
		s.AverageRating = math.Round(float64(stars)/float64(s.Total)*100) / 100
	}
	return s
}
