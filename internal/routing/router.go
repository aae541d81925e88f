package routing

import (
	"fmt"

	"github.com/smartreview/pkg/models"
)

// Path is the branch a submission takes after its rating is judged.
type Path string

const (
	PathGenerate Path = "GENERATE"
	PathFeedback Path = "FEEDBACK"
)

const (
	MinRating = 1
	MaxRating = 5

	// DefaultPositiveThreshold is the lowest rating that is sent to
	// public platforms.
	DefaultPositiveThreshold = 4
)

// Router decides between the generation and feedback paths. It holds no
// mutable state and is safe for concurrent use.
type Router struct {
	threshold int
}

// NewRouter returns a router that treats ratings at or above threshold as positive.
func NewRouter(threshold int) (*Router, error) {
	if threshold < MinRating || threshold > MaxRating {
		return nil, fmt.Errorf("positive threshold %d out of range [%d,%d]", threshold, MinRating, MaxRating)
	}
	return &Router{threshold: threshold}, nil
}

// DefaultRouter returns a router using DefaultPositiveThreshold.
func DefaultRouter() *Router {
	return &Router{threshold: DefaultPositiveThreshold}
}

// Threshold returns the configured positive threshold.
func (r *Router) Threshold() int { return r.threshold }

// Route maps a rating to a path.
func (r *Router) Route(rating int) (Path, error) {
	if err := ValidateRating(rating); err != nil {
		return "", err
	}
	if rating >= r.threshold {
		return PathGenerate, nil
	}
	return PathFeedback, nil
}

// ValidateRating rejects ratings outside the 1..5 scale.
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return &models.InvalidRatingError{Rating: rating}
	}
	return nil
}

// Classify buckets a rating against the threshold: ratings that generate a
// review are positive, the rating just below is neutral, the rest negative.
func (r *Router) Classify(rating int) models.ReviewType {
	switch {
	case rating >= r.threshold:
		return models.ReviewPositive
	case rating == r.threshold-1:
		return models.ReviewNeutral
	default:
		return models.ReviewNegative
	}
}

var sentimentByRating = map[int]float64{
	1: 0.1,
	2: 0.3,
	3: 0.5,
	4: 0.7,
	5: 0.9,
}

// SentimentScore returns the sentiment attached to a rating, 0.5 for
// out-of-range values.
func SentimentScore(rating int) float64 {
	if s, ok := sentimentByRating[rating]; ok {
		return s
	}
	return 0.5
}

// RedirectPlatforms returns where the customer should be sent after a
// submission. Only the generation path redirects.
func (r *Router) RedirectPlatforms(store *models.Store, rating int) []models.PlatformLink {
	path, err := r.Route(rating)
	if err != nil || path != PathGenerate {
		return []models.PlatformLink{}
	}
	return store.ActivePlatforms()
}
