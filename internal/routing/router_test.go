package routing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartreview/pkg/models"
)

func TestRouteDefaultThreshold(t *testing.T) {
	r := DefaultRouter()

	tests := []struct {
		rating int
		want   Path
	}{
		{1, PathFeedback},
		{2, PathFeedback},
		{3, PathFeedback},
		{4, PathGenerate},
		{5, PathGenerate},
	}
	for _, tt := range tests {
		got, err := r.Route(tt.rating)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "rating %d", tt.rating)
	}
}

func TestRouteOutOfRange(t *testing.T) {
	r := DefaultRouter()
	for _, rating := range []int{-1, 0, 6, 100} {
		_, err := r.Route(rating)
		var invalid *models.InvalidRatingError
		require.True(t, errors.As(err, &invalid), "rating %d", rating)
		assert.Equal(t, rating, invalid.Rating)
		assert.ErrorIs(t, err, models.ErrValidation)
	}
}

func TestCustomThreshold(t *testing.T) {
	r, err := NewRouter(3)
	require.NoError(t, err)

	got, err := r.Route(3)
	require.NoError(t, err)
	assert.Equal(t, PathGenerate, got)

	got, err = r.Route(2)
	require.NoError(t, err)
	assert.Equal(t, PathFeedback, got)

	_, err = NewRouter(0)
	assert.Error(t, err)
	_, err = NewRouter(6)
	assert.Error(t, err)
}

func TestClassifyAndSentiment(t *testing.T) {
	r := DefaultRouter()
	assert.Equal(t, models.ReviewPositive, r.Classify(5))
	assert.Equal(t, models.ReviewPositive, r.Classify(4))
	assert.Equal(t, models.ReviewNeutral, r.Classify(3))
	assert.Equal(t, models.ReviewNegative, r.Classify(2))
	assert.Equal(t, models.ReviewNegative, r.Classify(1))

	assert.InDelta(t, 0.9, SentimentScore(5), 1e-9)
	assert.InDelta(t, 0.1, SentimentScore(1), 1e-9)
	assert.InDelta(t, 0.5, SentimentScore(42), 1e-9)
}

func TestClassifyFollowsThreshold(t *testing.T) {
	r, err := NewRouter(3)
	require.NoError(t, err)

	path, err := r.Route(3)
	require.NoError(t, err)
	assert.Equal(t, PathGenerate, path)
	assert.Equal(t, models.ReviewPositive, r.Classify(3))
	assert.Equal(t, models.ReviewNeutral, r.Classify(2))
	assert.Equal(t, models.ReviewNegative, r.Classify(1))

	strict, err := NewRouter(5)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewNeutral, strict.Classify(4))
	assert.Equal(t, models.ReviewNegative, strict.Classify(3))
}

func TestRedirectPlatforms(t *testing.T) {
	r := DefaultRouter()
	store := &models.Store{Platforms: []models.PlatformLink{
		{Name: "google", URL: "https://g.page/r/abc", Active: true},
		{Name: "yelp", URL: "https://yelp.com/biz/abc", Active: false},
	}}

	links := r.RedirectPlatforms(store, 5)
	require.Len(t, links, 1)
	assert.Equal(t, "google", links[0].Name)

	assert.Empty(t, r.RedirectPlatforms(store, 2))
	assert.Empty(t, r.RedirectPlatforms(store, 9))
}
