// Package feedback captures private feedback for ratings below the positive
// threshold and optionally enriches it with model-written improvement
// suggestions. Nothing captured here is ever published.
package feedback

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/smartreview/internal/routing"
	"github.com/smartreview/pkg/models"
)

// DefaultMinLength is the shortest accepted feedback text, in characters.
const DefaultMinLength = 10

// Collector validates and stores feedback records.
type Collector struct {
	router     *routing.Router
	store      Store
	dispatcher Dispatcher
	minLength  int

	now   func() time.Time
	newID func() string
}

// NewCollector creates a collector. dispatcher may be nil to skip
// suggestions entirely.
func NewCollector(router *routing.Router, store Store, dispatcher Dispatcher, minLength int) *Collector {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	return &Collector{
		router:     router,
		store:      store,
		dispatcher: dispatcher,
		minLength:  minLength,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Capture validates req, persists the record and requests a suggestion in
// the background. A suggestion that cannot be scheduled or later fails
// leaves AISuggestion nil without failing the capture.
func (c *Collector) Capture(ctx context.Context, req models.FeedbackRequest) (*models.FeedbackRecord, error) {
	path, err := c.router.Route(req.Rating)
	if err != nil {
		return nil, err
	}
	if path != routing.PathFeedback {
		return nil, &models.InvalidRequestError{Field: "rating", Reason: "ratings at or above the positive threshold take the generation path"}
	}
	if strings.TrimSpace(req.StoreID) == "" {
		return nil, &models.InvalidRequestError{Field: "store_id", Reason: "is required"}
	}
	text := strings.TrimSpace(req.FreeText)
	if n := utf8.RuneCountInString(text); n < c.minLength {
		return nil, &models.InsufficientFeedbackError{Length: n, MinLength: c.minLength}
	}

	rec := &models.FeedbackRecord{
		ID:               c.newID(),
		SubmissionID:     req.SubmissionID,
		StoreID:          req.StoreID,
		Rating:           req.Rating,
		FreeText:         text,
		Locale:           req.Locale,
		ImprovementAreas: normalizeAreas(req.ImprovementAreas),
		ContactInfo:      trimmedOrNil(req.ContactInfo),
		FollowUpRequired: req.FollowUpRequired,
		CreatedAt:        c.now().UTC(),
	}
	if err := c.store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save feedback: %w", err)
	}

	logger := zerolog.Ctx(ctx)
	logger.Info().
		Str("feedback_id", rec.ID).
		Str("store_id", rec.StoreID).
		Int("rating", rec.Rating).
		Bool("follow_up", rec.FollowUpRequired).
		Msg("Feedback captured")

	if c.dispatcher != nil {
		if err := c.dispatcher.Dispatch(ctx, rec.ID); err != nil {
			logger.Warn().Err(err).Str("feedback_id", rec.ID).Msg("Could not schedule improvement suggestion")
		}
	}
	return rec, nil
}

// Get returns a stored record.
func (c *Collector) Get(ctx context.Context, id string) (*models.FeedbackRecord, error) {
	return c.store.Get(ctx, id)
}

// List returns a store's records, newest first.
func (c *Collector) List(ctx context.Context, storeID string, page, limit int) ([]*models.FeedbackRecord, error) {
	return c.store.List(ctx, storeID, page, limit)
}

// normalizeAreas trims and deduplicates areas, keeping first-seen order.
func normalizeAreas(areas []string) []string {
	out := make([]string, 0, len(areas))
	seen := make(map[string]struct{}, len(areas))
	for _, a := range areas {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		key := strings.ToLower(a)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
