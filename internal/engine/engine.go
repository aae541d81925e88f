// Package engine is the entry point for submissions. It resolves the store,
// routes the rating and drives the submission through either review
// generation or private feedback capture.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/smartreview/internal/catalog"
	"github.com/smartreview/internal/flow"
	"github.com/smartreview/internal/routing"
	"github.com/smartreview/pkg/models"
)

// Generator produces reviews for positive submissions.
type Generator interface {
	Generate(ctx context.Context, req models.GenerationRequest) (*models.GeneratedReview, error)
}

// FeedbackCapturer records private feedback for non-positive submissions.
type FeedbackCapturer interface {
	Capture(ctx context.Context, req models.FeedbackRequest) (*models.FeedbackRecord, error)
}

// Outcome is the result of a submission. Exactly one of Review and Feedback
// is set.
type Outcome struct {
	SubmissionID      string                  `json:"submission_id"`
	Path              routing.Path            `json:"path"`
	State             flow.State              `json:"state"`
	Review            *models.GeneratedReview `json:"review,omitempty"`
	Feedback          *models.FeedbackRecord  `json:"feedback,omitempty"`
	RedirectPlatforms []models.PlatformLink   `json:"redirect_platforms"`
}

// Engine wires the router to the generation and feedback paths.
type Engine struct {
	router    *routing.Router
	stores    catalog.Directory
	generator Generator
	collector FeedbackCapturer

	newID func() string
}

// New creates an engine. router must be the same router the generator and
// collector were built with.
func New(router *routing.Router, stores catalog.Directory, generator Generator, collector FeedbackCapturer) *Engine {
	return &Engine{
		router:    router,
		stores:    stores,
		generator: generator,
		collector: collector,
		newID:     uuid.NewString,
	}
}

// Submit routes sub and runs the matching path. On error the submission is
// left unfinished and nothing is returned.
func (e *Engine) Submit(ctx context.Context, sub models.Submission) (*Outcome, error) {
	path, err := e.router.Route(sub.Rating)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(sub.ID) == "" {
		sub.ID = e.newID()
	}
	store, err := e.lookupStore(ctx, sub.StoreID)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx).With().
		Str("submission_id", sub.ID).
		Str("store_id", store.ID).
		Int("rating", sub.Rating).
		Str("path", string(path)).
		Logger()
	ctx = logger.WithContext(ctx)

	session := flow.NewSession(sub.ID)
	if err := session.SelectAspects(); err != nil {
		return nil, err
	}

	out := &Outcome{SubmissionID: sub.ID, Path: path, RedirectPlatforms: []models.PlatformLink{}}
	switch path {
	case routing.PathGenerate:
		if err := session.BeginGeneration(); err != nil {
			return nil, err
		}
		r, err := e.generator.Generate(ctx, models.GenerationRequest{Submission: sub, Store: *store})
		if err != nil {
			logger.Warn().Err(err).Str("state", string(session.State())).Msg("Review generation did not complete")
			return nil, err
		}
		if err := session.CompleteGeneration(r); err != nil {
			return nil, err
		}
		out.Review = session.Review()
		out.RedirectPlatforms = e.router.RedirectPlatforms(store, sub.Rating)
	case routing.PathFeedback:
		if err := session.BeginFeedback(); err != nil {
			return nil, err
		}
		rec, err := e.collector.Capture(ctx, feedbackRequest(sub))
		if err != nil {
			logger.Warn().Err(err).Str("state", string(session.State())).Msg("Feedback capture did not complete")
			return nil, err
		}
		if err := session.CompleteFeedback(rec); err != nil {
			return nil, err
		}
		out.Feedback = session.Feedback()
	default:
		return nil, fmt.Errorf("unknown path %q", path)
	}

	out.State = session.State()
	logger.Info().Str("state", string(out.State)).Msg("Submission completed")
	return out, nil
}

// GenerateReview runs only the generation path, resolving the store first.
func (e *Engine) GenerateReview(ctx context.Context, sub models.Submission) (*models.GeneratedReview, error) {
	store, err := e.lookupStore(ctx, sub.StoreID)
	if err != nil {
		return nil, err
	}
	return e.generator.Generate(ctx, models.GenerationRequest{Submission: sub, Store: *store})
}

// CaptureFeedback runs only the feedback path. The store must exist.
func (e *Engine) CaptureFeedback(ctx context.Context, req models.FeedbackRequest) (*models.FeedbackRecord, error) {
	if _, err := e.router.Route(req.Rating); err != nil {
		return nil, err
	}
	if _, err := e.lookupStore(ctx, req.StoreID); err != nil {
		return nil, err
	}
	return e.collector.Capture(ctx, req)
}

func (e *Engine) lookupStore(ctx context.Context, id string) (*models.Store, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &models.InvalidRequestError{Field: "store_id", Reason: "is required"}
	}
	return e.stores.GetStore(ctx, id)
}

// feedbackRequest converts a low-rated submission. Selected aspects stand in
// for improvement areas when none were given explicitly.
func feedbackRequest(sub models.Submission) models.FeedbackRequest {
	areas := sub.ImprovementAreas
	if len(areas) == 0 {
		areas = sub.SelectedAspects
	}
	return models.FeedbackRequest{
		SubmissionID:     sub.ID,
		StoreID:          sub.StoreID,
		Rating:           sub.Rating,
		FreeText:         sub.FreeText,
		Locale:           sub.Locale,
		ImprovementAreas: areas,
		ContactInfo:      sub.ContactInfo,
		FollowUpRequired: sub.FollowUp,
	}
}
