// Package review turns positive submissions into review text: it validates
// the request, deduplicates it by fingerprint, asks the model, and shapes the
// answer to the target platform's limits. When the model is unavailable it
// serves a templated review instead of failing.
package review

import (
	"context"
	"errors"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/smartreview/internal/cache"
	"github.com/smartreview/internal/llm"
	"github.com/smartreview/internal/prompts"
	"github.com/smartreview/internal/routing"
	"github.com/smartreview/pkg/models"
)

// FallbackModel is reported as the model of degraded reviews.
const FallbackModel = "template-fallback"

var tracer = otel.Tracer("github.com/smartreview/internal/review")

// Completer is the model client the service drives.
type Completer interface {
	Complete(ctx context.Context, p prompts.Prompt, timeout time.Duration) (llm.RawCompletion, error)
}

// ReviewCache stores generated reviews by fingerprint.
type ReviewCache = cache.Cache[*models.GeneratedReview]

// NewReviewCache wraps store so that degraded reviews are shared with
// concurrent waiters but never stored.
func NewReviewCache(store cache.Store[*models.GeneratedReview]) *ReviewCache {
	return cache.New[*models.GeneratedReview](store,
		cache.WithStorePredicate(func(r *models.GeneratedReview) bool { return r != nil && !r.Degraded }))
}

// Service represents the review generation service
type Service struct {
	router  *routing.Router
	builder *prompts.Builder
	client  Completer
	cache   *ReviewCache
	config  Config

	now   func() time.Time
	newID func() string
}

// NewService creates a new review service. The cache is owned by the caller
// and may be shared between services.
func NewService(router *routing.Router, builder *prompts.Builder, client Completer, reviews *ReviewCache, config Config) *Service {
	return &Service{
		router:  router,
		builder: builder.WithRouter(router),
		client:  client,
		cache:   reviews,
		config:  config,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Validate checks that req may take the generation path.
func (s *Service) Validate(req models.GenerationRequest) error {
	sub := req.Submission
	path, err := s.router.Route(sub.Rating)
	if err != nil {
		return err
	}
	if path != routing.PathGenerate {
		return &models.InvalidRequestError{Field: "rating", Reason: "ratings below the positive threshold take the feedback path"}
	}
	if sub.StoreID == "" {
		return &models.InvalidRequestError{Field: "store_id", Reason: "is required"}
	}
	if len(sub.NormalizedAspects()) == 0 {
		return &models.InvalidRequestError{Field: "selected_aspects", Reason: "at least one aspect is required"}
	}
	if _, err := prompts.ResolveLocale(sub.Locale); err != nil {
		return err
	}
	if _, err := prompts.ResolveTone(sub.DesiredTone); err != nil {
		return err
	}
	if _, err := prompts.ResolveLength(sub.DesiredLength); err != nil {
		return err
	}
	return nil
}

// Preview renders the prompt Generate would send, without calling the model.
func (s *Service) Preview(req models.GenerationRequest) (prompts.Prompt, error) {
	if err := s.Validate(req); err != nil {
		return prompts.Prompt{}, err
	}
	return s.builder.Build(req)
}

// Generate returns the review for req. Concurrent calls for the same
// fingerprint share one model call. Errors are validation errors, a
// *llm.GenerationFailedError when the fallback is disabled, or the caller's
// context error.
func (s *Service) Generate(ctx context.Context, req models.GenerationRequest) (*models.GeneratedReview, error) {
	ctx, span := tracer.Start(ctx, "review.Generate")
	defer span.End()

	if err := s.Validate(req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		return nil, err
	}
	fp, err := Fingerprint(req)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("review.fingerprint", fp),
		attribute.String("review.store_id", req.Submission.StoreID),
		attribute.Int("review.rating", req.Submission.Rating),
	)

	out, err := s.cache.GetOrCompute(ctx, fp, func(ctx context.Context) (*models.GeneratedReview, error) {
		return s.compute(ctx, req, fp)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	// Empty and explicit default settings share a fingerprint, so the cached
	// marker may belong to another caller.
	if d := prompts.DefaultedFields(req.Submission); !slices.Equal(d, out.Defaulted) {
		shaped := *out
		shaped.Defaulted = d
		out = &shaped
	}
	span.SetAttributes(attribute.Bool("review.degraded", out.Degraded), attribute.Bool("review.truncated", out.Truncated))
	return out, nil
}

// CacheStats exposes the generation cache counters.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

func (s *Service) compute(ctx context.Context, req models.GenerationRequest, fp string) (*models.GeneratedReview, error) {
	start := s.now()
	logger := zerolog.Ctx(ctx).With().Str("fingerprint", fp[:12]).Logger()

	prompt, err := s.builder.Build(req)
	if err != nil {
		return nil, err
	}

	raw, err := s.client.Complete(ctx, prompt, s.config.AttemptTimeout)
	if err == nil {
		parsed, perr := llm.ParseReview(raw.Text)
		if perr == nil {
			logger.Debug().
				Str("model", raw.Model).
				Int("attempts", raw.Attempts).
				Str("format", parsed.Format).
				Bool("json_repaired", parsed.RepairStats.WasRepaired).
				Msg("Model completion parsed")
			return s.shape(req, fp, prompt, parsed.Title, parsed.Review, raw.Model, false, start)
		}
		err = &llm.GenerationFailedError{
			Attempts: raw.Attempts,
			Err:      &llm.ProviderError{Kind: llm.KindRejected, Err: perr},
		}
	}

	if !errors.Is(err, llm.ErrGenerationFailed) || !s.config.FallbackEnabled {
		return nil, err
	}

	logger.Warn().Err(err).Msg("Model unavailable, serving templated review")
	title, text, ferr := s.builder.FallbackReview(req)
	if ferr != nil {
		return nil, ferr
	}
	return s.shape(req, fp, prompt, title, text, FallbackModel, true, start)
}

func (s *Service) shape(req models.GenerationRequest, fp string, p prompts.Prompt, title, body, model string, degraded bool, start time.Time) (*models.GeneratedReview, error) {
	loc, err := prompts.ResolveLocale(p.Locale)
	if err != nil {
		return nil, err
	}

	text, truncated := Truncate(NormalizeText(body), p.CharLimit)
	rating := req.Submission.Rating

	return &models.GeneratedReview{
		ID:              s.newID(),
		Fingerprint:     fp,
		StoreID:         req.Submission.StoreID,
		Title:           title,
		Text:            text,
		Rating:          rating,
		ToneUsed:        p.Tone,
		Locale:          loc.Code,
		WordCount:       CountWords(text, loc.Spaceless),
		CharCount:       utf8.RuneCountInString(text),
		CharLimit:       p.CharLimit,
		SEOKeywordsUsed: KeywordsUsed(text, p.CandidateKeywords),
		ReviewType:      s.router.Classify(rating),
		SentimentScore:  routing.SentimentScore(rating),
		Model:           model,
		Degraded:        degraded,
		Truncated:       truncated,
		Defaulted:       p.Defaulted,
		GenerationTime:  s.now().Sub(start),
		CreatedAt:       s.now().UTC(),
	}, nil
}
