package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartreview/internal/cache"
	"github.com/smartreview/internal/catalog"
	"github.com/smartreview/internal/engine"
	"github.com/smartreview/internal/feedback"
	"github.com/smartreview/internal/llm"
	"github.com/smartreview/internal/prompts"
	"github.com/smartreview/internal/review"
	"github.com/smartreview/internal/routing"
	"github.com/smartreview/pkg/models"
)

type stubCompleter struct {
	text string
	err  error
}

func (s stubCompleter) Complete(ctx context.Context, p prompts.Prompt, timeout time.Duration) (llm.RawCompletion, error) {
	if s.err != nil {
		return llm.RawCompletion{Attempts: 1}, s.err
	}
	return llm.RawCompletion{Text: s.text, Model: "stub", Attempts: 1}, nil
}

func newTestServer(t *testing.T, completer review.Completer, fallback bool) *Server {
	t.Helper()
	router := routing.DefaultRouter()
	stores, err := catalog.NewStatic([]models.Store{{
		ID:          "store-1",
		Name:        "Menya Koji",
		Category:    "ramen restaurant",
		SEOKeywords: []string{"ramen"},
		Platforms:   []models.PlatformLink{{Name: "google", URL: "https://g.page/r/koji", Active: true}},
	}})
	require.NoError(t, err)

	cfg := review.DefaultReviewConfig()
	cfg.FallbackEnabled = fallback
	reviews := review.NewReviewCache(cache.NewMemoryStore[*models.GeneratedReview](16, time.Minute))
	svc := review.NewService(router, prompts.NewBuilder(5), completer, reviews, cfg)
	collector := feedback.NewCollector(router, feedback.NewMemoryStore(), nil, feedback.DefaultMinLength)

	return NewServer(0, Deps{
		Engine:     engine.New(router, stores, svc, collector),
		Feedback:   collector,
		CacheStats: svc.CacheStats,
		Logger:     zerolog.Nop(),
	})
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return doCtx(t, context.Background(), s, method, path, body)
}

func doCtx(t *testing.T, ctx context.Context, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body)).WithContext(ctx)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const goodText = `{"title":"Great bowl","review":"The ramen was rich and the food quality was excellent. Service was quick."}`

func TestHealth(t *testing.T) {
	s := newTestServer(t, stubCompleter{text: goodText}, true)
	rec := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestSubmit_GenerationPath(t *testing.T) {
	s := newTestServer(t, stubCompleter{text: goodText}, true)
	rec := do(t, s, http.MethodPost, "/api/v1/submissions",
		`{"store_id":"store-1","rating":5,"selected_aspects":["Food Quality","Service Speed"],"locale":"en","desired_tone":"friendly"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	out := decode[engine.Outcome](t, rec)
	assert.Equal(t, routing.PathGenerate, out.Path)
	require.NotNil(t, out.Review)
	assert.Equal(t, "Great bowl", out.Review.Title)
	assert.Nil(t, out.Feedback)
	require.Len(t, out.RedirectPlatforms, 1)
	assert.Equal(t, "google", out.RedirectPlatforms[0].Name)
}

func TestSubmit_FeedbackPathThenRead(t *testing.T) {
	s := newTestServer(t, stubCompleter{text: goodText}, true)
	rec := do(t, s, http.MethodPost, "/api/v1/submissions",
		`{"store_id":"store-1","rating":2,"selected_aspects":["Service Speed"],"free_text":"Service was slow and staff seemed uninterested"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	out := decode[engine.Outcome](t, rec)
	assert.Nil(t, out.Review)
	require.NotNil(t, out.Feedback)
	assert.Empty(t, out.RedirectPlatforms)

	rec = do(t, s, http.MethodGet, "/api/v1/feedback/"+out.Feedback.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[models.FeedbackRecord](t, rec)
	assert.Equal(t, out.Feedback.FreeText, got.FreeText)

	rec = do(t, s, http.MethodGet, "/api/v1/stores/store-1/feedback?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[FeedbackPage](t, rec)
	assert.Equal(t, 5, page.Limit)
	assert.Len(t, page.Items, 1)

	rec = do(t, s, http.MethodGet, "/api/v1/stores/store-1/feedback?limit=100000", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, feedback.MaxPageSize, decode[FeedbackPage](t, rec).Limit)
}

func TestDirectEndpoints(t *testing.T) {
	s := newTestServer(t, stubCompleter{text: goodText}, true)

	rec := do(t, s, http.MethodPost, "/api/v1/reviews/generate", `{"store_id":"store-1","rating":4,"selected_aspects":["Value"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	r := decode[models.GeneratedReview](t, rec)
	assert.Equal(t, 4, r.Rating)

	rec = do(t, s, http.MethodPost, "/api/v1/feedback", `{"store_id":"store-1","rating":1,"free_text":"Cold noodles and a long wait"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/v1/platforms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[[]models.PlatformLimit](t, rec))
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t, stubCompleter{text: goodText}, true)

	cases := []struct {
		name, method, path, body string
		status                   int
		code                     string
	}{
		{"bad json", http.MethodPost, "/api/v1/submissions", `{"rating":`, http.StatusBadRequest, "invalid_body"},
		{"rating", http.MethodPost, "/api/v1/submissions", `{"store_id":"store-1","rating":9}`, http.StatusBadRequest, "invalid_rating"},
		{"tone", http.MethodPost, "/api/v1/submissions", `{"store_id":"store-1","rating":5,"selected_aspects":["x"],"desired_tone":"sarcastic"}`, http.StatusBadRequest, "unsupported_tone"},
		{"locale", http.MethodPost, "/api/v1/submissions", `{"store_id":"store-1","rating":5,"selected_aspects":["x"],"locale":"xx"}`, http.StatusBadRequest, "unsupported_locale"},
		{"short", http.MethodPost, "/api/v1/feedback", `{"store_id":"store-1","rating":2,"free_text":"meh"}`, http.StatusBadRequest, "insufficient_feedback"},
		{"wrong path", http.MethodPost, "/api/v1/reviews/generate", `{"store_id":"store-1","rating":2,"selected_aspects":["x"]}`, http.StatusBadRequest, "invalid_request"},
		{"store", http.MethodPost, "/api/v1/submissions", `{"store_id":"nope","rating":5,"selected_aspects":["x"]}`, http.StatusNotFound, "store_not_found"},
		{"feedback", http.MethodGet, "/api/v1/feedback/missing", "", http.StatusNotFound, "feedback_not_found"},
		{"page", http.MethodGet, "/api/v1/stores/store-1/feedback?page=0", "", http.StatusBadRequest, "invalid_request"},
		{"huge page", http.MethodGet, "/api/v1/stores/store-1/feedback?page=9223372036854775807", "", http.StatusBadRequest, "invalid_request"},
		{"page overflow", http.MethodGet, "/api/v1/stores/store-1/feedback?page=99999999999999999999", "", http.StatusBadRequest, "invalid_request"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, s, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, tc.code, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestGenerationFailureWithoutFallback(t *testing.T) {
	failing := stubCompleter{err: &llm.GenerationFailedError{
		Attempts: 4,
		Err:      &llm.ProviderError{Kind: llm.KindUnavailable},
	}}
	s := newTestServer(t, failing, false)

	rec := do(t, s, http.MethodPost, "/api/v1/submissions", `{"store_id":"store-1","rating":5,"selected_aspects":["x"]}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, string(llm.KindUnavailable), decode[ErrorResponse](t, rec).Error)
}

func TestGenerationFailureWithFallbackIsDegraded(t *testing.T) {
	failing := stubCompleter{err: &llm.GenerationFailedError{Attempts: 4, Err: &llm.ProviderError{Kind: llm.KindTimeout}}}
	s := newTestServer(t, failing, true)

	rec := do(t, s, http.MethodPost, "/api/v1/reviews/generate", `{"store_id":"store-1","rating":5,"selected_aspects":["Food"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[models.GeneratedReview](t, rec).Degraded)
}

func TestCanceledRequest(t *testing.T) {
	s := newTestServer(t, stubCompleter{text: goodText}, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := doCtx(t, ctx, s, http.MethodPost, "/api/v1/reviews/generate", `{"store_id":"store-1","rating":5,"selected_aspects":["Food"]}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
