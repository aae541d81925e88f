package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/smartreview/internal/feedback"
	"github.com/smartreview/internal/llm"
	"github.com/smartreview/internal/platforms"
	"github.com/smartreview/pkg/models"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// FeedbackPage is a page of a store's feedback, newest first.
type FeedbackPage struct {
	StoreID string                   `json:"store_id"`
	Page    int                      `json:"page"`
	Limit   int                      `json:"limit"`
	Items   []*models.FeedbackRecord `json:"items"`
}

func (s *Server) health(c echo.Context) error {
	body := map[string]interface{}{"status": "healthy"}
	if s.deps.CacheStats != nil {
		body["cache"] = s.deps.CacheStats()
	}
	return c.JSON(http.StatusOK, body)
}

func (s *Server) submit(c echo.Context) error {
	var sub models.Submission
	if err := c.Bind(&sub); err != nil {
		return badBody(c)
	}
	out, err := s.deps.Engine.Submit(c.Request().Context(), sub)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (s *Server) generateReview(c echo.Context) error {
	var sub models.Submission
	if err := c.Bind(&sub); err != nil {
		return badBody(c)
	}
	review, err := s.deps.Engine.GenerateReview(c.Request().Context(), sub)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, review)
}

func (s *Server) captureFeedback(c echo.Context) error {
	var req models.FeedbackRequest
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	rec, err := s.deps.Engine.CaptureFeedback(c.Request().Context(), req)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (s *Server) getFeedback(c echo.Context) error {
	rec, err := s.deps.Feedback.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) listFeedback(c echo.Context) error {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return s.fail(c, err)
	}
	limit, err := queryInt(c, "limit", feedback.DefaultPageSize)
	if err != nil {
		return s.fail(c, err)
	}
	limit = min(limit, feedback.MaxPageSize)
	storeID := c.Param("id")
	items, err := s.deps.Feedback.List(c.Request().Context(), storeID, page, limit)
	if err != nil {
		return s.fail(c, err)
	}
	if items == nil {
		items = []*models.FeedbackRecord{}
	}
	return c.JSON(http.StatusOK, FeedbackPage{StoreID: storeID, Page: page, Limit: limit, Items: items})
}

func (s *Server) listPlatforms(c echo.Context) error {
	return c.JSON(http.StatusOK, platforms.All())
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, &models.InvalidRequestError{Field: name, Reason: "must be a positive integer"}
	}
	return v, nil
}

func badBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_body", Message: "request body is not valid JSON"})
}

// fail maps engine errors onto HTTP statuses.
func (s *Server) fail(c echo.Context, err error) error {
	status, code := classify(err)
	logger := zerolog.Ctx(c.Request().Context())
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg("Request failed")
	} else {
		logger.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}
	return c.JSON(status, ErrorResponse{Error: code, Message: err.Error()})
}

func classify(err error) (int, string) {
	var (
		rating   *models.InvalidRatingError
		tone     *models.UnsupportedToneError
		locale   *models.UnsupportedLocaleError
		short    *models.InsufficientFeedbackError
		provider *llm.ProviderError
	)
	switch {
	case errors.As(err, &rating):
		return http.StatusBadRequest, "invalid_rating"
	case errors.As(err, &tone):
		return http.StatusBadRequest, "unsupported_tone"
	case errors.As(err, &locale):
		return http.StatusBadRequest, "unsupported_locale"
	case errors.As(err, &short):
		return http.StatusBadRequest, "insufficient_feedback"
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, models.ErrStoreNotFound):
		return http.StatusNotFound, "store_not_found"
	case errors.Is(err, models.ErrFeedbackNotFound):
		return http.StatusNotFound, "feedback_not_found"
	case errors.Is(err, llm.ErrGenerationFailed):
		if errors.As(err, &provider) {
			return http.StatusBadGateway, string(provider.Kind)
		}
		return http.StatusBadGateway, "generation_failed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
