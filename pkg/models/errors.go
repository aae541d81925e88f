package models

import (
	"errors"
	"fmt"
)

// ErrValidation matches every caller-input error in this package.
var ErrValidation = errors.New("validation error")

// InvalidRatingError reports a rating outside the 1..5 scale.
type InvalidRatingError struct {
	Rating int
}

func (e *InvalidRatingError) Error() string {
	return fmt.Sprintf("invalid rating %d: must be between 1 and 5", e.Rating)
}

func (e *InvalidRatingError) Is(target error) bool { return target == ErrValidation }

// InvalidRequestError reports a request that is well formed but cannot be
// served on the path it was sent to.
type InvalidRequestError struct {
	Field  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Reason
	}
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

func (e *InvalidRequestError) Is(target error) bool { return target == ErrValidation }

// UnsupportedToneError reports a tone with no prompt template.
type UnsupportedToneError struct {
	Tone Tone
}

func (e *UnsupportedToneError) Error() string {
	return fmt.Sprintf("unsupported tone %q", string(e.Tone))
}

func (e *UnsupportedToneError) Is(target error) bool { return target == ErrValidation }

// UnsupportedLocaleError reports a locale with no prompt template.
type UnsupportedLocaleError struct {
	Locale string
}

func (e *UnsupportedLocaleError) Error() string {
	return fmt.Sprintf("unsupported locale %q", e.Locale)
}

func (e *UnsupportedLocaleError) Is(target error) bool { return target == ErrValidation }

// InsufficientFeedbackError reports feedback text shorter than the minimum.
type InsufficientFeedbackError struct {
	Length    int
	MinLength int
}

func (e *InsufficientFeedbackError) Error() string {
	return fmt.Sprintf("feedback too short: %d characters, need at least %d", e.Length, e.MinLength)
}

func (e *InsufficientFeedbackError) Is(target error) bool { return target == ErrValidation }

// ErrStoreNotFound is returned by store directories for unknown store ids.
var ErrStoreNotFound = errors.New("store not found")

// ErrFeedbackNotFound is returned by feedback stores for unknown record ids.
var ErrFeedbackNotFound = errors.New("feedback record not found")
