package models

import (
	"sort"
	"strings"
	"time"
)

// Tone is the writing style requested for a generated review.
type Tone string

const (
	ToneFriendly     Tone = "friendly"
	ToneProfessional Tone = "professional"
	ToneCasual       Tone = "casual"
	ToneEnthusiastic Tone = "enthusiastic"
)

// ReviewLength is the requested length band of a generated review.
type ReviewLength string

const (
	LengthShort  ReviewLength = "short"
	LengthMedium ReviewLength = "medium"
	LengthLong   ReviewLength = "long"
)

// ReviewType buckets a rating for display and reporting.
type ReviewType string

const (
	ReviewPositive ReviewType = "positive"
	ReviewNeutral  ReviewType = "neutral"
	ReviewNegative ReviewType = "negative"
)

// Submission is one customer's rating event. It is never mutated after the
// engine accepts it.
type Submission struct {
	ID               string       `json:"id"`
	StoreID          string       `json:"store_id"`
	Rating           int          `json:"rating"`
	SelectedAspects  []string     `json:"selected_aspects"`
	FreeText         string       `json:"free_text,omitempty"`
	Locale           string       `json:"locale"`
	DesiredTone      Tone         `json:"desired_tone,omitempty"`
	DesiredLength    ReviewLength `json:"desired_length,omitempty"`
	ContactInfo      *string      `json:"contact_info,omitempty"`
	ImprovementAreas []string     `json:"improvement_areas,omitempty"`
	FollowUp         bool         `json:"follow_up_required,omitempty"`
}

// NormalizedAspects returns the selected aspects trimmed, deduplicated and
// sorted, which is the form used for fingerprints and prompts.
func (s Submission) NormalizedAspects() []string {
	seen := make(map[string]struct{}, len(s.SelectedAspects))
	out := make([]string, 0, len(s.SelectedAspects))
	for _, a := range s.SelectedAspects {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// PlatformLink is a public review destination configured for a store.
type PlatformLink struct {
	Name   string `json:"name" koanf:"name"`
	URL    string `json:"url" koanf:"url"`
	Active bool   `json:"active" koanf:"active"`
}

// Store is the business metadata served by the store directory.
type Store struct {
	ID              string         `json:"id" koanf:"id"`
	Name            string         `json:"name" koanf:"name"`
	Category        string         `json:"category" koanf:"category"`
	Description     string         `json:"description,omitempty" koanf:"description"`
	SEOKeywords     []string       `json:"seo_keywords" koanf:"seo_keywords"`
	ServicesOffered []string       `json:"services_offered,omitempty" koanf:"services_offered"`
	Platforms       []PlatformLink `json:"platforms" koanf:"platforms"`
}

// ActivePlatforms returns the store's active platform links in configured order.
func (s *Store) ActivePlatforms() []PlatformLink {
	if s == nil {
		return nil
	}
	out := make([]PlatformLink, 0, len(s.Platforms))
	for _, p := range s.Platforms {
		if p.Active {
			out = append(out, p)
		}
	}
	return out
}

// GenerationRequest is a submission enriched with the store metadata needed
// to write a review for it.
type GenerationRequest struct {
	Submission Submission `json:"submission"`
	Store      Store      `json:"store"`
}

// GeneratedReview is the immutable output of the generation path.
type GeneratedReview struct {
	ID              string        `json:"id"`
	Fingerprint     string        `json:"fingerprint"`
	StoreID         string        `json:"store_id"`
	Title           string        `json:"title,omitempty"`
	Text            string        `json:"text"`
	Rating          int           `json:"rating"`
	ToneUsed        Tone          `json:"tone_used"`
	Locale          string        `json:"locale"`
	WordCount       int           `json:"word_count"`
	CharCount       int           `json:"char_count"`
	CharLimit       int           `json:"char_limit"`
	SEOKeywordsUsed []string      `json:"seo_keywords_used"`
	ReviewType      ReviewType    `json:"review_type"`
	SentimentScore  float64       `json:"sentiment_score"`
	Model           string        `json:"model,omitempty"`
	Degraded        bool          `json:"degraded"`
	Truncated       bool          `json:"truncated"`
	Defaulted       []string      `json:"defaulted,omitempty"`
	GenerationTime  time.Duration `json:"generation_time"`
	CreatedAt       time.Time     `json:"created_at"`
}

// FeedbackRequest carries a customer's private feedback for a non-positive rating.
type FeedbackRequest struct {
	SubmissionID     string   `json:"submission_id,omitempty"`
	StoreID          string   `json:"store_id"`
	Rating           int      `json:"rating"`
	FreeText         string   `json:"free_text"`
	Locale           string   `json:"locale,omitempty"`
	ImprovementAreas []string `json:"improvement_areas,omitempty"`
	ContactInfo      *string  `json:"contact_info,omitempty"`
	FollowUpRequired bool     `json:"follow_up_required"`
}

// FeedbackRecord is private feedback addressed to the store. It is never
// published to an external platform.
type FeedbackRecord struct {
	ID               string    `json:"id" db:"id"`
	SubmissionID     string    `json:"submission_id,omitempty" db:"submission_id"`
	StoreID          string    `json:"store_id" db:"store_id"`
	Rating           int       `json:"rating" db:"rating"`
	FreeText         string    `json:"free_text" db:"free_text"`
	Locale           string    `json:"locale,omitempty" db:"locale"`
	ImprovementAreas []string  `json:"improvement_areas" db:"improvement_areas"`
	AISuggestion     *string   `json:"ai_suggestion,omitempty" db:"ai_suggestion"`
	ContactInfo      *string   `json:"contact_info,omitempty" db:"contact_info"`
	FollowUpRequired bool      `json:"follow_up_required" db:"follow_up_required"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// PlatformLimit describes the constraints a review platform imposes on text.
type PlatformLimit struct {
	PlatformName string `json:"platform_name"`
	MaxChars     int    `json:"max_chars"`
	ToneNorm     string `json:"tone_norm"`
}
