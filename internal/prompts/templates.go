package prompts

import (
	"github.com/smartreview/internal/routing"
	"github.com/smartreview/pkg/models"
)

// Template keys
const (
	KeyReview     = "review"
	KeySuggestion = "suggestion"
)

// System role definitions
const (
	ReviewerRole = "You are a real customer writing an authentic online review of a local business. " +
		"Write entirely in {{VAR:language}}. Only describe what the customer actually experienced, " +
		"never invent facts, prices or people, never mention being an AI and never include links."

	ConsultantRole = "You are a customer experience consultant who helps small businesses improve. " +
		"The feedback below is private and will never be published."
)

// ReviewTemplate is the user prompt for review generation.
const ReviewTemplate = `Write a {{VAR:rating}}-star review of "{{VAR:store_name}}", a {{VAR:store_category|default="local business"}}.

{{VAR:rating_instruction}}

The customer especially noticed {{VAR:aspects}}.
{{VAR:services|join=", "}}

{{VAR:free_text}}

Style: {{VAR:tone_instruction|join=" "}}
Length: between {{VAR:min_words}} and {{VAR:max_words}} words, never more than {{VAR:char_limit}} characters in total.
{{VAR:platform_norm}}

{{VAR:keywords}}

Respond with JSON only, exactly in this shape:
{"title": "a short review title", "review": "the review text"}`

// SuggestionTemplate is the user prompt for improvement suggestions on
// private feedback.
const SuggestionTemplate = `A customer rated "{{VAR:store_name}}" ({{VAR:store_category|default="local business"}}) {{VAR:rating}} out of 5 and left this private feedback:
"""
{{VAR:free_text}}
"""
{{VAR:improvement_areas|join=", "}}

Suggest 3 to 5 concrete, actionable improvements the business could make in response.
Write in {{VAR:language}}. Answer with a bullet list only, one suggestion per line, each line starting with "- ".`

// ratingInstruction describes the sentiment the review should carry.
func ratingInstruction(kind models.ReviewType, rating int) string {
	switch {
	case kind == models.ReviewPositive && rating == routing.MaxRating:
		return "The customer was extremely satisfied. Convey genuine enthusiasm and a clear recommendation."
	case kind == models.ReviewPositive:
		return "The customer was satisfied. Keep the review positive and natural, with a recommendation."
	case kind == models.ReviewNeutral:
		return "The customer had a mixed experience. Be balanced and fair, mentioning what went well."
	case rating <= routing.MinRating:
		return "The customer was very dissatisfied. Stay factual, calm and constructive."
	default:
		return "The customer was disappointed. Stay factual and constructive, without insults."
	}
}

// toneInstructions describe each supported writing style.
var toneInstructions = map[models.Tone]string{
	models.ToneFriendly:     "Warm and friendly, like telling a friend about a place you liked.",
	models.ToneProfessional: "Polished and professional, precise wording, no slang or emoji.",
	models.ToneCasual:       "Relaxed and casual, short sentences, everyday words.",
	models.ToneEnthusiastic: "Energetic and enthusiastic, vivid wording, at most one exclamation per paragraph.",
}

// toneTemperature maps a tone to the sampling temperature used for it.
var toneTemperature = map[models.Tone]float64{
	models.ToneProfessional: 0.5,
	models.ToneFriendly:     0.7,
	models.ToneCasual:       0.8,
	models.ToneEnthusiastic: 0.9,
}

type lengthBand struct {
	min, max int
}

// Word bands per requested length.
var lengthBands = map[models.ReviewLength]lengthBand{
	models.LengthShort:  {50, 100},
	models.LengthMedium: {100, 200},
	models.LengthLong:   {200, 300},
}
