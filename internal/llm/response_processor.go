package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrEmptyCompletion is returned when a completion carries no review text.
var ErrEmptyCompletion = errors.New("completion contains no review text")

// Response formats recognised by ParseReview.
const (
	FormatJSON     = "json"
	FormatLabelled = "labelled"
	FormatPlain    = "plain"
)

// ParsedReview is the title and body extracted from a completion.
type ParsedReview struct {
	Title       string
	Review      string
	Format      string
	RepairStats JsonRepairStats
}

type reviewPayload struct {
	Title  string `json:"title"`
	Review string `json:"review"`
	Text   string `json:"text"`
}

// ParseReview extracts a review from raw model output. It accepts the
// requested JSON object (repairing it if needed), then "Title:" / "Review:"
// labelled lines, then falls back to treating the whole output as the body.
func ParseReview(raw string) (ParsedReview, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ParsedReview{}, ErrEmptyCompletion
	}

	if jsonStr := extractJSON(raw); jsonStr != "" {
		repaired, stats, err := RepairJSON(jsonStr)
		if err == nil {
			var payload reviewPayload
			if json.Unmarshal([]byte(repaired), &payload) == nil {
				body := payload.Review
				if body == "" {
					body = payload.Text
				}
				if strings.TrimSpace(body) != "" {
					return ParsedReview{
						Title:       strings.TrimSpace(payload.Title),
						Review:      strings.TrimSpace(body),
						Format:      FormatJSON,
						RepairStats: stats,
					}, nil
				}
			}
		}
	}

	if title, body, ok := parseLabelled(raw); ok {
		return ParsedReview{Title: title, Review: body, Format: FormatLabelled}, nil
	}

	body := strings.TrimSpace(stripFences(raw))
	if body == "" {
		return ParsedReview{}, ErrEmptyCompletion
	}
	return ParsedReview{Review: body, Format: FormatPlain}, nil
}

// extractJSON extracts JSON content from mixed text/JSON responses
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "{") {
		return raw
	}

	// Look for JSON blocks marked with ```json or ```
	if strings.Contains(raw, "```") {
		inner := strings.TrimSpace(stripFences(raw))
		if strings.HasPrefix(inner, "{") {
			return inner
		}
	}

	startIdx := strings.Index(raw, "{")
	if startIdx == -1 {
		return ""
	}

	count := 0
	for i := startIdx; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			count++
		case '}':
			count--
			if count == 0 {
				return raw[startIdx : i+1]
			}
		}
	}

	// Truncated object: hand the tail to the repairer
	return raw[startIdx:]
}

// stripFences returns the content of the first fenced block, or raw when
// there is none.
func stripFences(raw string) string {
	if !strings.Contains(raw, "```") {
		return raw
	}
	var lines []string
	inBlock := false
	for _, line := range strings.Split(raw, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if inBlock {
				break
			}
			inBlock = true
			continue
		}
		if inBlock {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return raw
	}
	return strings.Join(lines, "\n")
}

func parseLabelled(raw string) (title, body string, ok bool) {
	var bodyLines []string
	inBody := false
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		switch {
		case !inBody && strings.HasPrefix(lower, "title:"):
			title = strings.TrimSpace(trimmed[len("title:"):])
		case !inBody && strings.HasPrefix(lower, "review:"):
			inBody = true
			if rest := strings.TrimSpace(trimmed[len("review:"):]); rest != "" {
				bodyLines = append(bodyLines, rest)
			}
		case inBody:
			bodyLines = append(bodyLines, line)
		}
	}
	body = strings.TrimSpace(strings.Join(bodyLines, "\n"))
	return title, body, body != ""
}
