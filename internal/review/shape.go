package review

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// sentenceEnders close a sentence. The full-width forms need no following space.
const (
	sentenceEnders = ".!?"
	wideEnders     = "。！？"
)

// NormalizeText collapses whitespace inside paragraphs and keeps paragraph
// breaks as a single blank line.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.Join(strings.Fields(p), " ")
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

// Truncate shortens text to at most limit characters (runes). It cuts after
// the last complete sentence that fits, otherwise at the last word boundary,
// and reports whether anything was removed. Only text with no boundary at
// all within the limit (a single overlong word, or unpunctuated spaceless
// script) is cut at an arbitrary character.
func Truncate(text string, limit int) (string, bool) {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text, false
	}
	runes := []rune(text)

	if end := lastSentenceEnd(runes, limit); end > 0 {
		return strings.TrimSpace(string(runes[:end])), true
	}

	for k := limit; k > 0; k-- {
		if unicode.IsSpace(runes[k]) {
			out := strings.TrimRightFunc(string(runes[:k]), func(r rune) bool {
				return unicode.IsSpace(r) || strings.ContainsRune(",;:-–", r)
			})
			if out != "" {
				return out, true
			}
		}
	}

	return string(runes[:limit]), true
}

// lastSentenceEnd returns the length of the longest prefix of runes, no
// longer than limit, that ends a sentence. Zero means none was found.
func lastSentenceEnd(runes []rune, limit int) int {
	for i := limit - 1; i >= 0; i-- {
		r := runes[i]
		if strings.ContainsRune(wideEnders, r) {
			return i + 1
		}
		if strings.ContainsRune(sentenceEnders, r) && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			return i + 1
		}
	}
	return 0
}

// CountWords counts words, or characters for scripts written without spaces.
func CountWords(text string, spaceless bool) int {
	if !spaceless {
		return len(strings.Fields(text))
	}
	n := 0
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			n++
		}
	}
	return n
}

// KeywordsUsed returns the candidates that appear in text, case-insensitively,
// in candidate order.
func KeywordsUsed(text string, candidates []string) []string {
	lower := strings.ToLower(text)
	used := make([]string, 0, len(candidates))
	for _, k := range candidates {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			used = append(used, k)
		}
	}
	return used
}
