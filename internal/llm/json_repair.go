package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
)

// JsonRepairStats tracks statistics about JSON repair operations
type JsonRepairStats struct {
	OriginalBytes    int           `json:"original_bytes"`
	RepairedBytes    int           `json:"repaired_bytes"`
	ErrorsFixed      int           `json:"errors_fixed"`
	RepairTime       time.Duration `json:"repair_time"`
	RepairStrategies []string      `json:"repair_strategies"`
	WasRepaired      bool          `json:"was_repaired"`
}

var trailingComma = regexp.MustCompile(`,\s*([}\]])`)

// RepairJSON attempts to repair malformed JSON using these strategies in order:
// 1. Remove trailing commas
// 2. Close unterminated strings, objects and arrays
// 3. Use the jsonrepair library as a fallback
//
// Quotes are never rewritten, so apostrophes in review prose survive.
func RepairJSON(raw string) (repaired string, stats JsonRepairStats, err error) {
	startTime := time.Now()
	stats.OriginalBytes = len(raw)
	defer func() {
		stats.RepairedBytes = len(repaired)
		stats.RepairTime = time.Since(startTime)
	}()

	if json.Valid([]byte(raw)) {
		return raw, stats, nil
	}

	stats.WasRepaired = true
	repaired = raw

	// Strategy 1: Remove trailing commas
	if fixed := trailingComma.ReplaceAllString(repaired, "$1"); fixed != repaired {
		repaired = fixed
		stats.RepairStrategies = append(stats.RepairStrategies, "trailing_commas")
		stats.ErrorsFixed++
		if json.Valid([]byte(repaired)) {
			return repaired, stats, nil
		}
	}

	// Strategy 2: Complete truncated output
	if fixed := completeJSON(repaired); fixed != repaired {
		repaired = fixed
		stats.RepairStrategies = append(stats.RepairStrategies, "completion")
		stats.ErrorsFixed++
		if json.Valid([]byte(repaired)) {
			return repaired, stats, nil
		}
	}

	// Strategy 3: Use jsonrepair library as sophisticated fallback
	libraryRepaired, libraryErr := jsonrepair.JSONRepair(repaired)
	if libraryErr == nil && json.Valid([]byte(libraryRepaired)) {
		repaired = libraryRepaired
		stats.RepairStrategies = append(stats.RepairStrategies, "jsonrepair_library")
		stats.ErrorsFixed++
		return repaired, stats, nil
	}

	return repaired, stats, fmt.Errorf("JSON repair failed after %d strategies", len(stats.RepairStrategies))
}

// completeJSON closes an unterminated string and any open objects or arrays,
// last opened first. Brackets inside strings are ignored.
func completeJSON(s string) string {
	s = strings.TrimSpace(s)

	var stack []byte
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if inString {
		s += `"`
	}
	for i := len(stack) - 1; i >= 0; i-- {
		s += string(stack[i])
	}
	return s
}
