package prompts

import (
	"regexp"
	"strings"
)

// Placeholder represents a single {{VAR:...}} occurrence with parsed options.
type Placeholder struct {
	Raw     string
	Name    string
	Options map[string]string // join, default
}

var (
	// Matches {{VAR:name|key=value|key2="quoted value"}}
	// Capture 1 = name, Capture 2 = options (may be empty)
	varPattern = regexp.MustCompile(`\{\{VAR:([a-zA-Z0-9_\-]+)((?:\|[^}]+)?)}}`)
	optPattern = regexp.MustCompile(`\|([^=|]+)=([^|]+)`)

	blankRuns = regexp.MustCompile(`\n{3,}`)
)

// Vars maps placeholder names to values. A value with several parts is
// joined with the placeholder's join option.
type Vars map[string][]string

// Set stores a single value.
func (v Vars) Set(name, value string) {
	if value == "" {
		v[name] = nil
		return
	}
	v[name] = []string{value}
}

// ParsePlaceholders returns all placeholder occurrences in order of appearance.
func ParsePlaceholders(body string) []Placeholder {
	matches := varPattern.FindAllStringSubmatchIndex(body, -1)
	out := make([]Placeholder, 0, len(matches))
	for _, idx := range matches {
		optsRaw := ""
		if len(idx) >= 6 && idx[4] != -1 {
			optsRaw = body[idx[4]:idx[5]]
		}
		out = append(out, Placeholder{
			Raw:     body[idx[0]:idx[1]],
			Name:    body[idx[2]:idx[3]],
			Options: parseOptions(optsRaw),
		})
	}
	return out
}

// Render substitutes every placeholder in body. Missing or empty values use
// the placeholder's default option. Runs of blank lines left by empty
// optional sections are collapsed.
func Render(body string, vars Vars) string {
	var b strings.Builder
	b.Grow(len(body))
	last := 0
	for _, idx := range varPattern.FindAllStringSubmatchIndex(body, -1) {
		b.WriteString(body[last:idx[0]])

		name := body[idx[2]:idx[3]]
		optsRaw := ""
		if idx[4] != -1 {
			optsRaw = body[idx[4]:idx[5]]
		}
		opts := parseOptions(optsRaw)
		joinSep, ok := opts["join"]
		if !ok {
			joinSep = ", "
		}

		parts := nonEmpty(vars[name])
		if len(parts) == 0 {
			b.WriteString(opts["default"])
		} else {
			b.WriteString(strings.Join(parts, joinSep))
		}
		last = idx[1]
	}
	b.WriteString(body[last:])
	return strings.TrimSpace(blankRuns.ReplaceAllString(b.String(), "\n\n"))
}

func parseOptions(optsRaw string) map[string]string {
	opts := map[string]string{}
	if optsRaw == "" {
		return opts
	}
	for _, seg := range optPattern.FindAllStringSubmatch(optsRaw, -1) {
		key := strings.TrimSpace(seg[1])
		val := strings.TrimSpace(seg[2])
		if len(val) >= 2 && ((val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'')) {
			val = val[1 : len(val)-1]
		}
		opts[strings.ToLower(key)] = decodeEscapes(val)
	}
	return opts
}

func nonEmpty(in []string) []string {
	out := in[:0:0]
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func decodeEscapes(s string) string {
	// Minimal decoding: \n, \t, \r, \\; leave others as-is
	b := strings.Builder{}
	b.Grow(len(s))
	esc := false
	for _, r := range s {
		if !esc {
			if r == '\\' {
				esc = true
				continue
			}
			b.WriteRune(r)
			continue
		}
		switch r {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
		esc = false
	}
	if esc {
		b.WriteByte('\\')
	}
	return b.String()
}
