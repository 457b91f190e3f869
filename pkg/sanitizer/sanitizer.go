package sanitizer

import (
	"regexp"
	"strings"
	"unicode"
)

const maxDisplayNameRunes = 100

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reSlotNumberDisallowed = regexp.MustCompile(`[^0-9\p{L}-]+`)
	reRepeatedHyphens      = regexp.MustCompile(`-+`)
)

func upper(s string) string {
	return strings.ToUpper(s)
}

func collapseHyphens(s string) string {
	s = reRepeatedHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func dropControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
}

func truncateRunes(n int) Strategy {
	return func(s string) string {
		runes := []rune(s)
		if len(runes) <= n {
			return s
		}
		return strings.TrimSpace(string(runes[:n]))
	}
}

// SanitizeSlotNumber turns " a 12 " into "A12" and "b--7" into "B-7".
func SanitizeSlotNumber(input string) string {
	p := Pipeline{
		strings.TrimSpace,
		upper,
		func(s string) string { return reSlotNumberDisallowed.ReplaceAllString(s, "") },
		collapseHyphens,
	}
	return p.Apply(input)
}

func SanitizeDisplayName(input string) string {
	p := Pipeline{
		dropControl,
		TrimAndNormalize,
		truncateRunes(maxDisplayNameRunes),
	}
	return p.Apply(input)
}

func SanitizeEmail(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

func SanitizeSlice(values []string, strategy Strategy) []string {
	seen := make(map[string]struct{})
	out := []string{}

	for _, v := range values {
		s := strategy(v)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out
}
