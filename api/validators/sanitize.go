package validators

import (
	"strings"
	"unicode"
)

// SanitizeString trims input, drops control and format characters, and cuts
// the result to at most maxRunes runes. maxRunes <= 0 disables the cut.
func SanitizeString(input string, maxRunes int) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) || r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, input)
	cleaned = strings.TrimSpace(cleaned)

	if maxRunes <= 0 {
		return cleaned
	}
	n := 0
	for i := range cleaned {
		if n == maxRunes {
			return strings.TrimSpace(cleaned[:i])
		}
		n++
	}
	return cleaned
}
