package sanitizer

import (
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

const maxFreeTextLength = 500

var (
	idPipeline       = Pipeline{stripControl, strings.TrimSpace}
	freeTextPipeline = Pipeline{stripControl, collapseWhitespace, truncateFreeText}
)

// stripControl drops control characters. Tabs and newlines survive so the
// whitespace steps downstream can trim or collapse them.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func collapseWhitespace(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

func truncateFreeText(s string) string {
	if len(s) <= maxFreeTextLength {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxFreeTextLength {
		return s
	}
	return string(runes[:maxFreeTextLength])
}
