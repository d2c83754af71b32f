package analysis

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Categories guessed from the message text of a warning.
const (
	Deprecation    = "Deprecation"
	ProprietaryAPI = "Proprietary API"
)

// ClassifyWarning guesses a category from the message. The checks are
// case-sensitive and "proprietary" takes precedence over "deprecated".
// It returns "" when nothing matches.
func ClassifyWarning(message string) string {
	if strings.Contains(message, "proprietary") {
		return ProprietaryAPI
	}
	if strings.Contains(message, "deprecated") {
		return Deprecation
	}
	return ""
}

// ClassifyIfEmpty returns group with its first letter capitalized. If group is
// empty the category is guessed from message instead.
func ClassifyIfEmpty(group, message string) string {
	if category := capitalize(group); category != "" {
		return category
	}
	return ClassifyWarning(message)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	title := unicode.ToTitle(r)
	if title == r {
		return s
	}
	return string(title) + s[size:]
}
