package helpers

import (
	"strings"
	"unicode/utf8"
)

// FillerWords are removed from lyric fragments before searching.
// Removal is a plain substring replace, so "like" inside "likely" goes too.
var FillerWords = []string{"like", "um", "uh", "you know", "i mean", "basically"}

const (
	keywordMinLen = 4
	keywordLimit  = 5
)

// Normalize strips filler words and collapses whitespace in a lyric fragment.
func Normalize(text string) string {
	cleaned := strings.TrimSpace(text)
	for _, filler := range FillerWords {
		cleaned = strings.ReplaceAll(cleaned, filler, " ")
	}
	return strings.Join(strings.Fields(cleaned), " ")
}

// Keywords picks up to five tokens longer than three characters, in order.
// When none qualify the first five tokens are used as-is.
func Keywords(text string) string {
	words := strings.Fields(text)

	meaningful := make([]string, 0, keywordLimit)
	for _, w := range words {
		if utf8.RuneCountInString(w) < keywordMinLen {
			continue
		}
		meaningful = append(meaningful, w)
		if len(meaningful) == keywordLimit {
			break
		}
	}

	if len(meaningful) == 0 {
		meaningful = words[:min(len(words), keywordLimit)]
	}
	return strings.Join(meaningful, " ")
}

// Truncate returns at most n characters of text.
func Truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
