package models

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// LyricsSource identifies the provider that produced a LyricsResult
type LyricsSource string

const (
	SourceLyricsAPI LyricsSource = "lyrics-api.fly.dev"
	SourceLRCLib    LyricsSource = "lrclib.net"
)

// CandidateSource identifies where a SongCandidate came from
type CandidateSource string

const (
	CandidateGemini CandidateSource = "gemini_ai"
	CandidateLRCLib CandidateSource = "lrclib"
)

const matchingPhraseDisplayLen = 60

// LyricsResult is a single song's full lyrics. A failed lookup never produces one.
type LyricsResult struct {
	Title  string       `json:"title"`
	Artist string       `json:"artist"`
	Lyrics string       `json:"lyrics"`
	Source LyricsSource `json:"source"`
}

// DownloadText is the plain text export shown behind the download button.
func (r *LyricsResult) DownloadText() string {
	return fmt.Sprintf("%s - %s\n\n%s", r.Title, r.Artist, r.Lyrics)
}

func (r *LyricsResult) DownloadFilename() string {
	return fmt.Sprintf("%s_%s.txt", r.Artist, r.Title)
}

// SongCandidate is one ranked guess from a fragment search.
// Confidence is nil for candidates that did not come from the classifier.
type SongCandidate struct {
	Title          string          `json:"title"`
	Artist         string          `json:"artist"`
	Album          string          `json:"album,omitempty"`
	Year           string          `json:"year,omitempty"`
	Language       string          `json:"language,omitempty"`
	Genre          string          `json:"genre,omitempty"`
	Confidence     *int            `json:"confidence,omitempty"`
	MatchingPhrase string          `json:"matching_phrase,omitempty"`
	Source         CandidateSource `json:"source"`
}

// Score is the confidence used for ordering, 0 when absent.
func (c SongCandidate) Score() int {
	if c.Confidence == nil {
		return 0
	}
	return *c.Confidence
}

// ConfidenceBadge buckets the confidence for display: high, medium, low or "" when absent.
func (c SongCandidate) ConfidenceBadge() string {
	if c.Confidence == nil || *c.Confidence == 0 {
		return ""
	}
	switch conf := *c.Confidence; {
	case conf >= 80:
		return "high"
	case conf >= 60:
		return "medium"
	default:
		return "low"
	}
}

// Metadata joins year, language and genre for the result card.
func (c SongCandidate) Metadata() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.Year, c.Language, c.Genre} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " • ")
}

// ShortPhrase truncates the matching phrase to 60 characters.
func (c SongCandidate) ShortPhrase() string {
	if utf8.RuneCountInString(c.MatchingPhrase) <= matchingPhraseDisplayLen {
		return c.MatchingPhrase
	}
	return string([]rune(c.MatchingPhrase)[:matchingPhraseDisplayLen]) + "..."
}

// SearchQuery is the input of a single fragment search; never retained.
type SearchQuery struct {
	Text   string
	APIKey string
}

func IntPtr(v int) *int {
	return &v
}
