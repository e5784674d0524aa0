package models

import (
	"strings"
	"testing"
)

func TestLyricsResultDownload(t *testing.T) {
	r := &LyricsResult{
		Title:  "All of Me",
		Artist: "John Legend",
		Lyrics: "What would I do without your smart mouth?\nDrawing me in",
		Source: SourceLRCLib,
	}

	wantText := "All of Me - John Legend\n\nWhat would I do without your smart mouth?\nDrawing me in"
	if got := r.DownloadText(); got != wantText {
		t.Errorf("DownloadText() = %q, want %q", got, wantText)
	}
	if got := r.DownloadFilename(); got != "John Legend_All of Me.txt" {
		t.Errorf("DownloadFilename() = %q", got)
	}
}

func TestConfidenceBadge(t *testing.T) {
	tests := []struct {
		name string
		conf *int
		want string
	}{
		{"absent", nil, ""},
		{"zero", IntPtr(0), ""},
		{"high", IntPtr(80), "high"},
		{"medium", IntPtr(60), "medium"},
		{"low", IntPtr(59), "low"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := SongCandidate{Confidence: tt.conf}
			if got := c.ConfidenceBadge(); got != tt.want {
				t.Errorf("ConfidenceBadge() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScore(t *testing.T) {
	if got := (SongCandidate{}).Score(); got != 0 {
		t.Errorf("Score() without confidence = %d, want 0", got)
	}
	if got := (SongCandidate{Confidence: IntPtr(42)}).Score(); got != 42 {
		t.Errorf("Score() = %d, want 42", got)
	}
}

func TestMetadata(t *testing.T) {
	c := SongCandidate{Year: "2013", Genre: "Soul"}
	if got := c.Metadata(); got != "2013 • Soul" {
		t.Errorf("Metadata() = %q", got)
	}
	if got := (SongCandidate{}).Metadata(); got != "" {
		t.Errorf("Metadata() on empty = %q", got)
	}
}

func TestShortPhrase(t *testing.T) {
	short := SongCandidate{MatchingPhrase: "all of me loves all of you"}
	if got := short.ShortPhrase(); got != short.MatchingPhrase {
		t.Errorf("ShortPhrase() = %q", got)
	}

	long := SongCandidate{MatchingPhrase: strings.Repeat("é", 70)}
	got := long.ShortPhrase()
	if want := strings.Repeat("é", 60) + "..."; got != want {
		t.Errorf("ShortPhrase() = %q, want %q", got, want)
	}
}
