package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"decibel/gemini"
	"decibel/models"
)

type fakeLyrics struct {
	exact       map[string]*models.LyricsResult // "artist|title"
	search      map[string][]models.SongCandidate
	searchCalls []string
	exactCalls  int
	mu          sync.Mutex
}

func (f *fakeLyrics) FetchExact(ctx context.Context, artist, title string) (*models.LyricsResult, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exactCalls++
	r, ok := f.exact[artist+"|"+title]
	return r, ok
}

func (f *fakeLyrics) Search(ctx context.Context, normalized string) []models.SongCandidate {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls = append(f.searchCalls, normalized)
	if c, ok := f.search[normalized]; ok {
		return c
	}
	return []models.SongCandidate{}
}

type fakeIdentifier struct {
	candidates []models.SongCandidate
	err        error
	calls      int
	texts      []string
}

func (f *fakeIdentifier) Identify(ctx context.Context, text string) ([]models.SongCandidate, error) {
	f.calls++
	f.texts = append(f.texts, text)
	return f.candidates, f.err
}

func factoryFor(id SongIdentifier) IdentifierFactory {
	return func(ctx context.Context, apiKey string) (SongIdentifier, error) {
		return id, nil
	}
}

func aiCandidates(confs ...int) []models.SongCandidate {
	out := make([]models.SongCandidate, 0, len(confs))
	for i, c := range confs {
		out = append(out, models.SongCandidate{
			Title:      fmt.Sprintf("Song %d", i),
			Artist:     "Artist",
			Confidence: models.IntPtr(c),
			Source:     models.CandidateGemini,
		})
	}
	return out
}

func TestFetchExactOrFail(t *testing.T) {
	want := &models.LyricsResult{Title: "Hello", Artist: "Adele", Lyrics: "Hello, it's me", Source: models.SourceLyricsAPI}
	c := NewController(&fakeLyrics{exact: map[string]*models.LyricsResult{"Adele|Hello": want}}, nil, "")

	got, err := c.FetchExactOrFail(context.Background(), "Adele", "Hello")
	if err != nil || got != want {
		t.Errorf("FetchExactOrFail() = %v, %v", got, err)
	}

	_, err = c.FetchExactOrFail(context.Background(), "Adele", "Goodbye")
	if !errors.Is(err, ErrLyricsNotFound) {
		t.Errorf("FetchExactOrFail() error = %v, want ErrLyricsNotFound", err)
	}
}

func TestResolveByFragmentAIHitSkipsFallback(t *testing.T) {
	// the identifier already filtered and ranked [95, 20, 61, 88]
	raw := `[` +
		`{"title": "a", "artist": "x", "confidence": 95},` +
		`{"title": "b", "artist": "x", "confidence": 20},` +
		`{"title": "c", "artist": "x", "confidence": 61},` +
		`{"title": "d", "artist": "x", "confidence": 88}]`
	ranked, err := gemini.ParseCandidates(raw)
	if err != nil {
		t.Fatal(err)
	}

	lyrics := &fakeLyrics{}
	id := &fakeIdentifier{candidates: ranked}
	c := NewController(lyrics, factoryFor(id), "key")

	res, err := c.ResolveByFragment(context.Background(), models.SearchQuery{Text: "some words"})
	if err != nil {
		t.Fatal(err)
	}
	got := []int{}
	for _, cand := range res.Candidates {
		got = append(got, *cand.Confidence)
	}
	if fmt.Sprint(got) != "[95 88 61]" {
		t.Errorf("confidences = %v, want [95 88 61]", got)
	}
	if res.Path != PathAI {
		t.Errorf("Path = %s, want ai", res.Path)
	}
	if len(lyrics.searchCalls) != 0 {
		t.Errorf("fallback search called %d times", len(lyrics.searchCalls))
	}
}

func TestResolveByFragmentLowConfidenceStillWins(t *testing.T) {
	lyrics := &fakeLyrics{}
	id := &fakeIdentifier{candidates: aiCandidates(31)}
	c := NewController(lyrics, factoryFor(id), "key")

	res, _ := c.ResolveByFragment(context.Background(), models.SearchQuery{Text: "words"})
	if res.Path != PathAI || len(res.Candidates) != 1 || len(lyrics.searchCalls) != 0 {
		t.Errorf("ResolveByFragment() = %+v, search calls %d", res, len(lyrics.searchCalls))
	}
}

func TestResolveByFragmentUnavailableFallsBack(t *testing.T) {
	fallback := make([]models.SongCandidate, 0, 8)
	for i := 0; i < 8; i++ {
		fallback = append(fallback, models.SongCandidate{Title: fmt.Sprintf("S%d", i), Artist: "Sting", Source: models.CandidateLRCLib})
	}
	lyrics := &fakeLyrics{search: map[string][]models.SongCandidate{"shape of my heart": fallback}}
	c := NewController(lyrics, nil, "")

	res, err := c.ResolveByFragment(context.Background(), models.SearchQuery{Text: "shape of my heart", APIKey: ""})
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != PathFallback {
		t.Errorf("Path = %s, want fallback", res.Path)
	}
	if len(res.Candidates) != 8 || res.Candidates[0].Title != "S0" || res.Candidates[7].Title != "S7" {
		t.Errorf("Candidates = %+v, want the fallback output verbatim", res.Candidates)
	}
	if len(res.Notices) != 1 || res.Notices[0].Level != NoticeInfo {
		t.Errorf("Notices = %+v, want one info notice", res.Notices)
	}
}

func TestResolveByFragmentEndToEnd(t *testing.T) {
	want := models.SongCandidate{Title: "All of Me", Artist: "John Legend", Source: models.CandidateLRCLib}
	lyrics := &fakeLyrics{search: map[string][]models.SongCandidate{
		"all of me loves all of you": {want},
	}}
	c := NewController(lyrics, nil, "")

	res, err := c.ResolveByFragment(context.Background(), models.SearchQuery{Text: "all of me loves all of you um"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Normalized != "all of me loves all of you" {
		t.Errorf("Normalized = %q", res.Normalized)
	}
	if len(lyrics.searchCalls) != 1 || lyrics.searchCalls[0] != "all of me loves all of you" {
		t.Errorf("search calls = %q", lyrics.searchCalls)
	}
	if len(res.Candidates) != 1 || res.Candidates[0] != want {
		t.Errorf("Candidates = %+v, want [%+v]", res.Candidates, want)
	}
}

func TestResolveByFragmentClassifierProblems(t *testing.T) {
	tests := []struct {
		name      string
		id        *fakeIdentifier
		wantLevel NoticeLevel
	}{
		{"malformed", &fakeIdentifier{err: fmt.Errorf("%w: not json", gemini.ErrMalformed)}, NoticeWarning},
		{"request failed", &fakeIdentifier{err: fmt.Errorf("%w: boom", gemini.ErrRequestFailed)}, NoticeError},
		{"no candidates", &fakeIdentifier{candidates: []models.SongCandidate{}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fallback := []models.SongCandidate{{Title: "Fallback", Artist: "X", Source: models.CandidateLRCLib}}
			lyrics := &fakeLyrics{search: map[string][]models.SongCandidate{"words": fallback}}
			c := NewController(lyrics, factoryFor(tt.id), "key")

			res, err := c.ResolveByFragment(context.Background(), models.SearchQuery{Text: "words"})
			if err != nil {
				t.Fatal(err)
			}
			if res.Path != PathFallback || len(res.Candidates) != 1 {
				t.Errorf("ResolveByFragment() = %+v", res)
			}
			if tt.id.calls != 1 {
				t.Errorf("identifier called %d times, want 1", tt.id.calls)
			}
			if tt.wantLevel == "" {
				if len(res.Notices) != 0 {
					t.Errorf("Notices = %+v, want none", res.Notices)
				}
				return
			}
			if len(res.Notices) != 1 || res.Notices[0].Level != tt.wantLevel {
				t.Errorf("Notices = %+v, want one %s", res.Notices, tt.wantLevel)
			}
		})
	}
}

func TestResolveByFragmentPassesNormalizedText(t *testing.T) {
	id := &fakeIdentifier{candidates: aiCandidates(90)}
	c := NewController(&fakeLyrics{}, factoryFor(id), "key")

	c.ResolveByFragment(context.Background(), models.SearchQuery{Text: "  um  hello   from the other side "})
	if len(id.texts) != 1 || id.texts[0] != "hello from the other side" {
		t.Errorf("identifier got %q", id.texts)
	}
}

func TestResolveByFragmentEmpty(t *testing.T) {
	c := NewController(&fakeLyrics{}, nil, "")
	if _, err := c.ResolveByFragment(context.Background(), models.SearchQuery{Text: "  \n "}); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("error = %v, want ErrEmptyQuery", err)
	}
}

func TestSessionKeyOverridesDefault(t *testing.T) {
	var keys []string
	factory := func(ctx context.Context, apiKey string) (SongIdentifier, error) {
		keys = append(keys, apiKey)
		return &fakeIdentifier{candidates: aiCandidates(90)}, nil
	}
	c := NewController(&fakeLyrics{}, factory, "server-key")

	c.ResolveByFragment(context.Background(), models.SearchQuery{Text: "a"})
	c.ResolveByFragment(context.Background(), models.SearchQuery{Text: "b", APIKey: "session-key"})
	c.ResolveByFragment(context.Background(), models.SearchQuery{Text: "c"})

	// the configured key's identifier is reused
	if strings.Join(keys, ",") != "server-key,session-key" {
		t.Errorf("factory keys = %v", keys)
	}
	if !c.AIAvailable("") || !c.AIAvailable("other") {
		t.Error("AIAvailable should be true with a default key")
	}
	if NewController(&fakeLyrics{}, factory, "").AIAvailable("") {
		t.Error("AIAvailable should be false without any key")
	}
}

func TestFactoryErrorFallsBack(t *testing.T) {
	factory := func(ctx context.Context, apiKey string) (SongIdentifier, error) {
		return nil, errors.New("bad key")
	}
	lyrics := &fakeLyrics{}
	c := NewController(lyrics, factory, "key")

	res, err := c.ResolveByFragment(context.Background(), models.SearchQuery{Text: "words"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != PathFallback || len(lyrics.searchCalls) != 1 {
		t.Errorf("ResolveByFragment() = %+v", res)
	}
	if len(res.Notices) != 1 || res.Notices[0].Level != NoticeError {
		t.Errorf("Notices = %+v", res.Notices)
	}
}

func TestSessionKeyNotRetained(t *testing.T) {
	var keys []string
	factory := func(ctx context.Context, apiKey string) (SongIdentifier, error) {
		keys = append(keys, apiKey)
		return &fakeIdentifier{candidates: aiCandidates(90)}, nil
	}
	c := NewController(&fakeLyrics{}, factory, "")

	for _, key := range []string{"session-key", "session-key", "other-key"} {
		res, err := c.ResolveByFragment(context.Background(), models.SearchQuery{Text: "words", APIKey: key})
		if err != nil || res.Path != PathAI {
			t.Fatalf("ResolveByFragment(%s) = %+v, %v", key, res, err)
		}
	}

	if strings.Join(keys, ",") != "session-key,session-key,other-key" {
		t.Errorf("factory keys = %v, want one build per call", keys)
	}
	if c.defaultIdentifier != nil {
		t.Error("a session key identifier was kept on the controller")
	}
}

func TestDefaultIdentifierRetriedAfterFailure(t *testing.T) {
	calls := 0
	factory := func(ctx context.Context, apiKey string) (SongIdentifier, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("transient")
		}
		return &fakeIdentifier{candidates: aiCandidates(90)}, nil
	}
	c := NewController(&fakeLyrics{}, factory, "server-key")

	if res, _ := c.ResolveByFragment(context.Background(), models.SearchQuery{Text: "words"}); res.Path != PathFallback {
		t.Errorf("first Path = %s, want fallback", res.Path)
	}
	if res, _ := c.ResolveByFragment(context.Background(), models.SearchQuery{Text: "words"}); res.Path != PathAI {
		t.Errorf("second Path = %s, want ai", res.Path)
	}
	c.ResolveByFragment(context.Background(), models.SearchQuery{Text: "words"})
	if calls != 2 {
		t.Errorf("factory called %d times, want 2", calls)
	}
}
