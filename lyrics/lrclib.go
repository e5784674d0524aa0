package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"decibel/models"
)

type lrclibGetResponse struct {
	TrackName   string `json:"trackName"`
	ArtistName  string `json:"artistName"`
	PlainLyrics string `json:"plainLyrics"`
}

type lrclibSearchResult struct {
	TrackName  string `json:"trackName"`
	Name       string `json:"name"`
	ArtistName string `json:"artistName"`
	Artist     string `json:"artist"`
	AlbumName  string `json:"albumName"`
}

// LRCLib talks to lrclib.net: /api/get for exact lookups and /api/search for fragments.
type LRCLib struct {
	baseURL    string
	httpClient *http.Client
}

func NewLRCLib(baseURL string, httpClient *http.Client) *LRCLib {
	return &LRCLib{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (p *LRCLib) Name() models.LyricsSource {
	return models.SourceLRCLib
}

func (p *LRCLib) Fetch(ctx context.Context, artist, title string) Outcome {
	params := url.Values{}
	params.Set("artist_name", artist)
	params.Set("track_name", title)

	resp, err := get(ctx, p.httpClient, p.baseURL+"/api/get?"+params.Encode())
	if err != nil {
		return failed("lrclib request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return miss()
	}
	if resp.StatusCode != http.StatusOK {
		return failed("lrclib returned status %d", resp.StatusCode)
	}

	var data lrclibGetResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return failed("lrclib response decode: %w", err)
	}

	if data.PlainLyrics == "" {
		return miss()
	}

	return hit(&models.LyricsResult{
		Title:  fallbackIfEmpty(data.TrackName, title),
		Artist: fallbackIfEmpty(data.ArtistName, artist),
		Lyrics: data.PlainLyrics,
		Source: p.Name(),
	})
}

// Search runs a free-text query and maps at most limit hits to candidates.
func (p *LRCLib) Search(ctx context.Context, query string, limit int) ([]models.SongCandidate, error) {
	u := fmt.Sprintf("%s/api/search?q=%s", p.baseURL, url.QueryEscape(query))
	resp, err := get(ctx, p.httpClient, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lrclib search returned status %d", resp.StatusCode)
	}

	var results []lrclibSearchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("lrclib search decode: %w", err)
	}

	if len(results) > limit {
		results = results[:limit]
	}

	candidates := make([]models.SongCandidate, 0, len(results))
	for _, r := range results {
		candidates = append(candidates, models.SongCandidate{
			Title:  firstNonEmpty(r.TrackName, r.Name, "Unknown"),
			Artist: firstNonEmpty(r.ArtistName, r.Artist, "Unknown"),
			Album:  r.AlbumName,
			Source: models.CandidateLRCLib,
		})
	}
	return candidates, nil
}
