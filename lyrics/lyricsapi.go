package lyrics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"decibel/models"
)

type lyricsAPIResponse struct {
	Lyrics string `json:"lyrics"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// LyricsAPI queries lyrics-api.fly.dev, which takes artist and title as path segments.
type LyricsAPI struct {
	baseURL    string
	httpClient *http.Client
}

func NewLyricsAPI(baseURL string, httpClient *http.Client) *LyricsAPI {
	return &LyricsAPI{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (p *LyricsAPI) Name() models.LyricsSource {
	return models.SourceLyricsAPI
}

func (p *LyricsAPI) Fetch(ctx context.Context, artist, title string) Outcome {
	u := p.baseURL + "/api/lyrics/" + url.PathEscape(artist) + "/" + url.PathEscape(title)

	resp, err := get(ctx, p.httpClient, u)
	if err != nil {
		return failed("lyrics-api request failed: %w", err)
	}
	defer resp.Body.Close()

	// a 404 is the service saying it has nothing, anything else unexpected is a failure
	if resp.StatusCode == http.StatusNotFound {
		return miss()
	}
	if resp.StatusCode != http.StatusOK {
		return failed("lyrics-api returned status %d", resp.StatusCode)
	}

	var data lyricsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return failed("lyrics-api response decode: %w", err)
	}

	if data.Lyrics == "" {
		return miss()
	}

	return hit(&models.LyricsResult{
		Title:  fallbackIfEmpty(data.Title, title),
		Artist: fallbackIfEmpty(data.Artist, artist),
		Lyrics: data.Lyrics,
		Source: p.Name(),
	})
}
