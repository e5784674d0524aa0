package lyrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"

	"decibel/helpers"
	"decibel/models"
	"decibel/sentryhelper"
)

const (
	// MaxCandidates caps every candidate list handed back to the shell.
	MaxCandidates = 8
	// queryPrefixLen bounds the first-stage search query.
	queryPrefixLen = 100
)

// Client resolves exact lookups against an ordered provider list and fragment
// searches against lrclib. It holds no per-call state.
type Client struct {
	providers []Provider
	searcher  *LRCLib
	logger    *log.Entry
}

// New wires lyrics-api.fly.dev ahead of lrclib.net. The order is fixed.
func New(lyricsAPIURL, lrclibURL string, timeout time.Duration) *Client {
	httpClient := &http.Client{
		Timeout: timeout,
	}

	lrclib := NewLRCLib(lrclibURL, httpClient)
	return NewWithProviders([]Provider{NewLyricsAPI(lyricsAPIURL, httpClient), lrclib}, lrclib)
}

func NewWithProviders(providers []Provider, searcher *LRCLib) *Client {
	return &Client{
		providers: providers,
		searcher:  searcher,
		logger:    log.WithFields(log.Fields{"module": "lyrics"}),
	}
}

// Providers returns the exact-lookup priority list.
func (c *Client) Providers() []models.LyricsSource {
	names := make([]models.LyricsSource, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}

// FetchExact tries each provider once, in order, and returns the first hit.
// Misses and transport failures are both treated as "try the next one".
func (c *Client) FetchExact(ctx context.Context, artist, title string) (*models.LyricsResult, bool) {
	logger := c.logger.WithFields(log.Fields{"function": "FetchExact"})

	span := sentry.StartSpan(ctx, "lyrics.fetch_exact")
	span.Description = "Exact lyrics lookup across providers"
	span.SetTag("artist", artist)
	span.SetTag("title", title)
	defer span.Finish()

	for _, p := range c.providers {
		outcome := p.Fetch(span.Context(), artist, title)
		switch outcome.Kind {
		case Hit:
			logger.Debugf("lyrics for '%s' by %s found on %s", title, artist, p.Name())
			span.Status = sentry.SpanStatusOK
			span.SetData("source", string(p.Name()))
			return outcome.Result, true
		case TransportError:
			logger.Warnf("%s failed for '%s' by %s: %v", p.Name(), title, artist, outcome.Err)
			sentryhelper.AddBreadcrumb(ctx, &sentry.Breadcrumb{
				Category: "lyrics",
				Message:  outcome.Err.Error(),
				Level:    sentry.LevelWarning,
				Data:     map[string]interface{}{"provider": string(p.Name())},
			})
		default:
			logger.Tracef("%s has no lyrics for '%s' by %s", p.Name(), title, artist)
		}
	}

	span.Status = sentry.SpanStatusNotFound
	return nil, false
}

// Search looks a normalized fragment up in two stages: the first 100 characters,
// then the extracted keywords. Stage two only runs when stage one found nothing.
// Failures are logged and yield an empty list.
func (c *Client) Search(ctx context.Context, normalized string) []models.SongCandidate {
	logger := c.logger.WithFields(log.Fields{"function": "Search"})

	span := sentry.StartSpan(ctx, "lyrics.search")
	span.Description = "Fallback text search on lrclib"
	defer span.Finish()

	queries := []string{
		helpers.Truncate(normalized, queryPrefixLen),
		helpers.Keywords(normalized),
	}

	for stage, query := range queries {
		if query == "" {
			continue
		}

		candidates, err := c.searcher.Search(span.Context(), query, MaxCandidates)
		if err != nil {
			logger.Warnf("search stage %d for %q failed: %v", stage+1, query, err)
			continue
		}
		if len(candidates) > 0 {
			logger.Debugf("search stage %d for %q returned %d candidates", stage+1, query, len(candidates))
			span.SetTag("stage", strconv.Itoa(stage+1))
			span.Status = sentry.SpanStatusOK
			return candidates
		}
	}

	span.Status = sentry.SpanStatusNotFound
	return []models.SongCandidate{}
}
