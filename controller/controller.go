package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"

	"decibel/gemini"
	"decibel/helpers"
	"decibel/models"
)

var (
	ErrLyricsNotFound = errors.New("lyrics not found")
	ErrEmptyQuery     = errors.New("empty lyrics fragment")
)

// Path records which strategy produced a fragment search result.
type Path string

const (
	PathAI       Path = "ai"
	PathFallback Path = "fallback"
)

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a non-fatal message the shell should show alongside the result.
type Notice struct {
	Level   NoticeLevel
	Message string
}

// Resolution is the outcome of one fragment search.
type Resolution struct {
	Normalized string
	Candidates []models.SongCandidate
	Path       Path
	Notices    []Notice
}

type LyricsService interface {
	FetchExact(ctx context.Context, artist, title string) (*models.LyricsResult, bool)
	Search(ctx context.Context, normalized string) []models.SongCandidate
}

type SongIdentifier interface {
	Identify(ctx context.Context, text string) ([]models.SongCandidate, error)
}

// IdentifierFactory builds an identifier for an API key.
type IdentifierFactory func(ctx context.Context, apiKey string) (SongIdentifier, error)

// Controller composes the lyrics providers and the classifier into the two
// operations the shell uses. It is safe for concurrent use.
// Only the configured key's identifier is kept; session keys are never retained.
type Controller struct {
	lyrics            LyricsService
	newIdentifier     IdentifierFactory
	defaultKey        string
	defaultMu         sync.Mutex
	defaultIdentifier SongIdentifier
	logger            *log.Entry
}

// NewController wires the services. newIdentifier may be nil, which disables the AI path.
func NewController(lyrics LyricsService, newIdentifier IdentifierFactory, defaultKey string) *Controller {
	return &Controller{
		lyrics:        lyrics,
		newIdentifier: newIdentifier,
		defaultKey:    defaultKey,
		logger:        log.WithFields(log.Fields{"module": "controller"}),
	}
}

// GeminiFactory is the production IdentifierFactory.
func GeminiFactory(model string) IdentifierFactory {
	return func(ctx context.Context, apiKey string) (SongIdentifier, error) {
		generator, err := gemini.NewGenerator(ctx, apiKey, model)
		if err != nil {
			return nil, err
		}
		return gemini.NewIdentifier(generator), nil
	}
}

// AIAvailable reports whether a fragment search with this key would consult the classifier.
func (c *Controller) AIAvailable(apiKey string) bool {
	return c.newIdentifier != nil && c.resolveKey(apiKey) != ""
}

func (c *Controller) FetchExactOrFail(ctx context.Context, artist, title string) (*models.LyricsResult, error) {
	result, ok := c.lyrics.FetchExact(ctx, artist, title)
	if !ok {
		c.logger.Infof("no lyrics for '%s' by %s", title, artist)
		return nil, ErrLyricsNotFound
	}
	return result, nil
}

// ResolveByFragment normalizes the text, asks the classifier and falls back to
// text search when the classifier is unavailable, fails or finds nothing.
// Any classifier hit is returned as-is and the fallback is never consulted.
func (c *Controller) ResolveByFragment(ctx context.Context, query models.SearchQuery) (Resolution, error) {
	if strings.TrimSpace(query.Text) == "" {
		return Resolution{}, ErrEmptyQuery
	}

	logger := c.logger.WithFields(log.Fields{"function": "ResolveByFragment"})

	span := sentry.StartSpan(ctx, "controller.resolve_fragment")
	span.Description = "Resolve songs from a lyric fragment"
	defer span.Finish()
	ctx = span.Context()

	res := Resolution{Normalized: helpers.Normalize(query.Text)}

	identifier, notice := c.identifier(ctx, query.APIKey)
	if notice != nil {
		res.Notices = append(res.Notices, *notice)
	}

	if identifier != nil && res.Normalized != "" {
		candidates, err := identifier.Identify(ctx, res.Normalized)
		switch {
		case err == nil && len(candidates) > 0:
			logger.Debugf("classifier matched %d songs for %q", len(candidates), res.Normalized)
			res.Candidates = candidates
			res.Path = PathAI
			span.SetTag("path", string(PathAI))
			return res, nil
		case errors.Is(err, gemini.ErrMalformed):
			res.Notices = append(res.Notices, Notice{Level: NoticeWarning, Message: helpers.Message("ai_malformed")})
		case err != nil && !errors.Is(err, gemini.ErrUnavailable):
			res.Notices = append(res.Notices, Notice{Level: NoticeError, Message: fmt.Sprintf("Gemini API error: %v", err)})
		default:
			logger.Debugf("classifier found nothing for %q", res.Normalized)
		}
	}

	res.Candidates = c.lyrics.Search(ctx, res.Normalized)
	res.Path = PathFallback
	span.SetTag("path", string(PathFallback))
	logger.Debugf("fallback search returned %d songs for %q", len(res.Candidates), res.Normalized)
	return res, nil
}

func (c *Controller) resolveKey(apiKey string) string {
	if apiKey != "" {
		return apiKey
	}
	return c.defaultKey
}

// identifier returns the identifier for the effective key, or a notice
// explaining why there is none. Session keys get a fresh identifier per call.
func (c *Controller) identifier(ctx context.Context, apiKey string) (SongIdentifier, *Notice) {
	key := c.resolveKey(apiKey)
	if c.newIdentifier == nil || key == "" {
		return nil, &Notice{Level: NoticeInfo, Message: helpers.Message("ai_disabled")}
	}

	if key != c.defaultKey {
		return c.buildIdentifier(ctx, key)
	}

	c.defaultMu.Lock()
	defer c.defaultMu.Unlock()
	if c.defaultIdentifier != nil {
		return c.defaultIdentifier, nil
	}
	identifier, notice := c.buildIdentifier(ctx, key)
	if notice == nil {
		c.defaultIdentifier = identifier
	}
	return identifier, notice
}

func (c *Controller) buildIdentifier(ctx context.Context, key string) (SongIdentifier, *Notice) {
	identifier, err := c.newIdentifier(ctx, key)
	if err != nil {
		c.logger.Errorf("failed to configure classifier: %v", err)
		return nil, &Notice{Level: NoticeError, Message: fmt.Sprintf("Failed to configure Gemini API: %v", err)}
	}
	return identifier, nil
}
