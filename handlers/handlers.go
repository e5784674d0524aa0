package handlers

// handlers serve the single page shell: every form posts here, mutates the
// session and redirects back to the page, which renders whatever the session holds.

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"decibel/controller"
	"decibel/database"
	"decibel/helpers"
	"decibel/models"
	"decibel/pages"
	"decibel/sentryhelper"
	"decibel/speech"
)

const (
	sessionCookie = "decibel_session"
	sessionIDKey  = "session_id"
	maxAudioBytes = 10 << 20
)

const (
	levelSuccess = "success"
	levelInfo    = "info"
	levelWarning = "warning"
	levelError   = "error"
	levelHint    = "hint"
)

type Finder interface {
	FetchExactOrFail(ctx context.Context, artist, title string) (*models.LyricsResult, error)
	ResolveByFragment(ctx context.Context, query models.SearchQuery) (controller.Resolution, error)
	AIAvailable(apiKey string) bool
}

type SessionStore interface {
	Load(ctx context.Context, id string) (database.SessionState, error)
	Save(ctx context.Context, id string, state database.SessionState) error
}

type Manager struct {
	finder     Finder
	recognizer speech.Recognizer
	sessions   SessionStore
	hints      *Hints
	logger     *log.Entry
}

// NewManager builds the shell. recognizer and hints may be nil.
func NewManager(finder Finder, recognizer speech.Recognizer, sessions SessionStore, hints *Hints) *Manager {
	return &Manager{
		finder:     finder,
		recognizer: recognizer,
		sessions:   sessions,
		hints:      hints,
		logger:     log.WithFields(log.Fields{"module": "handlers"}),
	}
}

func (m *Manager) Register(router *gin.Engine) {
	router.SetHTMLTemplate(pages.Template())
	router.GET("/healthz", m.Health)

	shell := router.Group("/", m.withSession)
	shell.GET("/", m.Index)
	shell.POST("/lyrics", m.FindLyrics)
	shell.POST("/search", m.SearchByText)
	shell.POST("/voice", m.SearchByVoice)
	shell.POST("/select/:index", m.SelectResult)
	shell.POST("/reset", m.Reset)
	shell.GET("/download", m.Download)
	shell.POST("/key", m.SetAPIKey)
}

func (m *Manager) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"ai":    m.finder.AIAvailable(""),
		"voice": m.recognizer != nil,
	})
}

// withSession assigns the session cookie and wraps the action in a span under
// the request transaction.
func (m *Manager) withSession(c *gin.Context) {
	id, err := c.Cookie(sessionCookie)
	if err != nil || !validSessionID(id) {
		id = newSessionID()
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(sessionCookie, id, 0, "/", "", false, true)
	}
	c.Set(sessionIDKey, id)

	ctx, span := sentryhelper.StartActionSpan(c.Request.Context(), actionName(c.FullPath()), id)
	defer span.Finish()
	c.Request = c.Request.WithContext(ctx)

	c.Next()
}

func (m *Manager) Index(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.GetString(sessionIDKey)

	state := m.load(ctx, id)
	flash := state.TakeFlash()
	if len(flash) > 0 {
		m.save(ctx, id, state)
	}

	c.HTML(http.StatusOK, "index", pages.IndexData{
		Flash:         flash,
		Lyrics:        state.CurrentLyrics,
		Results:       state.SearchResults,
		Transcript:    state.Transcript,
		Suggestions:   state.Suggestions,
		AIEnabled:     m.finder.AIAvailable(state.APIKey),
		VoiceEnabled:  m.recognizer != nil,
		HasSessionKey: state.APIKey != "",
	})
}

func (m *Manager) FindLyrics(c *gin.Context) {
	artist := strings.TrimSpace(c.PostForm("artist"))
	title := strings.TrimSpace(c.PostForm("title"))

	m.mutate(c, func(ctx context.Context, state *database.SessionState) {
		if artist == "" || title == "" {
			state.AddFlash(levelWarning, helpers.Message("missing_fields"))
			return
		}

		result, err := m.finder.FetchExactOrFail(ctx, artist, title)
		if err != nil {
			state.AddFlash(levelError, helpers.Message("lyrics_not_found"))
			return
		}
		state.CurrentLyrics = result
		state.SearchResults = nil
	})
}

func (m *Manager) SearchByText(c *gin.Context) {
	text := strings.TrimSpace(c.PostForm("text"))

	m.mutate(c, func(ctx context.Context, state *database.SessionState) {
		if text == "" {
			state.AddFlash(levelWarning, helpers.Message("missing_lyrics"))
			return
		}
		if !m.searchFragment(ctx, c.GetString(sessionIDKey), state, text) {
			state.AddFlash(levelError, helpers.Message("no_songs"))
		}
	})
}

func (m *Manager) SearchByVoice(c *gin.Context) {
	if m.recognizer == nil {
		m.mutate(c, func(ctx context.Context, state *database.SessionState) {
			state.AddFlash(levelWarning, helpers.Message("voice_disabled"))
		})
		return
	}

	audio, readErr := readAudio(c)

	m.mutate(c, func(ctx context.Context, state *database.SessionState) {
		if readErr != nil {
			m.logger.Warnf("could not read uploaded audio: %v", readErr)
			state.AddFlash(levelError, (&speech.CaptureError{Reason: speech.ReasonDeviceError, Detail: readErr.Error()}).Error())
			return
		}

		transcript, err := m.recognizer.Recognize(ctx, audio)
		if err != nil {
			if speech.ReasonOf(err) == speech.ReasonRequestError {
				sentryhelper.CaptureException(ctx, err)
			}
			state.AddFlash(levelError, err.Error())
			return
		}

		state.Transcript = transcript
		state.AddFlash(levelSuccess, helpers.Recognized(transcript))
		if !m.searchFragment(ctx, c.GetString(sessionIDKey), state, transcript) {
			state.AddFlash(levelWarning, helpers.NoVoiceMatches(transcript))
			state.Suggestions = helpers.VoiceSuggestions(transcript)
		}
	})
}

func (m *Manager) SelectResult(c *gin.Context) {
	index, parseErr := strconv.Atoi(c.Param("index"))

	m.mutate(c, func(ctx context.Context, state *database.SessionState) {
		if parseErr != nil || index < 0 || index >= len(state.SearchResults) {
			state.AddFlash(levelWarning, helpers.Message("bad_selection"))
			return
		}

		song := state.SearchResults[index]
		result, err := m.finder.FetchExactOrFail(ctx, song.Artist, song.Title)
		if err != nil {
			state.AddFlash(levelError, helpers.Message("lyrics_unavailable"))
			return
		}
		state.CurrentLyrics = result
		state.SearchResults = nil
	})
}

func (m *Manager) Reset(c *gin.Context) {
	m.mutate(c, func(ctx context.Context, state *database.SessionState) {
		state.CurrentLyrics = nil
		state.SearchResults = nil
		state.Transcript = ""
		state.Suggestions = nil
	})
}

func (m *Manager) Download(c *gin.Context) {
	state := m.load(c.Request.Context(), c.GetString(sessionIDKey))
	if state.CurrentLyrics == nil {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{
		"filename": state.CurrentLyrics.DownloadFilename(),
	})
	c.Header("Content-Disposition", disposition)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(state.CurrentLyrics.DownloadText()))
}

func (m *Manager) SetAPIKey(c *gin.Context) {
	key := strings.TrimSpace(c.PostForm("api_key"))

	m.mutate(c, func(ctx context.Context, state *database.SessionState) {
		state.APIKey = key
		if key == "" {
			state.AddFlash(levelInfo, helpers.Message("key_cleared"))
			return
		}
		state.AddFlash(levelSuccess, helpers.Message("key_saved"))
	})
}

// searchFragment runs a fragment search and stores its results. It reports
// whether anything was found; the caller decides how to say it wasn't.
func (m *Manager) searchFragment(ctx context.Context, sessionID string, state *database.SessionState, text string) bool {
	res, err := m.finder.ResolveByFragment(ctx, models.SearchQuery{Text: text, APIKey: state.APIKey})
	if err != nil {
		if !errors.Is(err, controller.ErrEmptyQuery) {
			m.logger.Errorf("fragment search failed: %v", err)
		}
		return false
	}

	for _, notice := range res.Notices {
		state.AddFlash(string(notice.Level), notice.Message)
	}
	if len(res.Candidates) == 0 {
		return false
	}

	state.SearchResults = res.Candidates
	state.CurrentLyrics = nil
	state.Suggestions = nil
	state.AddFlash(levelSuccess, helpers.FoundSongs(len(res.Candidates)))

	if m.hints != nil {
		if hint, ok := m.hints.ShouldShowHint(sessionID); ok {
			state.AddFlash(levelHint, hint)
		}
	}
	return true
}

// mutate loads the session, applies fn, saves it and redirects back to the page.
func (m *Manager) mutate(c *gin.Context, fn func(ctx context.Context, state *database.SessionState)) {
	ctx := c.Request.Context()
	id := c.GetString(sessionIDKey)

	state := m.load(ctx, id)
	fn(ctx, &state)
	m.save(ctx, id, state)

	c.Redirect(http.StatusSeeOther, "/")
}

func (m *Manager) load(ctx context.Context, id string) database.SessionState {
	state, err := m.sessions.Load(ctx, id)
	if err != nil {
		m.logger.Errorf("failed to load session %s: %v", id, err)
		sentryhelper.CaptureException(ctx, err)
	}
	return state
}

func (m *Manager) save(ctx context.Context, id string, state database.SessionState) {
	if err := m.sessions.Save(ctx, id, state); err != nil {
		m.logger.Errorf("failed to save session %s: %v", id, err)
		sentryhelper.CaptureException(ctx, err)
	}
}

// readAudio accepts either a multipart "audio" file or a raw request body.
func readAudio(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAudioBytes)

	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return io.ReadAll(c.Request.Body)
	}

	header, err := c.FormFile("audio")
	if err != nil {
		return nil, err
	}
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func newSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

func validSessionID(id string) bool {
	if len(id) != 32 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}

func actionName(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return "index"
	}
	if i := strings.Index(path, "/"); i >= 0 {
		path = path[:i]
	}
	return path
}
