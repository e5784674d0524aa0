package config

import (
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

type ConfigStruct struct {
	Options   Options
	Gemini    GeminiConfig
	Speech    SpeechConfig
	Providers ProvidersConfig
	Session   SessionConfig
	Sentry    SentryConfig
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type SpeechConfig struct {
	APIKey       string
	LanguageCode string
}

type ProvidersConfig struct {
	LyricsAPIURL   string
	LRCLibURL      string
	TimeoutSeconds int
}

type SessionConfig struct {
	DBPath     string
	TTLMinutes int
}

type SentryConfig struct {
	DSN     string
	Release string
}

type Options struct {
	Port     string
	LogLevel log.Level
}

// Enabled reports whether a classifier key was configured at startup.
// Sessions may still supply their own key.
func (g *GeminiConfig) Enabled() bool {
	return g.APIKey != ""
}

func (s *SpeechConfig) Enabled() bool {
	return s.APIKey != ""
}

func (p *ProvidersConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

func (s *SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLMinutes) * time.Minute
}

var Config *ConfigStruct

func NewConfig() {
	config := &ConfigStruct{
		Options: Options{
			Port:     getEnv("PORT", "8080"),
			LogLevel: getLogLevel(),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		Speech: SpeechConfig{
			APIKey:       os.Getenv("GOOGLE_SPEECH_API_KEY"),
			LanguageCode: getEnv("SPEECH_LANGUAGE", "en-US"),
		},
		Providers: ProvidersConfig{
			LyricsAPIURL:   getEnv("LYRICS_API_URL", "https://lyrics-api.fly.dev"),
			LRCLibURL:      getEnv("LRCLIB_URL", "https://lrclib.net"),
			TimeoutSeconds: getHTTPTimeout(),
		},
		Session: SessionConfig{
			DBPath:     getEnv("SESSION_DB_PATH", ":memory:"),
			TTLMinutes: getSessionTTL(),
		},
		Sentry: SentryConfig{
			DSN:     os.Getenv("SENTRY_DSN"),
			Release: os.Getenv("RELEASE"),
		},
	}

	Config = config
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getLogLevel() log.Level {
	level, err := log.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return log.InfoLevel
	}
	return level
}

func getHTTPTimeout() int {
	timeoutStr := os.Getenv("HTTP_TIMEOUT_SECONDS")
	if timeoutStr == "" {
		return 10
	}
	timeout, err := strconv.Atoi(timeoutStr)
	if err != nil || timeout <= 0 {
		return 10
	}
	if timeout > 60 {
		return 60
	}
	return timeout
}

func getSessionTTL() int {
	ttlStr := os.Getenv("SESSION_TTL_MINUTES")
	if ttlStr == "" {
		return 60
	}
	ttl, err := strconv.Atoi(ttlStr)
	if err != nil || ttl <= 0 {
		return 60
	}
	if ttl > 24*60 {
		return 24 * 60 // a session never outlives a day
	}
	return ttl
}
