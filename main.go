package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	appConfig "decibel/config"
	"decibel/controller"
	"decibel/database"
	"decibel/handlers"
	"decibel/lyrics"
	"decibel/sentry"
	"decibel/speech"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warnf("Error loading .env file: %v", err)
	}
	appConfig.NewConfig()

	log.SetLevel(appConfig.Config.Options.LogLevel)
	log.SetFormatter(&nested.Formatter{
		HideKeys:        true,
		FieldsOrder:     []string{"module", "function"},
		TimestampFormat: time.DateTime,
	})

	sentry.Init()
	defer sentry.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context) error {
	cfg := appConfig.Config

	sessions, err := database.New(cfg.Session.DBPath, cfg.Session.TTL())
	if err != nil {
		return err
	}
	defer sessions.Close()
	go sessions.RunJanitor(ctx, time.Minute)

	lyricsClient := lyrics.New(cfg.Providers.LyricsAPIURL, cfg.Providers.LRCLibURL, cfg.Providers.Timeout())
	ctrl := controller.NewController(lyricsClient, controller.GeminiFactory(cfg.Gemini.Model), cfg.Gemini.APIKey)
	if !cfg.Gemini.Enabled() {
		log.Warn("GEMINI_API_KEY is not set, fragment search will use text search unless a session supplies a key")
	}

	var recognizer speech.Recognizer
	if cfg.Speech.Enabled() {
		google, err := speech.NewGoogleRecognizer(ctx, cfg.Speech.APIKey, cfg.Speech.LanguageCode)
		if err != nil {
			log.Errorf("Voice search disabled: %v", err)
		} else {
			recognizer = google
		}
	}

	hints := handlers.NewHints()
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				hints.Forget()
			}
		}
	}()

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), sentry.GetSentryGin())
	handlers.NewManager(ctrl, recognizer, sessions, hints).Register(router)

	server := &http.Server{
		Addr:    ":" + cfg.Options.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting server on :%s (providers: %v)", cfg.Options.Port, lyricsClient.Providers())
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
