// Package speech turns recorded audio into a transcript using Google Cloud Speech-to-Text.
// Recording happens in the browser; this package only recognizes what was uploaded.
package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	speechapi "google.golang.org/api/speech/v1"
)

type Reason string

const (
	ReasonNoAudio        Reason = "no_audio"
	ReasonUnintelligible Reason = "unintelligible"
	ReasonRequestError   Reason = "request_error"
	ReasonDeviceError    Reason = "device_error"
)

const (
	// minAudioBytes is a bare WAV header; anything this small has no samples.
	minAudioBytes = 44
	// listenTimeout covers an 8s wait for speech plus a 12s phrase.
	listenTimeout = 20 * time.Second
)

// CaptureError is a terminal outcome of one voice capture, shown to the user verbatim.
type CaptureError struct {
	Reason Reason
	Detail string
}

func (e *CaptureError) Error() string {
	switch e.Reason {
	case ReasonNoAudio:
		return "No audio detected. Please try again."
	case ReasonUnintelligible:
		return "Could not understand audio. Please speak more clearly."
	case ReasonRequestError:
		return fmt.Sprintf("Speech API error: %s", e.Detail)
	default:
		return fmt.Sprintf("Microphone error: %s", e.Detail)
	}
}

// ReasonOf extracts the capture reason, defaulting to a device error.
func ReasonOf(err error) Reason {
	var capErr *CaptureError
	if errors.As(err, &capErr) {
		return capErr.Reason
	}
	return ReasonDeviceError
}

// Recognizer produces a best-effort transcript of recorded audio.
type Recognizer interface {
	Recognize(ctx context.Context, audio []byte) (string, error)
}

// Transport is the raw recognition call.
type Transport interface {
	Recognize(ctx context.Context, req *speechapi.RecognizeRequest) (*speechapi.RecognizeResponse, error)
}

type googleTransport struct {
	service *speechapi.Service
}

func (t *googleTransport) Recognize(ctx context.Context, req *speechapi.RecognizeRequest) (*speechapi.RecognizeResponse, error) {
	return t.service.Speech.Recognize(req).Context(ctx).Do()
}

type GoogleRecognizer struct {
	transport    Transport
	languageCode string
	logger       *log.Entry
}

func NewGoogleRecognizer(ctx context.Context, apiKey, languageCode string) (*GoogleRecognizer, error) {
	service, err := speechapi.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("error creating speech client: %w", err)
	}
	return NewRecognizerWithTransport(&googleTransport{service: service}, languageCode), nil
}

func NewRecognizerWithTransport(transport Transport, languageCode string) *GoogleRecognizer {
	return &GoogleRecognizer{
		transport:    transport,
		languageCode: languageCode,
		logger:       log.WithFields(log.Fields{"module": "speech"}),
	}
}

func (r *GoogleRecognizer) Recognize(ctx context.Context, audio []byte) (string, error) {
	if len(audio) <= minAudioBytes {
		return "", &CaptureError{Reason: ReasonNoAudio}
	}

	span := sentry.StartSpan(ctx, "speech.recognize")
	span.Description = "Transcribe uploaded audio"
	defer span.Finish()

	ctx, cancel := context.WithTimeout(span.Context(), listenTimeout)
	defer cancel()

	resp, err := r.transport.Recognize(ctx, r.request(audio))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			span.Status = sentry.SpanStatusDeadlineExceeded
			return "", &CaptureError{Reason: ReasonNoAudio}
		}
		r.logger.Errorf("speech recognition failed: %v", err)
		span.Status = sentry.SpanStatusInternalError
		return "", &CaptureError{Reason: ReasonRequestError, Detail: err.Error()}
	}

	transcript := bestTranscript(resp)
	if transcript == "" {
		span.Status = sentry.SpanStatusNotFound
		return "", &CaptureError{Reason: ReasonUnintelligible}
	}

	r.logger.Debugf("recognized %q", transcript)
	span.Status = sentry.SpanStatusOK
	return transcript, nil
}

// request leaves encoding unset for WAV so the API reads it from the header;
// anything else is assumed to be the browser's WebM/Opus recording.
func (r *GoogleRecognizer) request(audio []byte) *speechapi.RecognizeRequest {
	cfg := &speechapi.RecognitionConfig{
		LanguageCode:    r.languageCode,
		MaxAlternatives: 1,
	}
	if !bytes.HasPrefix(audio, []byte("RIFF")) {
		cfg.Encoding = "WEBM_OPUS"
		cfg.SampleRateHertz = 48000
	}
	return &speechapi.RecognizeRequest{
		Config: cfg,
		Audio:  &speechapi.RecognitionAudio{Content: base64.StdEncoding.EncodeToString(audio)},
	}
}

func bestTranscript(resp *speechapi.RecognizeResponse) string {
	if resp == nil {
		return ""
	}
	parts := make([]string, 0, len(resp.Results))
	for _, result := range resp.Results {
		if result == nil || len(result.Alternatives) == 0 || result.Alternatives[0] == nil {
			continue
		}
		if t := strings.TrimSpace(result.Alternatives[0].Transcript); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
