package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"

	"decibel/models"
	"decibel/sentryhelper"
)

const (
	MinConfidence = 30
	MaxCandidates = 8
)

var (
	// ErrUnavailable means no key or no classifier; callers fall back quietly.
	ErrUnavailable = errors.New("gemini classifier unavailable")
	// ErrRequestFailed means the classifier call itself failed.
	ErrRequestFailed = errors.New("gemini request failed")
	// ErrMalformed means the classifier answered with something other than the expected JSON array.
	ErrMalformed = errors.New("gemini returned invalid format")
)

// Identifier guesses songs from lyric fragments. It makes at most one
// classifier call per Identify and keeps no state between calls.
type Identifier struct {
	generator Generator
	logger    *log.Entry
}

func NewIdentifier(generator Generator) *Identifier {
	return &Identifier{
		generator: generator,
		logger:    log.WithFields(log.Fields{"module": "gemini"}),
	}
}

func BuildPrompt(text string) string {
	return fmt.Sprintf(identifyPrompt, text)
}

// Identify returns candidates ranked by confidence. An empty slice with a nil
// error means the classifier found nothing worth showing.
func (i *Identifier) Identify(ctx context.Context, text string) ([]models.SongCandidate, error) {
	if i == nil || i.generator == nil {
		return nil, ErrUnavailable
	}

	span := sentry.StartSpan(ctx, "gemini.identify")
	span.Description = "Identify song from lyric fragment"
	defer span.Finish()

	raw, err := i.generator.Generate(span.Context(), BuildPrompt(text))
	if err != nil {
		i.logger.Errorf("classifier call failed: %v", err)
		sentryhelper.CaptureException(ctx, err)
		span.Status = sentry.SpanStatusInternalError
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	candidates, err := ParseCandidates(raw)
	if err != nil {
		i.logger.Warnf("classifier response rejected: %v", err)
		sentryhelper.CaptureMessage(ctx, err.Error())
		span.Status = sentry.SpanStatusDataLoss
		return nil, err
	}

	i.logger.Debugf("classifier returned %d candidates", len(candidates))
	span.Status = sentry.SpanStatusOK
	span.SetData("candidates", len(candidates))
	return candidates, nil
}

// ParseCandidates validates raw classifier output and shapes it into a ranked list:
// entries under MinConfidence are dropped, the rest sorted by confidence (stable)
// and capped at MaxCandidates. Any structural problem rejects the whole payload.
func ParseCandidates(raw string) ([]models.SongCandidate, error) {
	text := stripCodeFence(strings.TrimSpace(raw))
	if !strings.HasPrefix(text, "[") {
		return nil, fmt.Errorf("%w: response is not a JSON array", ErrMalformed)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(text), &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	// filter and rank on the model's raw value; rounding is for display only
	type ranked struct {
		candidate  models.SongCandidate
		confidence float64
	}
	kept := make([]ranked, 0, len(entries))
	for idx, entry := range entries {
		c, confidence, err := decodeCandidate(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrMalformed, idx, err)
		}
		if confidence < MinConfidence {
			continue
		}
		kept = append(kept, ranked{candidate: c, confidence: confidence})
	}

	sort.SliceStable(kept, func(a, b int) bool {
		return kept[a].confidence > kept[b].confidence
	})

	if len(kept) > MaxCandidates {
		kept = kept[:MaxCandidates]
	}
	candidates := make([]models.SongCandidate, 0, len(kept))
	for _, r := range kept {
		candidates = append(candidates, r.candidate)
	}
	return candidates, nil
}

// stripCodeFence removes a ```json ... ``` wrapper if the model added one.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) > 2 {
		text = strings.Join(lines[1:len(lines)-1], "\n")
	}
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

func decodeCandidate(entry json.RawMessage) (models.SongCandidate, float64, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(entry, &fields); err != nil || fields == nil {
		return models.SongCandidate{}, 0, errors.New("not an object")
	}

	title, err := requiredString(fields, "title")
	if err != nil {
		return models.SongCandidate{}, 0, err
	}
	artist, err := requiredString(fields, "artist")
	if err != nil {
		return models.SongCandidate{}, 0, err
	}
	confidence, err := confidenceField(fields)
	if err != nil {
		return models.SongCandidate{}, 0, err
	}

	rounded := int(math.Round(confidence))
	c := models.SongCandidate{
		Title:      title,
		Artist:     artist,
		Confidence: &rounded,
		Source:     models.CandidateGemini,
	}
	optional := []struct {
		key string
		dst *string
	}{
		{"album", &c.Album},
		{"language", &c.Language},
		{"genre", &c.Genre},
		{"matching_phrase", &c.MatchingPhrase},
	}
	for _, o := range optional {
		if *o.dst, err = optionalString(fields, o.key); err != nil {
			return models.SongCandidate{}, 0, err
		}
	}
	if c.Year, err = yearField(fields); err != nil {
		return models.SongCandidate{}, 0, err
	}
	return c, confidence, nil
}

func requiredString(fields map[string]json.RawMessage, key string) (string, error) {
	v, err := optionalString(fields, key)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("missing %s", key)
	}
	return v, nil
}

// optionalString accepts a string, null or an absent key.
func optionalString(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%s is not a string", key)
	}
	return s, nil
}

// yearField accepts "2013" as well as 2013.
func yearField(fields map[string]json.RawMessage) (string, error) {
	if s, err := optionalString(fields, "year"); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(fields["year"], &n); err != nil {
		return "", errors.New("year is neither a string nor a number")
	}
	return n.String(), nil
}

func confidenceField(fields map[string]json.RawMessage) (float64, error) {
	raw, ok := fields["confidence"]
	if !ok {
		return 0, errors.New("missing confidence")
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, errors.New("confidence is not a number")
	}
	if math.IsNaN(f) || f < 0 || f > 100 {
		return 0, fmt.Errorf("confidence %s out of range", strconv.FormatFloat(f, 'f', -1, 64))
	}
	return f, nil
}
