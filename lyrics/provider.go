package lyrics

import (
	"context"
	"fmt"

	"decibel/models"
)

type OutcomeKind int

const (
	Miss OutcomeKind = iota
	Hit
	TransportError
)

func (k OutcomeKind) String() string {
	switch k {
	case Hit:
		return "hit"
	case TransportError:
		return "transport_error"
	default:
		return "miss"
	}
}

// Outcome is what a single provider attempt produced. Result is set only for Hit,
// Err only for TransportError.
type Outcome struct {
	Kind   OutcomeKind
	Result *models.LyricsResult
	Err    error
}

func hit(r *models.LyricsResult) Outcome {
	return Outcome{Kind: Hit, Result: r}
}

func miss() Outcome {
	return Outcome{Kind: Miss}
}

func failed(format string, args ...interface{}) Outcome {
	return Outcome{Kind: TransportError, Err: fmt.Errorf(format, args...)}
}

// Provider looks up lyrics by exact artist and title.
type Provider interface {
	Name() models.LyricsSource
	Fetch(ctx context.Context, artist, title string) Outcome
}
