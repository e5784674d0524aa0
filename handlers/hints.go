package handlers

import (
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Hints hands out search tips after a successful search, at most once per
// session per cooldown window.
type Hints struct {
	cooldowns   map[string]time.Time // sessionID -> last hint time
	cooldownMu  sync.RWMutex
	cooldownDur time.Duration
	hintChance  float32
	hints       []string
}

func NewHints() *Hints {
	return &Hints{
		cooldowns:   make(map[string]time.Time),
		cooldownDur: 5 * time.Minute,
		hintChance:  0.25,
		hints: []string{
			"Tip: a distinctive line works better than the chorus everyone repeats",
			"Tip: fillers like \"um\" and \"like\" are ignored, so type it the way you'd sing it",
			"Tip: voice search works with singing, not just speaking",
			"Tip: once you know the song, Search by Name gives the exact lyrics",
			"Tip: add your own Gemini API key in Settings for AI-ranked results",
			"Tip: lyrics in Hindi, Spanish or Korean are recognized too",
		},
	}
}

// ShouldShowHint returns a hint and true when the roll succeeds and the
// session is not cooling down.
func (h *Hints) ShouldShowHint(sessionID string) (string, bool) {
	if rand.Float32() >= h.hintChance {
		return "", false
	}

	h.cooldownMu.Lock()
	defer h.cooldownMu.Unlock()

	if last, ok := h.cooldowns[sessionID]; ok && time.Since(last) < h.cooldownDur {
		return "", false
	}

	hint := h.hints[rand.Intn(len(h.hints))]
	h.cooldowns[sessionID] = time.Now()

	log.WithFields(log.Fields{"module": "handlers"}).Debugf("Showing hint for session %s: %s", sessionID, hint)
	return hint, true
}

// Forget drops cooldowns older than the window so the map does not grow with
// every session ever seen.
func (h *Hints) Forget() {
	h.cooldownMu.Lock()
	defer h.cooldownMu.Unlock()
	for id, last := range h.cooldowns {
		if time.Since(last) >= h.cooldownDur {
			delete(h.cooldowns, id)
		}
	}
}
