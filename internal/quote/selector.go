// Package quote picks a supportive message for the home screen based on the
// most recent feeling.
package quote

import (
	"math/rand"
	"sync"
	"time"

	"github.com/kalambet/feelbuddy/internal/feeling"
)

const (
	// PlaceholderText is shown before anything has been logged.
	PlaceholderText  = "Start tracking to see magic happen!"
	placeholderEmoji = "🌱"
	quoteEmoji       = "✨"
)

// Quote is one selected message.
type Quote struct {
	Text  string `json:"text"`
	Emoji string `json:"emoji"`
	// Mood is the feeling type the quote was chosen for; empty for the
	// placeholder.
	Mood string `json:"mood,omitempty"`
}

// Selector chooses uniformly among the candidates for a mood. Repeated
// calls with the same input may return different quotes.
type Selector struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSelector returns a Selector seeded from the clock.
func NewSelector() *Selector {
	return NewSelectorWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewSelectorWithRand returns a Selector drawing from rnd (for testing).
func NewSelectorWithRand(rnd *rand.Rand) *Selector {
	return &Selector{rnd: rnd}
}

// Pick returns a quote for the latest entry, or the placeholder when there
// is none.
func (s *Selector) Pick(last *feeling.Entry) Quote {
	if last == nil {
		return Quote{Text: PlaceholderText, Emoji: placeholderEmoji}
	}

	list, ok := table[last.Type]
	if !ok {
		list = table[defaultKey]
	}

	s.mu.Lock()
	i := s.rnd.Intn(len(list))
	s.mu.Unlock()

	return Quote{Text: list[i], Emoji: quoteEmoji, Mood: last.Type}
}

// PickLatest is Pick applied to the newest entry of the log.
func (s *Selector) PickLatest(entries []feeling.Entry) Quote {
	if len(entries) == 0 {
		return s.Pick(nil)
	}
	last := entries[len(entries)-1]
	return s.Pick(&last)
}
