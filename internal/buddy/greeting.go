package buddy

import (
	"fmt"

	"github.com/kalambet/feelbuddy/internal/feeling"
)

// Tone classifies the opening line of a conversation.
type Tone string

const (
	ToneEmpathetic   Tone = "empathetic"
	ToneEnthusiastic Tone = "enthusiastic"
	ToneNeutral      Tone = "neutral"
)

var lowMoods = map[string]bool{
	"Sad":     true,
	"Lonely":  true,
	"Anxious": true,
	"Angry":   true,
	"Moody":   true,
}

var highMoods = map[string]bool{
	"Happy":    true,
	"Excited":  true,
	"Proud":    true,
	"Loved":    true,
	"Grateful": true,
}

// Classify maps the newest entry type to a greeting tone.
func Classify(entries []feeling.Entry) Tone {
	if len(entries) == 0 {
		return ToneNeutral
	}
	typ := entries[len(entries)-1].Type
	switch {
	case lowMoods[typ]:
		return ToneEmpathetic
	case highMoods[typ]:
		return ToneEnthusiastic
	default:
		return ToneNeutral
	}
}

// Greeting returns the opening line of a conversation.
func Greeting(user feeling.User, entries []feeling.Entry) string {
	switch Classify(entries) {
	case ToneEmpathetic:
		return fmt.Sprintf("Hey %s, I noticed things have been a bit heavy lately. I'm here for you machi.", user.Name)
	case ToneEnthusiastic:
		return fmt.Sprintf("Arre %s! You're glowing today, super da! Tell me what's making you so happy.", user.Name)
	default:
		return fmt.Sprintf("Hey %s! It's your buddy here. How's it going today?", user.Name)
	}
}
