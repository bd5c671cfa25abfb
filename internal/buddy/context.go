// Package buddy prepares the context handed to the remote conversational
// agent and runs text conversations against it.
package buddy

import (
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/feelbuddy/internal/feeling"
	"github.com/kalambet/feelbuddy/internal/mood"
)

// ContextWindow is how many recent entries describe the mood pattern.
const ContextWindow = 3

// NoHistory is the whole context when nothing has been logged.
const NoHistory = "User has no recorded feelings yet."

// Mode selects how the agent will be reached.
type Mode string

const (
	ModeText  Mode = "TEXT"
	ModeVoice Mode = "VOICE"
)

// ContextSummary renders the user profile and the last ContextWindow
// entries, oldest to newest, as advisory text for the agent. Deciding
// whether the pattern is a swing is left to the agent.
func ContextSummary(user feeling.User, entries []feeling.Entry, loc *time.Location) string {
	if len(entries) == 0 {
		return NoHistory
	}
	if loc == nil {
		loc = time.Local
	}

	window := mood.Tail(entries, ContextWindow)
	steps := make([]string, len(window))
	for i, e := range window {
		steps[i] = fmt.Sprintf("%s (Intensity %d/5) at %s", e.Type, e.Intensity, e.Time().In(loc).Format("3:04:05 PM"))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "User Profile: Name: %s, City: %s.\n", user.Name, user.City)
	fmt.Fprintf(&sb, "Recent Mood Pattern (Oldest to Newest): %s.\n", strings.Join(steps, " -> "))
	sb.WriteString("Analyze if there is a drastic swing (e.g. Happy to Sad) or stability.")
	return sb.String()
}

// SystemInstruction joins the persona with the context summary for the
// given mode. Voice sessions are also told who they are talking to.
func SystemInstruction(mode Mode, user feeling.User, entries []feeling.Entry, loc *time.Location) string {
	summary := ContextSummary(user, entries, loc)
	if mode == ModeVoice {
		return fmt.Sprintf("%s. You are talking to %s. %s", strings.TrimSpace(Persona), user.Name, summary)
	}
	return Persona + "\n\n" + summary
}
