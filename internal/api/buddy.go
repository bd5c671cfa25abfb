package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/kalambet/feelbuddy/internal/buddy"
	"github.com/kalambet/feelbuddy/internal/feeling"
	"github.com/kalambet/feelbuddy/internal/session"
)

// onboardedUser writes a 409 and returns nil when nobody has onboarded.
func onboardedUser(w http.ResponseWriter, s session.State) *feeling.User {
	if s.User == nil {
		httpError(w, http.StatusConflict, "invalid_request_error", "onboard before talking to Buddy")
		return nil
	}
	return s.User
}

func handleGreeting(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := deps.Session.State()
		u := onboardedUser(w, s)
		if u == nil {
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"greeting": buddy.Greeting(*u, s.Feelings),
			"tone":     string(buddy.Classify(s.Feelings)),
		})
	}
}

func handleBuddyContext(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := deps.Session.State()
		u := onboardedUser(w, s)
		if u == nil {
			return
		}
		mode := buddy.ModeText
		if strings.EqualFold(r.URL.Query().Get("mode"), string(buddy.ModeVoice)) {
			mode = buddy.ModeVoice
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"mode":        string(mode),
			"summary":     buddy.ContextSummary(*u, s.Feelings, deps.Location),
			"instruction": buddy.SystemInstruction(mode, *u, s.Feelings, deps.Location),
		})
	}
}

// ChatRequest is the body of POST /buddy/chat. History carries the messages
// of an earlier exchange; when empty the conversation opens with the
// greeting.
type ChatRequest struct {
	Message string                `json:"message"`
	History []feeling.ChatMessage `json:"history,omitempty"`
}

// ChatEvent is one server-sent event of a chat stream. Update events carry
// the reply so far; the final event carries the whole conversation.
type ChatEvent struct {
	Message  *feeling.ChatMessage  `json:"message,omitempty"`
	Messages []feeling.ChatMessage `json:"messages,omitempty"`
}

func handleBuddyChat(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Chat == nil {
			httpError(w, http.StatusServiceUnavailable, "agent_unavailable", "buddy agent is not configured")
			return
		}
		var req ChatRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "message is required")
			return
		}
		s := deps.Session.State()
		u := onboardedUser(w, s)
		if u == nil {
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			httpError(w, http.StatusInternalServerError, "api_error", "streaming not supported")
			return
		}

		conv := buddy.StartConversation(r.Context(), deps.Chat, *u, s.Feelings, buddy.Options{
			Location: deps.Location,
			Logger:   deps.Logger,
			History:  req.History,
		})

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		send := func(ev ChatEvent) {
			b, err := json.Marshal(ev)
			if err != nil {
				deps.Logger.Error("marshalling chat event", "error", err)
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", b)
			flusher.Flush()
		}

		conv.Send(r.Context(), req.Message, func(m feeling.ChatMessage) {
			send(ChatEvent{Message: &m})
		})
		send(ChatEvent{Messages: conv.Messages()})
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}
}
