package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"strings"
	"testing"

	"github.com/kalambet/feelbuddy/internal/agent"
	"github.com/kalambet/feelbuddy/internal/buddy"
	"github.com/kalambet/feelbuddy/internal/feeling"
)

// --- fake agent ---

type fakeChat struct {
	fragments []string
	err       error

	instruction string
	history     []agent.Turn
}

func (f *fakeChat) StartChat(_ context.Context, sys string, history ...agent.Turn) (agent.ChatSession, error) {
	f.instruction = sys
	f.history = history
	return f, nil
}

func (f *fakeChat) SendStream(_ context.Context, _ string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, frag := range f.fragments {
			if !yield(frag, nil) {
				return
			}
		}
		if f.err != nil {
			yield("", f.err)
		}
	}
}

func readEvents(t *testing.T, body string) ([]ChatEvent, bool) {
	t.Helper()
	var events []ChatEvent
	done := false
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			done = true
			continue
		}
		var ev ChatEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			t.Fatalf("bad event %q: %v", payload, err)
		}
		events = append(events, ev)
	}
	return events, done
}

func TestGreetingAndContext(t *testing.T) {
	deps := newTestDeps(t)
	h := NewAppHandler(deps)

	if rr := do(t, h, http.MethodGet, "/buddy/greeting", ""); rr.Code != http.StatusConflict {
		t.Fatalf("greeting before onboarding = %d, want 409", rr.Code)
	}

	onboard(t, deps)
	deps.Session.CheckIn(feeling.CheckIn{Type: "Lonely", Intensity: 2})

	g := decode[map[string]string](t, do(t, h, http.MethodGet, "/buddy/greeting", ""))
	if g["tone"] != string(buddy.ToneEmpathetic) {
		t.Errorf("tone = %q, want empathetic", g["tone"])
	}
	if !strings.Contains(g["greeting"], "Arjun") {
		t.Errorf("greeting = %q", g["greeting"])
	}

	c := decode[map[string]string](t, do(t, h, http.MethodGet, "/buddy/context?mode=voice", ""))
	if c["mode"] != string(buddy.ModeVoice) {
		t.Errorf("mode = %q", c["mode"])
	}
	if !strings.Contains(c["summary"], "Lonely (Intensity 2/5)") {
		t.Errorf("summary = %q", c["summary"])
	}
	if !strings.Contains(c["instruction"], "You are talking to Arjun.") {
		t.Errorf("voice instruction should name the user: %q", c["instruction"])
	}
}

func TestBuddyChat_Unavailable(t *testing.T) {
	deps := newTestDeps(t)
	onboard(t, deps)
	h := NewAppHandler(deps)

	rr := do(t, h, http.MethodPost, "/buddy/chat", `{"message":"hi"}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
	if errorType(t, rr) != "agent_unavailable" {
		t.Error("expected agent_unavailable error type")
	}
}

func TestBuddyChat_Validation(t *testing.T) {
	deps := newTestDeps(t)
	deps.Chat = &fakeChat{}
	h := NewAppHandler(deps)

	if rr := do(t, h, http.MethodPost, "/buddy/chat", `{"message":"hi"}`); rr.Code != http.StatusConflict {
		t.Errorf("chat before onboarding = %d, want 409", rr.Code)
	}
	onboard(t, deps)
	if rr := do(t, h, http.MethodPost, "/buddy/chat", `{"message":"   "}`); rr.Code != http.StatusBadRequest {
		t.Errorf("blank message = %d, want 400", rr.Code)
	}
}

func TestBuddyChat_Streams(t *testing.T) {
	deps := newTestDeps(t)
	chat := &fakeChat{fragments: []string{"Arre ", "machi!"}}
	deps.Chat = chat
	onboard(t, deps)
	h := NewAppHandler(deps)

	rr := do(t, h, http.MethodPost, "/buddy/chat", `{"message":"got promoted"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	events, done := readEvents(t, rr.Body.String())
	if !done {
		t.Error("stream should end with [DONE]")
	}
	if len(events) != 3 {
		t.Fatalf("expected 2 updates and a final event, got %d", len(events))
	}
	if events[0].Message == nil || events[0].Message.Text != "Arre " {
		t.Errorf("first update = %+v", events[0].Message)
	}
	if events[1].Message == nil || events[1].Message.Text != "Arre machi!" {
		t.Errorf("second update = %+v", events[1].Message)
	}

	final := events[2].Messages
	if len(final) != 3 {
		t.Fatalf("final conversation has %d messages, want greeting, user, reply", len(final))
	}
	if final[0].Role != feeling.RoleModel || final[1].Text != "got promoted" || final[2].Text != "Arre machi!" {
		t.Errorf("unexpected conversation: %+v", final)
	}
	if !strings.HasPrefix(chat.instruction, buddy.Persona) {
		t.Error("chat should be primed with the persona")
	}
}

func TestBuddyChat_FailureFallsBack(t *testing.T) {
	deps := newTestDeps(t)
	deps.Chat = &fakeChat{err: errors.New("quota exceeded")}
	onboard(t, deps)
	h := NewAppHandler(deps)

	rr := do(t, h, http.MethodPost, "/buddy/chat", `{"message":"hello"}`)
	events, _ := readEvents(t, rr.Body.String())
	last := events[len(events)-1].Messages
	if len(last) == 0 || last[len(last)-1].Text != buddy.FallbackReply {
		t.Errorf("expected fallback as last message, got %+v", last)
	}
}

func TestBuddyChat_ResumesHistory(t *testing.T) {
	deps := newTestDeps(t)
	chat := &fakeChat{fragments: []string{"ok"}}
	deps.Chat = chat
	onboard(t, deps)
	h := NewAppHandler(deps)

	body := `{"message":"and now?","history":[` +
		`{"id":"1","role":"model","text":"Hey!","timestamp":1},` +
		`{"id":"2","role":"user","text":"sup","timestamp":2},` +
		`{"id":"3","role":"model","text":"all good","timestamp":3}]}`
	rr := do(t, h, http.MethodPost, "/buddy/chat", body)

	if len(chat.history) != 3 || chat.history[1].Text != "sup" {
		t.Errorf("history not replayed: %+v", chat.history)
	}
	events, _ := readEvents(t, rr.Body.String())
	final := events[len(events)-1].Messages
	if len(final) != 5 || final[0].Text != "Hey!" {
		t.Errorf("final conversation = %+v", final)
	}
}
