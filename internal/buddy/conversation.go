package buddy

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kalambet/feelbuddy/internal/agent"
	"github.com/kalambet/feelbuddy/internal/feeling"
)

// Options tune a Conversation. The zero value is usable.
type Options struct {
	Location *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
	// History replaces the greeting when resuming an earlier conversation.
	History []feeling.ChatMessage
}

// Conversation is one text chat with Buddy. The message list only grows.
type Conversation struct {
	mu       sync.Mutex
	chat     agent.ChatSession
	messages []feeling.ChatMessage
	now      func() time.Time
	logger   *slog.Logger
}

// StartConversation opens a chat primed with the text-mode system
// instruction and seeds it with the greeting. If the agent cannot be
// reached the conversation still starts; every Send then ends in the
// fallback reply.
func StartConversation(ctx context.Context, starter agent.ChatStarter, user feeling.User, entries []feeling.Entry, opts Options) *Conversation {
	c := &Conversation{
		now:    opts.Now,
		logger: opts.Logger,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	if len(opts.History) > 0 {
		c.messages = append(c.messages, opts.History...)
	} else {
		c.messages = append(c.messages, feeling.NewChatMessage(feeling.RoleModel, Greeting(user, entries), c.now()))
	}

	if starter == nil {
		c.logger.Warn("buddy chat started without an agent")
		return c
	}

	turns := make([]agent.Turn, 0, len(c.messages))
	for _, m := range c.messages {
		turns = append(turns, agent.Turn{Role: string(m.Role), Text: m.Text})
	}
	chat, err := starter.StartChat(ctx, SystemInstruction(ModeText, user, entries, opts.Location), turns...)
	if err != nil {
		c.logger.Warn("starting buddy chat", "error", err)
		return c
	}
	c.chat = chat
	return c
}

// Messages returns a copy of the conversation so far.
func (c *Conversation) Messages() []feeling.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]feeling.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Send appends the user's message and streams Buddy's reply into a new
// model message, calling onUpdate with the reply after every fragment. On
// failure whatever arrived is kept and a fallback message follows it; an
// empty reply is dropped.
// Blank input is ignored and reports false.
func (c *Conversation) Send(ctx context.Context, text string, onUpdate func(feeling.ChatMessage)) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages, feeling.NewChatMessage(feeling.RoleUser, text, c.now()))
	reply := len(c.messages)
	c.messages = append(c.messages, feeling.NewChatMessage(feeling.RoleModel, "", c.now()))

	if c.chat == nil {
		c.fail(ctx, reply, agent.ErrUnavailable, onUpdate)
		return true
	}

	for fragment, err := range c.chat.SendStream(ctx, text) {
		if err != nil {
			c.fail(ctx, reply, err, onUpdate)
			return true
		}
		c.messages[reply].Text += fragment
		if onUpdate != nil {
			onUpdate(c.messages[reply])
		}
	}
	if err := ctx.Err(); err != nil {
		c.fail(ctx, reply, err, onUpdate)
	}
	return true
}

// fail drops the reply placeholder when nothing arrived and appends the
// fallback message.
func (c *Conversation) fail(ctx context.Context, reply int, err error, onUpdate func(feeling.ChatMessage)) {
	if c.messages[reply].Text == "" {
		c.messages = c.messages[:reply]
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		c.logger.Debug("buddy reply cancelled")
	} else {
		c.logger.Warn("buddy reply failed", "error", err)
	}
	msg := feeling.NewChatMessage(feeling.RoleModel, FallbackReply, c.now())
	c.messages = append(c.messages, msg)
	if onUpdate != nil {
		onUpdate(msg)
	}
}
