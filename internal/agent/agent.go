// Package agent defines the remote conversational service that backs Buddy.
// The service is consumed as an opaque capability: a text chat that streams
// reply fragments, and a duplex audio session.
package agent

import (
	"context"
	"errors"
	"iter"
)

// ErrUnavailable is returned when no remote agent is configured.
var ErrUnavailable = errors.New("buddy agent unavailable")

// Turn is one earlier message replayed into a new chat.
type Turn struct {
	// Role is "user" or "model".
	Role string
	Text string
}

// ChatStarter opens text conversations.
type ChatStarter interface {
	// StartChat opens a conversation primed with systemInstruction and
	// optional earlier turns.
	StartChat(ctx context.Context, systemInstruction string, history ...Turn) (ChatSession, error)
}

// ChatSession is one ongoing text conversation. The session remembers
// earlier turns.
type ChatSession interface {
	// SendStream submits a user message and yields reply fragments in
	// arrival order. A non-nil error ends the stream.
	SendStream(ctx context.Context, message string) iter.Seq2[string, error]
}

// Blob is a chunk of encoded audio.
type Blob struct {
	MIMEType string
	Data     []byte
}

// VoiceDialer opens duplex audio sessions.
type VoiceDialer interface {
	DialVoice(ctx context.Context, systemInstruction string) (VoiceConn, error)
}

// VoiceConn is an open duplex audio session.
type VoiceConn interface {
	// SendAudio forwards one captured frame.
	SendAudio(ctx context.Context, b Blob) error
	// Receive blocks until the next inbound audio frame arrives. It returns
	// io.EOF when the remote side closes the session.
	Receive(ctx context.Context) (Blob, error)
	// Close releases the session. It unblocks a pending Receive.
	Close() error
}
