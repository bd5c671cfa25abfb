package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/kalambet/feelbuddy/internal/buddy"
	"github.com/kalambet/feelbuddy/internal/voice"
)

// VoiceEvent is a JSON frame sent to voice clients.
type VoiceEvent struct {
	Event string `json:"event"` // "connected", "audio" or "closed"
	// StartMS is the playback position, relative to the connected event,
	// at which Audio should start.
	StartMS int64  `json:"start_ms,omitempty"`
	Audio   []byte `json:"audio,omitempty"` // PCM16 LE mono at 24 kHz
	Error   string `json:"error,omitempty"`
}

func handleBuddyVoice(deps AppDeps) http.Handler {
	return websocket.Server{
		// Access is already gated by the bearer token.
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler: func(ws *websocket.Conn) {
			defer ws.Close()
			serveVoice(ws, deps)
		},
	}
}

func serveVoice(ws *websocket.Conn, deps AppDeps) {
	if deps.Voice == nil {
		websocket.JSON.Send(ws, VoiceEvent{Event: "closed", Error: "buddy agent is not configured"})
		return
	}
	s := deps.Session.State()
	if s.User == nil {
		websocket.JSON.Send(ws, VoiceEvent{Event: "closed", Error: "onboard before talking to Buddy"})
		return
	}

	bridge := newWSBridge(ws, deps.Logger)
	instruction := buddy.SystemInstruction(buddy.ModeVoice, *s.User, s.Feelings, deps.Location)

	sess, err := voice.Open(ws.Request().Context(), deps.Voice, instruction, bridge, bridge, deps.Logger)
	if err != nil {
		deps.Logger.Warn("opening voice session", "error", err)
		bridge.send(VoiceEvent{Event: "closed", Error: err.Error()})
		return
	}
	bridge.send(VoiceEvent{Event: "connected"})

	<-sess.Done()
	final := VoiceEvent{Event: "closed"}
	if err := sess.Err(); err != nil {
		final.Error = err.Error()
	}
	bridge.send(final)
}

// wsBridge is both the microphone and the speaker of a voice session:
// binary frames of float32 LE samples come in, scheduled PCM16 chunks go
// out. Close stops the session's use of it; the socket itself is closed by
// the handler.
type wsBridge struct {
	ws     *websocket.Conn
	logger *slog.Logger
	start  time.Time

	frames    chan []float32
	closed    chan struct{}
	closeOnce sync.Once
	sendMu    sync.Mutex
}

func newWSBridge(ws *websocket.Conn, logger *slog.Logger) *wsBridge {
	if logger == nil {
		logger = slog.Default()
	}
	b := &wsBridge{
		ws:     ws,
		logger: logger,
		start:  time.Now(),
		frames: make(chan []float32, 8),
		closed: make(chan struct{}),
	}
	go b.readLoop()
	return b
}

func (b *wsBridge) readLoop() {
	defer close(b.frames)
	for {
		var data []byte
		if err := websocket.Message.Receive(b.ws, &data); err != nil {
			if err != io.EOF {
				b.logger.Debug("voice socket read ended", "error", err)
			}
			return
		}
		samples, err := voice.DecodeFloat32(data)
		if err != nil {
			b.logger.Debug("dropping malformed audio frame", "error", err)
			continue
		}
		select {
		case b.frames <- samples:
		case <-b.closed:
			return
		}
	}
}

func (b *wsBridge) Read(ctx context.Context) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.closed:
		return nil, io.EOF
	case f, ok := <-b.frames:
		if !ok {
			return nil, io.EOF
		}
		return f, nil
	}
}

func (b *wsBridge) Now() time.Duration {
	return time.Since(b.start)
}

func (b *wsBridge) Play(at time.Duration, pcm []byte) error {
	select {
	case <-b.closed:
		return io.ErrClosedPipe
	default:
	}
	return b.send(VoiceEvent{Event: "audio", StartMS: at.Milliseconds(), Audio: pcm})
}

func (b *wsBridge) send(ev VoiceEvent) error {
	b.sendMu.Lock()
	defer b.sendMu.Unlock()
	return websocket.JSON.Send(b.ws, ev)
}

func (b *wsBridge) Close() error {
	b.closeOnce.Do(func() { close(b.closed) })
	return nil
}
