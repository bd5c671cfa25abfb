package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/feelbuddy/internal/agent"
)

// ErrRemoteClosed reports that the agent ended the session.
var ErrRemoteClosed = errors.New("voice session closed by remote")

// errCaptureEnded marks a microphone that ran dry; the session ends
// without error.
var errCaptureEnded = errors.New("capture ended")

// Microphone yields captured frames of FrameSamples float samples at
// InputRate.
type Microphone interface {
	// Read blocks for the next frame. It returns ctx.Err() once ctx is
	// done.
	Read(ctx context.Context) ([]float32, error)
	Close() error
}

// Speaker plays PCM16 chunks at OutputRate on its own timeline.
type Speaker interface {
	// Now is the current position of the playback clock.
	Now() time.Duration
	// Play queues pcm to start at the given clock position.
	Play(at time.Duration, pcm []byte) error
	Close() error
}

// Session is one live voice conversation. All exits share one teardown.
type Session struct {
	conn   agent.VoiceConn
	mic    Microphone
	spk    Speaker
	sched  Scheduler
	logger *slog.Logger

	cancel    context.CancelFunc
	connected atomic.Bool
	release   sync.Once
	done      chan struct{}
	err       error
}

// Open dials the agent and starts streaming. The session ends when ctx is
// done, Close is called, the remote side hangs up or either stream fails.
// The microphone and speaker are owned by the session from here on, and
// are released even if dialing fails.
func Open(ctx context.Context, dialer agent.VoiceDialer, systemInstruction string, mic Microphone, spk Speaker, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := dialer.DialVoice(ctx, systemInstruction)
	if err != nil {
		mic.Close()
		spk.Close()
		return nil, fmt.Errorf("opening voice session: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s := &Session{
		conn:   conn,
		mic:    mic,
		spk:    spk,
		logger: logger,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.connected.Store(true)

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return s.capture(gctx) })
	g.Go(func() error { return s.playback(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		s.releaseDevices()
		return nil
	})
	go func() {
		s.teardown(g.Wait())
	}()

	logger.Info("voice session opened")
	return s, nil
}

// capture forwards microphone frames as PCM16.
func (s *Session) capture(ctx context.Context) error {
	for {
		frame, err := s.mic.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return errCaptureEnded
			}
			return fmt.Errorf("reading microphone: %w", err)
		}
		blob := agent.Blob{MIMEType: InputMIME, Data: EncodePCM16(frame)}
		if err := s.conn.SendAudio(ctx, blob); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("sending audio: %w", err)
		}
	}
}

// playback schedules each reply chunk right after the previous one.
func (s *Session) playback(ctx context.Context) error {
	for {
		blob, err := s.conn.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return ErrRemoteClosed
			}
			return fmt.Errorf("receiving audio: %w", err)
		}
		if len(blob.Data) == 0 {
			continue
		}
		start := s.sched.Schedule(s.spk.Now(), PCM16Duration(blob.Data, OutputRate))
		if err := s.spk.Play(start, blob.Data); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("playing audio: %w", err)
		}
	}
}

// releaseDevices stops capture and closes every resource. Safe to call
// more than once.
func (s *Session) releaseDevices() {
	s.release.Do(func() {
		if err := s.mic.Close(); err != nil {
			s.logger.Debug("closing microphone", "error", err)
		}
		if err := s.conn.Close(); err != nil {
			s.logger.Debug("closing voice connection", "error", err)
		}
		if err := s.spk.Close(); err != nil {
			s.logger.Debug("closing speaker", "error", err)
		}
	})
}

// teardown runs once, after both streams have stopped.
func (s *Session) teardown(cause error) {
	s.cancel()
	s.releaseDevices()
	s.sched.Reset()
	s.connected.Store(false)

	if errors.Is(cause, context.Canceled) || errors.Is(cause, errCaptureEnded) {
		cause = nil
	}
	s.err = cause
	if cause != nil {
		s.logger.Warn("voice session ended", "error", cause)
	} else {
		s.logger.Info("voice session closed")
	}
	close(s.done)
}

// Close ends the session and waits for teardown to finish.
func (s *Session) Close() error {
	s.cancel()
	<-s.done
	return nil
}

// Done is closed once the session has been torn down.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err reports why the session ended. It is nil while the session runs and
// after a local close.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Connected reports whether the session is still streaming.
func (s *Session) Connected() bool { return s.connected.Load() }
