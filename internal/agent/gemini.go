package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"sync"

	"google.golang.org/genai"
)

const (
	defaultChatModel  = "gemini-2.5-flash"
	defaultVoiceModel = "gemini-2.5-flash-native-audio-preview-09-2025"
	defaultVoiceName  = "Puck"
)

// GeminiConfig configures the Gemini-backed agent.
type GeminiConfig struct {
	APIKey     string
	ChatModel  string
	VoiceModel string
	VoiceName  string
}

// Gemini talks to the Gemini API for both text chat and live voice.
type Gemini struct {
	client     *genai.Client
	chatModel  string
	voiceModel string
	voiceName  string
}

// NewGemini creates a Gemini agent. Empty model names fall back to defaults.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required: %w", ErrUnavailable)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	g := &Gemini{
		client:     client,
		chatModel:  cfg.ChatModel,
		voiceModel: cfg.VoiceModel,
		voiceName:  cfg.VoiceName,
	}
	if g.chatModel == "" {
		g.chatModel = defaultChatModel
	}
	if g.voiceModel == "" {
		g.voiceModel = defaultVoiceModel
	}
	if g.voiceName == "" {
		g.voiceName = defaultVoiceName
	}
	return g, nil
}

// StartChat implements ChatStarter.
func (g *Gemini) StartChat(_ context.Context, systemInstruction string, history ...Turn) (ChatSession, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, t := range history {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		role := genai.Role(genai.RoleUser)
		if t.Role == string(genai.RoleModel) {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}
	return &geminiChat{
		history: contents,
		models:  g.client.Models,
		model:   g.chatModel,
		config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		},
	}, nil
}

// geminiChat keeps the conversation history locally and replays it on each
// turn.
type geminiChat struct {
	models *genai.Models
	model  string
	config *genai.GenerateContentConfig

	mu      sync.Mutex
	history []*genai.Content
}

func (c *geminiChat) SendStream(ctx context.Context, message string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		c.mu.Lock()
		defer c.mu.Unlock()

		turn := genai.NewContentFromText(message, genai.RoleUser)
		contents := append(append([]*genai.Content{}, c.history...), turn)

		var reply strings.Builder
		for resp, err := range c.models.GenerateContentStream(ctx, c.model, contents, c.config) {
			if err != nil {
				yield("", fmt.Errorf("gemini stream: %w", err))
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			reply.WriteString(text)
			if !yield(text, nil) {
				return
			}
		}

		c.history = append(c.history, turn, genai.NewContentFromText(reply.String(), genai.RoleModel))
	}
}

// DialVoice implements VoiceDialer using the Live API.
func (g *Gemini) DialVoice(ctx context.Context, systemInstruction string) (VoiceConn, error) {
	session, err := g.client.Live.Connect(ctx, g.voiceModel, &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: g.voiceName},
			},
		},
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting live session: %w", err)
	}
	return &geminiVoice{session: session}, nil
}

type geminiVoice struct {
	session   *genai.Session
	closeOnce sync.Once
	closeErr  error
}

func (v *geminiVoice) SendAudio(_ context.Context, b Blob) error {
	return v.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{MIMEType: b.MIMEType, Data: b.Data},
	})
}

// Receive skips server messages that carry no audio (turn markers,
// transcripts) and returns the next inline audio part.
func (v *geminiVoice) Receive(ctx context.Context) (Blob, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Blob{}, err
		}
		msg, err := v.session.Receive()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Blob{}, io.EOF
			}
			return Blob{}, fmt.Errorf("receiving live message: %w", err)
		}
		if blob, ok := inboundAudio(msg); ok {
			return blob, nil
		}
	}
}

// inboundAudio joins every inline audio part of a message in order, so a
// turn split across parts plays without gaps.
func inboundAudio(msg *genai.LiveServerMessage) (Blob, bool) {
	if msg == nil || msg.ServerContent == nil || msg.ServerContent.ModelTurn == nil {
		return Blob{}, false
	}
	var blob Blob
	for _, part := range msg.ServerContent.ModelTurn.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		if blob.MIMEType == "" {
			blob.MIMEType = part.InlineData.MIMEType
		}
		blob.Data = append(blob.Data, part.InlineData.Data...)
	}
	return blob, len(blob.Data) > 0
}

func (v *geminiVoice) Close() error {
	v.closeOnce.Do(func() {
		v.closeErr = v.session.Close()
	})
	return v.closeErr
}
