package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"sync"
	"time"
)

// DefaultOllamaURL is where a local Ollama listens by default.
const DefaultOllamaURL = "http://localhost:11434"

// ollamaMessage is a chat message in the Ollama API format.
type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Ollama is a text-only ChatStarter backed by a local Ollama instance. It
// has no voice counterpart.
type Ollama struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllama creates an Ollama agent for model at baseURL.
func NewOllama(baseURL, model string) *Ollama {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: 0,
		},
	}
}

// tagsResponse mirrors the JSON returned by GET /api/tags.
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Ready reports whether Ollama answers and has the chat model pulled.
func (o *Ollama) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama not running at %s: %w", o.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama tags: unexpected status %d", resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("decoding tags: %w", err)
	}
	for _, m := range tags.Models {
		// Ollama may return "llama3.2:latest"; match without the tag suffix.
		if m.Name == o.model || strings.HasPrefix(m.Name, o.model+":") {
			return nil
		}
	}
	return fmt.Errorf("model %s not pulled (run: ollama pull %s)", o.model, o.model)
}

// StartChat implements ChatStarter.
func (o *Ollama) StartChat(_ context.Context, systemInstruction string, history ...Turn) (ChatSession, error) {
	msgs := []ollamaMessage{{Role: "system", Content: systemInstruction}}
	for _, t := range history {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		role := "user"
		if t.Role == "model" {
			role = "assistant"
		}
		msgs = append(msgs, ollamaMessage{Role: role, Content: t.Text})
	}
	return &ollamaChat{o: o, messages: msgs}, nil
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

// chatChunk is one line of the streamed /api/chat response.
type chatChunk struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

type ollamaChat struct {
	o *Ollama

	mu       sync.Mutex
	messages []ollamaMessage
}

func (c *ollamaChat) SendStream(ctx context.Context, message string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		c.mu.Lock()
		defer c.mu.Unlock()

		turn := ollamaMessage{Role: "user", Content: message}
		body, err := json.Marshal(chatRequest{
			Model:    c.o.model,
			Messages: append(append([]ollamaMessage{}, c.messages...), turn),
			Stream:   true,
		})
		if err != nil {
			yield("", err)
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.o.baseURL+"/api/chat", bytes.NewReader(body))
		if err != nil {
			yield("", fmt.Errorf("creating chat request: %w", err))
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.o.httpClient.Do(req)
		if err != nil {
			yield("", fmt.Errorf("chat request: %w", err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			yield("", fmt.Errorf("chat: unexpected status %d", resp.StatusCode))
			return
		}

		var reply strings.Builder
		dec := json.NewDecoder(resp.Body)
		for {
			var chunk chatChunk
			err := dec.Decode(&chunk)
			if errors.Is(err, io.EOF) {
				yield("", fmt.Errorf("chat stream ended before done: %w", io.ErrUnexpectedEOF))
				return
			}
			if err != nil {
				yield("", fmt.Errorf("reading chat stream: %w", err))
				return
			}
			if chunk.Error != "" {
				yield("", fmt.Errorf("ollama: %s", chunk.Error))
				return
			}
			if text := chunk.Message.Content; text != "" {
				reply.WriteString(text)
				if !yield(text, nil) {
					return
				}
			}
			if chunk.Done {
				break
			}
		}

		c.messages = append(c.messages, turn, ollamaMessage{Role: "assistant", Content: reply.String()})
	}
}
