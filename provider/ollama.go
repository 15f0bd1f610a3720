package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"terp/message"
)

// OllamaProvider streams completions from a local Ollama server. Local
// models have no structured function-call channel; fragments carry raw
// generated text only, and the interpreter falls back to markdown fence
// detection to spot executable code.
type OllamaProvider struct {
	client *api.Client
	model  string
}

// NewOllamaProvider creates a new Ollama provider instance.
// baseURL defaults to the local server, model to llama3.1:latest.
func NewOllamaProvider(baseURL, model string) (*OllamaProvider, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.1:latest"
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	return &OllamaProvider{
		client: api.NewClient(parsedURL, http.DefaultClient),
		model:  model,
	}, nil
}

// StreamCompletion implements Provider.StreamCompletion.
//
// The Ollama client pushes responses through a callback, so a goroutine
// bridges it onto the pull-based Stream: it blocks handing over each chunk
// and only lets the client produce the next one once the consumer asks.
func (p *OllamaProvider) StreamCompletion(ctx context.Context, req Request) (Stream, error) {
	chatReq := &api.ChatRequest{
		Model:    p.model,
		Messages: convertToOllamaMessages(req.Messages),
		Stream:   func(b bool) *bool { return &b }(true),
		Options:  map[string]any{"temperature": req.Temperature},
	}
	if req.MaxTokens > 0 {
		chatReq.Options["num_predict"] = req.MaxTokens
	}

	stream := newChanStream()
	go func() {
		err := p.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
			chunk := Chunk{
				Delta: message.Delta{Content: resp.Message.Content},
			}
			if resp.Done {
				chunk.FinishReason = FinishStop
			}
			if !stream.emit(chunk) {
				return context.Canceled
			}
			return nil
		})
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		if err != nil {
			err = fmt.Errorf("Ollama streaming error: %w", err)
		}
		stream.finish(err)
	}()

	return stream, nil
}

// SupportsFunctions implements Provider.SupportsFunctions. Local models
// emit markdown only.
func (p *OllamaProvider) SupportsFunctions() bool { return false }

// Model implements Provider.Model.
func (p *OllamaProvider) Model() string { return p.model }

// SetModel implements Provider.SetModel.
func (p *OllamaProvider) SetModel(model string) { p.model = model }

// Ping implements Provider.Ping with a short timeout.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := p.client.List(ctx); err != nil {
		return fmt.Errorf("Ollama ping failed: %w", err)
	}
	return nil
}

func convertToOllamaMessages(messages []message.Message) []api.Message {
	result := make([]api.Message, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case message.RoleAssistant:
			result[i] = api.Message{Role: msg.Role, Content: FlattenAssistantContent(msg)}
		case message.RoleFunction:
			// Ollama has no function role; results ride as tool output.
			result[i] = api.Message{Role: "tool", Content: msg.Content}
		default:
			result[i] = api.Message{Role: msg.Role, Content: msg.Content}
		}
	}
	return result
}
