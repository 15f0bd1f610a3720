package provider

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/ssestream"

	"terp/message"
)

// OpenAIProvider streams completions from the OpenAI API. It exposes the
// structured function-call channel, so the interpreter uses the structured
// code-intent detector with it.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI provider instance.
// Returns an error if the API key is missing.
func NewOpenAIProvider(baseURL, apiKey, model string) (*OpenAIProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = "gpt-4o"
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &OpenAIProvider{client: client, model: model}, nil
}

// StreamCompletion implements Provider.StreamCompletion.
func (p *OpenAIProvider) StreamCompletion(ctx context.Context, req Request) (Stream, error) {
	params := openai.ChatCompletionNewParams{
		Messages:    ConvertToOpenAIMessages(req.Messages),
		Model:       openai.ChatModel(p.model),
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	if len(req.Functions) > 0 {
		tools := make([]openai.ChatCompletionToolUnionParam, len(req.Functions))
		for i, fn := range req.Functions {
			tools[i] = openai.ChatCompletionFunctionTool(
				openai.FunctionDefinitionParam{
					Name:        fn.Name,
					Description: openai.String(fn.Description),
					Parameters:  functionParameters(fn),
				},
			)
		}
		params.Tools = tools
	}

	raw := p.client.Chat.Completions.NewStreaming(ctx, params)
	return &openaiStream{raw: raw}, nil
}

// SupportsFunctions implements Provider.SupportsFunctions.
func (p *OpenAIProvider) SupportsFunctions() bool { return true }

// Model implements Provider.Model.
func (p *OpenAIProvider) Model() string { return p.model }

// SetModel implements Provider.SetModel.
func (p *OpenAIProvider) SetModel(model string) { p.model = model }

// Ping implements Provider.Ping by attempting to list models.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx); err != nil {
		return fmt.Errorf("OpenAI ping failed: %w", err)
	}
	return nil
}

// openaiStream converts SDK chunks to provider chunks as they are pulled.
type openaiStream struct {
	raw     *ssestream.Stream[openai.ChatCompletionChunk]
	current Chunk
}

func (s *openaiStream) Next() bool {
	if !s.raw.Next() {
		return false
	}
	s.current = convertOpenAIChunk(s.raw.Current())
	return true
}

func (s *openaiStream) Current() Chunk { return s.current }

func (s *openaiStream) Err() error {
	if err := s.raw.Err(); err != nil {
		return fmt.Errorf("OpenAI streaming error: %w", err)
	}
	return nil
}

func (s *openaiStream) Close() error { return s.raw.Close() }

func convertOpenAIChunk(chunk openai.ChatCompletionChunk) Chunk {
	// Some transports send keep-alive frames with no choices.
	if len(chunk.Choices) == 0 {
		return Chunk{Empty: true}
	}

	choice := chunk.Choices[0]
	out := Chunk{
		Delta: message.Delta{
			Role:    choice.Delta.Role,
			Content: choice.Delta.Content,
		},
	}

	if len(choice.Delta.ToolCalls) > 0 {
		tc := choice.Delta.ToolCalls[0]
		out.Delta.FunctionCall = &message.FunctionCall{
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		}
	}

	switch choice.FinishReason {
	case "tool_calls", "function_call":
		out.FinishReason = FinishFunctionCall
	case "stop", "length", "content_filter":
		out.FinishReason = FinishStop
	}
	return out
}
