package provider

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"terp/message"
)

// AnthropicProvider streams completions from the Anthropic API. Tool-use
// content blocks are converted to function-call deltas, so the interpreter
// treats it exactly like the OpenAI structured channel.
type AnthropicProvider struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicProvider creates a new Anthropic provider instance.
// Returns an error if the API key is missing.
func NewAnthropicProvider(baseURL, apiKey, model string) (*AnthropicProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	anthropicModel := anthropic.ModelClaudeSonnet4_5_20250929
	if model != "" {
		anthropicModel = anthropic.Model(model)
	}

	client := anthropic.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &AnthropicProvider{client: client, model: anthropicModel}, nil
}

// StreamCompletion implements Provider.StreamCompletion.
func (p *AnthropicProvider) StreamCompletion(ctx context.Context, req Request) (Stream, error) {
	msgs, systemBlocks := convertToAnthropicMessages(req.Messages)

	maxTokens := int64(req.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 4096 // required by the Anthropic API
	}

	params := anthropic.MessageNewParams{
		Model:       p.model,
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(req.Temperature),
	}
	if len(systemBlocks) > 0 {
		params.System = systemBlocks
	}

	if len(req.Functions) > 0 {
		tools := make([]anthropic.ToolUnionParam, len(req.Functions))
		for i, fn := range req.Functions {
			inputSchema := anthropic.ToolInputSchemaParam{
				Properties: fn.Parameters["properties"],
			}
			if required, ok := fn.Parameters["required"].([]string); ok {
				inputSchema.Required = required
			}
			tools[i] = anthropic.ToolUnionParamOfTool(inputSchema, fn.Name)
			if fn.Description != "" {
				tools[i].OfTool.Description = anthropic.String(fn.Description)
			}
		}
		params.Tools = tools
	}

	raw := p.client.Messages.NewStreaming(ctx, params)
	return &anthropicStream{raw: raw}, nil
}

// SupportsFunctions implements Provider.SupportsFunctions.
func (p *AnthropicProvider) SupportsFunctions() bool { return true }

// Model implements Provider.Model.
func (p *AnthropicProvider) Model() string { return string(p.model) }

// SetModel implements Provider.SetModel.
func (p *AnthropicProvider) SetModel(model string) { p.model = anthropic.Model(model) }

// Ping implements Provider.Ping with a minimal one-token request.
func (p *AnthropicProvider) Ping(ctx context.Context) error {
	_, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return fmt.Errorf("Anthropic ping failed: %w", err)
	}
	return nil
}

// anthropicStream converts SDK stream events to provider chunks. Events that
// carry nothing the transcript cares about (message_start, ping) surface as
// Empty chunks.
type anthropicStream struct {
	raw     *ssestream.Stream[anthropic.MessageStreamEventUnion]
	current Chunk
}

func (s *anthropicStream) Next() bool {
	if !s.raw.Next() {
		return false
	}
	s.current = convertAnthropicEvent(s.raw.Current())
	return true
}

func (s *anthropicStream) Current() Chunk { return s.current }

func (s *anthropicStream) Err() error {
	if err := s.raw.Err(); err != nil {
		return fmt.Errorf("Anthropic streaming error: %w", err)
	}
	return nil
}

func (s *anthropicStream) Close() error { return s.raw.Close() }

func convertAnthropicEvent(event anthropic.MessageStreamEventUnion) Chunk {
	switch eventVariant := event.AsAny().(type) {
	case anthropic.ContentBlockStartEvent:
		if toolUse, ok := eventVariant.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
			return Chunk{Delta: message.Delta{
				Role:         message.RoleAssistant,
				FunctionCall: &message.FunctionCall{Name: toolUse.Name},
			}}
		}
		return Chunk{Empty: true}

	case anthropic.ContentBlockDeltaEvent:
		switch deltaVariant := eventVariant.Delta.AsAny().(type) {
		case anthropic.TextDelta:
			return Chunk{Delta: message.Delta{Content: deltaVariant.Text}}
		case anthropic.InputJSONDelta:
			return Chunk{Delta: message.Delta{
				FunctionCall: &message.FunctionCall{Arguments: deltaVariant.PartialJSON},
			}}
		}
		return Chunk{Empty: true}

	case anthropic.MessageDeltaEvent:
		switch eventVariant.Delta.StopReason {
		case "tool_use":
			return Chunk{FinishReason: FinishFunctionCall}
		case "end_turn", "max_tokens", "stop_sequence":
			return Chunk{FinishReason: FinishStop}
		}
		return Chunk{Empty: true}

	default:
		return Chunk{Empty: true}
	}
}

func convertToAnthropicMessages(messages []message.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var systemBlocks []anthropic.TextBlockParam
	anthropicMsgs := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case message.RoleSystem:
			// Anthropic takes the system prompt as a separate parameter.
			systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: msg.Content})
		case message.RoleAssistant:
			anthropicMsgs = append(anthropicMsgs,
				anthropic.NewAssistantMessage(anthropic.NewTextBlock(FlattenAssistantContent(msg))),
			)
		case message.RoleFunction:
			// Function results go to user messages for now.
			anthropicMsgs = append(anthropicMsgs,
				anthropic.NewUserMessage(anthropic.NewTextBlock(FormatFunctionResult(msg))),
			)
		default:
			anthropicMsgs = append(anthropicMsgs,
				anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)),
			)
		}
	}

	return anthropicMsgs, systemBlocks
}
