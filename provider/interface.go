// Package provider abstracts the completion services terp can talk to.
//
// Two kinds of backend exist: cloud services with a structured function-call
// channel (OpenAI, Anthropic) and local models that only emit raw text
// (Ollama). Both are exposed through the same pull-based Stream contract so
// the interpreter can consume fragments synchronously, one at a time, without
// caring which kind it is connected to. SupportsFunctions tells the
// interpreter which code-intent detector to use for the connected backend.
package provider

import (
	"context"

	"terp/message"
)

// Type identifies the provider implementation.
type Type string

const (
	TypeOpenAI    Type = "openai"
	TypeAnthropic Type = "anthropic"
	TypeOllama    Type = "ollama"
)

// FinishReason classifies why a stream unit says the turn is over.
type FinishReason string

const (
	// FinishNone means the unit does not terminate the turn.
	FinishNone FinishReason = ""
	// FinishStop means the model produced a final answer.
	FinishStop FinishReason = "stop"
	// FinishFunctionCall means the model closed a function call and
	// expects its result before continuing.
	FinishFunctionCall FinishReason = "function_call"
)

// Chunk is one unit of a completion stream, already converted to the
// transcript's delta shape. Empty marks keep-alive frames that carry no
// choice payload; consumers skip them.
type Chunk struct {
	Delta        message.Delta
	FinishReason FinishReason
	Empty        bool
}

// Stream is a lazily-produced sequence of chunks. The next unit is only
// produced when Next is called; Err reports any transport failure after
// Next returns false. Close releases the underlying connection and is safe
// to call on every exit path.
type Stream interface {
	Next() bool
	Current() Chunk
	Err() error
	Close() error
}

// FunctionSchema declares a capability the model may call.
type FunctionSchema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Request carries everything a provider needs for one completion turn.
// Messages must already be trimmed to the model's context budget.
type Request struct {
	Messages    []message.Message
	Functions   []FunctionSchema
	Temperature float64
	MaxTokens   int
}

// Provider is implemented once per backend type.
type Provider interface {
	// StreamCompletion requests a streamed completion for the given
	// messages. The returned Stream must be closed by the caller.
	StreamCompletion(ctx context.Context, req Request) (Stream, error)

	// SupportsFunctions reports whether this backend has a structured
	// function-call channel. Backends without one rely on markdown
	// fence detection instead.
	SupportsFunctions() bool

	// Model returns the currently selected model name.
	Model() string

	// SetModel changes the active model.
	SetModel(model string)

	// Ping checks if the backend is reachable.
	Ping(ctx context.Context) error
}

// Config holds provider-specific configuration for the factory.
type Config struct {
	Type    Type
	BaseURL string
	Model   string
	APIKey  string // unused for Ollama
}
