// Package testutil provides scripted providers and streams for tests.
package testutil

import (
	"context"

	"terp/message"
	"terp/provider"
)

// ScriptedStream replays a fixed sequence of chunks and then reports err.
type ScriptedStream struct {
	Chunks   []provider.Chunk
	FinalErr error

	pos     int
	current provider.Chunk
	Closed  bool
}

func (s *ScriptedStream) Next() bool {
	if s.pos >= len(s.Chunks) {
		return false
	}
	s.current = s.Chunks[s.pos]
	s.pos++
	return true
}

func (s *ScriptedStream) Current() provider.Chunk { return s.current }

func (s *ScriptedStream) Err() error {
	if s.pos >= len(s.Chunks) {
		return s.FinalErr
	}
	return nil
}

func (s *ScriptedStream) Close() error {
	s.Closed = true
	return nil
}

// MockProvider implements provider.Provider with configurable behavior.
type MockProvider struct {
	// StreamFunc is called once per turn; successive turns get successive
	// calls, so tests can script multi-turn conversations.
	StreamFunc func(ctx context.Context, req provider.Request) (provider.Stream, error)

	Functions bool
	ModelName string

	// Requests records every request passed to StreamCompletion.
	Requests []provider.Request
}

func (m *MockProvider) StreamCompletion(ctx context.Context, req provider.Request) (provider.Stream, error) {
	m.Requests = append(m.Requests, req)
	return m.StreamFunc(ctx, req)
}

func (m *MockProvider) SupportsFunctions() bool { return m.Functions }

func (m *MockProvider) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}

func (m *MockProvider) SetModel(model string) { m.ModelName = model }

func (m *MockProvider) Ping(ctx context.Context) error { return nil }

// TextStream builds a scripted stream that emits text fragments and closes
// with a stop finish.
func TextStream(fragments ...string) *ScriptedStream {
	chunks := make([]provider.Chunk, 0, len(fragments)+1)
	for _, f := range fragments {
		chunks = append(chunks, provider.Chunk{
			Delta: message.Delta{Role: roleOnce(len(chunks)), Content: f},
		})
	}
	chunks = append(chunks, provider.Chunk{FinishReason: provider.FinishStop})
	return &ScriptedStream{Chunks: chunks}
}

// FunctionCallStream builds a scripted stream that assembles a run_code call
// from argument fragments and closes with a function-call finish.
func FunctionCallStream(argFragments ...string) *ScriptedStream {
	chunks := []provider.Chunk{
		{Delta: message.Delta{
			Role:         message.RoleAssistant,
			FunctionCall: &message.FunctionCall{Name: message.RunCodeFunction},
		}},
	}
	for _, f := range argFragments {
		chunks = append(chunks, provider.Chunk{
			Delta: message.Delta{FunctionCall: &message.FunctionCall{Arguments: f}},
		})
	}
	chunks = append(chunks, provider.Chunk{FinishReason: provider.FinishFunctionCall})
	return &ScriptedStream{Chunks: chunks}
}

func roleOnce(emitted int) string {
	if emitted == 0 {
		return message.RoleAssistant
	}
	return ""
}
