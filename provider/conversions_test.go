package provider

import (
	"strings"
	"testing"

	"terp/message"
)

func TestFlattenAssistantContent(t *testing.T) {
	tests := []struct {
		name     string
		msg      message.Message
		expected string
	}{
		{
			name:     "plain content passes through",
			msg:      message.Message{Role: message.RoleAssistant, Content: "hello"},
			expected: "hello",
		},
		{
			name: "function call becomes fenced code",
			msg: message.Message{
				Role: message.RoleAssistant,
				FunctionCall: &message.FunctionCall{
					Name: message.RunCodeFunction,
					ParsedArguments: map[string]any{
						"language": "python",
						"code":     "print(1)",
					},
				},
			},
			expected: "```python\nprint(1)\n```",
		},
		{
			name: "content and call both kept",
			msg: message.Message{
				Role:    message.RoleAssistant,
				Content: "Running it now.",
				FunctionCall: &message.FunctionCall{
					ParsedArguments: map[string]any{
						"language": "shell",
						"code":     "ls",
					},
				},
			},
			expected: "Running it now.\n```shell\nls\n```",
		},
		{
			name: "fence-detected call not appended twice",
			msg: message.Message{
				Role:    message.RoleAssistant,
				Content: "Here you go:\n```python\nprint('hi')\n```",
				FunctionCall: &message.FunctionCall{
					Name: message.RunCodeFunction,
					ParsedArguments: map[string]any{
						"language": "python",
						"code":     "print('hi')",
					},
				},
			},
			expected: "Here you go:\n```python\nprint('hi')\n```",
		},
		{
			name: "unparsed call contributes nothing",
			msg: message.Message{
				Role:         message.RoleAssistant,
				Content:      "hm",
				FunctionCall: &message.FunctionCall{Arguments: `{"broken`},
			},
			expected: "hm",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FlattenAssistantContent(tt.msg)
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFormatFunctionResult(t *testing.T) {
	msg := message.Message{
		Role:    message.RoleFunction,
		Name:    message.RunCodeFunction,
		Content: "4",
	}
	got := FormatFunctionResult(msg)
	if !strings.Contains(got, "run_code") || !strings.Contains(got, "4") {
		t.Errorf("result missing name or content: %q", got)
	}
}

func TestConvertToOpenAIMessagesLength(t *testing.T) {
	in := []message.Message{
		{Role: message.RoleSystem, Content: "be helpful"},
		{Role: message.RoleUser, Content: "hi"},
		{Role: message.RoleAssistant, Content: "hello"},
		{Role: message.RoleFunction, Name: "run_code", Content: "No output"},
	}
	out := ConvertToOpenAIMessages(in)
	if len(out) != len(in) {
		t.Fatalf("length: got %d, want %d", len(out), len(in))
	}
}
