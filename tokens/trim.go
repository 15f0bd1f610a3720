// Package tokens trims a transcript to a model's context budget before each
// completion request.
package tokens

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"terp/message"
)

// perMessageOverhead approximates the per-entry framing tokens the chat
// format costs on top of the raw text.
const perMessageOverhead = 4

// modelBudgets holds context windows for the models we route to. Unknown
// models get defaultBudget.
var modelBudgets = map[string]int{
	"gpt-4":         8192,
	"gpt-4o":        128000,
	"gpt-4o-mini":   128000,
	"gpt-3.5-turbo": 16385,
}

const defaultBudget = 8000

var (
	encoderOnce sync.Once
	encoder     *tiktoken.Tiktoken
)

// Trim returns the newest suffix of msgs that fits the context budget, with
// the system message prepended. The system message is never dropped; entry
// order is preserved.
//
// maxTokens overrides the model's budget when non-zero (local models carry
// an explicit window).
func Trim(msgs []message.Message, systemMessage, model string, maxTokens int) []message.Message {
	budget := maxTokens
	if budget == 0 {
		budget = modelBudgets[model]
	}
	if budget == 0 {
		budget = defaultBudget
	}

	remaining := budget - Count(systemMessage) - perMessageOverhead

	// Walk newest-first so the most recent turns survive.
	start := len(msgs)
	for i := len(msgs) - 1; i >= 0; i-- {
		cost := messageTokens(msgs[i])
		if cost > remaining {
			break
		}
		remaining -= cost
		start = i
	}

	trimmed := make([]message.Message, 0, len(msgs)-start+1)
	trimmed = append(trimmed, message.Message{Role: message.RoleSystem, Content: systemMessage})
	trimmed = append(trimmed, msgs[start:]...)
	return trimmed
}

func messageTokens(msg message.Message) int {
	cost := perMessageOverhead + Count(msg.Content)
	if msg.FunctionCall != nil {
		cost += Count(msg.FunctionCall.Name) + Count(msg.FunctionCall.Arguments)
	}
	return cost
}

// Count returns the token count of text. The tiktoken vocabulary may be
// unavailable (offline first run); in that case a four-characters-per-token
// estimate keeps trimming deterministic instead of failing the turn.
func Count(text string) int {
	if text == "" {
		return 0
	}
	encoderOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err == nil {
			encoder = enc
		}
	})
	if encoder != nil {
		return len(encoder.Encode(text, nil, nil))
	}
	return len(text)/4 + strings.Count(text, "\n") + 1
}
