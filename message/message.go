// Package message defines the transcript data model shared by the
// interpreter, providers, storage, and display layers, plus the streaming
// primitives that reconstruct complete messages from incremental deltas.
package message

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleFunction  = "function"
)

// RunCodeFunction is the single capability the model may call.
const RunCodeFunction = "run_code"

// Message is one entry in the conversation transcript. The transcript is
// append-only and serializes as-is to JSON for session persistence.
type Message struct {
	Role         string        `json:"role,omitempty"`
	Content      string        `json:"content,omitempty"`
	Name         string        `json:"name,omitempty"`
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
}

// FunctionCall is the structured-call channel of an assistant message.
// Arguments grows incrementally while streaming; ParsedArguments holds the
// most recent successful best-effort parse of Arguments.
type FunctionCall struct {
	Name            string         `json:"name,omitempty"`
	Arguments       string         `json:"arguments,omitempty"`
	ParsedArguments map[string]any `json:"parsed_arguments,omitempty"`
}

// Delta is a partial fragment of a single message, shaped like a subset of
// Message. Deltas carry no identity and exist only during a merge.
type Delta Message

// Clone returns a deep copy of m.
func (m Message) Clone() Message {
	out := m
	if m.FunctionCall != nil {
		fc := *m.FunctionCall
		if m.FunctionCall.ParsedArguments != nil {
			fc.ParsedArguments = make(map[string]any, len(m.FunctionCall.ParsedArguments))
			for k, v := range m.FunctionCall.ParsedArguments {
				fc.ParsedArguments[k] = v
			}
		}
		out.FunctionCall = &fc
	}
	return out
}

// CloneAll returns deep copies of all messages.
func CloneAll(in []Message) []Message {
	out := make([]Message, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
