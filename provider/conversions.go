package provider

import (
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"

	"terp/message"
)

// ConvertToOpenAIMessages converts transcript messages to the OpenAI chat
// parameter union. Assistant entries that carried a function call are
// flattened into fenced code so the model keeps seeing what it ran.
//
// Function results ride as user messages for now.
// TODO: carry tool_call IDs on message.Message and send proper tool results.
func ConvertToOpenAIMessages(messages []message.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, len(messages))

	for i, msg := range messages {
		switch msg.Role {
		case message.RoleSystem:
			result[i] = openai.SystemMessage(msg.Content)
		case message.RoleUser:
			result[i] = openai.UserMessage(msg.Content)
		case message.RoleAssistant:
			result[i] = openai.AssistantMessage(FlattenAssistantContent(msg))
		case message.RoleFunction:
			result[i] = openai.UserMessage(FormatFunctionResult(msg))
		default:
			result[i] = openai.UserMessage(msg.Content)
		}
	}

	return result
}

// FlattenAssistantContent renders an assistant entry to plain text,
// appending any function call as a fenced code block.
func FlattenAssistantContent(msg message.Message) string {
	content := msg.Content
	fc := msg.FunctionCall
	if fc == nil || fc.ParsedArguments == nil {
		return content
	}

	language, _ := fc.ParsedArguments["language"].(string)
	code, _ := fc.ParsedArguments["code"].(string)
	if code == "" {
		return content
	}
	// Fence-detected calls already carry the fenced code inside Content;
	// appending it again would replay every executed block twice.
	if strings.Contains(content, code) {
		return content
	}
	if content != "" {
		content += "\n"
	}
	return content + fmt.Sprintf("```%s\n%s\n```", language, code)
}

// FormatFunctionResult renders a function-role entry as the text the model
// sees in place of a structured tool result.
func FormatFunctionResult(msg message.Message) string {
	return fmt.Sprintf("Output of %s:\n%s", msg.Name, msg.Content)
}

// functionParameters converts a schema's parameter map to the SDK type.
func functionParameters(schema FunctionSchema) openai.FunctionParameters {
	params := make(openai.FunctionParameters, len(schema.Parameters))
	for k, v := range schema.Parameters {
		params[k] = v
	}
	return params
}
