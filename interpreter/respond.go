package interpreter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"terp/config"
	"terp/display"
	"terp/message"
	"terp/provider"
	"terp/tokens"
)

const (
	streamRetries = 3
	retryDelay    = 3 * time.Second

	// responseReserve pads the response allowance when carving the trim
	// budget out of a fixed context window.
	responseReserve = 25
)

// malformedCallNotice is fed back to the model when a closed function call
// never produced parseable arguments. A correction signal, not a user-visible
// error.
const malformedCallNotice = "Your function call could not be parsed. Please use ONLY the `run_code` function, which takes two parameters: `code` and `language`. Your response should be formatted as a JSON."

// Respond streams model turns until one ends without a function call.
// Executed function calls feed their result back into the transcript and the
// loop continues with a fresh turn; long tool-use chains stay flat instead of
// growing a call stack.
func (i *Interpreter) Respond(ctx context.Context) error {
	for turns := 0; ; turns++ {
		if i.maxTurns > 0 && turns >= i.maxTurns {
			return fmt.Errorf("turn limit reached after %d function calls", turns)
		}
		done, err := i.runTurn(ctx)
		if err != nil || done {
			return err
		}
	}
}

// runTurn consumes one completion stream. It reports done=false when a
// function call was handled and the model should speak again.
func (i *Interpreter) runTurn(ctx context.Context) (done bool, err error) {
	stream, err := i.openStream(ctx)
	if err != nil {
		return false, err
	}
	defer stream.Close()

	i.messages = append(i.messages, message.Message{})
	entry := &i.messages[len(i.messages)-1]

	var (
		block  display.Block
		inCode bool
	)
	// End on every exit path, or the live region holds the terminal.
	defer func() {
		if block != nil {
			block.End()
		}
	}()

	for stream.Next() {
		chunk := stream.Current()
		if chunk.Empty {
			// Keep-alive frames with no choice payload.
			continue
		}

		message.MergeDelta(entry, chunk.Delta)
		isCode := i.detector.Update(entry)

		if isCode && !inCode {
			inCode = true
			if block != nil {
				block.End()
			}
			if i.wantsSeparator() {
				i.display.Separator()
			}
			block = i.display.Code()
		}
		if !isCode && inCode {
			inCode = false
			// Raw-text models have no finish signal for function calls;
			// the closing fence is it.
			if !i.provider.SupportsFunctions() && entry.FunctionCall != nil {
				recaptureFencedCode(entry)
				if block != nil {
					block.Update(*entry)
				}
				return i.finishFunctionCall(ctx, entry, block)
			}
		}
		if block == nil && !isCode {
			block = i.display.Message()
		}
		if block != nil {
			block.Update(*entry)
		}

		switch chunk.FinishReason {
		case provider.FinishFunctionCall:
			return i.finishFunctionCall(ctx, entry, block)
		case provider.FinishStop:
			i.finishTurn(entry, block)
			return true, nil
		}
	}
	if err := stream.Err(); err != nil {
		return false, fmt.Errorf("stream failed: %w", err)
	}

	// Stream ended without a finish marker; treat it as a completed prose
	// turn.
	i.finishTurn(entry, block)
	return true, nil
}

// finishTurn closes out a prose turn.
func (i *Interpreter) finishTurn(entry *message.Message, block display.Block) {
	if entry.Role == "" {
		entry.Role = message.RoleAssistant
	}
	if !i.provider.SupportsFunctions() {
		entry.Content = stripTrailingMarkers(entry.Content)
	}
	if block != nil {
		block.Update(*entry)
	}
}

// finishFunctionCall handles a closed function call: confirm, execute, and
// append the result as a function-role entry.
func (i *Interpreter) finishFunctionCall(ctx context.Context, entry *message.Message, block display.Block) (bool, error) {
	if entry.Role == "" {
		entry.Role = message.RoleAssistant
	}

	language, code, ok := capturedCall(entry.FunctionCall)
	if !ok {
		// The arguments never became valid JSON. Tell the model and let it
		// try again.
		config.Debugf("unparseable function call: %+v", entry.FunctionCall)
		i.appendFunctionResult(malformedCallNotice)
		return false, nil
	}

	if !i.autoRun {
		if block != nil {
			block.End()
		}
		if !i.confirm(language, code) {
			i.appendFunctionResult("User decided not to run this code.")
			return true, nil
		}
	}

	exec, err := i.executorFor(language)
	if err != nil {
		return false, fmt.Errorf("failed to initialize %s backend: %w", language, err)
	}
	output, err := exec.Run(ctx, code)
	if err != nil {
		// Backend failure is conversation content the model reacts to, not
		// a turn failure.
		output = strings.TrimSpace(output + "\n" + err.Error())
	}
	if strings.TrimSpace(output) == "" {
		// Never append an empty result: downstream it is indistinguishable
		// from "still streaming" and makes models fabricate output.
		output = "No output"
	}

	if sink, ok := block.(interface{ SetOutput(string) }); ok {
		sink.SetOutput(output)
	}
	if block != nil {
		block.End()
	}

	i.appendFunctionResult(output)
	return false, nil
}

func (i *Interpreter) appendFunctionResult(content string) {
	i.messages = append(i.messages, message.Message{
		Role:    message.RoleFunction,
		Name:    message.RunCodeFunction,
		Content: content,
	})
}

// openStream requests a completion with bounded retries.
func (i *Interpreter) openStream(ctx context.Context) (provider.Stream, error) {
	req := provider.Request{
		Messages:    tokens.Trim(i.messages, i.systemMessage(), i.provider.Model(), i.trimBudget()),
		Temperature: i.temperature,
		MaxTokens:   i.maxTokens,
	}
	if i.provider.SupportsFunctions() {
		req.Functions = []provider.FunctionSchema{runCodeSchema()}
	}

	var lastErr error
	for attempt := 1; attempt <= streamRetries; attempt++ {
		stream, err := i.provider.StreamCompletion(ctx, req)
		if err == nil {
			return stream, nil
		}
		lastErr = err
		config.Debugf("completion attempt %d/%d failed: %v", attempt, streamRetries, err)
		if attempt < streamRetries {
			select {
			case <-time.After(i.retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("completion request failed after %d attempts: %w", streamRetries, lastErr)
}

// trimBudget returns the token budget for the outgoing transcript. A fixed
// context window must also hold the response, so the response allowance is
// reserved out of it; 0 defers to the model's known window.
func (i *Interpreter) trimBudget() int {
	if i.contextWindow == 0 {
		return 0
	}
	budget := i.contextWindow - i.maxTokens - responseReserve
	if budget < 1 {
		budget = 1
	}
	return budget
}

// wantsSeparator reports whether a cosmetic break should precede the next
// block: yes when the previous entry came from the user or a function result.
func (i *Interpreter) wantsSeparator() bool {
	if len(i.messages) < 2 {
		return false
	}
	prev := i.messages[len(i.messages)-2]
	return prev.Role == message.RoleUser || prev.Role == message.RoleFunction
}

// capturedCall extracts the language and code the call resolved to.
func capturedCall(fc *message.FunctionCall) (language, code string, ok bool) {
	if fc == nil || fc.ParsedArguments == nil {
		return "", "", false
	}
	language, _ = fc.ParsedArguments["language"].(string)
	code, _ = fc.ParsedArguments["code"].(string)
	if language == "" || code == "" {
		return "", "", false
	}
	return language, code, true
}

// recaptureFencedCode re-extracts the completed block from the text before
// the closing fence, in case the fence arrived in the same fragment as the
// last code characters.
func recaptureFencedCode(entry *message.Message) {
	idx := strings.LastIndex(entry.Content, "```")
	if idx < 0 {
		return
	}
	fence := message.ExtractFence(entry.Content[:idx])
	if !fence.InCodeBlock {
		return
	}
	args := entry.FunctionCall.ParsedArguments
	if args == nil {
		args = make(map[string]any, 2)
		entry.FunctionCall.ParsedArguments = args
	}
	if fence.Language != "" {
		args["language"] = fence.Language
	}
	if fence.Code != "" {
		args["code"] = fence.Code
	}
}

// stripTrailingMarkers drops the low-value trailing "#" runs some local
// models append to every message.
func stripTrailingMarkers(content string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(content), "#"))
}
