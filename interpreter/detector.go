package interpreter

import (
	"terp/message"
)

// Detector decides whether the in-progress entry is emitting executable code
// and keeps its parsed arguments current as fragments arrive. One detector is
// chosen per backend at construction: structured function calls where the
// service has that channel, fence parity on raw text where it does not.
type Detector interface {
	Update(entry *message.Message) bool
}

// StructuredCallDetector watches the function_call field that function-call
// capable services stream natively.
type StructuredCallDetector struct{}

func (StructuredCallDetector) Update(entry *message.Message) bool {
	fc := entry.FunctionCall
	if fc == nil {
		return false
	}
	// A failed repair keeps the previous good parse; arguments usually
	// become parseable again a few fragments later.
	if parsed, ok := message.ParsePartial(fc.Arguments); ok {
		fc.ParsedArguments = parsed
	}
	return true
}

// FenceDetector substitutes for the function-call channel on raw-text models
// by watching markdown fence parity, synthesizing the same function_call
// shape the structured channel would have produced.
type FenceDetector struct{}

func (FenceDetector) Update(entry *message.Message) bool {
	fence := message.ExtractFence(entry.Content)
	if !fence.InCodeBlock {
		// Leave any synthesized call in place: after the closing fence it
		// holds the completed language and code.
		return false
	}

	if entry.FunctionCall == nil {
		entry.FunctionCall = &message.FunctionCall{Name: message.RunCodeFunction}
	}
	args := make(map[string]any, 2)
	if fence.Language != "" {
		args["language"] = fence.Language
	}
	if fence.Code != "" {
		args["code"] = fence.Code
	}
	entry.FunctionCall.ParsedArguments = args
	return true
}
