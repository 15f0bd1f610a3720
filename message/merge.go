package message

// MergeDelta folds one streamed fragment into the message being accumulated.
//
// Completion services emit content token-by-token as successive deltas of the
// same logical field, so string fields concatenate onto whatever has already
// arrived. The nested function_call object is inserted whole the first time
// it appears and merged field-wise afterwards. No field is ever cleared by a
// merge. dst is mutated in place and returned; callers must pass the live
// in-progress message, never a copy they intend to keep unmodified.
func MergeDelta(dst *Message, d Delta) *Message {
	dst.Role = appendField(dst.Role, d.Role)
	dst.Content = appendField(dst.Content, d.Content)
	dst.Name = appendField(dst.Name, d.Name)

	if d.FunctionCall != nil {
		if dst.FunctionCall == nil {
			fc := Message{FunctionCall: d.FunctionCall}.Clone()
			dst.FunctionCall = fc.FunctionCall
		} else {
			mergeFunctionCall(dst.FunctionCall, d.FunctionCall)
		}
	}
	return dst
}

func mergeFunctionCall(dst, d *FunctionCall) {
	dst.Name = appendField(dst.Name, d.Name)
	dst.Arguments = appendField(dst.Arguments, d.Arguments)

	if d.ParsedArguments != nil {
		if dst.ParsedArguments == nil {
			dst.ParsedArguments = make(map[string]any, len(d.ParsedArguments))
		}
		for k, v := range d.ParsedArguments {
			dst.ParsedArguments[k] = v
		}
	}
}

func appendField(existing, delta string) string {
	if delta == "" {
		return existing
	}
	return existing + delta
}
