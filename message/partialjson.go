package message

import (
	"encoding/json"
	"strings"
)

// ParsePartial attempts to parse a truncated JSON object, repairing the most
// common streaming artifacts: unterminated strings, raw newlines inside
// strings, and missing closing brackets.
//
// The repair is deliberately best-effort rather than fully lenient: a
// mismatched closing bracket means the input is irrecoverably malformed, and
// ParsePartial reports failure instead of guessing. Callers keep their
// previous good value when ok is false.
func ParsePartial(partial string) (map[string]any, bool) {
	if args, ok := parseObject(partial); ok {
		return args, true
	}

	var repaired strings.Builder
	var stack []byte
	insideString := false
	escaped := false

	for _, r := range partial {
		ch := string(r)
		if insideString {
			switch {
			case r == '"' && !escaped:
				insideString = false
			case r == '\n' && !escaped:
				ch = `\n`
			case r == '\\':
				escaped = !escaped
			default:
				escaped = false
			}
		} else {
			switch r {
			case '"':
				insideString = true
				escaped = false
			case '{':
				stack = append(stack, '}')
			case '[':
				stack = append(stack, ']')
			case '}', ']':
				if len(stack) == 0 || stack[len(stack)-1] != byte(r) {
					// Mismatched closer: the input is malformed, not truncated.
					return nil, false
				}
				stack = stack[:len(stack)-1]
			}
		}
		repaired.WriteString(ch)
	}

	if insideString {
		repaired.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		repaired.WriteByte(stack[i])
	}

	return parseObject(repaired.String())
}

func parseObject(s string) (map[string]any, bool) {
	var args map[string]any
	if err := json.Unmarshal([]byte(s), &args); err != nil {
		return nil, false
	}
	return args, true
}
