package message

import "strings"

const fenceMarker = "```"

// Fence describes the state of the trailing markdown code fence in a growing
// block of raw model output. It substitutes for the structured function-call
// channel on backends that can only emit text.
type Fence struct {
	// InCodeBlock reports whether the accumulated text currently has an
	// open, unterminated code fence (odd number of fence markers).
	InCodeBlock bool
	// Language is the declared language of the open block, normalized.
	// Empty until the model has emitted the language line.
	Language string
	// Code is the body of the open block so far.
	Code string
}

// ExtractFence inspects accumulated raw text for an open code fence and
// extracts the declared language and code body.
//
// An empty language line defaults to python, except that a following line
// starting with a package-install prefix reclassifies the block as shell.
// A bare opening fence with nothing after it reports no language yet; the
// caller must not start an execution backend until the language is known.
func ExtractFence(text string) Fence {
	f := Fence{
		InCodeBlock: strings.Count(text, fenceMarker)%2 == 1,
	}
	if !f.InCodeBlock {
		return f
	}

	blocks := strings.Split(text, fenceMarker)
	current := blocks[len(blocks)-1]
	lines := strings.Split(current, "\n")

	if strings.TrimSpace(text) != fenceMarker {
		if lines[0] != "" {
			f.Language = strings.TrimSpace(lines[0])
		} else {
			f.Language = "python"
			// Models that skip the language line usually open with an
			// install command, which only makes sense in a shell.
			if len(lines) > 1 && strings.HasPrefix(lines[1], "pip") {
				f.Language = "shell"
			}
		}
		if f.Language == "bash" {
			f.Language = "shell"
		}
	}

	if len(lines) > 1 {
		f.Code = strings.Trim(strings.Join(lines[1:], "\n"), "` \n")
	}
	return f
}
