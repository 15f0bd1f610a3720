// Package display renders the in-progress conversation to the terminal.
//
// A Block is a live display surface: it is opened, updated once per stream
// fragment with the message being accumulated, and finalized exactly once.
// MessageBlock renders prose as markdown; CodeBlock renders the code the
// model is writing, syntax highlighted, with its output underneath. Both
// repaint an in-place live region, so End must run on every exit path to
// leave the terminal in a sane state.
package display

import (
	"io"
	"os"

	"terp/message"
)

// Block is one live display surface.
type Block interface {
	// Update repaints the surface from the in-progress message.
	Update(msg message.Message)
	// End finalizes the surface (drops the cursor glyph, releases the
	// live region). Safe to call more than once.
	End()
}

// Factory opens display surfaces. The interpreter swaps between prose and
// code surfaces as the stream changes mode.
type Factory interface {
	Message() Block
	Code() Block
	// Separator prints a cosmetic break between blocks.
	Separator()
}

// Console is the default Factory, writing styled live panels to a terminal.
type Console struct {
	out   io.Writer
	width int
}

// NewConsole creates a console display with the given render width.
// Width 0 defaults to 80 columns.
func NewConsole(out io.Writer, width int) *Console {
	if out == nil {
		out = os.Stdout
	}
	if width <= 0 {
		width = 80
	}
	return &Console{out: out, width: width}
}

func (c *Console) Message() Block {
	return &MessageBlock{region: newLiveRegion(c.out), width: c.width}
}

func (c *Console) Code() Block {
	return &CodeBlock{region: newLiveRegion(c.out), width: c.width}
}

func (c *Console) Separator() {
	io.WriteString(c.out, "\n")
}
