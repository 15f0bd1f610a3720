package display

import (
	"fmt"
	"io"
	"strings"
)

// cursorGlyph marks the typing position while a block is still streaming.
const cursorGlyph = "█"

// liveRegion repaints a group of lines in place: each frame moves the
// cursor back to the top of the previous frame, clears to the end of the
// screen, and writes the new frame.
type liveRegion struct {
	out   io.Writer
	lines int
	done  bool
}

func newLiveRegion(out io.Writer) *liveRegion {
	return &liveRegion{out: out}
}

func (l *liveRegion) update(frame string) {
	if l.done {
		return
	}
	if l.lines > 0 {
		fmt.Fprintf(l.out, "\x1b[%dA\x1b[0J", l.lines)
	}
	io.WriteString(l.out, frame)
	if !strings.HasSuffix(frame, "\n") {
		io.WriteString(l.out, "\n")
	}
	l.lines = strings.Count(frame, "\n")
	if !strings.HasSuffix(frame, "\n") {
		l.lines++
	}
}

// end paints the final frame and releases the region.
func (l *liveRegion) end(frame string) {
	l.update(frame)
	l.done = true
}
