package display

import (
	"bytes"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/mattn/go-runewidth"

	"terp/message"
)

// CodeBlock displays the code the model is writing, syntax highlighted,
// with captured execution output underneath once it exists.
type CodeBlock struct {
	region *liveRegion
	width  int

	language string
	code     string
	output   string
}

// Language returns the language captured from the message so far.
func (b *CodeBlock) Language() string { return b.language }

// Code returns the code captured from the message so far.
func (b *CodeBlock) Code() string { return b.code }

// SetOutput attaches execution output to the panel and repaints.
func (b *CodeBlock) SetOutput(output string) {
	b.output = output
	if b.code != "" {
		b.refresh(false)
	}
}

// Update repaints the panel from the parsed function-call arguments.
func (b *CodeBlock) Update(msg message.Message) {
	fc := msg.FunctionCall
	if fc == nil || fc.ParsedArguments == nil {
		return
	}
	if language, ok := fc.ParsedArguments["language"].(string); ok {
		b.language = language
	}
	if code, ok := fc.ParsedArguments["code"].(string); ok {
		b.code = code
	}
	if b.code != "" && b.language != "" {
		b.refresh(true)
	}
}

// End paints the final frame without the cursor glyph and releases the
// live region.
func (b *CodeBlock) End() {
	if b.region.done {
		return
	}
	if b.code == "" {
		b.region.done = true
		return
	}
	b.region.end(b.frame(false))
}

func (b *CodeBlock) refresh(cursor bool) {
	b.region.update(b.frame(cursor))
}

func (b *CodeBlock) frame(cursor bool) string {
	code := strings.TrimSpace(b.code)
	if cursor {
		code += cursorGlyph
	}

	panel := codeStyle.Width(b.width - 2).Render(highlight(code, b.language, b.width-6))
	if b.output != "" && b.output != "None" {
		panel += "\n" + outputStyle.Width(b.width-2).Render(clipLines(b.output, b.width-6))
	}
	return panel
}

// highlight renders code through chroma; on any failure the plain source
// is shown instead.
func highlight(code, language string, width int) string {
	var buf bytes.Buffer
	if err := quick.Highlight(&buf, code, language, "terminal256", "monokai"); err != nil {
		return clipLines(code, width)
	}
	// Highlighted text carries ANSI escapes, which width-based clipping
	// would cut mid-sequence; chroma output is left unclipped.
	return strings.TrimRight(buf.String(), "\n")
}

// clipLines truncates long lines so the live region's cursor math stays
// aligned with what the terminal actually painted.
func clipLines(text string, width int) string {
	if width <= 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = runewidth.Truncate(line, width, "…")
	}
	return strings.Join(lines, "\n")
}
