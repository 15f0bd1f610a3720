package display

import (
	"regexp"
	"strings"

	markdown "github.com/MichaelMure/go-term-markdown"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"
)

var openingFenceRe = regexp.MustCompile("^```(\\w*)$")

// renderMarkdown renders markdown content for the terminal at the given
// width. Autolink stays disabled so terminal emulators keep handling URL
// detection themselves.
func renderMarkdown(content string, width int) string {
	customExt := markdown.Extensions() &^ parser.Autolink
	p := parser.NewWithExtensions(customExt)
	r := markdown.NewRenderer(width, 0)
	doc := p.Parse([]byte(content))
	return strings.TrimRight(string(gomarkdown.Render(doc, r)), "\n")
}

// textifyCodeBlocks rewrites markdown fence language tags to "text".
// Code the model intends to run gets its own CodeBlock surface; fences
// inside prose are just quoted text and must not render as if they were
// about to execute.
func textifyCodeBlocks(text string) string {
	lines := strings.Split(text, "\n")
	insideCodeBlock := false

	for i, line := range lines {
		if openingFenceRe.MatchString(strings.TrimSpace(line)) {
			insideCodeBlock = !insideCodeBlock
			if insideCodeBlock {
				lines[i] = "```text"
			}
		}
	}
	return strings.Join(lines, "\n")
}
