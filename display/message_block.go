package display

import "terp/message"

// MessageBlock displays conversational prose as live-rendered markdown.
type MessageBlock struct {
	region  *liveRegion
	width   int
	content string
}

// Update repaints the panel from the accumulated message content.
func (b *MessageBlock) Update(msg message.Message) {
	b.content = msg.Content
	if b.content == "" {
		return
	}
	b.refresh(true)
}

// End paints the final frame without the cursor glyph and releases the
// live region.
func (b *MessageBlock) End() {
	if b.region.done {
		return
	}
	if b.content == "" {
		b.region.done = true
		return
	}
	b.region.end(b.frame(false))
}

func (b *MessageBlock) refresh(cursor bool) {
	b.region.update(b.frame(cursor))
}

func (b *MessageBlock) frame(cursor bool) string {
	content := textifyCodeBlocks(b.content)
	if cursor {
		content += cursorGlyph
	}
	rendered := renderMarkdown(content, b.width-4)
	return messageStyle.Render(rendered)
}
