package tokens

import (
	"strings"
	"testing"

	"terp/message"
)

func TestTrimKeepsSystemMessageFirst(t *testing.T) {
	msgs := []message.Message{
		{Role: message.RoleUser, Content: "hi"},
		{Role: message.RoleAssistant, Content: "hello"},
	}

	got := Trim(msgs, "be helpful", "gpt-4", 0)
	if len(got) == 0 || got[0].Role != message.RoleSystem || got[0].Content != "be helpful" {
		t.Fatalf("system message not prepended: %+v", got)
	}
}

func TestTrimLargeBudgetKeepsEverything(t *testing.T) {
	msgs := []message.Message{
		{Role: message.RoleUser, Content: "one"},
		{Role: message.RoleAssistant, Content: "two"},
		{Role: message.RoleUser, Content: "three"},
	}

	got := Trim(msgs, "sys", "gpt-4o", 0)
	if len(got) != len(msgs)+1 {
		t.Fatalf("length: got %d, want %d", len(got), len(msgs)+1)
	}
	for i, msg := range msgs {
		if got[i+1].Content != msg.Content {
			t.Errorf("order broken at %d: got %q, want %q", i, got[i+1].Content, msg.Content)
		}
	}
}

func TestTrimTinyBudgetDropsOldestFirst(t *testing.T) {
	big := strings.Repeat("lorem ipsum dolor sit amet ", 40)
	msgs := []message.Message{
		{Role: message.RoleUser, Content: big},
		{Role: message.RoleAssistant, Content: big},
		{Role: message.RoleUser, Content: big},
	}

	got := Trim(msgs, "sys", "", 60)
	if got[0].Role != message.RoleSystem {
		t.Fatal("system message must survive any budget")
	}
	// Whatever survived must be a suffix of the input, in order.
	rest := got[1:]
	if len(rest) >= len(msgs) {
		t.Fatalf("nothing was trimmed under a 60-token budget: %d entries", len(rest))
	}
	offset := len(msgs) - len(rest)
	for i, msg := range rest {
		if msg.Content != msgs[offset+i].Content || msg.Role != msgs[offset+i].Role {
			t.Errorf("result is not an ordered suffix at %d", i)
		}
	}
}

func TestTrimCountsFunctionCallArguments(t *testing.T) {
	args := strings.Repeat(`{"code": "print(1)"}`, 50)
	msgs := []message.Message{
		{Role: message.RoleAssistant, FunctionCall: &message.FunctionCall{
			Name:      "run_code",
			Arguments: args,
		}},
	}

	got := Trim(msgs, "sys", "", 30)
	if len(got) != 1 {
		t.Errorf("oversized function call should be trimmed, got %d entries", len(got))
	}
}
