package storage

import (
	"testing"

	"terp/message"
)

func newTestStorage(t *testing.T) *SessionStorage {
	t.Helper()
	s, err := NewSessionStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewSessionStorage: %v", err)
	}
	return s
}

func TestSessionRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	session := &Session{
		Name:  "hello world",
		Model: "gpt-4",
		Messages: []message.Message{
			{Role: message.RoleUser, Content: "What is 2+2?"},
			{
				Role: message.RoleAssistant,
				FunctionCall: &message.FunctionCall{
					Name:      message.RunCodeFunction,
					Arguments: `{"language": "python", "code": "print(2+2)"}`,
					ParsedArguments: map[string]any{
						"language": "python",
						"code":     "print(2+2)",
					},
				},
			},
			{Role: message.RoleFunction, Name: message.RunCodeFunction, Content: "4"},
		},
	}

	if err := s.Save(session); err != nil {
		t.Fatalf("save: %v", err)
	}
	if session.ID == "" {
		t.Fatal("save did not assign an ID")
	}

	loaded, err := s.Load(session.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(loaded.Messages))
	}
	fc := loaded.Messages[1].FunctionCall
	if fc == nil || fc.Name != message.RunCodeFunction {
		t.Fatalf("function call not preserved: %+v", loaded.Messages[1])
	}
	if fc.ParsedArguments["code"] != "print(2+2)" {
		t.Errorf("parsed arguments not preserved: %v", fc.ParsedArguments)
	}
	if loaded.Messages[2].Content != "4" {
		t.Errorf("function result not preserved: %q", loaded.Messages[2].Content)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := newTestStorage(t)

	older := &Session{Name: "older"}
	if err := s.Save(older); err != nil {
		t.Fatal(err)
	}
	newer := &Session{Name: "newer"}
	if err := s.Save(newer); err != nil {
		t.Fatal(err)
	}

	metas, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("got %d sessions, want 2", len(metas))
	}
	if metas[0].Name != "newer" {
		t.Errorf("newest session should come first, got %q", metas[0].Name)
	}
}

func TestFindByName(t *testing.T) {
	s := newTestStorage(t)

	for _, name := range []string{"fibonacci generator", "weather fetcher", "csv cleanup"} {
		if err := s.Save(&Session{Name: name}); err != nil {
			t.Fatal(err)
		}
	}

	matches, err := s.FindByName("fib")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(matches) == 0 || matches[0].Name != "fibonacci generator" {
		t.Errorf("fuzzy match failed: %+v", matches)
	}

	all, err := s.FindByName("")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("empty query should return all sessions, got %d", len(all))
	}
}

func TestDelete(t *testing.T) {
	s := newTestStorage(t)

	session := &Session{Name: "doomed"}
	if err := s.Save(session); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(session.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Load(session.ID); err == nil {
		t.Error("load after delete should fail")
	}
}

func TestSearchIndex(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSessionStorage(dir)
	if err != nil {
		t.Fatal(err)
	}
	si, err := NewSearchIndex(dir, s)
	if err != nil {
		t.Fatalf("NewSearchIndex: %v", err)
	}
	defer si.Close()

	session := &Session{
		Name: "plotting",
		Messages: []message.Message{
			{Role: message.RoleSystem, Content: "You are a helpful assistant."},
			{Role: message.RoleUser, Content: "Plot a sine wave with matplotlib"},
			{Role: message.RoleAssistant, Content: "Sure, here is the plan."},
		},
	}
	if err := s.Save(session); err != nil {
		t.Fatal(err)
	}
	if err := si.IndexSession(session); err != nil {
		t.Fatalf("index: %v", err)
	}

	t.Run("content match", func(t *testing.T) {
		matches, err := si.Search("matplotlib")
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(matches) != 1 {
			t.Fatalf("got %d matches, want 1", len(matches))
		}
		if matches[0].SessionID != session.ID || matches[0].MessageIndex != 1 {
			t.Errorf("wrong match: %+v", matches[0])
		}
	})

	t.Run("system messages not indexed", func(t *testing.T) {
		matches, err := si.Search("helpful assistant")
		if err != nil {
			t.Fatal(err)
		}
		if len(matches) != 0 {
			t.Errorf("system message should not be searchable: %+v", matches)
		}
	})

	t.Run("empty query", func(t *testing.T) {
		matches, err := si.Search("")
		if err != nil {
			t.Fatal(err)
		}
		if len(matches) != 0 {
			t.Errorf("empty query should match nothing, got %d", len(matches))
		}
	})

	t.Run("remove session", func(t *testing.T) {
		if err := si.RemoveSession(session.ID); err != nil {
			t.Fatal(err)
		}
		matches, err := si.Search("matplotlib")
		if err != nil {
			t.Fatal(err)
		}
		if len(matches) != 0 {
			t.Errorf("removed session still searchable: %+v", matches)
		}
	})

	t.Run("rebuild", func(t *testing.T) {
		if err := si.Rebuild(); err != nil {
			t.Fatalf("rebuild: %v", err)
		}
		matches, err := si.Search("sine wave")
		if err != nil {
			t.Fatal(err)
		}
		if len(matches) != 1 {
			t.Errorf("rebuild did not restore the index: %d matches", len(matches))
		}
	})
}
