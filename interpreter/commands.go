package interpreter

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"terp/config"
	"terp/message"
)

const helpText = `Commands:
  %help                    Show this message
  %debug [true|false]      Toggle debug logging
  %reset                   Clear the conversation and all execution state
  %undo                    Remove the last exchange
  %save_message [path]     Save the transcript as JSON (default messages.json)
  %load_message [path]     Load a transcript saved with %save_message
  %sessions [query]        List saved sessions, optionally fuzzy-filtered
  %search <query>          Search message content across saved sessions`

// handleCommand runs one %-prefixed command line.
func (i *Interpreter) handleCommand(line string) {
	parts := strings.Fields(line)
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "%help":
		fmt.Fprintf(i.out, "%s\n", helpText)

	case "%debug":
		enable := true
		if len(args) > 0 {
			enable = args[0] == "true" || args[0] == "1"
		}
		config.Debug = enable
		fmt.Fprintf(i.out, "Debug mode: %v\n", enable)

	case "%reset":
		i.Reset()
		fmt.Fprintln(i.out, "Conversation reset.")

	case "%undo":
		i.Undo()
		fmt.Fprintln(i.out, "Last exchange removed.")

	case "%save_message":
		path := "messages.json"
		if len(args) > 0 {
			path = args[0]
		}
		if err := i.saveTranscript(path); err != nil {
			fmt.Fprintf(i.out, "Error: %v\n", err)
			return
		}
		fmt.Fprintf(i.out, "Saved transcript to %s\n", path)

	case "%load_message":
		path := "messages.json"
		if len(args) > 0 {
			path = args[0]
		}
		if err := i.loadTranscript(path); err != nil {
			fmt.Fprintf(i.out, "Error: %v\n", err)
			return
		}
		fmt.Fprintf(i.out, "Loaded transcript from %s (%d messages)\n", path, len(i.messages))

	case "%sessions":
		i.listSessions(strings.Join(args, " "))

	case "%search":
		i.searchSessions(strings.Join(args, " "))

	default:
		fmt.Fprintf(i.out, "Unknown command %s; try %%help\n", cmd)
	}
}

func (i *Interpreter) saveTranscript(path string) error {
	data, err := json.MarshalIndent(i.messages, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}

func (i *Interpreter) loadTranscript(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read transcript: %w", err)
	}
	var msgs []message.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return fmt.Errorf("failed to parse transcript: %w", err)
	}
	i.LoadMessages(msgs)
	return nil
}

func (i *Interpreter) listSessions(query string) {
	if i.store == nil {
		fmt.Fprintln(i.out, "Session storage is not enabled.")
		return
	}
	metas, err := i.store.FindByName(query)
	if err != nil {
		fmt.Fprintf(i.out, "Error: %v\n", err)
		return
	}
	if len(metas) == 0 {
		fmt.Fprintln(i.out, "No saved sessions.")
		return
	}
	for _, m := range metas {
		fmt.Fprintf(i.out, "%s  %-40s  %d messages  (%s)\n",
			m.UpdatedAt.Format("2006-01-02 15:04"), m.Name, m.MessageCount, m.Model)
	}
}

func (i *Interpreter) searchSessions(query string) {
	if i.index == nil {
		fmt.Fprintln(i.out, "Search is not enabled.")
		return
	}
	if query == "" {
		fmt.Fprintf(i.out, "%s\n", "Usage: %search <query>")
		return
	}
	matches, err := i.index.Search(query)
	if err != nil {
		fmt.Fprintf(i.out, "Error: %v\n", err)
		return
	}
	if len(matches) == 0 {
		fmt.Fprintln(i.out, "No matches.")
		return
	}
	for _, m := range matches {
		fmt.Fprintf(i.out, "[%s] %s: %s\n", m.SessionName, m.Role, m.Preview)
	}
}
