// Package interpreter drives the conversation loop: it streams completions,
// reconstructs them fragment by fragment, detects when the model starts
// writing code, and runs the confirm/execute/append-result cycle until the
// model produces a final answer.
package interpreter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"terp/config"
	"terp/display"
	"terp/executor"
	"terp/message"
	"terp/provider"
	"terp/storage"
)

// ConfirmFunc asks the user whether detected code may run.
type ConfirmFunc func(language, code string) bool

// Options configures an Interpreter.
type Options struct {
	Provider provider.Provider
	Display  display.Factory

	// Confirm gates execution; ignored when AutoRun is set.
	Confirm ConfirmFunc
	AutoRun bool

	Temperature   float64
	MaxTokens     int // response cap, local models only
	ContextWindow int // transcript trim budget; 0 uses the model's default
	SystemMessage string

	// MaxTurns bounds the function-call turn chain within one Respond;
	// 0 means unbounded.
	MaxTurns int

	// NewExecutor overrides execution-backend construction, for tests.
	NewExecutor func(language string) (executor.Executor, error)

	// Optional persistence; nil disables session saving and search.
	Store *storage.SessionStorage
	Index *storage.SearchIndex

	Input  io.Reader
	Output io.Writer
}

// Interpreter owns one conversation: the transcript, the per-language
// execution backends, and the streaming loop that grows both.
type Interpreter struct {
	provider   provider.Provider
	display    display.Factory
	detector   Detector
	confirm    ConfirmFunc
	autoRun    bool
	systemBase string

	temperature   float64
	maxTokens     int
	contextWindow int
	maxTurns      int
	retryDelay    time.Duration

	messages []message.Message

	// One backend per language for the life of the conversation, so state
	// like a working directory survives across code entries.
	executors   map[string]executor.Executor
	newExecutor func(language string) (executor.Executor, error)

	store   *storage.SessionStorage
	index   *storage.SearchIndex
	session *storage.Session

	in  io.Reader
	out io.Writer
}

func New(opts Options) *Interpreter {
	i := &Interpreter{
		provider:      opts.Provider,
		display:       opts.Display,
		confirm:       opts.Confirm,
		autoRun:       opts.AutoRun,
		systemBase:    opts.SystemMessage,
		temperature:   opts.Temperature,
		maxTokens:     opts.MaxTokens,
		contextWindow: opts.ContextWindow,
		maxTurns:      opts.MaxTurns,
		retryDelay:    retryDelay,
		executors:     make(map[string]executor.Executor),
		newExecutor:   opts.NewExecutor,
		store:         opts.Store,
		index:         opts.Index,
		in:            opts.Input,
		out:           opts.Output,
	}
	if i.display == nil {
		i.display = display.NewConsole(os.Stdout, 0)
	}
	if i.newExecutor == nil {
		i.newExecutor = executor.New
	}
	if i.in == nil {
		i.in = os.Stdin
	}
	if i.out == nil {
		i.out = os.Stdout
	}
	if i.provider.SupportsFunctions() {
		i.detector = StructuredCallDetector{}
	} else {
		i.detector = FenceDetector{}
	}
	if i.confirm == nil {
		i.confirm = ConsoleConfirm(i.in, i.out)
	}
	return i
}

// Messages returns the transcript accumulated so far.
func (i *Interpreter) Messages() []message.Message {
	return i.messages
}

// AppendUserMessage adds a user entry to the transcript.
func (i *Interpreter) AppendUserMessage(content string) {
	i.messages = append(i.messages, message.Message{
		Role:    message.RoleUser,
		Content: content,
	})
}

// LoadMessages replaces the transcript, deep-copying so later streaming
// cannot mutate the caller's slice.
func (i *Interpreter) LoadMessages(msgs []message.Message) {
	i.messages = message.CloneAll(msgs)
}

// Reset clears the transcript and tears down every execution backend.
func (i *Interpreter) Reset() {
	i.messages = nil
	for _, exec := range i.executors {
		exec.Close()
	}
	i.executors = make(map[string]executor.Executor)
	i.session = nil
}

// Undo removes the last user message and everything the model produced
// after it.
func (i *Interpreter) Undo() {
	for n := len(i.messages); n > 0; n-- {
		removed := i.messages[n-1]
		i.messages = i.messages[:n-1]
		if removed.Role == message.RoleUser {
			return
		}
	}
}

// Close releases execution backends and the search index.
func (i *Interpreter) Close() error {
	for _, exec := range i.executors {
		exec.Close()
	}
	i.executors = make(map[string]executor.Executor)
	if i.index != nil {
		return i.index.Close()
	}
	return nil
}

// Chat runs the interactive loop: read a line, respond, repeat. Lines
// starting with % are commands. EOF ends the session.
func (i *Interpreter) Chat(ctx context.Context) error {
	reader := bufio.NewReader(i.in)
	for {
		fmt.Fprint(i.out, "\n> ")
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			fmt.Fprintln(i.out)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "%") || strings.HasPrefix(line, "/") {
			i.handleCommand("%" + line[1:])
			continue
		}

		i.AppendUserMessage(line)
		if err := i.Respond(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(i.out, "Error: %v\n", err)
		}
		i.persist()
	}
}

func (i *Interpreter) executorFor(language string) (executor.Executor, error) {
	if exec, ok := i.executors[language]; ok {
		return exec, nil
	}
	exec, err := i.newExecutor(language)
	if err != nil {
		return nil, err
	}
	i.executors[language] = exec
	return exec, nil
}

// persist saves the conversation after each completed exchange.
func (i *Interpreter) persist() {
	if i.store == nil || len(i.messages) == 0 {
		return
	}
	if i.session == nil {
		i.session = &storage.Session{
			Name:         sessionName(i.messages),
			Model:        i.provider.Model(),
			SystemPrompt: i.systemBase,
		}
	}
	i.session.Messages = i.messages
	i.session.Model = i.provider.Model()
	if err := i.store.Save(i.session); err != nil {
		config.Debugf("session save failed: %v", err)
		return
	}
	if i.index != nil {
		if err := i.index.IndexSession(i.session); err != nil {
			config.Debugf("session index failed: %v", err)
		}
	}
}

// sessionName derives a name from the first user message.
func sessionName(msgs []message.Message) string {
	for _, m := range msgs {
		if m.Role == message.RoleUser && m.Content != "" {
			name := m.Content
			if len(name) > 60 {
				name = name[:60]
			}
			return name
		}
	}
	return "untitled"
}

// ConsoleConfirm prompts on the terminal for a yes/no answer.
func ConsoleConfirm(in io.Reader, out io.Writer) ConfirmFunc {
	reader := bufio.NewReader(in)
	return func(language, code string) bool {
		fmt.Fprintf(out, "\nWould you like to run this code? (y/n)\n\n")
		answer, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes"
	}
}
