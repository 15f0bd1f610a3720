package interpreter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"terp/display"
	"terp/executor"
	"terp/message"
	"terp/provider"
	"terp/provider/testutil"
)

type fakeExecutor struct {
	output string
	runs   []string
}

func (f *fakeExecutor) Run(_ context.Context, code string) (string, error) {
	f.runs = append(f.runs, code)
	return f.output, nil
}

func (f *fakeExecutor) Close() error { return nil }

type nopBlock struct{}

func (nopBlock) Update(message.Message) {}
func (nopBlock) End()                   {}

type nopDisplay struct{}

func (nopDisplay) Message() display.Block { return nopBlock{} }
func (nopDisplay) Code() display.Block    { return nopBlock{} }
func (nopDisplay) Separator()             {}

// scripted builds an interpreter whose provider replays one stream per turn.
func scripted(t *testing.T, functions bool, exec *fakeExecutor, streams ...provider.Stream) (*Interpreter, *testutil.MockProvider) {
	t.Helper()
	turn := 0
	mock := &testutil.MockProvider{
		Functions: functions,
		StreamFunc: func(ctx context.Context, req provider.Request) (provider.Stream, error) {
			if turn >= len(streams) {
				t.Fatalf("unexpected turn %d: only %d streams scripted", turn+1, len(streams))
			}
			s := streams[turn]
			turn++
			return s, nil
		},
	}
	i := New(Options{
		Provider: mock,
		Display:  nopDisplay{},
		AutoRun:  true,
		NewExecutor: func(language string) (executor.Executor, error) {
			return exec, nil
		},
	})
	i.retryDelay = 0
	return i, mock
}

func functionEntries(msgs []message.Message) []message.Message {
	var out []message.Message
	for _, m := range msgs {
		if m.Role == message.RoleFunction {
			out = append(out, m)
		}
	}
	return out
}

func TestRespondExecutesFunctionCall(t *testing.T) {
	exec := &fakeExecutor{output: "4"}
	i, mock := scripted(t, true, exec,
		testutil.FunctionCallStream(`{"language": "python", `, `"code": "print(2+2)"}`),
		testutil.TextStream("The answer is 4."),
	)

	i.AppendUserMessage("What is 2+2?")
	if err := i.Respond(context.Background()); err != nil {
		t.Fatalf("respond: %v", err)
	}

	if len(exec.runs) != 1 || exec.runs[0] != "print(2+2)" {
		t.Errorf("executor runs = %v, want [print(2+2)]", exec.runs)
	}

	fns := functionEntries(i.Messages())
	if len(fns) != 1 {
		t.Fatalf("got %d function entries, want 1", len(fns))
	}
	if fns[0].Name != message.RunCodeFunction || fns[0].Content != "4" {
		t.Errorf("function entry = %+v, want name=run_code content=4", fns[0])
	}

	last := i.Messages()[len(i.Messages())-1]
	if last.Role != message.RoleAssistant || last.Content != "The answer is 4." {
		t.Errorf("final entry = %+v", last)
	}

	if len(mock.Requests) != 2 {
		t.Fatalf("got %d requests, want 2", len(mock.Requests))
	}
	if len(mock.Requests[0].Functions) != 1 || mock.Requests[0].Functions[0].Name != message.RunCodeFunction {
		t.Errorf("run_code schema not offered: %+v", mock.Requests[0].Functions)
	}
	if first := mock.Requests[0].Messages[0]; first.Role != message.RoleSystem {
		t.Errorf("system message not prepended: %+v", first)
	}
}

func TestRespondEmptyOutputBecomesNoOutput(t *testing.T) {
	exec := &fakeExecutor{output: ""}
	i, _ := scripted(t, true, exec,
		testutil.FunctionCallStream(`{"language": "python", "code": "x = 1"}`),
		testutil.TextStream("Assigned."),
	)

	i.AppendUserMessage("Set x to 1")
	if err := i.Respond(context.Background()); err != nil {
		t.Fatalf("respond: %v", err)
	}

	fns := functionEntries(i.Messages())
	if len(fns) != 1 {
		t.Fatalf("got %d function entries, want 1", len(fns))
	}
	if fns[0].Content != "No output" {
		t.Errorf("empty output stored as %q, want \"No output\"", fns[0].Content)
	}
}

func TestRespondDecline(t *testing.T) {
	exec := &fakeExecutor{output: "4"}
	mock := &testutil.MockProvider{
		Functions: true,
		StreamFunc: func(ctx context.Context, req provider.Request) (provider.Stream, error) {
			return testutil.FunctionCallStream(`{"language": "python", "code": "print(2+2)"}`), nil
		},
	}
	i := New(Options{
		Provider: mock,
		Display:  nopDisplay{},
		Confirm:  func(language, code string) bool { return false },
		NewExecutor: func(language string) (executor.Executor, error) {
			return exec, nil
		},
	})
	i.retryDelay = 0

	i.AppendUserMessage("What is 2+2?")
	if err := i.Respond(context.Background()); err != nil {
		t.Fatalf("respond: %v", err)
	}

	if len(exec.runs) != 0 {
		t.Errorf("declined code was executed: %v", exec.runs)
	}
	fns := functionEntries(i.Messages())
	if len(fns) != 1 {
		t.Fatalf("got %d function entries, want exactly 1", len(fns))
	}
	if !strings.Contains(fns[0].Content, "not to run") {
		t.Errorf("decline entry = %q", fns[0].Content)
	}
	if len(mock.Requests) != 1 {
		t.Errorf("decline must end the turn, got %d requests", len(mock.Requests))
	}
}

func TestRespondMalformedCallCorrectionLoop(t *testing.T) {
	exec := &fakeExecutor{}
	i, _ := scripted(t, true, exec,
		testutil.FunctionCallStream(`{"language": [1, 2}`),
		testutil.TextStream("Let me try again."),
	)

	i.AppendUserMessage("Run something")
	if err := i.Respond(context.Background()); err != nil {
		t.Fatalf("respond: %v", err)
	}

	if len(exec.runs) != 0 {
		t.Errorf("malformed call must not execute: %v", exec.runs)
	}
	fns := functionEntries(i.Messages())
	if len(fns) != 1 {
		t.Fatalf("got %d function entries, want 1", len(fns))
	}
	if !strings.Contains(fns[0].Content, "could not be parsed") {
		t.Errorf("correction entry = %q", fns[0].Content)
	}
}

func TestRespondFenceMode(t *testing.T) {
	exec := &fakeExecutor{output: "hi"}
	i, mock := scripted(t, false, exec,
		testutil.TextStream("Here you go:\n```python\n", "print('hi')\n", "```\n"),
		testutil.TextStream("All done.###"),
	)

	i.AppendUserMessage("Say hi from python")
	if err := i.Respond(context.Background()); err != nil {
		t.Fatalf("respond: %v", err)
	}

	if len(exec.runs) != 1 || exec.runs[0] != "print('hi')" {
		t.Errorf("executor runs = %v, want [print('hi')]", exec.runs)
	}
	fns := functionEntries(i.Messages())
	if len(fns) != 1 || fns[0].Content != "hi" {
		t.Fatalf("function entries = %+v", fns)
	}

	last := i.Messages()[len(i.Messages())-1]
	if last.Content != "All done." {
		t.Errorf("trailing markers not stripped: %q", last.Content)
	}

	// Raw-text backends must not be offered the structured capability.
	if len(mock.Requests[0].Functions) != 0 {
		t.Errorf("fence-mode request carries functions: %+v", mock.Requests[0].Functions)
	}
}

func TestExecutorReusedPerLanguage(t *testing.T) {
	created := 0
	mock := &testutil.MockProvider{Functions: true}
	streams := []provider.Stream{
		testutil.FunctionCallStream(`{"language": "python", "code": "a = 1"}`),
		testutil.FunctionCallStream(`{"language": "python", "code": "print(a)"}`),
		testutil.TextStream("Done."),
	}
	turn := 0
	mock.StreamFunc = func(ctx context.Context, req provider.Request) (provider.Stream, error) {
		s := streams[turn]
		turn++
		return s, nil
	}
	i := New(Options{
		Provider: mock,
		Display:  nopDisplay{},
		AutoRun:  true,
		NewExecutor: func(language string) (executor.Executor, error) {
			created++
			return &fakeExecutor{output: "1"}, nil
		},
	})
	i.retryDelay = 0

	i.AppendUserMessage("Count")
	if err := i.Respond(context.Background()); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if created != 1 {
		t.Errorf("backend created %d times, want 1 per language", created)
	}
}

func TestRespondRetriesTransportFailures(t *testing.T) {
	attempts := 0
	mock := &testutil.MockProvider{
		Functions: true,
		StreamFunc: func(ctx context.Context, req provider.Request) (provider.Stream, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("connection reset")
			}
			return testutil.TextStream("Recovered."), nil
		},
	}
	i := New(Options{Provider: mock, Display: nopDisplay{}, AutoRun: true})
	i.retryDelay = 0

	i.AppendUserMessage("hello")
	if err := i.Respond(context.Background()); err != nil {
		t.Fatalf("respond should recover within 3 attempts: %v", err)
	}
	if attempts != 3 {
		t.Errorf("got %d attempts, want 3", attempts)
	}
}

func TestRespondRetryExhaustion(t *testing.T) {
	attempts := 0
	mock := &testutil.MockProvider{
		Functions: true,
		StreamFunc: func(ctx context.Context, req provider.Request) (provider.Stream, error) {
			attempts++
			return nil, errors.New("connection reset")
		},
	}
	i := New(Options{Provider: mock, Display: nopDisplay{}, AutoRun: true})
	i.retryDelay = 0

	i.AppendUserMessage("hello")
	err := i.Respond(context.Background())
	if err == nil {
		t.Fatal("exhausted retries must fail the turn")
	}
	if attempts != 3 {
		t.Errorf("got %d attempts, want 3", attempts)
	}
	if !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("cause not propagated: %v", err)
	}
}

func TestRespondTurnLimit(t *testing.T) {
	exec := &fakeExecutor{output: "ok"}
	mock := &testutil.MockProvider{
		Functions: true,
		StreamFunc: func(ctx context.Context, req provider.Request) (provider.Stream, error) {
			return testutil.FunctionCallStream(`{"language": "python", "code": "loop()"}`), nil
		},
	}
	i := New(Options{
		Provider: mock,
		Display:  nopDisplay{},
		AutoRun:  true,
		MaxTurns: 2,
		NewExecutor: func(language string) (executor.Executor, error) {
			return exec, nil
		},
	})
	i.retryDelay = 0

	i.AppendUserMessage("loop forever")
	err := i.Respond(context.Background())
	if err == nil || !strings.Contains(err.Error(), "turn limit") {
		t.Fatalf("endless function-call chain must hit the bound, got %v", err)
	}
	if len(exec.runs) != 2 {
		t.Errorf("got %d executions before the bound, want 2", len(exec.runs))
	}
}

func TestTrimBudgetReservesResponse(t *testing.T) {
	mock := &testutil.MockProvider{}

	i := New(Options{Provider: mock, Display: nopDisplay{}, ContextWindow: 2000, MaxTokens: 750})
	if got := i.trimBudget(); got != 2000-750-responseReserve {
		t.Errorf("trimBudget() = %d, want %d", got, 2000-750-responseReserve)
	}

	i = New(Options{Provider: mock, Display: nopDisplay{}})
	if got := i.trimBudget(); got != 0 {
		t.Errorf("without a window trimBudget() = %d, want 0", got)
	}

	i = New(Options{Provider: mock, Display: nopDisplay{}, ContextWindow: 100, MaxTokens: 200})
	if got := i.trimBudget(); got < 1 {
		t.Errorf("misconfigured window must clamp positive, got %d", got)
	}
}

func TestUndoRemovesLastExchange(t *testing.T) {
	i := New(Options{Provider: &testutil.MockProvider{}, Display: nopDisplay{}})
	i.messages = []message.Message{
		{Role: message.RoleUser, Content: "first"},
		{Role: message.RoleAssistant, Content: "reply"},
		{Role: message.RoleUser, Content: "second"},
		{Role: message.RoleAssistant, Content: "reply 2"},
		{Role: message.RoleFunction, Name: message.RunCodeFunction, Content: "out"},
	}

	i.Undo()
	msgs := i.Messages()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[1].Content != "reply" {
		t.Errorf("wrong tail after undo: %+v", msgs)
	}
}

func TestResetClearsBackends(t *testing.T) {
	exec := &fakeExecutor{output: "ok"}
	i, _ := scripted(t, true, exec,
		testutil.FunctionCallStream(`{"language": "shell", "code": "ls"}`),
		testutil.TextStream("Listed."),
	)

	i.AppendUserMessage("list files")
	if err := i.Respond(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(i.executors) != 1 {
		t.Fatalf("expected one cached backend, got %d", len(i.executors))
	}

	i.Reset()
	if len(i.Messages()) != 0 || len(i.executors) != 0 {
		t.Error("reset must clear transcript and backends")
	}
}
