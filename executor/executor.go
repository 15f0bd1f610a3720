// Package executor runs model-written code and captures its output.
//
// One executor instance is created per language and retained for the whole
// conversation, so an implementation is free to keep state (working
// directory, interpreter session) across runs. Execution failure is not a
// distinct channel: whatever the process printed, plus the error text, is
// the output the model sees.
package executor

import (
	"context"
	"fmt"
	"sort"
)

// Executor runs code in one language and returns its combined output.
type Executor interface {
	Run(ctx context.Context, code string) (string, error)
	Close() error
}

// Request pairs a language with the code to run.
type Request struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// languages maps the supported-language enum to how each one runs.
var languages = map[string]languageSpec{
	"python":      {command: "python3", args: []string{"-c"}},
	"R":           {command: "Rscript", args: []string{"-e"}},
	"shell":       {command: "bash", args: []string{"-c"}},
	"javascript":  {command: "node", args: []string{"-e"}},
	"applescript": {command: "osascript", args: []string{"-e"}},
	"html":        {},
}

type languageSpec struct {
	command string
	args    []string
}

// Supported returns the language enum, sorted, for the run_code schema.
func Supported() []string {
	names := make([]string, 0, len(languages))
	for name := range languages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates the executor for a language. Unknown languages are an error;
// the interpreter reports them back to the model rather than guessing.
func New(language string) (Executor, error) {
	spec, ok := languages[language]
	if !ok {
		return nil, fmt.Errorf("unsupported language: %q", language)
	}
	if language == "html" {
		return &htmlExecutor{}, nil
	}
	return &subprocessExecutor{language: language, spec: spec}, nil
}
