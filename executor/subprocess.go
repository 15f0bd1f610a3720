package executor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// subprocessExecutor shells out to the language's interpreter and captures
// combined stdout/stderr. The working directory persists across runs.
type subprocessExecutor struct {
	language string
	spec     languageSpec
	workDir  string
}

func (e *subprocessExecutor) Run(ctx context.Context, code string) (string, error) {
	args := append(append([]string{}, e.spec.args...), code)
	cmd := exec.CommandContext(ctx, e.spec.command, args...)
	if e.workDir != "" {
		cmd.Dir = e.workDir
	}

	out, err := cmd.CombinedOutput()
	output := strings.TrimRight(string(out), "\n")
	if err != nil {
		// The process's own failure text is part of the output the model
		// reacts to, never a separate error channel.
		if output != "" {
			output += "\n"
		}
		output += err.Error()
	}
	return output, nil
}

func (e *subprocessExecutor) Close() error { return nil }

// htmlExecutor does not execute anything: the document is written to a temp
// file and its location reported, so the user can open it.
type htmlExecutor struct{}

func (e *htmlExecutor) Run(ctx context.Context, code string) (string, error) {
	f, err := os.CreateTemp("", "terp-*.html")
	if err != nil {
		return "", fmt.Errorf("failed to create HTML file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(code); err != nil {
		return "", fmt.Errorf("failed to write HTML file: %w", err)
	}
	return fmt.Sprintf("Saved to %s", f.Name()), nil
}

func (e *htmlExecutor) Close() error { return nil }
