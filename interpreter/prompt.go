package interpreter

import (
	"fmt"
	"os"
	"os/user"
	"runtime"
	"strings"

	"terp/executor"
	"terp/message"
	"terp/provider"
)

const defaultSystemMessage = `You are a world-class programmer that can complete any goal by executing code.
First, write a plan. Then run code to carry it out, one step at a time: when you execute code it runs on the user's machine and the user sees the output, so prefer small steps you can verify over one large script.
You can install new packages with pip. Use the run_code capability for anything that requires running code.
Write messages to the user in Markdown.`

// fenceInstructions replaces the structured capability schema on raw-text
// models, which can only signal code through markdown fences.
const fenceInstructions = `To execute code, write a markdown code block with the language on the fence line, like:

` + "```python\nprint('hi')\n```" + `

Only code inside such a block will be executed. Supported languages: %s.`

// systemMessage assembles the prompt for one turn: the configured base text,
// mode-specific execution instructions, and a snapshot of the machine the
// code will run on.
func (i *Interpreter) systemMessage() string {
	base := i.systemBase
	if base == "" {
		base = defaultSystemMessage
	}

	var b strings.Builder
	b.WriteString(base)
	if !i.provider.SupportsFunctions() {
		b.WriteString("\n\n")
		fmt.Fprintf(&b, fenceInstructions, strings.Join(executor.Supported(), ", "))
	}
	b.WriteString("\n\n")
	b.WriteString(systemInfo())
	return b.String()
}

func systemInfo() string {
	username := "unknown"
	if u, err := user.Current(); err == nil {
		username = u.Username
	}
	cwd, _ := os.Getwd()
	return fmt.Sprintf("[User Info]\nName: %s\nCWD: %s\nOS: %s", username, cwd, runtime.GOOS)
}

// runCodeSchema declares the single execution capability offered to
// function-call capable services.
func runCodeSchema() provider.FunctionSchema {
	return provider.FunctionSchema{
		Name:        message.RunCodeFunction,
		Description: "Executes code on the user's machine and returns the output",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"language": map[string]any{
					"type":        "string",
					"description": "The programming language",
					"enum":        executor.Supported(),
				},
				"code": map[string]any{
					"type":        "string",
					"description": "The code to execute",
				},
			},
			"required": []string{"language", "code"},
		},
	}
}
