package packagemanager

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/tyemirov/ecogate/internal/execshell"
)

const (
	runSubcommandConstant            = "run"
	emptyTaskMessageConstant         = "task is empty"
	taskParseErrorTemplateConstant   = "parse task %q: %w"
	unsupportedAgentTemplateConstant = "unsupported package manager %s"
)

// ErrShellOperator indicates a task using pipes, redirects or command lists, which run without a shell.
var ErrShellOperator = errors.New("shell operators are not supported in task commands")

// Invocation is an executable with its argument vector.
type Invocation struct {
	Command   execshell.CommandName
	Arguments []string
}

// String renders the invocation for logs.
func (invocation Invocation) String() string {
	return strings.TrimSpace(string(invocation.Command) + " " + strings.Join(invocation.Arguments, " "))
}

// SplitWords splits a task string into words following shell quoting rules.
// Environment variables and backticks are left unexpanded.
func SplitWords(task string) ([]string, error) {
	parser := shellwords.NewParser()
	words, parseError := parser.Parse(task)
	if parseError != nil {
		return nil, fmt.Errorf(taskParseErrorTemplateConstant, task, parseError)
	}
	if parser.Position >= 0 {
		return nil, fmt.Errorf(taskParseErrorTemplateConstant, task, ErrShellOperator)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf(taskParseErrorTemplateConstant, task, errors.New(emptyTaskMessageConstant))
	}
	return words, nil
}

// RunScript maps a script task to "<agent> run <words...>".
func RunScript(agent Identity, task string) (Invocation, error) {
	name := agent.Name()
	if !IsSupported(name) {
		return Invocation{}, fmt.Errorf(unsupportedAgentTemplateConstant, agent)
	}
	words, splitError := SplitWords(task)
	if splitError != nil {
		return Invocation{}, splitError
	}
	return Invocation{Command: commandFor(name), Arguments: append([]string{runSubcommandConstant}, words...)}, nil
}
