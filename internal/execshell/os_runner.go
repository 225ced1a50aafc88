package execshell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sort"
)

// Streams bundles the standard streams connected to child processes.
type Streams struct {
	Input  io.Reader
	Output io.Writer
	Errors io.Writer
}

// OSCommandRunner executes commands as operating system processes.
// The child's output is streamed to the configured writers while being captured for the caller.
type OSCommandRunner struct {
	streams Streams
}

// NewOSCommandRunner constructs a runner connected to the parent process streams.
func NewOSCommandRunner() OSCommandRunner {
	return NewStreamingCommandRunner(Streams{Input: os.Stdin, Output: os.Stdout, Errors: os.Stderr})
}

// NewStreamingCommandRunner constructs a runner connected to the provided streams. Nil writers discard output.
func NewStreamingCommandRunner(streams Streams) OSCommandRunner {
	if streams.Output == nil {
		streams.Output = io.Discard
	}
	if streams.Errors == nil {
		streams.Errors = io.Discard
	}
	return OSCommandRunner{streams: streams}
}

// Run executes the command and reports its captured output and exit code.
func (runner OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	if len(command.Name) == 0 {
		return ExecutionResult{}, ErrCommandNameMissing
	}

	process := exec.CommandContext(executionContext, string(command.Name), command.Details.Arguments...)
	process.Dir = command.Details.WorkingDirectory
	process.Env = buildProcessEnvironment(command.Details.EnvironmentVariables)

	switch {
	case command.Details.StandardInput != nil:
		process.Stdin = bytes.NewReader(command.Details.StandardInput)
	case runner.streams.Input != nil:
		process.Stdin = runner.streams.Input
	}

	var standardOutput bytes.Buffer
	var standardError bytes.Buffer
	process.Stdout = io.MultiWriter(&standardOutput, runner.streams.Output)
	process.Stderr = io.MultiWriter(&standardError, runner.streams.Errors)

	runError := process.Run()
	result := ExecutionResult{
		StandardOutput: standardOutput.String(),
		StandardError:  standardError.String(),
	}
	if runError == nil {
		return result, nil
	}

	var exitError *exec.ExitError
	if errors.As(runError, &exitError) {
		result.ExitCode = exitError.ExitCode()
		return result, nil
	}
	return result, runError
}

func buildProcessEnvironment(overrides map[string]string) []string {
	environment := os.Environ()
	if len(overrides) == 0 {
		return environment
	}

	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		environment = append(environment, key+"="+overrides[key])
	}
	return environment
}
