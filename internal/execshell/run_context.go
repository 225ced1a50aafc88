package execshell

import (
	"path/filepath"
	"sort"
	"strings"
)

// RunContext is the directory and environment every command of a run executes against.
// Values are immutable; derive new contexts with WithDirectory and WithEnvironment.
type RunContext struct {
	directory   string
	environment map[string]string
}

// NewRunContext constructs a RunContext rooted at directory with the provided environment overrides.
func NewRunContext(directory string, environment map[string]string) RunContext {
	return RunContext{
		directory:   filepath.Clean(strings.TrimSpace(directory)),
		environment: cloneEnvironment(environment),
	}
}

// Directory returns the working directory commands run in.
func (runContext RunContext) Directory() string {
	if len(runContext.directory) == 0 {
		return "."
	}
	return runContext.directory
}

// Environment returns a copy of the environment overrides applied to every command.
func (runContext RunContext) Environment() map[string]string {
	return cloneEnvironment(runContext.environment)
}

// EnvironmentKeys returns the override names in lexical order.
func (runContext RunContext) EnvironmentKeys() []string {
	keys := make([]string, 0, len(runContext.environment))
	for key := range runContext.environment {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// WithDirectory derives a context for another directory. Relative paths resolve against the current directory.
func (runContext RunContext) WithDirectory(directory string) RunContext {
	trimmedDirectory := strings.TrimSpace(directory)
	derived := RunContext{environment: cloneEnvironment(runContext.environment)}
	switch {
	case len(trimmedDirectory) == 0:
		derived.directory = runContext.directory
	case filepath.IsAbs(trimmedDirectory):
		derived.directory = filepath.Clean(trimmedDirectory)
	default:
		derived.directory = filepath.Join(runContext.Directory(), trimmedDirectory)
	}
	return derived
}

// WithEnvironment derives a context whose environment additionally carries the provided overrides.
func (runContext RunContext) WithEnvironment(overrides map[string]string) RunContext {
	merged := cloneEnvironment(runContext.environment)
	for key, value := range overrides {
		merged[key] = value
	}
	return RunContext{directory: runContext.directory, environment: merged}
}

// Details builds command details for the provided arguments within this context.
func (runContext RunContext) Details(arguments ...string) CommandDetails {
	return CommandDetails{
		Arguments:            append([]string{}, arguments...),
		WorkingDirectory:     runContext.Directory(),
		EnvironmentVariables: runContext.Environment(),
	}
}

// Command builds a shell command for the provided executable and arguments within this context.
func (runContext RunContext) Command(name CommandName, arguments ...string) ShellCommand {
	return ShellCommand{Name: name, Details: runContext.Details(arguments...)}
}

func cloneEnvironment(environment map[string]string) map[string]string {
	cloned := make(map[string]string, len(environment))
	for key, value := range environment {
		cloned[key] = value
	}
	return cloned
}
