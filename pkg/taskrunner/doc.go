// Package taskrunner wires the collaborators of a gate run for CLI commands.
// BuildDependencies resolves the shell executor, git operations, override
// applicator and task runner once per command, and Resolve wraps the gate so
// every suite run ends with a one-line summary. Tests swap in fakes through
// DependenciesConfig and Factory.
package taskrunner
