package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	gateerrors "github.com/tyemirov/ecogate/internal/errors"
	"github.com/tyemirov/ecogate/internal/execshell"
	"github.com/tyemirov/ecogate/internal/packagemanager"
)

const (
	commandFieldNameConstant           = "command"
	directoryFieldNameConstant         = "directory"
	taskStartedMessageConstant         = "running task"
	taskSkippedMessageConstant         = "skipping absent task"
	taskStartedTemplateConstant        = "Running %s in %s"
	loggerNotConfiguredMessageConstant = "task runner logger not configured"
	runnerNotConfiguredMessageConstant = "task runner command runner not configured"
)

var (
	// ErrLoggerNotConfigured indicates the runner was constructed without a logger.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrCommandRunnerNotConfigured indicates the runner was constructed without a command runner.
	ErrCommandRunnerNotConfigured = errors.New(runnerNotConfiguredMessageConstant)
)

// CommandRunner runs an executable inside a run context.
type CommandRunner interface {
	Run(executionContext context.Context, runContext execshell.RunContext, name execshell.CommandName, arguments ...string) (execshell.ExecutionResult, error)
}

// Dependencies wires the collaborators of a Runner.
type Dependencies struct {
	Runner       CommandRunner
	Logger       *zap.Logger
	HumanLogging bool
}

// Runner executes task specifications strictly in order.
type Runner struct {
	commandRunner CommandRunner
	logger        *zap.Logger
	humanLogging  bool
}

// NewRunner validates dependencies and constructs a Runner.
func NewRunner(dependencies Dependencies) (*Runner, error) {
	if dependencies.Logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if dependencies.Runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}
	return &Runner{
		commandRunner: dependencies.Runner,
		logger:        dependencies.Logger,
		humanLogging:  dependencies.HumanLogging,
	}, nil
}

// Run executes every task of specification in the run context's directory.
// The first failure stops the run.
func (runner *Runner) Run(executionContext context.Context, runContext execshell.RunContext, agent packagemanager.Identity, specification Specification, scripts map[string]string) error {
	for _, task := range specification {
		if task.IsAbsent() {
			runner.logger.Debug(taskSkippedMessageConstant)
			continue
		}
		if contextError := executionContext.Err(); contextError != nil {
			return gateerrors.Wrap(gateerrors.OperationTask, task.String(), gateerrors.ErrTaskFailed, contextError)
		}
		if runError := runner.runTask(executionContext, runContext, agent, task, scripts); runError != nil {
			return runError
		}
	}
	return nil
}

func (runner *Runner) runTask(executionContext context.Context, runContext execshell.RunContext, agent packagemanager.Identity, task Task, scripts map[string]string) error {
	if task.Kind() == KindAction {
		runner.logStart(task.String(), runContext.Directory())
		if actionError := task.action(executionContext); actionError != nil {
			return gateerrors.Wrap(gateerrors.OperationTask, task.String(), gateerrors.ErrTaskFailed, actionError)
		}
		return nil
	}

	invocation, resolveError := Resolve(agent, task, scripts)
	if resolveError != nil {
		return gateerrors.Wrap(gateerrors.OperationTask, task.String(), gateerrors.ErrTaskInvalid, resolveError)
	}
	runner.logStart(invocation.String(), runContext.Directory())
	if _, runError := runner.commandRunner.Run(executionContext, runContext, invocation.Command, invocation.Arguments...); runError != nil {
		return gateerrors.Wrap(gateerrors.OperationTask, task.String(), gateerrors.ErrTaskFailed, runError)
	}
	return nil
}

// Resolve maps a text, script or command task onto an invocation.
// A text task whose first word names a declared script runs through the package manager.
func Resolve(agent packagemanager.Identity, task Task, scripts map[string]string) (packagemanager.Invocation, error) {
	switch task.Kind() {
	case KindScript:
		return packagemanager.RunScript(agent, task.text)
	case KindCommand:
		return literalInvocation(task.text)
	case KindText:
		fields := strings.Fields(task.text)
		if len(fields) > 0 {
			if _, declared := scripts[fields[0]]; declared {
				return packagemanager.RunScript(agent, task.text)
			}
		}
		return literalInvocation(task.text)
	default:
		return packagemanager.Invocation{}, fmt.Errorf("%w: %s", gateerrors.ErrTaskInvalid, task.String())
	}
}

func literalInvocation(text string) (packagemanager.Invocation, error) {
	words, splitError := packagemanager.SplitWords(text)
	if splitError != nil {
		return packagemanager.Invocation{}, splitError
	}
	return packagemanager.Invocation{Command: execshell.CommandName(words[0]), Arguments: words[1:]}, nil
}

func (runner *Runner) logStart(description string, directory string) {
	if runner.humanLogging {
		runner.logger.Info(fmt.Sprintf(taskStartedTemplateConstant, description, directory))
		return
	}
	runner.logger.Info(taskStartedMessageConstant,
		zap.String(commandFieldNameConstant, description),
		zap.String(directoryFieldNameConstant, directory),
	)
}
