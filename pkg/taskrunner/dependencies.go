package taskrunner

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/ecogate/internal/execshell"
	"github.com/tyemirov/ecogate/internal/gate"
	"github.com/tyemirov/ecogate/internal/gitrepo"
	"github.com/tyemirov/ecogate/internal/overrides"
	"github.com/tyemirov/ecogate/internal/packagemanager"
	"github.com/tyemirov/ecogate/internal/reposync"
	"github.com/tyemirov/ecogate/internal/tasks"
)

// DependenciesConfig captures providers required to build gate dependencies.
type DependenciesConfig struct {
	LoggerProvider               func() *zap.Logger
	HumanReadableLoggingProvider func() bool
	CommandRunner                execshell.CommandRunner
	GitOperations                reposync.GitOperations
	OriginReader                 reposync.OriginReader
	FileSystem                   reposync.FileSystem
	Detector                     packagemanager.AgentDetector
	Observer                     gate.StageObserver
	BaseDirectory                string
}

// DependenciesOptions allows per-command overrides when resolving gate dependencies.
type DependenciesOptions struct {
	Command       *cobra.Command
	Input         io.Reader
	Output        io.Writer
	Errors        io.Writer
	GroupedOutput bool
}

// DependenciesResult exposes resolved collaborators along with their gate wrapper.
type DependenciesResult struct {
	Gate              gate.Dependencies
	Executor          *execshell.ShellExecutor
	RepositoryManager reposync.GitOperations
	Output            io.Writer
	Errors            io.Writer
}

// BuildDependencies resolves the executor, git, override and task collaborators of a gate run.
// Child process output streams to the command's writers; invocations are announced on the error writer.
func BuildDependencies(config DependenciesConfig, options DependenciesOptions) (DependenciesResult, error) {
	logger := resolveLogger(config.LoggerProvider)
	humanReadable := false
	if config.HumanReadableLoggingProvider != nil {
		humanReadable = config.HumanReadableLoggingProvider()
	}

	outputWriter := resolveWriter(options.Output, options.Command, true)
	errorWriter := resolveWriter(options.Errors, options.Command, false)

	commandRunner := config.CommandRunner
	if commandRunner == nil {
		commandRunner = execshell.NewStreamingCommandRunner(execshell.Streams{
			Input:  resolveReader(options.Input, options.Command),
			Output: outputWriter,
			Errors: errorWriter,
		})
	}
	executor, executorError := execshell.NewShellExecutor(logger, commandRunner, humanReadable)
	if executorError != nil {
		return DependenciesResult{}, fmt.Errorf("taskrunner.dependencies.executor: %w", executorError)
	}
	executor = executor.WithAnnouncer(execshell.NewInvocationAnnouncer(errorWriter, options.GroupedOutput))

	gitOperations := config.GitOperations
	if gitOperations == nil {
		repositoryManager, managerError := gitrepo.NewRepositoryManager(executor)
		if managerError != nil {
			return DependenciesResult{}, fmt.Errorf("taskrunner.dependencies.git_manager: %w", managerError)
		}
		gitOperations = repositoryManager
	}

	originReader := config.OriginReader
	if originReader == nil {
		originReader = gitrepo.NewRemoteReader()
	}

	detector := config.Detector
	if detector == nil {
		detector = packagemanager.NewDetector(logger)
	}

	synchronizer, synchronizerError := reposync.NewSynchronizer(reposync.Dependencies{
		Git:          gitOperations,
		Origins:      originReader,
		FileSystem:   config.FileSystem,
		Logger:       logger,
		HumanLogging: humanReadable,
	})
	if synchronizerError != nil {
		return DependenciesResult{}, fmt.Errorf("taskrunner.dependencies.synchronizer: %w", synchronizerError)
	}

	applicator, applicatorError := overrides.NewApplicator(overrides.Dependencies{
		Runner:        executor,
		Cleaner:       gitOperations,
		Detector:      detector,
		BaseDirectory: config.BaseDirectory,
		Logger:        logger,
		HumanLogging:  humanReadable,
	})
	if applicatorError != nil {
		return DependenciesResult{}, fmt.Errorf("taskrunner.dependencies.applicator: %w", applicatorError)
	}

	taskRunner, taskRunnerError := tasks.NewRunner(tasks.Dependencies{
		Runner:       executor,
		Logger:       logger,
		HumanLogging: humanReadable,
	})
	if taskRunnerError != nil {
		return DependenciesResult{}, fmt.Errorf("taskrunner.dependencies.tasks: %w", taskRunnerError)
	}

	return DependenciesResult{
		Gate: gate.Dependencies{
			Synchronizer: synchronizer,
			Applicator:   applicator,
			Tasks:        taskRunner,
			Detector:     detector,
			Observer:     config.Observer,
			Logger:       logger,
			HumanLogging: humanReadable,
		},
		Executor:          executor,
		RepositoryManager: gitOperations,
		Output:            outputWriter,
		Errors:            errorWriter,
	}, nil
}

func resolveLogger(provider func() *zap.Logger) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func resolveWriter(provided io.Writer, command *cobra.Command, useStdout bool) io.Writer {
	if provided != nil {
		return provided
	}
	if command != nil {
		if useStdout {
			if writer := command.OutOrStdout(); writer != nil && writer != io.Discard {
				return writer
			}
		} else {
			if writer := command.ErrOrStderr(); writer != nil && writer != io.Discard {
				return writer
			}
		}
	}
	if useStdout {
		return os.Stdout
	}
	return os.Stderr
}

func resolveReader(provided io.Reader, command *cobra.Command) io.Reader {
	if provided != nil {
		return provided
	}
	if command != nil {
		return command.InOrStdin()
	}
	return os.Stdin
}
