package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tyemirov/ecogate/internal/execshell"
)

const (
	gitConfigFlagConstant                     = "-c"
	gitDetachedHeadAdviceDisabledConstant     = "advice.detachedHead=false"
	gitCloneSubcommandConstant                = "clone"
	gitCleanSubcommandConstant                = "clean"
	gitCleanAllFlagsConstant                  = "-fdxq"
	gitFetchSubcommandConstant                = "fetch"
	gitShallowDepthFlagConstant               = "--depth=1"
	gitNoTagsFlagConstant                     = "--no-tags"
	gitTagsFlagConstant                       = "--tags"
	gitBranchFlagConstant                     = "--branch"
	gitTagReferenceKeywordConstant            = "tag"
	gitCheckoutSubcommandConstant             = "checkout"
	gitMergeSubcommandConstant                = "merge"
	gitResetSubcommandConstant                = "reset"
	gitHardFlagConstant                       = "--hard"
	gitTerminalPromptVariableConstant         = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisabledConstant         = "0"
	repositoryURLFieldNameConstant            = "repository_url"
	directoryFieldNameConstant                = "directory"
	referenceFieldNameConstant                = "reference"
	remoteNameFieldNameConstant               = "remote_name"
	requiredValueMessageConstant              = "value required"
	executorNotConfiguredMessageConstant      = "git executor not configured"
	repositoryOperationErrorTemplateConstant  = "%s operation failed"
	repositoryOperationErrorWithCauseConstant = "%s operation failed: %s"
	invalidRepositoryInputTemplateConstant    = "%s: %s"
	cloneOperationNameConstant                = RepositoryOperationName("Clone")
	cleanOperationNameConstant                = RepositoryOperationName("Clean")
	fetchOperationNameConstant                = RepositoryOperationName("Fetch")
	checkoutOperationNameConstant             = RepositoryOperationName("Checkout")
	mergeOperationNameConstant                = RepositoryOperationName("Merge")
	resetOperationNameConstant                = RepositoryOperationName("ResetHard")
)

// FetchHeadReference names the ref written by the most recent fetch.
const FetchHeadReference = "FETCH_HEAD"

// DefaultRemoteName is the remote every synchronized checkout tracks.
const DefaultRemoteName = "origin"

// GitCommandExecutor exposes the subset of execshell functionality required by RepositoryManager.
type GitCommandExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// RepositoryManager coordinates Git operations through execshell.
type RepositoryManager struct {
	executor GitCommandExecutor
}

var (
	// ErrGitExecutorNotConfigured indicates the RepositoryManager was constructed without a git executor.
	ErrGitExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
)

// InvalidRepositoryInputError indicates validation failures for repository operations.
type InvalidRepositoryInputError struct {
	FieldName string
	Message   string
}

// Error describes the validation failure.
func (inputError InvalidRepositoryInputError) Error() string {
	return fmt.Sprintf(invalidRepositoryInputTemplateConstant, inputError.FieldName, inputError.Message)
}

// RepositoryOperationName captures descriptive names for repository operations.
type RepositoryOperationName string

// RepositoryOperationError wraps execution failures for git operations.
type RepositoryOperationError struct {
	Operation RepositoryOperationName
	Cause     error
}

// Error describes the repository operation failure.
func (operationError RepositoryOperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(repositoryOperationErrorTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(repositoryOperationErrorWithCauseConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying error.
func (operationError RepositoryOperationError) Unwrap() error {
	return operationError.Cause
}

// CloneOptions describes a clone of a single ref into a new directory.
type CloneOptions struct {
	RepositoryURL string
	Directory     string
	Reference     string
	Shallow       bool
}

// FetchOptions describes a fetch of a single ref from the default remote.
// A tag reference fetches "tag <name>" so the tag ref itself is created locally.
type FetchOptions struct {
	Reference string
	Tag       bool
	Shallow   bool
}

// NewRepositoryManager constructs a RepositoryManager for the provided executor.
func NewRepositoryManager(executor GitCommandExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

// Clone clones options.Reference of the repository into options.Directory, resolved against the run context.
func (manager *RepositoryManager) Clone(executionContext context.Context, runContext execshell.RunContext, options CloneOptions) error {
	trimmedURL := strings.TrimSpace(options.RepositoryURL)
	if len(trimmedURL) == 0 {
		return InvalidRepositoryInputError{FieldName: repositoryURLFieldNameConstant, Message: requiredValueMessageConstant}
	}
	trimmedDirectory := strings.TrimSpace(options.Directory)
	if len(trimmedDirectory) == 0 {
		return InvalidRepositoryInputError{FieldName: directoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	trimmedReference := strings.TrimSpace(options.Reference)
	if len(trimmedReference) == 0 {
		return InvalidRepositoryInputError{FieldName: referenceFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandArguments := []string{gitConfigFlagConstant, gitDetachedHeadAdviceDisabledConstant, gitCloneSubcommandConstant}
	if options.Shallow {
		commandArguments = append(commandArguments, gitShallowDepthFlagConstant, gitNoTagsFlagConstant)
	}
	commandArguments = append(commandArguments, gitBranchFlagConstant, trimmedReference, trimmedURL, trimmedDirectory)

	if executionError := manager.execute(executionContext, runContext, commandArguments); executionError != nil {
		return RepositoryOperationError{Operation: cloneOperationNameConstant, Cause: executionError}
	}
	return nil
}

// Clean removes untracked and ignored files from the working tree.
func (manager *RepositoryManager) Clean(executionContext context.Context, runContext execshell.RunContext) error {
	commandArguments := []string{gitCleanSubcommandConstant, gitCleanAllFlagsConstant}
	if executionError := manager.execute(executionContext, runContext, commandArguments); executionError != nil {
		return RepositoryOperationError{Operation: cleanOperationNameConstant, Cause: executionError}
	}
	return nil
}

// Fetch fetches a single ref from the default remote.
func (manager *RepositoryManager) Fetch(executionContext context.Context, runContext execshell.RunContext, options FetchOptions) error {
	trimmedReference := strings.TrimSpace(options.Reference)
	if len(trimmedReference) == 0 {
		return InvalidRepositoryInputError{FieldName: referenceFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandArguments := []string{gitFetchSubcommandConstant}
	if options.Shallow {
		commandArguments = append(commandArguments, gitShallowDepthFlagConstant, gitNoTagsFlagConstant)
	} else {
		commandArguments = append(commandArguments, gitTagsFlagConstant)
	}
	commandArguments = append(commandArguments, DefaultRemoteName)
	if options.Tag {
		commandArguments = append(commandArguments, gitTagReferenceKeywordConstant)
	}
	commandArguments = append(commandArguments, trimmedReference)

	if executionError := manager.execute(executionContext, runContext, commandArguments); executionError != nil {
		return RepositoryOperationError{Operation: fetchOperationNameConstant, Cause: executionError}
	}
	return nil
}

// Checkout checks out the target. Detached checkouts silence git's detached HEAD advice.
func (manager *RepositoryManager) Checkout(executionContext context.Context, runContext execshell.RunContext, target string, detached bool) error {
	trimmedTarget := strings.TrimSpace(target)
	if len(trimmedTarget) == 0 {
		return InvalidRepositoryInputError{FieldName: referenceFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandArguments := []string{}
	if detached {
		commandArguments = append(commandArguments, gitConfigFlagConstant, gitDetachedHeadAdviceDisabledConstant)
	}
	commandArguments = append(commandArguments, gitCheckoutSubcommandConstant, trimmedTarget)

	if executionError := manager.execute(executionContext, runContext, commandArguments); executionError != nil {
		return RepositoryOperationError{Operation: checkoutOperationNameConstant, Cause: executionError}
	}
	return nil
}

// Merge merges the reference into the current branch.
func (manager *RepositoryManager) Merge(executionContext context.Context, runContext execshell.RunContext, reference string) error {
	trimmedReference := strings.TrimSpace(reference)
	if len(trimmedReference) == 0 {
		return InvalidRepositoryInputError{FieldName: referenceFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandArguments := []string{gitMergeSubcommandConstant, trimmedReference}
	if executionError := manager.execute(executionContext, runContext, commandArguments); executionError != nil {
		return RepositoryOperationError{Operation: mergeOperationNameConstant, Cause: executionError}
	}
	return nil
}

// ResetHard moves the current branch and working tree to the reference.
func (manager *RepositoryManager) ResetHard(executionContext context.Context, runContext execshell.RunContext, reference string) error {
	trimmedReference := strings.TrimSpace(reference)
	if len(trimmedReference) == 0 {
		return InvalidRepositoryInputError{FieldName: referenceFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandArguments := []string{gitResetSubcommandConstant, gitHardFlagConstant, trimmedReference}
	if executionError := manager.execute(executionContext, runContext, commandArguments); executionError != nil {
		return RepositoryOperationError{Operation: resetOperationNameConstant, Cause: executionError}
	}
	return nil
}

func (manager *RepositoryManager) execute(executionContext context.Context, runContext execshell.RunContext, commandArguments []string) error {
	gitContext := runContext.WithEnvironment(map[string]string{gitTerminalPromptVariableConstant: gitTerminalPromptDisabledConstant})
	_, executionError := manager.executor.ExecuteGit(executionContext, gitContext.Details(commandArguments...))
	return executionError
}
