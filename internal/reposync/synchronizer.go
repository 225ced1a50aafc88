package reposync

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	gateerrors "github.com/tyemirov/ecogate/internal/errors"
	"github.com/tyemirov/ecogate/internal/execshell"
	"github.com/tyemirov/ecogate/internal/gitrepo"
)

const (
	workspacePermissionsConstant             = fs.FileMode(0o755)
	repositoryFieldNameConstant              = "repository"
	directoryFieldNameConstant               = "directory"
	remoteURLFieldNameConstant               = "remote_url"
	remoteReadFailureMessageConstant         = "checkout origin unreadable, treating as mismatch"
	remoteMismatchMessageConstant            = "checkout tracks a different remote, discarding"
	cloneMessageConstant                     = "cloning repository"
	synchronizedMessageConstant              = "repository synchronized"
	repositoryRequiredMessageConstant        = "repository is required"
	directoryRequiredMessageConstant         = "directory name is required"
	loggerNotConfiguredMessageConstant       = "synchronizer logger not configured"
	gitNotConfiguredMessageConstant          = "synchronizer git operations not configured"
	originReaderNotConfiguredMessageConstant = "synchronizer origin reader not configured"
)

var (
	// ErrLoggerNotConfigured indicates the synchronizer was constructed without a logger.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrGitOperationsNotConfigured indicates the synchronizer was constructed without git operations.
	ErrGitOperationsNotConfigured = errors.New(gitNotConfiguredMessageConstant)
	// ErrOriginReaderNotConfigured indicates the synchronizer was constructed without an origin reader.
	ErrOriginReaderNotConfigured = errors.New(originReaderNotConfiguredMessageConstant)
)

// GitOperations issues the git commands a synchronization needs.
type GitOperations interface {
	Clone(executionContext context.Context, runContext execshell.RunContext, options gitrepo.CloneOptions) error
	Clean(executionContext context.Context, runContext execshell.RunContext) error
	Fetch(executionContext context.Context, runContext execshell.RunContext, options gitrepo.FetchOptions) error
	Checkout(executionContext context.Context, runContext execshell.RunContext, target string, detached bool) error
	Merge(executionContext context.Context, runContext execshell.RunContext, reference string) error
	ResetHard(executionContext context.Context, runContext execshell.RunContext, reference string) error
}

// OriginReader reports the origin URL of an existing checkout.
type OriginReader interface {
	OriginURL(directory string) (string, error)
}

// FileSystem abstracts the directory operations of a synchronization.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	MkdirAll(path string, permissions fs.FileMode) error
	RemoveAll(path string) error
}

// OSFileSystem implements FileSystem on the local disk.
type OSFileSystem struct{}

// Stat wraps os.Stat.
func (OSFileSystem) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// MkdirAll wraps os.MkdirAll.
func (OSFileSystem) MkdirAll(path string, permissions fs.FileMode) error {
	return os.MkdirAll(path, permissions)
}

// RemoveAll wraps os.RemoveAll.
func (OSFileSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// Dependencies wires the collaborators of a Synchronizer.
type Dependencies struct {
	Git          GitOperations
	Origins      OriginReader
	FileSystem   FileSystem
	Logger       *zap.Logger
	HumanLogging bool
}

// Result describes a completed synchronization.
type Result struct {
	RepositoryURL string
	Directory     string
	Cloned        bool
	Discarded     bool
	RunContext    execshell.RunContext
}

// Synchronizer brings a workspace directory to the state a RepoRef describes.
type Synchronizer struct {
	git          GitOperations
	origins      OriginReader
	fileSystem   FileSystem
	logger       *zap.Logger
	humanLogging bool
}

// NewSynchronizer validates dependencies and constructs a Synchronizer.
func NewSynchronizer(dependencies Dependencies) (*Synchronizer, error) {
	if dependencies.Logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if dependencies.Git == nil {
		return nil, ErrGitOperationsNotConfigured
	}
	if dependencies.Origins == nil {
		return nil, ErrOriginReaderNotConfigured
	}
	fileSystem := dependencies.FileSystem
	if fileSystem == nil {
		fileSystem = OSFileSystem{}
	}
	return &Synchronizer{
		git:          dependencies.Git,
		origins:      dependencies.Origins,
		fileSystem:   fileSystem,
		logger:       dependencies.Logger,
		humanLogging: dependencies.HumanLogging,
	}, nil
}

// Synchronize clones or refreshes the checkout of ref under the run context's directory.
// The returned run context points at the checkout.
func (synchronizer *Synchronizer) Synchronize(executionContext context.Context, runContext execshell.RunContext, ref RepoRef) (Result, error) {
	repositoryURL := ref.RepositoryURL()
	if len(repositoryURL) == 0 {
		return Result{}, gateerrors.WrapMessage(gateerrors.OperationConfig, repositoryFieldNameConstant, gateerrors.ErrRepositoryInvalid, repositoryRequiredMessageConstant)
	}
	directoryName := ref.DirectoryName()
	if len(directoryName) == 0 {
		return Result{}, gateerrors.WrapMessage(gateerrors.OperationConfig, repositoryURL, gateerrors.ErrDirectoryInvalid, directoryRequiredMessageConstant)
	}

	checkoutContext := runContext.WithDirectory(directoryName)
	checkoutDirectory := checkoutContext.Directory()
	result := Result{RepositoryURL: repositoryURL, Directory: checkoutDirectory, RunContext: checkoutContext}

	needsClone, discarded, inspectError := synchronizer.inspect(checkoutDirectory, repositoryURL)
	if inspectError != nil {
		return Result{}, inspectError
	}
	result.Discarded = discarded

	if needsClone {
		if cloneError := synchronizer.clone(executionContext, runContext, ref, repositoryURL, checkoutDirectory); cloneError != nil {
			return Result{}, cloneError
		}
		result.Cloned = true
	}

	if refreshError := synchronizer.refresh(executionContext, checkoutContext, ref); refreshError != nil {
		return Result{}, refreshError
	}

	if synchronizer.humanLogging {
		synchronizer.logger.Info(synchronizedMessageConstant + ": " + checkoutDirectory)
	} else {
		synchronizer.logger.Info(synchronizedMessageConstant,
			zap.String(repositoryFieldNameConstant, repositoryURL),
			zap.String(directoryFieldNameConstant, checkoutDirectory),
			zap.Bool("cloned", result.Cloned),
			zap.Bool("discarded", result.Discarded),
		)
	}
	return result, nil
}

func (synchronizer *Synchronizer) inspect(checkoutDirectory string, repositoryURL string) (bool, bool, error) {
	info, statError := synchronizer.fileSystem.Stat(checkoutDirectory)
	if statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return true, false, nil
		}
		return false, false, gateerrors.Wrap(gateerrors.OperationSync, checkoutDirectory, gateerrors.ErrDirectoryInvalid, statError)
	}
	// A file at the checkout path has no readable remote and is discarded like a mismatch.
	originURL := ""
	if info.IsDir() {
		readURL, originError := synchronizer.origins.OriginURL(checkoutDirectory)
		if originError != nil {
			synchronizer.logger.Debug(remoteReadFailureMessageConstant,
				zap.String(directoryFieldNameConstant, checkoutDirectory),
				zap.Error(originError),
			)
		}
		if originError == nil && strings.TrimSpace(readURL) == repositoryURL {
			return false, false, nil
		}
		originURL = readURL
	}

	synchronizer.logger.Warn(remoteMismatchMessageConstant,
		zap.String(directoryFieldNameConstant, checkoutDirectory),
		zap.String(remoteURLFieldNameConstant, originURL),
		zap.String(repositoryFieldNameConstant, repositoryURL),
	)
	if removeError := synchronizer.fileSystem.RemoveAll(checkoutDirectory); removeError != nil {
		return false, false, gateerrors.Wrap(gateerrors.OperationSync, checkoutDirectory, gateerrors.ErrRemoteMismatchCleanupFailed, removeError)
	}
	return true, true, nil
}

func (synchronizer *Synchronizer) clone(executionContext context.Context, runContext execshell.RunContext, ref RepoRef, repositoryURL string, checkoutDirectory string) error {
	parentDirectory := filepath.Dir(checkoutDirectory)
	if mkdirError := synchronizer.fileSystem.MkdirAll(parentDirectory, workspacePermissionsConstant); mkdirError != nil {
		return gateerrors.Wrap(gateerrors.OperationSync, parentDirectory, gateerrors.ErrWorkspaceUnavailable, mkdirError)
	}

	synchronizer.logger.Debug(cloneMessageConstant,
		zap.String(repositoryFieldNameConstant, repositoryURL),
		zap.String(directoryFieldNameConstant, checkoutDirectory),
	)
	cloneOptions := gitrepo.CloneOptions{
		RepositoryURL: repositoryURL,
		Directory:     checkoutDirectory,
		Reference:     ref.CloneReference(),
		Shallow:       ref.IsShallow(),
	}
	if cloneError := synchronizer.git.Clone(executionContext, runContext.WithDirectory(parentDirectory), cloneOptions); cloneError != nil {
		return gateerrors.Wrap(gateerrors.OperationSync, repositoryURL, gateerrors.ErrCloneFailed, cloneError)
	}
	return nil
}

func (synchronizer *Synchronizer) refresh(executionContext context.Context, checkoutContext execshell.RunContext, ref RepoRef) error {
	subject := checkoutContext.Directory()
	if cleanError := synchronizer.git.Clean(executionContext, checkoutContext); cleanError != nil {
		return gateerrors.Wrap(gateerrors.OperationSync, subject, gateerrors.ErrCleanFailed, cleanError)
	}

	fetchReference, isTag := ref.FetchReference()
	fetchOptions := gitrepo.FetchOptions{Reference: fetchReference, Tag: isTag, Shallow: ref.IsShallow()}
	if fetchError := synchronizer.git.Fetch(executionContext, checkoutContext, fetchOptions); fetchError != nil {
		return gateerrors.Wrap(gateerrors.OperationSync, subject, gateerrors.ErrFetchFailed, fetchError)
	}

	if ref.IsShallow() {
		if checkoutError := synchronizer.git.Checkout(executionContext, checkoutContext, ref.ShallowCheckoutTarget(), true); checkoutError != nil {
			return gateerrors.Wrap(gateerrors.OperationSync, subject, gateerrors.ErrCheckoutFailed, checkoutError)
		}
		return nil
	}

	if checkoutError := synchronizer.git.Checkout(executionContext, checkoutContext, ref.BranchName(), false); checkoutError != nil {
		return gateerrors.Wrap(gateerrors.OperationSync, subject, gateerrors.ErrCheckoutFailed, checkoutError)
	}
	if mergeError := synchronizer.git.Merge(executionContext, checkoutContext, gitrepo.FetchHeadReference); mergeError != nil {
		return gateerrors.Wrap(gateerrors.OperationSync, subject, gateerrors.ErrMergeFailed, mergeError)
	}
	if resetTarget := ref.ResetTarget(); len(resetTarget) > 0 {
		if resetError := synchronizer.git.ResetHard(executionContext, checkoutContext, resetTarget); resetError != nil {
			return gateerrors.Wrap(gateerrors.OperationSync, subject, gateerrors.ErrResetFailed, resetError)
		}
	}
	return nil
}
