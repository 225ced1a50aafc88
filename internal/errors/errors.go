package errors

import (
	stdErrors "errors"
	"fmt"
)

// Operation identifies the logical operation producing a contextual error.
type Operation string

const (
	// OperationConfig denotes invalid inputs rejected before any external side effect.
	OperationConfig Operation = "gate.config"
	// OperationSync denotes repository synchronization failures.
	OperationSync Operation = "gate.sync"
	// OperationInstall denotes dependency installation failures.
	OperationInstall Operation = "gate.install"
	// OperationTask denotes lifecycle task failures.
	OperationTask Operation = "gate.task"
)

// Sentinel describes a stable error code shared across gate components.
type Sentinel string

// Error returns the sentinel code string.
func (sentinel Sentinel) Error() string {
	return string(sentinel)
}

// Code exposes the sentinel code string.
func (sentinel Sentinel) Code() string {
	return string(sentinel)
}

// OperationError annotates an error with the gate operation and subject that produced it.
type OperationError struct {
	operation Operation
	subject   string
	err       error
	message   string
}

// Error implements the error interface.
func (operationError OperationError) Error() string {
	if len(operationError.message) > 0 {
		if len(operationError.subject) == 0 {
			return fmt.Sprintf("%s: %s", operationError.operation, operationError.message)
		}
		return fmt.Sprintf("%s[%s]: %s", operationError.operation, operationError.subject, operationError.message)
	}
	if len(operationError.subject) == 0 {
		return fmt.Sprintf("%s: %v", operationError.operation, operationError.err)
	}
	return fmt.Sprintf("%s[%s]: %v", operationError.operation, operationError.subject, operationError.err)
}

// Unwrap exposes the underlying error chain.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the originating operation identifier.
func (operationError OperationError) Operation() Operation {
	return operationError.operation
}

// Subject returns the domain subject (directory, task or package manager) related to the error.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code surfaces the sentinel code of the wrapped error when present.
func (operationError OperationError) Code() string {
	if coder, found := findSentinel(operationError.err); found {
		return coder.Code()
	}
	return ""
}

// Message exposes the formatted message when provided via WrapMessage.
func (operationError OperationError) Message() string {
	return operationError.message
}

// Wrap constructs an OperationError combining the provided metadata with the base sentinel.
func Wrap(operation Operation, subject string, sentinel Sentinel, detail error) error {
	if len(sentinel) == 0 {
		return OperationError{operation: operation, subject: subject, err: detail}
	}
	baseError := error(sentinel)
	if detail != nil {
		baseError = fmt.Errorf("%w: %w", sentinel, detail)
	}
	return OperationError{operation: operation, subject: subject, err: baseError}
}

// WrapMessage constructs an OperationError combining the provided metadata with a formatted message.
func WrapMessage(operation Operation, subject string, sentinel Sentinel, message string) error {
	if len(message) == 0 {
		return Wrap(operation, subject, sentinel, nil)
	}
	return OperationError{operation: operation, subject: subject, err: fmt.Errorf("%w: %s", sentinel, message), message: message}
}

// OperationOf reports the gate operation recorded anywhere in the error chain.
func OperationOf(err error) (Operation, bool) {
	var operationError OperationError
	if !stdErrors.As(err, &operationError) {
		return "", false
	}
	return operationError.operation, true
}

// IsConfigError reports whether the error was raised for invalid inputs.
func IsConfigError(err error) bool {
	return hasOperation(err, OperationConfig)
}

// IsSyncError reports whether the error was raised while synchronizing a repository.
func IsSyncError(err error) bool {
	return hasOperation(err, OperationSync)
}

// IsInstallError reports whether the error was raised by the dependency install.
func IsInstallError(err error) bool {
	return hasOperation(err, OperationInstall)
}

// IsTaskError reports whether the error was raised by a lifecycle task.
func IsTaskError(err error) bool {
	return hasOperation(err, OperationTask)
}

func hasOperation(err error, operation Operation) bool {
	recordedOperation, found := OperationOf(err)
	return found && recordedOperation == operation
}

func findSentinel(err error) (Sentinel, bool) {
	if err == nil {
		return "", false
	}
	var sentinel Sentinel
	if stdErrors.As(err, &sentinel) {
		return sentinel, true
	}
	return "", false
}

var (
	// ErrDirectoryInvalid indicates an unusable directory argument.
	ErrDirectoryInvalid Sentinel = "directory_invalid"
	// ErrRepositoryInvalid indicates a repository reference that cannot be resolved.
	ErrRepositoryInvalid Sentinel = "repository_invalid"
	// ErrAgentUnsupported indicates a package manager outside the allow-list.
	ErrAgentUnsupported Sentinel = "package_manager_unsupported"
	// ErrAgentUndetected indicates that no package manager could be detected.
	ErrAgentUndetected Sentinel = "package_manager_undetected"
	// ErrTaskInvalid indicates a malformed task specification.
	ErrTaskInvalid Sentinel = "task_invalid"
	// ErrManifestInvalid indicates a manifest that cannot be read or rewritten.
	ErrManifestInvalid Sentinel = "manifest_invalid"
	// ErrWorkspaceUnavailable indicates the workspace directory could not be prepared.
	ErrWorkspaceUnavailable Sentinel = "workspace_unavailable"
	// ErrRemoteMismatchCleanupFailed indicates a stale checkout could not be removed.
	ErrRemoteMismatchCleanupFailed Sentinel = "stale_checkout_removal_failed"
	// ErrCloneFailed indicates git clone failed.
	ErrCloneFailed Sentinel = "clone_failed"
	// ErrCleanFailed indicates git clean failed.
	ErrCleanFailed Sentinel = "clean_failed"
	// ErrFetchFailed indicates git fetch failed.
	ErrFetchFailed Sentinel = "fetch_failed"
	// ErrCheckoutFailed indicates git checkout failed.
	ErrCheckoutFailed Sentinel = "checkout_failed"
	// ErrMergeFailed indicates git merge failed.
	ErrMergeFailed Sentinel = "merge_failed"
	// ErrResetFailed indicates git reset failed.
	ErrResetFailed Sentinel = "reset_failed"
	// ErrManifestWriteFailed indicates the rewritten manifest could not be persisted.
	ErrManifestWriteFailed Sentinel = "manifest_write_failed"
	// ErrInstallFailed indicates the package manager install command failed.
	ErrInstallFailed Sentinel = "install_failed"
	// ErrTaskFailed indicates a lifecycle command or action failed.
	ErrTaskFailed Sentinel = "task_failed"
)
