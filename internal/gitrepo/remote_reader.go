package gitrepo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
)

const (
	remoteReaderOpenErrorTemplateConstant   = "open repository %s: %w"
	remoteReaderRemoteErrorTemplateConstant = "read remote %s: %w"
	remoteURLsMissingMessageConstant        = "remote has no configured URLs"
)

var (
	// ErrNotARepository indicates the directory holds no git repository.
	ErrNotARepository = errors.New("not a git repository")
	// ErrRemoteNotFound indicates the requested remote is not configured.
	ErrRemoteNotFound = errors.New("remote not found")
)

// RemoteReader inspects repository metadata in-process without spawning git.
type RemoteReader struct{}

// NewRemoteReader constructs a RemoteReader.
func NewRemoteReader() RemoteReader {
	return RemoteReader{}
}

// RemoteURL returns the first URL configured for the named remote of the repository at directory.
func (reader RemoteReader) RemoteURL(directory string, remoteName string) (string, error) {
	trimmedDirectory := strings.TrimSpace(directory)
	if len(trimmedDirectory) == 0 {
		return "", InvalidRepositoryInputError{FieldName: directoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	trimmedRemoteName := strings.TrimSpace(remoteName)
	if len(trimmedRemoteName) == 0 {
		return "", InvalidRepositoryInputError{FieldName: remoteNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	repository, openError := git.PlainOpen(trimmedDirectory)
	if openError != nil {
		if errors.Is(openError, git.ErrRepositoryNotExists) {
			return "", fmt.Errorf(remoteReaderOpenErrorTemplateConstant, trimmedDirectory, ErrNotARepository)
		}
		return "", fmt.Errorf(remoteReaderOpenErrorTemplateConstant, trimmedDirectory, openError)
	}

	remote, remoteError := repository.Remote(trimmedRemoteName)
	if remoteError != nil {
		if errors.Is(remoteError, git.ErrRemoteNotFound) {
			return "", fmt.Errorf(remoteReaderRemoteErrorTemplateConstant, trimmedRemoteName, ErrRemoteNotFound)
		}
		return "", fmt.Errorf(remoteReaderRemoteErrorTemplateConstant, trimmedRemoteName, remoteError)
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf(remoteReaderRemoteErrorTemplateConstant, trimmedRemoteName, errors.New(remoteURLsMissingMessageConstant))
	}
	return urls[0], nil
}

// OriginURL returns the URL of the origin remote.
func (reader RemoteReader) OriginURL(directory string) (string, error) {
	return reader.RemoteURL(directory, DefaultRemoteName)
}
