package pathutils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	homeDirectoryPrefixConstant             = "~"
	pathRequiredMessageConstant             = "path required"
	homeDirectoryResolutionTemplateConstant = "unable to resolve home directory: %w"
	absolutePathResolutionTemplateConstant  = "unable to resolve absolute path for %s: %w"
)

// ErrPathRequired indicates an empty path value.
var ErrPathRequired = errors.New(pathRequiredMessageConstant)

// HomeDirectoryResolver yields the current user's home directory.
type HomeDirectoryResolver func() (string, error)

// Resolver normalizes user supplied paths into absolute, cleaned paths.
type Resolver struct {
	homeDirectoryResolver HomeDirectoryResolver
}

// NewResolver constructs a Resolver. A nil home directory resolver falls back to os.UserHomeDir.
func NewResolver(homeDirectoryResolver HomeDirectoryResolver) Resolver {
	if homeDirectoryResolver == nil {
		homeDirectoryResolver = os.UserHomeDir
	}
	return Resolver{homeDirectoryResolver: homeDirectoryResolver}
}

// Resolve trims whitespace, expands a leading tilde, and returns the absolute form of the path.
func (resolver Resolver) Resolve(rawPath string) (string, error) {
	trimmedPath := strings.TrimSpace(rawPath)
	if len(trimmedPath) == 0 {
		return "", ErrPathRequired
	}

	if trimmedPath == homeDirectoryPrefixConstant || strings.HasPrefix(trimmedPath, homeDirectoryPrefixConstant+string(filepath.Separator)) {
		homeDirectory, homeError := resolver.homeDirectoryResolver()
		if homeError != nil {
			return "", fmt.Errorf(homeDirectoryResolutionTemplateConstant, homeError)
		}
		trimmedPath = filepath.Join(homeDirectory, strings.TrimPrefix(trimmedPath, homeDirectoryPrefixConstant))
	}

	absolutePath, absoluteError := filepath.Abs(trimmedPath)
	if absoluteError != nil {
		return "", fmt.Errorf(absolutePathResolutionTemplateConstant, trimmedPath, absoluteError)
	}
	return filepath.Clean(absolutePath), nil
}
