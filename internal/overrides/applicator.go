package overrides

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	gateerrors "github.com/tyemirov/ecogate/internal/errors"
	"github.com/tyemirov/ecogate/internal/execshell"
	"github.com/tyemirov/ecogate/internal/manifest"
	"github.com/tyemirov/ecogate/internal/packagemanager"
)

const (
	filePrefixConstant                  = "file:"
	pathSeparatorConstant               = "/"
	scopePrefixConstant                 = "@"
	overridesAppliedMessageConstant     = "package overrides applied"
	agentVersionPinnedMessageConstant   = "forcing package manager version"
	agentVersionPinnedTemplateConstant  = "Changing pkg.packageManager and pkg.engines.%s to enforce use of %s@%s"
	overridesAppliedTemplateConstant    = "Applied %d override(s) for %s in %s"
	agentFieldNameConstant              = "agent"
	versionFieldNameConstant            = "version"
	directoryFieldNameConstant          = "directory"
	overridesFieldNameConstant          = "overrides"
	undetectedAgentTemplateConstant     = "failed to detect packageManager in %s"
	loggerNotConfiguredMessageConstant  = "override applicator logger not configured"
	runnerNotConfiguredMessageConstant  = "override applicator command runner not configured"
	cleanerNotConfiguredMessageConstant = "override applicator cleaner not configured"
)

var (
	// ErrLoggerNotConfigured indicates the applicator was constructed without a logger.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrCommandRunnerNotConfigured indicates the applicator was constructed without a command runner.
	ErrCommandRunnerNotConfigured = errors.New(runnerNotConfiguredMessageConstant)
	// ErrCleanerNotConfigured indicates the applicator was constructed without a working tree cleaner.
	ErrCleanerNotConfigured = errors.New(cleanerNotConfiguredMessageConstant)
)

// CommandRunner runs an executable inside a run context.
type CommandRunner interface {
	Run(executionContext context.Context, runContext execshell.RunContext, name execshell.CommandName, arguments ...string) (execshell.ExecutionResult, error)
}

// WorkingTreeCleaner removes untracked and ignored files, including a previous install.
type WorkingTreeCleaner interface {
	Clean(executionContext context.Context, runContext execshell.RunContext) error
}

// Dependencies wires the collaborators of an Applicator.
type Dependencies struct {
	Runner        CommandRunner
	Cleaner       WorkingTreeCleaner
	Detector      packagemanager.AgentDetector
	BaseDirectory string
	Logger        *zap.Logger
	HumanLogging  bool
}

// Outcome describes an applied override set.
type Outcome struct {
	Agent        packagemanager.Identity
	Overrides    map[string]string
	AgentVersion string
}

// Applicator forces override versions into a project and installs its dependencies.
type Applicator struct {
	runner        CommandRunner
	cleaner       WorkingTreeCleaner
	detector      packagemanager.AgentDetector
	baseDirectory string
	logger        *zap.Logger
	humanLogging  bool
}

// NewApplicator validates dependencies and constructs an Applicator.
// Relative local override paths resolve against BaseDirectory, defaulting to the process directory.
func NewApplicator(dependencies Dependencies) (*Applicator, error) {
	if dependencies.Logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if dependencies.Runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}
	if dependencies.Cleaner == nil {
		return nil, ErrCleanerNotConfigured
	}
	detector := dependencies.Detector
	if detector == nil {
		detector = packagemanager.NewDetector(dependencies.Logger)
	}
	baseDirectory := strings.TrimSpace(dependencies.BaseDirectory)
	if len(baseDirectory) == 0 {
		workingDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError != nil {
			return nil, workingDirectoryError
		}
		baseDirectory = workingDirectory
	}
	return &Applicator{
		runner:        dependencies.Runner,
		cleaner:       dependencies.Cleaner,
		detector:      detector,
		baseDirectory: baseDirectory,
		logger:        dependencies.Logger,
		humanLogging:  dependencies.HumanLogging,
	}, nil
}

// Apply rewrites document for the detected package manager, persists it and installs.
// The project directory is the run context's directory.
func (applicator *Applicator) Apply(executionContext context.Context, runContext execshell.RunContext, document *manifest.Manifest, set Set, agentVersion string) (Outcome, error) {
	projectDirectory := runContext.Directory()
	if document == nil {
		return Outcome{}, gateerrors.WrapMessage(gateerrors.OperationConfig, projectDirectory, gateerrors.ErrManifestInvalid, manifest.FileName+" not loaded")
	}

	versions, resolveError := applicator.resolveLocalPaths(set.Versions())
	if resolveError != nil {
		return Outcome{}, resolveError
	}

	if cleanError := applicator.cleaner.Clean(executionContext, runContext); cleanError != nil {
		return Outcome{}, gateerrors.Wrap(gateerrors.OperationSync, projectDirectory, gateerrors.ErrCleanFailed, cleanError)
	}

	identity, detected, detectError := applicator.detector.Detect(executionContext, projectDirectory)
	if detectError != nil {
		return Outcome{}, gateerrors.Wrap(gateerrors.OperationConfig, projectDirectory, gateerrors.ErrAgentUndetected, detectError)
	}
	if !detected {
		return Outcome{}, gateerrors.WrapMessage(gateerrors.OperationConfig, projectDirectory, gateerrors.ErrAgentUndetected, fmt.Sprintf(undetectedAgentTemplateConstant, projectDirectory))
	}

	manager, managerError := packagemanager.ManagerFor(identity)
	if managerError != nil {
		return Outcome{}, managerError
	}

	trimmedAgentVersion := strings.TrimSpace(agentVersion)
	if len(trimmedAgentVersion) > 0 {
		applicator.logAgentVersionPin(manager.Name(), trimmedAgentVersion)
	}
	if applyError := manager.ApplyOverrides(document, versions); applyError != nil {
		return Outcome{}, gateerrors.Wrap(gateerrors.OperationConfig, document.Path(), gateerrors.ErrManifestInvalid, applyError)
	}
	// The pin runs after the rewrite so an override of the agent package cannot outrank it.
	if _, pinError := packagemanager.PinAgentVersion(document, manager.Name(), trimmedAgentVersion); pinError != nil {
		return Outcome{}, gateerrors.Wrap(gateerrors.OperationConfig, document.Path(), gateerrors.ErrManifestInvalid, pinError)
	}
	if saveError := document.Save(); saveError != nil {
		return Outcome{}, gateerrors.Wrap(gateerrors.OperationInstall, document.Path(), gateerrors.ErrManifestWriteFailed, saveError)
	}

	applicator.logApplied(identity, projectDirectory, versions)

	installInvocation := manager.InstallInvocation()
	if _, installError := applicator.runner.Run(executionContext, runContext, installInvocation.Command, installInvocation.Arguments...); installError != nil {
		return Outcome{}, gateerrors.Wrap(gateerrors.OperationInstall, installInvocation.String(), gateerrors.ErrInstallFailed, installError)
	}

	return Outcome{Agent: identity, Overrides: versions, AgentVersion: trimmedAgentVersion}, nil
}

// resolveLocalPaths rewrites path-like values naming existing directories to file: specifiers.
func (applicator *Applicator) resolveLocalPaths(versions map[string]string) (map[string]string, error) {
	resolved := make(map[string]string, len(versions))
	for name, version := range versions {
		if !isPathLike(version) {
			resolved[name] = version
			continue
		}
		candidate := version
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(applicator.baseDirectory, candidate)
		}
		info, statError := os.Lstat(candidate)
		switch {
		case statError == nil && info.IsDir():
			resolved[name] = filePrefixConstant + filepath.Clean(candidate)
		case statError == nil || errors.Is(statError, fs.ErrNotExist):
			resolved[name] = version
		default:
			return nil, gateerrors.Wrap(gateerrors.OperationConfig, name, gateerrors.ErrDirectoryInvalid, statError)
		}
	}
	return resolved, nil
}

// isPathLike excludes plain versions and scoped package specifiers.
func isPathLike(version string) bool {
	return strings.Contains(version, pathSeparatorConstant) && !strings.HasPrefix(version, scopePrefixConstant)
}

func (applicator *Applicator) logAgentVersionPin(agentName string, version string) {
	if applicator.humanLogging {
		applicator.logger.Warn(fmt.Sprintf(agentVersionPinnedTemplateConstant, agentName, agentName, version))
		return
	}
	applicator.logger.Warn(agentVersionPinnedMessageConstant,
		zap.String(agentFieldNameConstant, agentName),
		zap.String(versionFieldNameConstant, version),
	)
}

func (applicator *Applicator) logApplied(identity packagemanager.Identity, projectDirectory string, versions map[string]string) {
	if applicator.humanLogging {
		applicator.logger.Info(fmt.Sprintf(overridesAppliedTemplateConstant, len(versions), identity, projectDirectory))
		return
	}
	applicator.logger.Info(overridesAppliedMessageConstant,
		zap.String(agentFieldNameConstant, identity.String()),
		zap.String(directoryFieldNameConstant, projectDirectory),
		zap.Any(overridesFieldNameConstant, versions),
	)
}
