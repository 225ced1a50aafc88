package version

import (
	"context"
	"errors"
	"os"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/ecogate/internal/execshell"
)

const (
	unknownVersionConstant                    = "unknown"
	develVersionConstant                      = "(devel)"
	develVersionBareConstant                  = "devel"
	revisionSettingKeyConstant                = "vcs.revision"
	modifiedSettingKeyConstant                = "vcs.modified"
	modifiedSuffixConstant                    = "-dirty"
	shortRevisionLengthConstant               = 12
	gitTerminalPromptEnvironmentNameConstant  = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptEnvironmentValueConstant = "0"
	gitExecutorMissingMessageConstant         = "git executor not configured"
)

var (
	describeExactArguments = []string{"describe", "--tags", "--exact-match"}
	describeLongArguments  = []string{"describe", "--tags", "--long", "--dirty"}
)

// GitExecutor runs git for version discovery.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// BuildInfoProvider exposes runtime build metadata.
type BuildInfoProvider interface {
	Read() (*debug.BuildInfo, bool)
}

// Dependencies describes the collaborators required for version detection.
type Dependencies struct {
	BuildInfoProvider BuildInfoProvider
	GitExecutor       GitExecutor
	WorkingDirectory  string
}

// Detector resolves the ecogate version string.
type Detector struct {
	buildInfoProvider BuildInfoProvider
	gitExecutor       GitExecutor
	workingDirectory  string
}

// NewDetector constructs a Detector, defaulting to runtime build info and a quiet git executor.
func NewDetector(dependencies Dependencies) (*Detector, error) {
	provider := dependencies.BuildInfoProvider
	if provider == nil {
		provider = runtimeBuildInfoProvider{}
	}

	executor := dependencies.GitExecutor
	if executor == nil {
		shellExecutor, creationError := execshell.NewShellExecutor(zap.NewNop(), execshell.NewOSCommandRunner(), false)
		if creationError != nil {
			return nil, creationError
		}
		executor = shellExecutor
	}

	workingDirectory := strings.TrimSpace(dependencies.WorkingDirectory)
	if len(workingDirectory) == 0 {
		if currentDirectory, workingDirectoryError := os.Getwd(); workingDirectoryError == nil {
			workingDirectory = currentDirectory
		}
	}

	return &Detector{
		buildInfoProvider: provider,
		gitExecutor:       executor,
		workingDirectory:  workingDirectory,
	}, nil
}

// Detect resolves the version with a detector built from dependencies.
func Detect(executionContext context.Context, dependencies Dependencies) string {
	detector, detectorError := NewDetector(dependencies)
	if detectorError != nil {
		return unknownVersionConstant
	}
	return detector.Version(executionContext)
}

// Version prefers the module version, then git tags of the working directory, then the embedded VCS revision.
func (detector *Detector) Version(executionContext context.Context) string {
	if detector == nil {
		return unknownVersionConstant
	}

	buildInfo := detector.readBuildInfo()
	if moduleVersion := moduleVersionOf(buildInfo); len(moduleVersion) > 0 {
		return moduleVersion
	}

	for _, arguments := range [][]string{describeExactArguments, describeLongArguments} {
		if described := detector.describe(executionContext, arguments); len(described) > 0 {
			return described
		}
	}

	if revision := revisionOf(buildInfo); len(revision) > 0 {
		return revision
	}

	return unknownVersionConstant
}

func (detector *Detector) readBuildInfo() *debug.BuildInfo {
	if detector.buildInfoProvider == nil {
		return nil
	}
	buildInfo, available := detector.buildInfoProvider.Read()
	if !available {
		return nil
	}
	return buildInfo
}

func moduleVersionOf(buildInfo *debug.BuildInfo) string {
	if buildInfo == nil {
		return ""
	}
	trimmedVersion := strings.TrimSpace(buildInfo.Main.Version)
	switch strings.ToLower(trimmedVersion) {
	case "", develVersionConstant, develVersionBareConstant:
		return ""
	}
	return trimmedVersion
}

func revisionOf(buildInfo *debug.BuildInfo) string {
	if buildInfo == nil {
		return ""
	}
	revision := ""
	modified := false
	for _, setting := range buildInfo.Settings {
		switch setting.Key {
		case revisionSettingKeyConstant:
			revision = strings.TrimSpace(setting.Value)
		case modifiedSettingKeyConstant:
			modified = setting.Value == "true"
		}
	}
	if len(revision) == 0 {
		return ""
	}
	if len(revision) > shortRevisionLengthConstant {
		revision = revision[:shortRevisionLengthConstant]
	}
	if modified {
		revision += modifiedSuffixConstant
	}
	return revision
}

func (detector *Detector) describe(executionContext context.Context, arguments []string) string {
	if len(detector.workingDirectory) == 0 {
		return ""
	}
	executionResult, executionError := detector.executeGit(executionContext, execshell.CommandDetails{
		Arguments:        append([]string{}, arguments...),
		WorkingDirectory: detector.workingDirectory,
	})
	if executionError != nil {
		return ""
	}
	return strings.TrimSpace(executionResult.StandardOutput)
}

func (detector *Detector) executeGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	if detector.gitExecutor == nil {
		return execshell.ExecutionResult{}, errors.New(gitExecutorMissingMessageConstant)
	}
	details.EnvironmentVariables = map[string]string{gitTerminalPromptEnvironmentNameConstant: gitTerminalPromptEnvironmentValueConstant}
	return detector.gitExecutor.ExecuteGit(executionContext, details)
}

type runtimeBuildInfoProvider struct{}

func (runtimeBuildInfoProvider) Read() (*debug.BuildInfo, bool) {
	return debug.ReadBuildInfo()
}
