package version_test

import (
	"context"
	"errors"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/ecogate/internal/execshell"
	"github.com/tyemirov/ecogate/internal/version"
)

const (
	testWorkingDirectoryConstant = "/workspace/ecogate"
	testRevisionConstant         = "0123456789abcdef0123"
)

type stubBuildInfoProvider struct {
	info      *debug.BuildInfo
	available bool
}

func (provider stubBuildInfoProvider) Read() (*debug.BuildInfo, bool) {
	if !provider.available {
		return nil, false
	}
	return provider.info, true
}

type stubGitCommand struct {
	expectedArguments []string
	output            string
	executionError    error
}

type stubGitExecutor struct {
	testInstance *testing.T
	commands     []stubGitCommand
}

func (executor *stubGitExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.testInstance.Helper()
	require.NotEmpty(executor.testInstance, executor.commands)
	require.Equal(executor.testInstance, testWorkingDirectoryConstant, details.WorkingDirectory)
	require.Equal(executor.testInstance, "0", details.EnvironmentVariables["GIT_TERMINAL_PROMPT"])

	command := executor.commands[0]
	executor.commands = executor.commands[1:]
	require.Equal(executor.testInstance, command.expectedArguments, details.Arguments)
	return execshell.ExecutionResult{StandardOutput: command.output}, command.executionError
}

func develBuildInfo(settings ...debug.BuildSetting) stubBuildInfoProvider {
	return stubBuildInfoProvider{info: &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}, Settings: settings}, available: true}
}

func TestDetectorVersion(testInstance *testing.T) {
	exactArguments := []string{"describe", "--tags", "--exact-match"}
	longArguments := []string{"describe", "--tags", "--long", "--dirty"}
	describeFailure := errors.New("no names found")

	testCases := []struct {
		name            string
		provider        stubBuildInfoProvider
		commands        []stubGitCommand
		expectedVersion string
	}{
		{
			name:            "module_version",
			provider:        stubBuildInfoProvider{info: &debug.BuildInfo{Main: debug.Module{Version: "v1.2.3"}}, available: true},
			expectedVersion: "v1.2.3",
		},
		{
			name:     "exact_tag",
			provider: develBuildInfo(),
			commands: []stubGitCommand{
				{expectedArguments: exactArguments, output: "v0.9.0\n"},
			},
			expectedVersion: "v0.9.0",
		},
		{
			name:     "long_describe",
			provider: develBuildInfo(),
			commands: []stubGitCommand{
				{expectedArguments: exactArguments, executionError: describeFailure},
				{expectedArguments: longArguments, output: "v0.9.0-1-gabcdef"},
			},
			expectedVersion: "v0.9.0-1-gabcdef",
		},
		{
			name: "embedded_revision",
			provider: develBuildInfo(
				debug.BuildSetting{Key: "vcs.revision", Value: testRevisionConstant},
				debug.BuildSetting{Key: "vcs.modified", Value: "true"},
			),
			commands: []stubGitCommand{
				{expectedArguments: exactArguments, executionError: describeFailure},
				{expectedArguments: longArguments, executionError: describeFailure},
			},
			expectedVersion: "0123456789ab-dirty",
		},
		{
			name:     "unknown",
			provider: stubBuildInfoProvider{},
			commands: []stubGitCommand{
				{expectedArguments: exactArguments, executionError: describeFailure},
				{expectedArguments: longArguments, executionError: describeFailure},
			},
			expectedVersion: "unknown",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtest *testing.T) {
			executor := &stubGitExecutor{testInstance: subtest, commands: testCase.commands}
			detector, creationError := version.NewDetector(version.Dependencies{
				BuildInfoProvider: testCase.provider,
				GitExecutor:       executor,
				WorkingDirectory:  testWorkingDirectoryConstant,
			})
			require.NoError(subtest, creationError)

			require.Equal(subtest, testCase.expectedVersion, detector.Version(context.Background()))
			require.Empty(subtest, executor.commands)
		})
	}
}

func TestNilDetectorReportsUnknown(testInstance *testing.T) {
	var detector *version.Detector
	require.Equal(testInstance, "unknown", detector.Version(context.Background()))
}
