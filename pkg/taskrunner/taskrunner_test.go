package taskrunner

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/ecogate/internal/gate"
	"github.com/tyemirov/ecogate/internal/reposync"
)

type fakeExecutor struct {
	report gate.Report
	err    error
}

func (executor fakeExecutor) Run(_ context.Context, _ reposync.RepoRef, _ gate.RunOptions) (gate.Report, error) {
	return executor.report, executor.err
}

func TestResolvePrintsSummaryAfterRun(t *testing.T) {
	buffer := &bytes.Buffer{}
	runError := errors.New("build failed")
	report := gate.Report{
		Suite:  "starters",
		Stages: []gate.StageResult{{Stage: gate.StageSync, Status: gate.StatusSucceeded}, {Stage: gate.StageBuild, Status: gate.StatusFailed, Err: runError}},
	}

	executor, err := Resolve(
		func(gate.Dependencies) (Executor, error) { return fakeExecutor{report: report, err: runError}, nil },
		DependenciesResult{Errors: buffer},
	)
	require.NoError(t, err)

	returned, returnedError := executor.Run(context.Background(), reposync.RepoRef{Repository: "stackblitz/starters"}, gate.RunOptions{})
	require.ErrorIs(t, returnedError, runError)
	require.Equal(t, report, returned)
	require.Contains(t, buffer.String(), "Summary: suite=starters failed.stage=build result=failed")
}

func TestResolveSkipsSummaryWithoutStages(t *testing.T) {
	buffer := &bytes.Buffer{}
	executor, err := Resolve(
		func(gate.Dependencies) (Executor, error) { return fakeExecutor{}, nil },
		DependenciesResult{Errors: buffer},
	)
	require.NoError(t, err)

	_, runError := executor.Run(context.Background(), reposync.RepoRef{}, gate.RunOptions{})
	require.NoError(t, runError)
	require.Empty(t, buffer.String())
}

func TestResolveBuildsDefaultGate(t *testing.T) {
	_, missingError := Resolve(nil, DependenciesResult{})
	require.ErrorIs(t, missingError, gate.ErrLoggerNotConfigured)

	dependencies, err := BuildDependencies(DependenciesConfig{CommandRunner: &stubCommandRunner{}, BaseDirectory: t.TempDir()}, DependenciesOptions{Output: &bytes.Buffer{}, Errors: &bytes.Buffer{}})
	require.NoError(t, err)
	executor, resolveError := Resolve(nil, dependencies)
	require.NoError(t, resolveError)
	require.NotNil(t, executor)
}
