package execshell_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/ecogate/internal/execshell"
)

const (
	testRootDirectoryConstant        = "/tmp/workspace"
	testRelativeDirectoryConstant    = "starters"
	testAbsoluteDirectoryConstant    = "/srv/checkout"
	testNodeOptionsKeyConstant       = "NODE_OPTIONS"
	testNodeOptionsValueConstant     = "--max-old-space-size=6144"
	testRelativeDirectoryCaseName    = "relative_directory"
	testAbsoluteDirectoryCaseName    = "absolute_directory"
	testEmptyDirectoryCaseName       = "empty_directory_keeps_current"
	testParentTraversalCaseName      = "parent_traversal"
	testParentTraversalDirectoryText = "../other"
)

func TestRunContextWithDirectory(testInstance *testing.T) {
	testCases := []struct {
		name              string
		directory         string
		expectedDirectory string
	}{
		{
			name:              testRelativeDirectoryCaseName,
			directory:         testRelativeDirectoryConstant,
			expectedDirectory: "/tmp/workspace/starters",
		},
		{
			name:              testAbsoluteDirectoryCaseName,
			directory:         testAbsoluteDirectoryConstant,
			expectedDirectory: testAbsoluteDirectoryConstant,
		},
		{
			name:              testEmptyDirectoryCaseName,
			directory:         "  ",
			expectedDirectory: testRootDirectoryConstant,
		},
		{
			name:              testParentTraversalCaseName,
			directory:         testParentTraversalDirectoryText,
			expectedDirectory: "/tmp/other",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			rootContext := execshell.NewRunContext(testRootDirectoryConstant, map[string]string{testNodeOptionsKeyConstant: testNodeOptionsValueConstant})
			derivedContext := rootContext.WithDirectory(testCase.directory)

			require.Equal(testInstance, testCase.expectedDirectory, derivedContext.Directory())
			require.Equal(testInstance, testRootDirectoryConstant, rootContext.Directory())
			require.Equal(testInstance, testNodeOptionsValueConstant, derivedContext.Environment()[testNodeOptionsKeyConstant])
		})
	}
}

func TestRunContextEnvironmentIsolation(testInstance *testing.T) {
	sourceEnvironment := map[string]string{testNodeOptionsKeyConstant: testNodeOptionsValueConstant}
	rootContext := execshell.NewRunContext(testRootDirectoryConstant, sourceEnvironment)

	sourceEnvironment[testNodeOptionsKeyConstant] = "mutated"
	returnedEnvironment := rootContext.Environment()
	returnedEnvironment["CI"] = "false"

	require.Equal(testInstance, testNodeOptionsValueConstant, rootContext.Environment()[testNodeOptionsKeyConstant])
	require.NotContains(testInstance, rootContext.Environment(), "CI")

	extendedContext := rootContext.WithEnvironment(map[string]string{"CI": "true"})
	require.Equal(testInstance, []string{"CI", testNodeOptionsKeyConstant}, extendedContext.EnvironmentKeys())
	require.Equal(testInstance, []string{testNodeOptionsKeyConstant}, rootContext.EnvironmentKeys())
}

func TestRunContextCommand(testInstance *testing.T) {
	runContext := execshell.NewRunContext(testRootDirectoryConstant, nil).WithDirectory(testRelativeDirectoryConstant)
	command := runContext.Command(execshell.CommandGit, "clean", "-fdxq")

	require.Equal(testInstance, execshell.CommandGit, command.Name)
	require.Equal(testInstance, []string{"clean", "-fdxq"}, command.Details.Arguments)
	require.Equal(testInstance, "/tmp/workspace/starters", command.Details.WorkingDirectory)
	require.Empty(testInstance, command.Details.EnvironmentVariables)
}

func TestRunContextDefaultsToCurrentDirectory(testInstance *testing.T) {
	require.Equal(testInstance, ".", execshell.RunContext{}.Directory())
	require.Equal(testInstance, ".", execshell.NewRunContext("", nil).Directory())
}
