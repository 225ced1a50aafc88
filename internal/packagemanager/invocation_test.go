package packagemanager_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/ecogate/internal/execshell"
	"github.com/tyemirov/ecogate/internal/packagemanager"
)

func TestRunScript(testInstance *testing.T) {
	testCases := []struct {
		name              string
		agent             packagemanager.Identity
		task              string
		expectedCommand   execshell.CommandName
		expectedArguments []string
		expectError       bool
	}{
		{
			name:              "pnpm_with_arguments",
			agent:             "pnpm",
			task:              "test -- --project chromium",
			expectedCommand:   execshell.CommandPnpm,
			expectedArguments: []string{"run", "test", "--", "--project", "chromium"},
		},
		{
			name:              "yarn_berry",
			agent:             "yarn@berry",
			task:              "build",
			expectedCommand:   execshell.CommandYarn,
			expectedArguments: []string{"run", "build"},
		},
		{
			name:              "npm_quoted_argument",
			agent:             "npm",
			task:              `test -- --grep "two words"`,
			expectedCommand:   execshell.CommandNpm,
			expectedArguments: []string{"run", "test", "--", "--grep", "two words"},
		},
		{
			name:        "unsupported_agent",
			agent:       "bun",
			task:        "test",
			expectError: true,
		},
		{
			name:        "blank_task",
			agent:       "npm",
			task:        "   ",
			expectError: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			invocation, runError := packagemanager.RunScript(testCase.agent, testCase.task)
			if testCase.expectError {
				require.Error(testInstance, runError)
				return
			}
			require.NoError(testInstance, runError)
			require.Equal(testInstance, testCase.expectedCommand, invocation.Command)
			require.Equal(testInstance, testCase.expectedArguments, invocation.Arguments)
		})
	}
}

func TestSplitWordsRejectsShellOperators(testInstance *testing.T) {
	_, splitError := packagemanager.SplitWords("npm test && npm run lint")
	require.ErrorIs(testInstance, splitError, packagemanager.ErrShellOperator)

	words, quotedError := packagemanager.SplitWords(`echo "a && b"`)
	require.NoError(testInstance, quotedError)
	require.Equal(testInstance, []string{"echo", "a && b"}, words)
}

func TestInvocationString(testInstance *testing.T) {
	invocation := packagemanager.Invocation{Command: execshell.CommandPnpm, Arguments: []string{"install", "--prefer-offline"}}
	require.Equal(testInstance, "pnpm install --prefer-offline", invocation.String())
}
