package pathutils_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pathutils "github.com/tyemirov/ecogate/internal/utils/path"
)

const (
	testHomeDirectoryConstant             = "/home/ecogate"
	testTildeRelativePathConstant         = "~/workspace/ecosystem-ci"
	testTildeOnlyPathConstant             = "~"
	testAbsolutePathConstant              = "/var/lib/ecogate/../ecogate/workspace"
	testWhitespacePaddedPathConstant      = "  /tmp/ecogate\t"
	testTildeExpansionCaseNameConstant    = "tilde_expansion"
	testTildeOnlyCaseNameConstant         = "tilde_only"
	testAbsoluteCleanCaseNameConstant     = "absolute_clean"
	testWhitespaceCaseNameConstant        = "whitespace_trimmed"
	testRelativeCaseNameConstant          = "relative_path"
	testEmptyCaseNameConstant             = "empty_path"
	testHomeFailureCaseNameConstant       = "home_failure"
	testHomeFailureMessageConstant        = "home unavailable"
	testRelativeWorkspacePathConstant     = "workspace"
	testTildeUserPrefixedPathConstant     = "~other/workspace"
	testTildeUserPrefixedCaseNameConstant = "tilde_user_prefix_untouched"
)

func TestResolverResolve(testInstance *testing.T) {
	workingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(testInstance, workingDirectoryError)

	testCases := []struct {
		name         string
		homeResolver pathutils.HomeDirectoryResolver
		input        string
		expected     string
		expectError  bool
	}{
		{
			name:     testTildeExpansionCaseNameConstant,
			input:    testTildeRelativePathConstant,
			expected: filepath.Join(testHomeDirectoryConstant, "workspace", "ecosystem-ci"),
		},
		{
			name:     testTildeOnlyCaseNameConstant,
			input:    testTildeOnlyPathConstant,
			expected: testHomeDirectoryConstant,
		},
		{
			name:     testAbsoluteCleanCaseNameConstant,
			input:    testAbsolutePathConstant,
			expected: "/var/lib/ecogate/workspace",
		},
		{
			name:     testWhitespaceCaseNameConstant,
			input:    testWhitespacePaddedPathConstant,
			expected: "/tmp/ecogate",
		},
		{
			name:     testRelativeCaseNameConstant,
			input:    testRelativeWorkspacePathConstant,
			expected: filepath.Join(workingDirectory, testRelativeWorkspacePathConstant),
		},
		{
			name:     testTildeUserPrefixedCaseNameConstant,
			input:    testTildeUserPrefixedPathConstant,
			expected: filepath.Join(workingDirectory, testTildeUserPrefixedPathConstant),
		},
		{
			name:        testEmptyCaseNameConstant,
			input:       "   ",
			expectError: true,
		},
		{
			name: testHomeFailureCaseNameConstant,
			homeResolver: func() (string, error) {
				return "", errors.New(testHomeFailureMessageConstant)
			},
			input:       testTildeRelativePathConstant,
			expectError: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			homeResolver := testCase.homeResolver
			if homeResolver == nil {
				homeResolver = func() (string, error) {
					return testHomeDirectoryConstant, nil
				}
			}
			resolver := pathutils.NewResolver(homeResolver)

			resolvedPath, resolveError := resolver.Resolve(testCase.input)
			if testCase.expectError {
				require.Error(testInstance, resolveError)
				return
			}
			require.NoError(testInstance, resolveError)
			require.Equal(testInstance, testCase.expected, resolvedPath)
		})
	}
}
