package overrides_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/ecogate/internal/overrides"
)

func TestParseAssignment(testInstance *testing.T) {
	testCases := []struct {
		name          string
		raw           string
		expectedName  string
		expectedValue overrides.Value
		expectError   bool
	}{
		{name: "scoped_version", raw: "@webcontainer/api=1.6.0", expectedName: "@webcontainer/api", expectedValue: overrides.Version("1.6.0")},
		{name: "value_with_equals", raw: "vite=https://pkg.pr.new/vite@123?a=b", expectedName: "vite", expectedValue: overrides.Version("https://pkg.pr.new/vite@123?a=b")},
		{name: "flag_true", raw: "vitest=true", expectedName: "vitest", expectedValue: overrides.Flag(true)},
		{name: "flag_false", raw: " vitest = false ", expectedName: "vitest", expectedValue: overrides.Flag(false)},
		{name: "missing_separator", raw: "vitest", expectError: true},
		{name: "missing_name", raw: "=1.0.0", expectError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			name, value, parseError := overrides.ParseAssignment(testCase.raw)
			if testCase.expectError {
				require.ErrorIs(testInstance, parseError, overrides.ErrInvalidAssignment)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedName, name)
			require.Equal(testInstance, testCase.expectedValue, value)
		})
	}
}

func TestSetVersionsDropsFlags(testInstance *testing.T) {
	set, parseError := overrides.ParseAssignments([]string{"vite=5.0.0", "vitest=true", "vite=5.1.0"})
	require.NoError(testInstance, parseError)

	require.Equal(testInstance, map[string]string{"vite": "5.1.0"}, set.Versions())
	require.Equal(testInstance, []string{"vite", "vitest"}, set.Names())

	derived := set.With("@webcontainer/api", overrides.Version("1.6.0"))
	require.Len(testInstance, set, 2)
	require.Len(testInstance, derived, 3)

	merged := set.Merge(overrides.Set{"vite": overrides.Flag(false)})
	require.True(testInstance, merged["vite"].IsFlag())
	require.Equal(testInstance, "false", merged["vite"].String())
}

func TestFromMap(testInstance *testing.T) {
	set, conversionError := overrides.FromMap(map[string]any{"vite": "5.0.0", "vitest": false})
	require.NoError(testInstance, conversionError)
	text, isText := set["vite"].Text()
	require.True(testInstance, isText)
	require.Equal(testInstance, "5.0.0", text)
	require.True(testInstance, set["vitest"].IsFlag())

	_, invalidError := overrides.FromMap(map[string]any{"vite": 5})
	require.ErrorIs(testInstance, invalidError, overrides.ErrInvalidValue)
}
