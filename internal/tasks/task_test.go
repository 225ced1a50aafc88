package tasks_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	gateerrors "github.com/tyemirov/ecogate/internal/errors"
	"github.com/tyemirov/ecogate/internal/tasks"
)

const (
	testNilCaseNameConstant          = "nil"
	testStringCaseNameConstant       = "string"
	testStringListCaseNameConstant   = "string_list"
	testMixedListCaseNameConstant    = "decoded_list_with_nil"
	testActionCaseNameConstant       = "action"
	testInvalidTypeCaseNameConstant  = "number"
	testInvalidEntryCaseNameConstant = "list_with_number"
	testKeyedListCaseNameConstant    = "keyed_entries"
	testKeyedSingleCaseNameConstant  = "keyed_single"
	testUnknownKeyCaseNameConstant   = "unknown_key"
	testTwoKeysCaseNameConstant      = "two_keys"
)

func TestParseSpecification(testInstance *testing.T) {
	action := func(context.Context) error { return nil }

	testCases := []struct {
		name              string
		raw               any
		expectedKinds     []tasks.Kind
		expectedConfigure bool
		expectedMessage   string
	}{
		{name: testNilCaseNameConstant, raw: nil, expectedKinds: []tasks.Kind{}},
		{name: testStringCaseNameConstant, raw: "build", expectedKinds: []tasks.Kind{tasks.KindText}, expectedConfigure: true},
		{name: testStringListCaseNameConstant, raw: []string{"build", "test"}, expectedKinds: []tasks.Kind{tasks.KindText, tasks.KindText}, expectedConfigure: true},
		{name: testMixedListCaseNameConstant, raw: []any{nil, "test"}, expectedKinds: []tasks.Kind{tasks.KindAbsent, tasks.KindText}, expectedConfigure: true},
		{name: testKeyedListCaseNameConstant, raw: []any{map[string]any{"script": "build"}, map[string]any{"command": "node check.js"}, "test"}, expectedKinds: []tasks.Kind{tasks.KindScript, tasks.KindCommand, tasks.KindText}, expectedConfigure: true},
		{name: testKeyedSingleCaseNameConstant, raw: map[string]any{"Command": "make test"}, expectedKinds: []tasks.Kind{tasks.KindCommand}, expectedConfigure: true},
		{name: testActionCaseNameConstant, raw: action, expectedKinds: []tasks.Kind{tasks.KindAction}, expectedConfigure: true},
		{name: testInvalidTypeCaseNameConstant, raw: 42, expectedMessage: "invalid task, expected string or function but got int: 42"},
		{name: testUnknownKeyCaseNameConstant, raw: []any{map[string]any{"shell": "build"}}, expectedMessage: "invalid task at index 0"},
		{name: testTwoKeysCaseNameConstant, raw: map[string]any{"script": "build", "command": "make"}, expectedMessage: "invalid task, expected string or function"},
		{name: testInvalidEntryCaseNameConstant, raw: []any{"build", 7}, expectedMessage: "invalid task at index 1, expected string or function but got int: 7"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			specification, parseError := tasks.ParseSpecification(testCase.raw)
			if len(testCase.expectedMessage) > 0 {
				require.Error(testInstance, parseError)
				require.True(testInstance, gateerrors.IsConfigError(parseError))
				require.ErrorIs(testInstance, parseError, gateerrors.ErrTaskInvalid)
				require.Contains(testInstance, parseError.Error(), testCase.expectedMessage)
				return
			}
			require.NoError(testInstance, parseError)
			kinds := make([]tasks.Kind, 0, len(specification))
			for _, task := range specification {
				kinds = append(kinds, task.Kind())
			}
			require.Equal(testInstance, testCase.expectedKinds, kinds)
			require.Equal(testInstance, testCase.expectedConfigure, specification.Configured())
		})
	}
}

func TestTaskAbsence(testInstance *testing.T) {
	require.True(testInstance, tasks.Task{}.IsAbsent())
	require.True(testInstance, tasks.Text("   ").IsAbsent())
	require.True(testInstance, tasks.FromAction(nil).IsAbsent())
	require.False(testInstance, tasks.Command("echo ok").IsAbsent())

	specification := tasks.Specification{tasks.Text(""), tasks.Text("build"), tasks.Script("test --run")}
	require.Equal(testInstance, "build && test --run", specification.String())
	require.Equal(testInstance, "<none>", tasks.Specification{tasks.Text("")}.String())
}

func TestTaskMarshalYAML(testInstance *testing.T) {
	testCases := []struct {
		name     string
		task     tasks.Task
		expected any
	}{
		{name: "text", task: tasks.Text("build"), expected: "build"},
		{name: "script", task: tasks.Script("build"), expected: map[string]string{"script": "build"}},
		{name: "command", task: tasks.Command("make test"), expected: map[string]string{"command": "make test"}},
		{name: "absent", task: tasks.Task{}, expected: nil},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			rendered, marshalError := testCase.task.MarshalYAML()
			require.NoError(testInstance, marshalError)
			require.Equal(testInstance, testCase.expected, rendered)
		})
	}
}
