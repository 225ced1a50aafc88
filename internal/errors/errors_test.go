package errors_test

import (
	stdErrors "errors"
	"testing"

	"github.com/stretchr/testify/require"

	gateerrors "github.com/tyemirov/ecogate/internal/errors"
)

const (
	testSubjectConstant             = "/tmp/workspace/starters"
	testDetailMessageConstant       = "exit status 128"
	testFormattedMessageConstant    = "failed to detect package manager in /tmp/workspace/starters"
	testWrapWithDetailCaseName      = "wrap_with_detail"
	testWrapWithoutSubjectCaseName  = "wrap_without_subject"
	testWrapWithoutSentinelCaseName = "wrap_without_sentinel"
	testWrapMessageCaseName         = "wrap_message"
	testWrapMessageEmptyCaseName    = "wrap_message_empty"
)

func TestOperationErrorFormatting(testInstance *testing.T) {
	detailError := stdErrors.New(testDetailMessageConstant)

	testCases := []struct {
		name            string
		build           func() error
		expectedMessage string
		expectedCode    string
		expectSentinel  gateerrors.Sentinel
	}{
		{
			name: testWrapWithDetailCaseName,
			build: func() error {
				return gateerrors.Wrap(gateerrors.OperationSync, testSubjectConstant, gateerrors.ErrCloneFailed, detailError)
			},
			expectedMessage: "gate.sync[/tmp/workspace/starters]: clone_failed: exit status 128",
			expectedCode:    "clone_failed",
			expectSentinel:  gateerrors.ErrCloneFailed,
		},
		{
			name: testWrapWithoutSubjectCaseName,
			build: func() error {
				return gateerrors.Wrap(gateerrors.OperationTask, "", gateerrors.ErrTaskFailed, nil)
			},
			expectedMessage: "gate.task: task_failed",
			expectedCode:    "task_failed",
			expectSentinel:  gateerrors.ErrTaskFailed,
		},
		{
			name: testWrapWithoutSentinelCaseName,
			build: func() error {
				return gateerrors.Wrap(gateerrors.OperationInstall, testSubjectConstant, "", detailError)
			},
			expectedMessage: "gate.install[/tmp/workspace/starters]: exit status 128",
			expectedCode:    "",
		},
		{
			name: testWrapMessageCaseName,
			build: func() error {
				return gateerrors.WrapMessage(gateerrors.OperationConfig, testSubjectConstant, gateerrors.ErrAgentUndetected, testFormattedMessageConstant)
			},
			expectedMessage: "gate.config[/tmp/workspace/starters]: " + testFormattedMessageConstant,
			expectedCode:    "package_manager_undetected",
			expectSentinel:  gateerrors.ErrAgentUndetected,
		},
		{
			name: testWrapMessageEmptyCaseName,
			build: func() error {
				return gateerrors.WrapMessage(gateerrors.OperationConfig, "", gateerrors.ErrTaskInvalid, "")
			},
			expectedMessage: "gate.config: task_invalid",
			expectedCode:    "task_invalid",
			expectSentinel:  gateerrors.ErrTaskInvalid,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			builtError := testCase.build()
			require.EqualError(testInstance, builtError, testCase.expectedMessage)

			var operationError gateerrors.OperationError
			require.ErrorAs(testInstance, builtError, &operationError)
			require.Equal(testInstance, testCase.expectedCode, operationError.Code())

			if len(testCase.expectSentinel) > 0 {
				require.ErrorIs(testInstance, builtError, testCase.expectSentinel)
			}
		})
	}
}

func TestOperationErrorPreservesDetailChain(testInstance *testing.T) {
	detailError := stdErrors.New(testDetailMessageConstant)
	wrappedError := gateerrors.Wrap(gateerrors.OperationSync, testSubjectConstant, gateerrors.ErrFetchFailed, detailError)

	require.ErrorIs(testInstance, wrappedError, detailError)
	require.ErrorIs(testInstance, wrappedError, gateerrors.ErrFetchFailed)
}

func TestTaxonomyPredicates(testInstance *testing.T) {
	configError := gateerrors.Wrap(gateerrors.OperationConfig, "", gateerrors.ErrAgentUnsupported, nil)
	syncError := gateerrors.Wrap(gateerrors.OperationSync, "", gateerrors.ErrCloneFailed, nil)
	installError := gateerrors.Wrap(gateerrors.OperationInstall, "", gateerrors.ErrInstallFailed, nil)
	taskError := gateerrors.Wrap(gateerrors.OperationTask, "", gateerrors.ErrTaskFailed, nil)

	require.True(testInstance, gateerrors.IsConfigError(configError))
	require.False(testInstance, gateerrors.IsConfigError(syncError))
	require.True(testInstance, gateerrors.IsSyncError(syncError))
	require.True(testInstance, gateerrors.IsInstallError(installError))
	require.True(testInstance, gateerrors.IsTaskError(taskError))
	require.False(testInstance, gateerrors.IsTaskError(stdErrors.New(testDetailMessageConstant)))

	operation, found := gateerrors.OperationOf(installError)
	require.True(testInstance, found)
	require.Equal(testInstance, gateerrors.OperationInstall, operation)
}
