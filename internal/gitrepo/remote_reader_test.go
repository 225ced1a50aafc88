package gitrepo_test

import (
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/stretchr/testify/require"

	"github.com/tyemirov/ecogate/internal/gitrepo"
)

const (
	testOriginURLConstant              = "https://github.com/stackblitz/tutorialkit.git"
	testOriginPresentCaseNameConstant  = "origin_present"
	testOriginMissingCaseNameConstant  = "origin_missing"
	testNotRepositoryCaseNameConstant  = "not_repository"
	testBlankDirectoryCaseNameConstant = "blank_directory"
)

func TestRemoteReaderOriginURL(testInstance *testing.T) {
	testCases := []struct {
		name          string
		prepare       func(testInstance *testing.T) string
		expectedURL   string
		expectedError error
		expectInput   bool
	}{
		{
			name: testOriginPresentCaseNameConstant,
			prepare: func(testInstance *testing.T) string {
				directory := testInstance.TempDir()
				repository, initError := git.PlainInit(directory, false)
				require.NoError(testInstance, initError)
				_, remoteError := repository.CreateRemote(&config.RemoteConfig{Name: gitrepo.DefaultRemoteName, URLs: []string{testOriginURLConstant}})
				require.NoError(testInstance, remoteError)
				return directory
			},
			expectedURL: testOriginURLConstant,
		},
		{
			name: testOriginMissingCaseNameConstant,
			prepare: func(testInstance *testing.T) string {
				directory := testInstance.TempDir()
				_, initError := git.PlainInit(directory, false)
				require.NoError(testInstance, initError)
				return directory
			},
			expectedError: gitrepo.ErrRemoteNotFound,
		},
		{
			name: testNotRepositoryCaseNameConstant,
			prepare: func(testInstance *testing.T) string {
				return testInstance.TempDir()
			},
			expectedError: gitrepo.ErrNotARepository,
		},
		{
			name: testBlankDirectoryCaseNameConstant,
			prepare: func(testInstance *testing.T) string {
				return "  "
			},
			expectInput: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			directory := testCase.prepare(testInstance)
			originURL, readError := gitrepo.NewRemoteReader().OriginURL(directory)

			switch {
			case testCase.expectInput:
				require.Error(testInstance, readError)
				require.IsType(testInstance, gitrepo.InvalidRepositoryInputError{}, readError)
			case testCase.expectedError != nil:
				require.ErrorIs(testInstance, readError, testCase.expectedError)
			default:
				require.NoError(testInstance, readError)
				require.Equal(testInstance, testCase.expectedURL, originURL)
			}
		})
	}
}
