// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"

	"github.com/mia-platform/training/internal/envfile"
)

func TestCmds(t *testing.T) {
	t.Parallel()

	configPath, searchDir := setupTestFileStructure(t, t.TempDir(), false)

	testCases := map[string]struct {
		cmd                  *cobra.Command
		args                 []string
		expectedError        error
		expectedErrorMessage string
		expectedUsage        bool
	}{
		"init command with arguments returns error and print usage": {
			cmd:                  InitCmd(),
			args:                 []string{"unexpected"},
			expectedErrorMessage: "unknown command \"unexpected\" for \"init\"\n",
			expectedUsage:        true,
		},
		"env command with unknown output returns error and print usage": {
			cmd:                  EnvCmd(),
			args:                 []string{"--" + outputFlagName, "xml"},
			expectedError:        errInvalidOutput,
			expectedErrorMessage: errInvalidOutput.Error() + ": xml\n",
			expectedUsage:        true,
		},
		"init command with absolute logs directory returns error and print usage": {
			cmd:                  InitCmd(),
			args:                 []string{"--" + logsDirFlagName, "/var/log/training"},
			expectedError:        errInvalidLogsDir,
			expectedErrorMessage: errInvalidLogsDir.Error() + ": /var/log/training\n",
			expectedUsage:        true,
		},
		"init command without environment file returns error": {
			cmd:           InitCmd(),
			args:          []string{"--" + loggingConfigFlagName, configPath, "--" + searchDirFlagName, searchDir},
			expectedError: envfile.ErrNotFound,
		},
		"env command without environment file returns error": {
			cmd:           EnvCmd(),
			args:          []string{"-" + loggingConfigFlagShort, configPath, "--" + searchDirFlagName, searchDir},
			expectedError: envfile.ErrNotFound,
		},
	}

	for testName, test := range testCases {
		t.Run(testName, func(t *testing.T) {
			t.Parallel()

			errBuffer := new(bytes.Buffer)
			outBuffer := new(bytes.Buffer)
			test.cmd.SetOut(outBuffer)
			test.cmd.SetErr(errBuffer)
			test.cmd.SetUsageTemplate("usage string")
			test.cmd.SetArgs(test.args)

			err := test.cmd.ExecuteContext(t.Context())
			assert.Error(t, err)
			if test.expectedError != nil {
				assert.ErrorIs(t, err, test.expectedError)
			}
			if test.expectedErrorMessage != "" {
				assert.Equal(t, test.expectedErrorMessage, errBuffer.String())
			} else {
				assert.Contains(t, errBuffer.String(), envfile.ErrNotFound.Error())
				assert.Contains(t, errBuffer.String(), "--"+searchDirFlagName)
			}

			if test.expectedUsage {
				assert.Equal(t, "usage string", outBuffer.String())
			} else {
				assert.Empty(t, outBuffer)
			}
		})
	}
}

func TestOutputCompletion(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		toComplete         string
		expectedCompletion []string
	}{
		"empty string, complete all formats": {
			expectedCompletion: []string{
				"dotenv\tKEY=value lines, as in a .env file",
				"yaml\ta YAML mapping of variable names to values",
			},
		},
		"partial string, return filtered formats": {
			toComplete: "y",
			expectedCompletion: []string{
				"yaml\ta YAML mapping of variable names to values",
			},
		},
		"partial wrong string, return no format": {
			toComplete: "x",
		},
	}

	for testName, test := range testCases {
		t.Run(testName, func(t *testing.T) {
			t.Parallel()

			args, directive := validArgsFunc(availableOutputFormats)(nil, nil, test.toComplete)
			assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)
			assert.ElementsMatch(t, test.expectedCompletion, args)
		})
	}
}
