// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mia-platform/training/internal/envfile"
)

const (
	outputDotenv = "dotenv"
	outputYAML   = "yaml"

	maskedValue = "********"
)

var (
	errInvalidOutput  = errors.New("invalid output format")
	errInvalidLogsDir = errors.New("logs directory must be relative to the logging configuration directory")

	// availableOutputFormats holds the output formats of the env command and their description
	// for completion and help messages.
	availableOutputFormats = map[string]string{
		outputDotenv: "KEY=value lines, as in a .env file",
		outputYAML:   "a YAML mapping of variable names to values",
	}

	// secretMarkers flag variable names whose value must not be printed.
	secretMarkers = []string{"KEY", "TOKEN", "SECRET", "PASSWORD", "CREDENTIAL"}
)

// handleError will do custom print error handling based on the type of error received.
// it will return nil if the command must return 0 exit code, otherwise it will return
// the original error.
func handleError(cmd *cobra.Command, err error) error {
	switch {
	case errors.Is(err, errInvalidOutput), errors.Is(err, errInvalidLogsDir):
		cmd.PrintErrln(err)
		_ = cmd.Usage() // do not check error as we cannot do much about it
		return err
	case errors.Is(err, envfile.ErrNotFound):
		cmd.PrintErrln(err)
		cmd.PrintErrln("create a .env file next to the installation or set --" + searchDirFlagName)
		return err
	default:
		cmd.PrintErrln(err)
		return err
	}
}

// noArgs rejects positional arguments, printing the usage of cmd.
func noArgs(cmd *cobra.Command, args []string) error {
	err := cobra.NoArgs(cmd, args)
	if err != nil {
		cmd.PrintErrln(err)
		_ = cmd.Usage()
	}

	return err
}

func validArgsFunc(values map[string]string) cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var comps []string
		for name, description := range values {
			if strings.HasPrefix(name, toComplete) {
				comps = append(comps, cobra.CompletionWithDesc(name, description))
			}
		}

		return comps, cobra.ShellCompDirectiveNoFileComp
	}
}

// isSecret reports whether the variable called key probably holds a credential.
func isSecret(key string) bool {
	upper := strings.ToUpper(key)
	for _, marker := range secretMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}

	return false
}

// maskSecrets returns a copy of vars with the values of secret variables masked.
func maskSecrets(vars map[string]string) map[string]string {
	masked := make(map[string]string, len(vars))
	for key, value := range vars {
		if isSecret(key) && value != "" {
			value = maskedValue
		}
		masked[key] = value
	}

	return masked
}
