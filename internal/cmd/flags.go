// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/mia-platform/training/internal/bootstrap"
	"github.com/mia-platform/training/internal/logger"
)

const (
	loggingConfigFlagName  = "logging-config"
	loggingConfigFlagShort = "c"
	loggingConfigFlagUsage = "Path to the logging configuration file. Defaults to TRAINING_LOGGING_CONFIG or ../logging.yaml"

	logsDirFlagName  = "logs-dir"
	logsDirFlagUsage = "Name of the logs directory created next to the logging configuration file. Defaults to TRAINING_LOGS_DIR or logs"

	searchDirFlagName  = "search-dir"
	searchDirFlagUsage = "Directory where the search of the .env file starts. Defaults to the installation directory"

	outputFlagName  = "output"
	outputFlagShort = "o"
	outputFlagUsage = "Output format, one of: dotenv, yaml"

	// logLevelFlagName is the persistent flag registered by the root command.
	logLevelFlagName = "log-level"
)

// flags collects the CLI options shared by the init and env commands.
type flags struct {
	loggingConfigPath string
	logsDirName       string
	searchDir         string
	output            string
}

// addFlags registers the CLI flags on cmd.
func (f *flags) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.loggingConfigPath, loggingConfigFlagName, loggingConfigFlagShort, "", loggingConfigFlagUsage)
	cmd.Flags().StringVar(&f.logsDirName, logsDirFlagName, "", logsDirFlagUsage)
	cmd.Flags().StringVar(&f.searchDir, searchDirFlagName, "", searchDirFlagUsage)
}

// addOutputFlag registers the output format flag and its completion on cmd.
func (f *flags) addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.output, outputFlagName, outputFlagShort, outputDotenv, outputFlagUsage)
	_ = cmd.RegisterFlagCompletionFunc(outputFlagName, validArgsFunc(availableOutputFormats))
}

// toOptions builds an options instance from the environment configuration and the parsed flags,
// flags taking precedence.
func (f *flags) toOptions(cmd *cobra.Command, _ []string) (*options, error) {
	config, err := bootstrap.LoadConfig()
	if err != nil {
		return nil, err
	}

	bootstrapOptions := config.Options()
	if f.loggingConfigPath != "" {
		bootstrapOptions.LoggingConfigPath = f.loggingConfigPath
	}
	if f.logsDirName != "" {
		bootstrapOptions.LogsDirName = f.logsDirName
	}
	bootstrapOptions.SearchDir = f.searchDir
	bootstrapOptions.Stderr = cmd.ErrOrStderr()

	if flag := cmd.Flags().Lookup(logLevelFlagName); flag != nil && flag.Changed {
		level, set, err := logger.ParseLevel(flag.Value.String())
		if err != nil {
			return nil, err
		}
		if set {
			bootstrapOptions.LogLevel = &level
		}
	}

	return &options{
		bootstrap: bootstrapOptions,
		output:    strings.ToLower(f.output),
	}, nil
}
