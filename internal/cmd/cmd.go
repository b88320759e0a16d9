// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

const (
	initCmdUsage = "init"
	initCmdShort = "prepare the training environment"
	initCmdLong  = `Prepare the training environment.
	The logs directory is created next to the logging configuration file and
	logging is configured from it; when the file is missing logging falls back
	to the INFO level on stderr.

	Then the .env file nearest to the installation directory is loaded and the
	experiment tracking variables are set. A missing .env file is a fatal error.`

	initCmdExample = `# Initialize with the default logging configuration
	training init

	# Initialize with a custom logging configuration and logs directory
	training init --logging-config conf/logging.yaml --logs-dir output`

	envCmdUsage = "env"
	envCmdShort = "print the environment prepared for training"
	envCmdLong  = `Print the environment prepared for training.
	The command runs the same initialization of init and prints the variables
	read from the .env file together with the experiment tracking variables.
	Values of variables that look like credentials are masked.`

	envCmdExample = `# Print the environment in .env format
	training env

	# Print the environment as YAML
	training env --output yaml`
)

// InitCmd returns the Cobra command that runs the training initialization.
func InitCmd() *cobra.Command {
	flags := &flags{}
	cmd := &cobra.Command{
		Use:     initCmdUsage,
		Short:   heredoc.Doc(initCmdShort),
		Long:    heredoc.Doc(initCmdLong),
		Example: heredoc.Doc(initCmdExample),

		SilenceErrors: true,
		SilenceUsage:  true,

		Args:              noArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.toOptions(cmd, args)
			if err != nil {
				return handleError(cmd, err)
			}

			if err := opts.validate(); err != nil {
				return handleError(cmd, err)
			}

			if err := opts.executeInit(cmd.Context(), cmd.OutOrStdout()); err != nil {
				return handleError(cmd, err)
			}

			return nil
		},
	}

	flags.addFlags(cmd)
	return cmd
}

// EnvCmd returns the Cobra command that prints the environment prepared for training.
func EnvCmd() *cobra.Command {
	flags := &flags{}
	cmd := &cobra.Command{
		Use:     envCmdUsage,
		Short:   heredoc.Doc(envCmdShort),
		Long:    heredoc.Doc(envCmdLong),
		Example: heredoc.Doc(envCmdExample),

		SilenceErrors: true,
		SilenceUsage:  true,

		Args:              noArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.toOptions(cmd, args)
			if err != nil {
				return handleError(cmd, err)
			}

			if err := opts.validate(); err != nil {
				return handleError(cmd, err)
			}

			if err := opts.executeEnv(cmd.Context(), cmd.OutOrStdout()); err != nil {
				return handleError(cmd, err)
			}

			return nil
		},
	}

	flags.addFlags(cmd)
	flags.addOutputFlag(cmd)
	return cmd
}
