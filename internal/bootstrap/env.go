// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package bootstrap

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

var (
	ErrEnvVariablesNotValid = errors.New("environment variables not valid")
)

// Config holds the bootstrap settings that can be provided through environment variables.
type Config struct {
	LoggingConfigPath string `env:"TRAINING_LOGGING_CONFIG" envDefault:"../logging.yaml"`
	LogsDirName       string `env:"TRAINING_LOGS_DIR" envDefault:"logs"`
	EnvFileName       string `env:"TRAINING_ENV_FILE_NAME" envDefault:".env"`
}

func LoadConfig() (*Config, error) {
	var envVars Config
	if err := env.Parse(&envVars); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEnvVariablesNotValid, err.Error())
	}

	if err := validateEnvironmentVariables(&envVars); err != nil {
		return nil, err
	}
	return &envVars, nil
}

func validateEnvironmentVariables(envVars *Config) error {
	envError := make([]string, 0)

	if strings.TrimSpace(envVars.LoggingConfigPath) == "" {
		envError = append(envError, "TRAINING_LOGGING_CONFIG must not be empty")
	}
	if filepath.IsAbs(envVars.LogsDirName) {
		envError = append(envError, "TRAINING_LOGS_DIR must be relative to the logging configuration directory")
	}
	if envVars.EnvFileName == "" || strings.ContainsRune(envVars.EnvFileName, filepath.Separator) {
		envError = append(envError, "TRAINING_ENV_FILE_NAME must be a file name")
	}

	if len(envError) > 0 {
		return fmt.Errorf("%w: %s", ErrEnvVariablesNotValid, strings.Join(envError, ", "))
	}
	return nil
}

// Options returns the bootstrap Options matching the configuration.
func (c *Config) Options() Options {
	return Options{
		LoggingConfigPath: c.LoggingConfigPath,
		LogsDirName:       c.LogsDirName,
		EnvFileName:       c.EnvFileName,
	}
}
