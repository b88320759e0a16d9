// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"context"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/mia-platform/training/internal/bootstrap"
	"github.com/mia-platform/training/internal/envfile"
	"github.com/mia-platform/training/internal/logger"
	"github.com/mia-platform/training/internal/tracking"
)

const commandLoggerName = "cmd"

// summary is what the init command prints once the initialization completes.
type summary struct {
	RunID           string            `yaml:"runId"`
	LoggingConfig   string            `yaml:"loggingConfig"`
	LoggingFallback bool              `yaml:"loggingFallback"`
	LogsDir         string            `yaml:"logsDir"`
	EnvFile         string            `yaml:"envFile"`
	LoadedVariables []string          `yaml:"loadedVariables"`
	Tracking        tracking.Settings `yaml:"tracking"`
}

// options configures the initialization run by the init and env commands.
type options struct {
	bootstrap bootstrap.Options
	output    string

	lock sync.Mutex
}

// validate checks the configured values and reports invalid setups.
func (o *options) validate() error {
	if filepath.IsAbs(o.bootstrap.LogsDirName) {
		return fmt.Errorf("%w: %s", errInvalidLogsDir, o.bootstrap.LogsDirName)
	}

	if o.output == "" {
		return nil
	}

	if _, ok := availableOutputFormats[o.output]; !ok {
		return fmt.Errorf("%w: %s", errInvalidOutput, o.output)
	}

	return nil
}

// initialize runs the bootstrap and applies the log level requested on the command line.
func (o *options) initialize(ctx context.Context) (*bootstrap.Runtime, error) {
	return bootstrap.Initialize(ctx, o.bootstrap)
}

// executeInit runs the initialization and writes its summary to out.
func (o *options) executeInit(ctx context.Context, out io.Writer) error {
	if !o.lock.TryLock() {
		return nil
	}
	defer o.lock.Unlock()

	initialized, err := o.initialize(ctx)
	if err != nil {
		return err
	}
	defer initialized.Close()

	log := logger.Named(initialized.Context(ctx), commandLoggerName)
	log.Info("training resources initialized",
		"runId", initialized.RunID,
		"logsDir", initialized.LogsDir,
		"envFile", initialized.EnvFile,
		"trackingMode", initialized.Tracking.Mode,
	)

	return encodeYAML(out, summary{
		RunID:           initialized.RunID,
		LoggingConfig:   initialized.LoggingConfigPath,
		LoggingFallback: initialized.LoggingFallback,
		LogsDir:         initialized.LogsDir,
		EnvFile:         initialized.EnvFile,
		LoadedVariables: slices.Sorted(maps.Keys(initialized.Loaded)),
		Tracking:        initialized.Tracking.Redacted(),
	})
}

// executeEnv runs the initialization and writes the resulting variables to out.
func (o *options) executeEnv(ctx context.Context, out io.Writer) error {
	if !o.lock.TryLock() {
		return nil
	}
	defer o.lock.Unlock()

	initialized, err := o.initialize(ctx)
	if err != nil {
		return err
	}
	defer initialized.Close()

	environment := o.bootstrap.Environment
	if environment == nil {
		environment = envfile.Process()
	}

	vars := make(map[string]string, len(initialized.Loaded)+2)
	for _, key := range append(slices.Collect(maps.Keys(initialized.Loaded)), tracking.LogAssetsKey, tracking.ModeKey) {
		if value, ok := environment.LookupEnv(key); ok {
			vars[key] = value
		}
	}
	vars = maskSecrets(vars)

	switch o.output {
	case outputYAML:
		return encodeYAML(out, vars)
	default:
		rendered, err := envfile.Marshal(vars)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, rendered)
		return err
	}
}

func encodeYAML(out io.Writer, value any) error {
	encoder := yaml.NewEncoder(out)
	encoder.SetIndent(2)
	if err := encoder.Encode(value); err != nil {
		return err
	}

	return encoder.Close()
}
