// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package tracking

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/mia-platform/training/internal/envfile"
)

const (
	// LogAssetsKey enables logging of model checkpoints as experiment assets.
	LogAssetsKey = "COMET_LOG_ASSETS"
	// ModeKey selects how experiments are recorded.
	ModeKey = "COMET_MODE"

	// LogAssetsValue is the value forced for LogAssetsKey at startup.
	LogAssetsValue = "True"

	redactedValue = "********"
)

// Mode selects whether experiments are sent to the tracking service, saved locally or not recorded.
type Mode string

const (
	ModeOnline   Mode = "ONLINE"
	ModeOffline  Mode = "OFFLINE"
	ModeDisabled Mode = "DISABLED"
)

var (
	ErrEnvVariablesNotValid = errors.New("environment variables not valid")
)

// Settings holds the experiment tracking configuration.
type Settings struct {
	LogAssets        bool   `env:"COMET_LOG_ASSETS" envDefault:"false" json:"logAssets" yaml:"logAssets"`
	Mode             Mode   `env:"COMET_MODE" envDefault:"ONLINE" json:"mode" yaml:"mode"`
	APIKey           string `env:"COMET_API_KEY" json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	ProjectName      string `env:"COMET_PROJECT_NAME" json:"projectName,omitempty" yaml:"projectName,omitempty"`
	Workspace        string `env:"COMET_WORKSPACE" json:"workspace,omitempty" yaml:"workspace,omitempty"`
	OfflineDirectory string `env:"COMET_OFFLINE_DIRECTORY" json:"offlineDirectory,omitempty" yaml:"offlineDirectory,omitempty"`
}

// Apply sets the tracking variables used by every training run, overriding any previous value:
// checkpoints are logged as assets and experiments are sent online.
func Apply(environment envfile.Environment) error {
	if err := environment.Setenv(LogAssetsKey, LogAssetsValue); err != nil {
		return fmt.Errorf("setting %s: %w", LogAssetsKey, err)
	}

	if err := environment.Setenv(ModeKey, string(ModeOnline)); err != nil {
		return fmt.Errorf("setting %s: %w", ModeKey, err)
	}

	return nil
}

// Load parses the tracking settings from vars.
func Load(vars map[string]string) (*Settings, error) {
	if vars == nil {
		vars = map[string]string{}
	}

	var settings Settings
	if err := env.ParseWithOptions(&settings, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEnvVariablesNotValid, err.Error())
	}

	if err := validateSettings(&settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func validateSettings(settings *Settings) error {
	envError := make([]string, 0)

	mode := Mode(strings.ToUpper(string(settings.Mode)))
	switch mode {
	case ModeOnline, ModeOffline, ModeDisabled:
		settings.Mode = mode
	default:
		envError = append(envError, fmt.Sprintf("%s must be one of %s, %s, %s", ModeKey, ModeOnline, ModeOffline, ModeDisabled))
	}

	if len(envError) > 0 {
		return fmt.Errorf("%w: %s", ErrEnvVariablesNotValid, strings.Join(envError, ", "))
	}
	return nil
}

// Redacted returns a copy of the settings safe to print.
func (s Settings) Redacted() Settings {
	if s.APIKey != "" {
		s.APIKey = redactedValue
	}

	return s
}
