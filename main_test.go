// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/mia-platform/training/internal/info"
	"github.com/mia-platform/training/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	t.Parallel()

	Version = "test"
	BuildDate = "2024-06-01"

	cmd := rootCmd()
	buffer := new(bytes.Buffer)
	cmd.SetOut(buffer)

	log := logger.NewLogger(cmd.OutOrStderr())
	ctx := logger.WithContext(t.Context(), log)

	cmd.SetArgs([]string{"--log-level", "WARN", "version"})
	err := cmd.ExecuteContext(ctx)
	require.NoError(t, err)

	log.Info("ignored line for set log level")
	lines := strings.Split(buffer.String(), "\n")
	assert.Len(t, lines, 2) // version output + empty line
	assert.Equal(t, info.VersionString(Version, BuildDate, runtime.Version())+"\n", buffer.String())

	buffer.Reset()
	BuildDate = ""
	cmd.SetArgs([]string{"--log-level", "WARN", "version"})
	err = cmd.ExecuteContext(ctx)
	require.NoError(t, err)
	lines = strings.Split(buffer.String(), "\n")
	assert.Len(t, lines, 2) // version output + empty line
	assert.Equal(t, info.VersionString(Version, "", runtime.Version())+"\n", buffer.String())
}

const rootInitLoggingConfig = `version: 1
handlers:
  console:
    class: logging.StreamHandler
    stream: ext://sys.stderr
root:
  level: WARNING
  handlers: [console]
`

func TestRootInitCommand(t *testing.T) {
	baseDir := t.TempDir()
	configPath := filepath.Join(baseDir, "conf", "logging.yaml")
	searchDir := filepath.Join(baseDir, "install", "bin")
	envPath := filepath.Join(baseDir, "install", ".env")

	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), os.ModePerm))
	require.NoError(t, os.MkdirAll(searchDir, os.ModePerm))
	require.NoError(t, os.WriteFile(configPath, []byte(rootInitLoggingConfig), 0o600))
	require.NoError(t, os.WriteFile(envPath, []byte("TRAINING_ROOT_TEST=loaded\n"), 0o600))

	// register the cleanups that restore the variables touched by the initialization
	t.Setenv("TRAINING_ROOT_TEST", "")
	require.NoError(t, os.Unsetenv("TRAINING_ROOT_TEST"))
	t.Setenv("COMET_LOG_ASSETS", "False")
	t.Setenv("COMET_MODE", "OFFLINE")

	cmd := rootCmd()
	outBuffer := new(bytes.Buffer)
	errBuffer := new(bytes.Buffer)
	cmd.SetOut(outBuffer)
	cmd.SetErr(errBuffer)

	log := logger.NewLogger(errBuffer)
	ctx := logger.WithContext(t.Context(), log)

	cmd.SetArgs([]string{"--log-level", "DEBUG", "init", "--logging-config", configPath, "--search-dir", searchDir})
	require.NoError(t, cmd.ExecuteContext(ctx))

	assert.Contains(t, outBuffer.String(), "envFile: "+envPath)
	assert.Contains(t, outBuffer.String(), "mode: ONLINE")

	// the root logger is at WARNING, the records below pass only through the --log-level override
	assert.Contains(t, errBuffer.String(), "Initializing resources...")
	assert.Contains(t, errBuffer.String(), "Loading environment variables from "+envPath)
	assert.Contains(t, errBuffer.String(), "experiment tracking configured")
	assert.Contains(t, errBuffer.String(), "training resources initialized")
	assert.Equal(t, "loaded", os.Getenv("TRAINING_ROOT_TEST"))
	assert.Equal(t, "True", os.Getenv("COMET_LOG_ASSETS"))
	assert.Equal(t, "ONLINE", os.Getenv("COMET_MODE"))
}

func TestRootInvalidLogLevel(t *testing.T) {
	t.Parallel()

	cmd := rootCmd()
	errBuffer := new(bytes.Buffer)
	cmd.SetErr(errBuffer)
	cmd.SetOut(new(bytes.Buffer))

	cmd.SetArgs([]string{"--log-level", "LOUD", "version"})
	err := cmd.ExecuteContext(t.Context())
	require.ErrorIs(t, err, logger.ErrInvalidLevel)
	assert.Equal(t, "invalid log level: \"LOUD\"\n", errBuffer.String())
}
