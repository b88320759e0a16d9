// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeLines parses the JSON records written in output.
func decodeLines(tb testing.TB, output string) []map[string]any {
	tb.Helper()

	records := make([]map[string]any, 0)
	for _, line := range strings.Split(output, "\n") {
		if line == "" {
			continue
		}

		record := make(map[string]any)
		require.NoError(tb, json.Unmarshal([]byte(line), &record), line)
		records = append(records, record)
	}

	return records
}

func messages(records []map[string]any) []string {
	collected := make([]string, 0, len(records))
	for _, record := range records {
		collected = append(collected, record["@message"].(string))
	}

	return collected
}

func TestRegistryConfigure(t *testing.T) {
	t.Parallel()

	baseDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(baseDir, "logs"), 0o755))

	config, err := LoadConfig(filepath.Join("testdata", "logging.yaml"))
	require.NoError(t, err)

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	registry := NewRegistry(stdout, stderr)
	require.NoError(t, registry.Configure(config, baseDir))

	root := registry.Root()
	api := registry.Named("training.api")
	loader := registry.Named("training.data.loader")

	root.Debug("filtered by root level")
	root.Info("root info")
	api.Debug("api debug only reaches the error file handler")
	api.Error("api error")
	loader.Info("loader info")
	loader.Error("loader error")

	require.NoError(t, registry.Close())

	assert.Empty(t, stderr.String())
	consoleLines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, consoleLines, 3)
	assert.Contains(t, consoleLines[0], "root info")
	assert.Contains(t, consoleLines[1], "loader info")
	assert.Contains(t, consoleLines[2], "loader error")
	assert.Contains(t, consoleLines[2], "training.data.loader")

	infoFile, err := os.ReadFile(filepath.Join(baseDir, "logs", "info.log"))
	require.NoError(t, err)
	assert.Equal(t, []string{"root info", "loader info", "loader error"}, messages(decodeLines(t, string(infoFile))))

	errorFile, err := os.ReadFile(filepath.Join(baseDir, "logs", "errors.log"))
	require.NoError(t, err)
	errorRecords := decodeLines(t, string(errorFile))
	assert.Equal(t, []string{"api error", "loader error"}, messages(errorRecords))
	assert.Equal(t, "training.api", errorRecords[0]["@module"])
	assert.Equal(t, "training.data.loader", errorRecords[1]["@module"])

	assert.Equal(t, DEBUG, registry.EffectiveLevel("training.api.v1"))
	assert.Equal(t, INFO, registry.EffectiveLevel("training.data"))
}

func TestRegistryKeepsExistingLoggers(t *testing.T) {
	t.Parallel()

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	registry := NewRegistry(stdout, stderr)
	models := registry.Named("training.models")

	models.Info("dropped before any configuration")
	models.Warn("last resort warning")
	assert.Equal(t, []string{"last resort warning"}, messages(decodeLines(t, stderr.String())))
	assert.Equal(t, WARN, registry.EffectiveLevel("training.models"))

	stderr.Reset()
	registry.BasicConfig(INFO)
	models.Info("basic info")
	records := decodeLines(t, stderr.String())
	assert.Equal(t, []string{"basic info"}, messages(records))
	assert.Equal(t, "training.models", records[0]["@module"])

	stderr.Reset()
	config := &Config{
		Version:                SupportedConfigVersion,
		DisableExistingLoggers: true,
		Formatters:             map[string]FormatterConfig{"json": {JSON: true}},
		Handlers: map[string]HandlerConfig{
			"out": {Class: "stream", Stream: "stdout", Formatter: "json"},
		},
		Root: &LoggerConfig{Level: "DEBUG", Handlers: []string{"out"}},
	}
	require.NoError(t, registry.Configure(config, ""))

	models.Debug("configured debug")
	assert.Empty(t, stderr.String())
	assert.Equal(t, []string{"configured debug"}, messages(decodeLines(t, stdout.String())))
}

func TestRegistryBasicConfigWithHandlers(t *testing.T) {
	t.Parallel()

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	registry := NewRegistry(stdout, stderr)

	config := &Config{
		Version:    SupportedConfigVersion,
		Formatters: map[string]FormatterConfig{"json": {JSON: true}},
		Handlers: map[string]HandlerConfig{
			"out": {Class: StreamHandlerClass, Stream: "ext://sys.stdout", Formatter: "json"},
		},
		Root: &LoggerConfig{Level: "ERROR", Handlers: []string{"out"}},
	}
	require.NoError(t, registry.Configure(config, ""))

	registry.BasicConfig(DEBUG)
	assert.Equal(t, ERROR, registry.EffectiveLevel(RootName))

	registry.Root().Info("filtered")
	assert.Empty(t, stdout.String())
	assert.Empty(t, stderr.String())
}

func TestRegistryNamesAndLevels(t *testing.T) {
	t.Parallel()

	stderr := new(bytes.Buffer)
	registry := NewRegistry(nil, stderr)
	registry.BasicConfig(INFO)

	metrics := registry.Root().WithName("training").WithName("metrics")
	metrics.Debug("filtered debug")
	metrics.SetLevel(TRACE)
	metrics.Trace("trace after override")
	registry.Named("training").Debug("parent still filtered")

	records := decodeLines(t, stderr.String())
	assert.Equal(t, []string{"trace after override"}, messages(records))
	assert.Equal(t, "training.metrics", records[0]["@module"])
	assert.Equal(t, TRACE, registry.EffectiveLevel("training.metrics.accuracy"))
	assert.Equal(t, INFO, registry.EffectiveLevel("training"))
}

func TestRegistryConfigureFailureKeepsPreviousState(t *testing.T) {
	t.Parallel()

	stderr := new(bytes.Buffer)
	registry := NewRegistry(nil, stderr)
	registry.BasicConfig(INFO)

	config := &Config{
		Version: SupportedConfigVersion,
		Handlers: map[string]HandlerConfig{
			"file": {Class: FileHandlerClass, Filename: filepath.Join("missing", "dir", "out.log")},
		},
		Root: &LoggerConfig{Level: "DEBUG", Handlers: []string{"file"}},
	}
	err := registry.Configure(config, t.TempDir())
	require.Error(t, err)
	assert.ErrorContains(t, err, "handler 'file'")

	registry.Root().Info("still using basic configuration")
	assert.Equal(t, []string{"still using basic configuration"}, messages(decodeLines(t, stderr.String())))
}

func TestAncestors(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{RootName}, ancestors(RootName))
	assert.Equal(t, []string{"training", RootName}, ancestors("training"))
	assert.Equal(t, []string{"training.api.v1", "training.api", "training", RootName}, ancestors("training.api.v1"))
}
