// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package logger

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	megabyte        = 1024 * 1024
	logFilePermMode = 0o644
)

// handler is a built HandlerConfig: the writer records end up in and how they are rendered.
type handler struct {
	name       string
	level      hclog.Level
	output     io.Writer
	closer     io.Closer
	mu         *sync.Mutex
	json       bool
	timeFormat string
}

// logger returns an hclog logger writing to the handler for the logger called name.
func (h *handler) logger(name string, level hclog.Level) hclog.Logger {
	return hclog.New(newSinkOptions(name, level, h))
}

func (r *Registry) newHandler(name string, config HandlerConfig, formatter FormatterConfig, baseDir string) (*handler, error) {
	level := hclog.NoLevel
	if parsed, set, _ := ParseLevel(config.Level); set {
		level = parsed.convertedLevel()
	}

	built := &handler{
		name:       name,
		level:      level,
		mu:         &sync.Mutex{},
		json:       formatter.isJSON(),
		timeFormat: timeLayout(formatter.DateFormat),
	}

	switch kindFromClass(config.Class) {
	case streamHandler:
		built.output = r.stderr
		if normalizeStream(config.Stream) == streamStdout {
			built.output = r.stdout
		}
	case fileHandler:
		file, err := openLogFile(resolvePath(baseDir, config.Filename), config.Mode)
		if err != nil {
			return nil, fmt.Errorf("handler '%s': %w", name, err)
		}
		built.output = file
		built.closer = file
	case rotatingFileHandler:
		rotating := &lumberjack.Logger{
			Filename:   resolvePath(baseDir, config.Filename),
			MaxSize:    maxSizeMegabytes(config.MaxBytes),
			MaxBackups: config.BackupCount,
		}
		built.output = rotating
		built.closer = rotating
	case nullHandler:
		built.output = io.Discard
	default:
		return nil, fmt.Errorf("%w: unknown class '%s' for handler '%s'", ErrInvalidConfig, config.Class, name)
	}

	return built, nil
}

func openLogFile(path, mode string) (*os.File, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if mode == fileModeTruncate {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}

	return os.OpenFile(path, flags, logFilePermMode)
}

func resolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) || baseDir == "" {
		return filepath.Clean(path)
	}

	return filepath.Join(baseDir, path)
}

// maxSizeMegabytes rounds maxBytes up to whole megabytes; zero never rotates.
func maxSizeMegabytes(maxBytes int64) int {
	if maxBytes <= 0 {
		return math.MaxInt32
	}

	return int((maxBytes + megabyte - 1) / megabyte)
}
