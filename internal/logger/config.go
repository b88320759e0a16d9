// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package logger

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// SupportedConfigVersion is the only schema version accepted for logging configuration files.
	SupportedConfigVersion = 1

	StreamHandlerClass       = "logging.StreamHandler"
	FileHandlerClass         = "logging.FileHandler"
	RotatingFileHandlerClass = "logging.handlers.RotatingFileHandler"
	NullHandlerClass         = "logging.NullHandler"

	streamStdout = "stdout"
	streamStderr = "stderr"

	fileModeAppend   = "a"
	fileModeTruncate = "w"

	jsonFormatterSuffix = "JsonFormatter"
)

var (
	// ErrParsing reports failures that occur while decoding logging configuration files.
	ErrParsing = errors.New("error parsing")
	// ErrInvalidConfig reports a logging configuration that decodes but cannot be applied.
	ErrInvalidConfig = errors.New("invalid logging configuration")
)

// handlerKind is the normalized form of a handler class.
type handlerKind int

const (
	unknownHandler handlerKind = iota
	streamHandler
	fileHandler
	rotatingFileHandler
	nullHandler
)

// Config is a logging configuration following the dictionary schema of logging.yaml files:
// formatters, handlers, named loggers and the root logger.
type Config struct {
	Version                int                        `yaml:"version"`
	DisableExistingLoggers bool                       `yaml:"disable_existing_loggers"`
	Formatters             map[string]FormatterConfig `yaml:"formatters,omitempty"`
	Handlers               map[string]HandlerConfig   `yaml:"handlers,omitempty"`
	Loggers                map[string]LoggerConfig    `yaml:"loggers,omitempty"`
	Root                   *LoggerConfig              `yaml:"root,omitempty"`
}

// FormatterConfig controls how a handler renders records. Only Class, DateFormat and JSON
// affect the output: Format is decoded so that existing files load, but records always use the
// hclog layout. See Config.IgnoredFormats.
type FormatterConfig struct {
	Class      string `yaml:"class,omitempty"`
	Format     string `yaml:"format,omitempty"`
	DateFormat string `yaml:"datefmt,omitempty"`
	JSON       bool   `yaml:"json,omitempty"`
}

// HandlerConfig describes a destination for log records.
type HandlerConfig struct {
	Class       string `yaml:"class"`
	Level       string `yaml:"level,omitempty"`
	Formatter   string `yaml:"formatter,omitempty"`
	Stream      string `yaml:"stream,omitempty"`
	Filename    string `yaml:"filename,omitempty"`
	Mode        string `yaml:"mode,omitempty"`
	MaxBytes    int64  `yaml:"maxBytes,omitempty"`
	BackupCount int    `yaml:"backupCount,omitempty"`
	Encoding    string `yaml:"encoding,omitempty"`
}

// LoggerConfig sets the level and handlers of a named logger or of the root logger.
type LoggerConfig struct {
	Level     string   `yaml:"level,omitempty"`
	Handlers  []string `yaml:"handlers,omitempty"`
	Propagate *bool    `yaml:"propagate,omitempty"`
}

// propagates reports whether records reaching this logger also go to the ancestors handlers.
func (lc LoggerConfig) propagates() bool {
	return lc.Propagate == nil || *lc.Propagate
}

// LoadConfig reads and validates the logging configuration stored at path.
// A missing file is reported with an error wrapping fs.ErrNotExist.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading logging configuration: %w", err)
	}

	config := new(Config)
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrParsing, path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%q: %w", path, err)
	}

	return config, nil
}

// Validate checks the cross references and the values of the configuration, collecting
// every problem found.
func (c *Config) Validate() error {
	errorsList := []string{}

	if c.Version != SupportedConfigVersion {
		errorsList = append(errorsList, fmt.Sprintf("unsupported version %d", c.Version))
	}

	for _, name := range slices.Sorted(maps.Keys(c.Handlers)) {
		errorsList = append(errorsList, c.validateHandler(name, c.Handlers[name])...)
	}

	for _, name := range slices.Sorted(maps.Keys(c.Loggers)) {
		errorsList = append(errorsList, c.validateLogger(fmt.Sprintf("logger '%s'", name), c.Loggers[name])...)
	}

	if c.Root != nil {
		errorsList = append(errorsList, c.validateLogger("root logger", *c.Root)...)
	}

	if len(errorsList) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errorsList, "; "))
	}

	return nil
}

func (c *Config) validateHandler(name string, handler HandlerConfig) []string {
	errorsList := []string{}

	kind := kindFromClass(handler.Class)
	if kind == unknownHandler {
		errorsList = append(errorsList, fmt.Sprintf("unknown class '%s' for handler '%s'", handler.Class, name))
	}

	if _, _, err := ParseLevel(handler.Level); err != nil {
		errorsList = append(errorsList, fmt.Sprintf("unknown level '%s' for handler '%s'", handler.Level, name))
	}

	if handler.Formatter != "" {
		if _, ok := c.Formatters[handler.Formatter]; !ok {
			errorsList = append(errorsList, fmt.Sprintf("unknown formatter '%s' for handler '%s'", handler.Formatter, name))
		}
	}

	switch kind {
	case streamHandler:
		if normalizeStream(handler.Stream) == "" {
			errorsList = append(errorsList, fmt.Sprintf("unknown stream '%s' for handler '%s'", handler.Stream, name))
		}
	case fileHandler, rotatingFileHandler:
		if handler.Filename == "" {
			errorsList = append(errorsList, fmt.Sprintf("missing filename for handler '%s'", name))
		}
		if handler.Mode != "" && handler.Mode != fileModeAppend && handler.Mode != fileModeTruncate {
			errorsList = append(errorsList, fmt.Sprintf("unknown mode '%s' for handler '%s'", handler.Mode, name))
		}
		if handler.MaxBytes < 0 || handler.BackupCount < 0 {
			errorsList = append(errorsList, fmt.Sprintf("negative rotation values for handler '%s'", name))
		}
	}

	return errorsList
}

func (c *Config) validateLogger(label string, logger LoggerConfig) []string {
	errorsList := []string{}

	if _, _, err := ParseLevel(logger.Level); err != nil {
		errorsList = append(errorsList, fmt.Sprintf("unknown level '%s' for %s", logger.Level, label))
	}

	for _, handler := range logger.Handlers {
		if _, ok := c.Handlers[handler]; !ok {
			errorsList = append(errorsList, fmt.Sprintf("unknown handler '%s' for %s", handler, label))
		}
	}

	return errorsList
}

// kindFromClass accepts both the dotted class names of logging.yaml files and short aliases.
func kindFromClass(class string) handlerKind {
	switch class {
	case StreamHandlerClass, "stream":
		return streamHandler
	case FileHandlerClass, "file":
		return fileHandler
	case RotatingFileHandlerClass, "rotating_file":
		return rotatingFileHandler
	case NullHandlerClass, "null":
		return nullHandler
	default:
		return unknownHandler
	}
}

// normalizeStream returns stdout or stderr for the accepted stream spellings, stderr when
// stream is empty, and an empty string for anything else.
func normalizeStream(stream string) string {
	switch strings.TrimPrefix(stream, "ext://sys.") {
	case "", streamStderr:
		return streamStderr
	case streamStdout:
		return streamStdout
	default:
		return ""
	}
}

// IgnoredFormats returns the sorted names of the formatters declaring a format template.
func (c *Config) IgnoredFormats() []string {
	names := []string{}
	for _, name := range slices.Sorted(maps.Keys(c.Formatters)) {
		if c.Formatters[name].Format != "" {
			names = append(names, name)
		}
	}

	return names
}

// isJSON reports whether the formatter renders records as JSON objects.
func (fc FormatterConfig) isJSON() bool {
	return fc.JSON || strings.HasSuffix(fc.Class, jsonFormatterSuffix)
}

var strftimeLayouts = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'H': "15",
	'I': "03",
	'M': "04",
	'S': "05",
	'f': "000000",
	'p': "PM",
	'z': "-0700",
	'Z': "MST",
	'a': "Mon",
	'A': "Monday",
	'b': "Jan",
	'B': "January",
	'j': "002",
	'%': "%",
}

// timeLayout translates a strftime date format into a Go time layout. Values without any
// directive are returned untouched and treated as Go layouts. Unknown directives are kept verbatim.
func timeLayout(datefmt string) string {
	if !strings.Contains(datefmt, "%") {
		return datefmt
	}

	var builder strings.Builder
	for i := 0; i < len(datefmt); i++ {
		if datefmt[i] != '%' || i == len(datefmt)-1 {
			builder.WriteByte(datefmt[i])
			continue
		}

		i++
		if layout, ok := strftimeLayouts[datefmt[i]]; ok {
			builder.WriteString(layout)
			continue
		}

		builder.WriteByte('%')
		builder.WriteByte(datefmt[i])
	}

	return builder.String()
}
