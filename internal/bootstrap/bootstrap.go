// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/mia-platform/training/internal/envfile"
	"github.com/mia-platform/training/internal/info"
	"github.com/mia-platform/training/internal/logger"
	"github.com/mia-platform/training/internal/tracking"
)

const (
	// DefaultLogsDirName is the directory created next to the logging configuration file.
	DefaultLogsDirName = "logs"

	logsDirPermMode = 0o755
)

var (
	// DefaultLoggingConfigPath is the logging.yaml next to the working directory.
	DefaultLoggingConfigPath = filepath.Join("..", "logging.yaml")

	once        sync.Once
	onceRuntime *Runtime
	onceErr     error
)

// Options controls Initialize. Zero values are replaced by defaults.
type Options struct {
	// LoggingConfigPath is the logging.yaml file to load.
	LoggingConfigPath string
	// LogsDirName is the directory created in the folder of LoggingConfigPath.
	LogsDirName string
	// SearchDir is where the search for the environment file starts, the installation
	// directory when empty.
	SearchDir string
	// EnvFileName is the name of the environment file to search.
	EnvFileName string
	// Environment receives the loaded variables, the process environment when nil.
	Environment envfile.Environment
	// Stdout and Stderr back the stream handlers, the process streams when nil.
	Stdout io.Writer
	Stderr io.Writer
	// LogLevel overrides the configured level of the application logger when set.
	LogLevel *logger.Level
}

func (o Options) withDefaults() (Options, error) {
	if o.LoggingConfigPath == "" {
		o.LoggingConfigPath = DefaultLoggingConfigPath
	}
	if o.LogsDirName == "" {
		o.LogsDirName = DefaultLogsDirName
	}
	if o.EnvFileName == "" {
		o.EnvFileName = envfile.DefaultFileName
	}
	if o.Environment == nil {
		o.Environment = envfile.Process()
	}
	if o.SearchDir == "" {
		installDir, err := envfile.InstallDir()
		if err != nil {
			return o, err
		}
		o.SearchDir = installDir
	}

	return o, nil
}

// Runtime describes the outcome of Initialize and carries the configured logging stack.
type Runtime struct {
	RunID string

	Loggers *logger.Registry
	Logger  logger.Logger

	LoggingConfigPath string
	LogsDir           string
	LoggingFallback   bool

	EnvFile  string
	Loaded   map[string]string
	Tracking *tracking.Settings
}

// Context returns a copy of ctx carrying the runtime logger.
func (r *Runtime) Context(ctx context.Context) context.Context {
	return logger.WithContext(ctx, r.Logger)
}

// Close releases the files opened by the logging handlers.
func (r *Runtime) Close() error {
	return r.Loggers.Close()
}

// Initialize configures logging, loads the environment file and sets the experiment tracking
// variables. A missing logging configuration falls back to INFO level logging on stderr; a
// missing environment file is returned as an error wrapping envfile.ErrNotFound.
func Initialize(ctx context.Context, opts Options) (*Runtime, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	registry := logger.NewRegistry(opts.Stdout, opts.Stderr)
	log := registry.Named(info.AppName)

	initialized := &Runtime{
		RunID:             uuid.NewString(),
		Loggers:           registry,
		Logger:            log,
		LoggingConfigPath: opts.LoggingConfigPath,
	}

	if err := initialized.initializeLogging(opts); err != nil {
		_ = registry.Close()
		return nil, err
	}
	if opts.LogLevel != nil {
		log.SetLevel(*opts.LogLevel)
	}

	log.Info("Initializing resources...", "runId", initialized.RunID, "version", info.Describe())

	if err := initialized.initializeEnvironment(opts); err != nil {
		log.Error("environment initialization failed", "error", err)
		_ = registry.Close()
		return nil, err
	}

	return initialized, nil
}

// InitializeOnce runs Initialize the first time it is called and returns the same result on
// every following call.
func InitializeOnce(ctx context.Context, opts Options) (*Runtime, error) {
	once.Do(func() {
		onceRuntime, onceErr = Initialize(ctx, opts)
	})

	return onceRuntime, onceErr
}

func (r *Runtime) initializeLogging(opts Options) error {
	configDir := filepath.Dir(opts.LoggingConfigPath)
	r.LogsDir = filepath.Join(configDir, opts.LogsDirName)
	if err := os.MkdirAll(r.LogsDir, logsDirPermMode); err != nil {
		return fmt.Errorf("creating logs directory: %w", err)
	}

	config, err := logger.LoadConfig(opts.LoggingConfigPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		r.LoggingFallback = true
		r.Loggers.BasicConfig(logger.INFO)
		r.Logger.Warn(fmt.Sprintf("No logging configuration file found at: %s. Setting logging level to INFO.", opts.LoggingConfigPath))
		return nil
	case err != nil:
		return err
	}

	// loggers obtained before this call must keep working
	config.DisableExistingLoggers = false
	if err := r.Loggers.Configure(config, configDir); err != nil {
		return err
	}

	if ignored := config.IgnoredFormats(); len(ignored) > 0 {
		r.Logger.Info("format templates are not supported, records keep the default layout", "formatters", ignored)
	}
	return nil
}

func (r *Runtime) initializeEnvironment(opts Options) error {
	envFile, err := envfile.Find(opts.SearchDir, opts.EnvFileName)
	if err != nil {
		return err
	}

	r.Logger.Info(fmt.Sprintf("Loading environment variables from %s", envFile))
	loaded, err := envfile.Load(envFile, opts.Environment)
	if err != nil {
		return err
	}

	if err := tracking.Apply(opts.Environment); err != nil {
		return err
	}

	settings, err := tracking.Load(opts.Environment.Environ())
	if err != nil {
		return err
	}

	r.EnvFile = envFile
	r.Loaded = loaded
	r.Tracking = settings
	r.Logger.Debug("experiment tracking configured", "mode", settings.Mode, "logAssets", settings.LogAssets)
	return nil
}
