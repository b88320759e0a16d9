// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package logger

import (
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

const (
	// RootName is the name of the root logger.
	RootName = ""

	defaultRootLevel = hclog.Warn
	lastResortName   = "lastResort"
	nameSeparator    = "."
)

// Registry holds the logging configuration of the process and hands out named loggers bound to it.
// Loggers obtained from a Registry resolve levels and handlers at every call, so they keep
// working across calls to Configure.
type Registry struct {
	lock sync.RWMutex

	stdout io.Writer
	stderr io.Writer

	handlers  map[string]*handler
	loggers   map[string]LoggerConfig
	overrides map[string]hclog.Level
	sinks     map[string][]hclog.Logger

	lastResort *handler
}

// NewRegistry returns a Registry without handlers: until it is configured, records at WARN
// level or above are written to stderr.
func NewRegistry(stdout, stderr io.Writer) *Registry {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	return &Registry{
		stdout:    stdout,
		stderr:    stderr,
		handlers:  map[string]*handler{},
		loggers:   map[string]LoggerConfig{},
		overrides: map[string]hclog.Level{},
		sinks:     map[string][]hclog.Logger{},
		lastResort: &handler{
			name:   lastResortName,
			level:  hclog.Warn,
			output: stderr,
			mu:     &sync.Mutex{},
			json:   true,
		},
	}
}

// Configure replaces the current configuration with config. Relative file names are resolved
// against baseDir. Handlers of the previous configuration are closed once the new one is in place.
// Loggers already handed out are never disabled, whatever the value of DisableExistingLoggers.
func (r *Registry) Configure(config *Config, baseDir string) error {
	if err := config.Validate(); err != nil {
		return err
	}

	handlers := make(map[string]*handler, len(config.Handlers))
	for name, handlerConfig := range config.Handlers {
		formatter := config.Formatters[handlerConfig.Formatter]
		built, err := r.newHandler(name, handlerConfig, formatter, baseDir)
		if err != nil {
			_ = closeHandlers(handlers)
			return err
		}
		handlers[name] = built
	}

	loggers := make(map[string]LoggerConfig, len(config.Loggers)+1)
	for name, loggerConfig := range config.Loggers {
		loggers[name] = loggerConfig
	}

	root := LoggerConfig{Level: defaultRootLevel.String()}
	if config.Root != nil {
		root = *config.Root
	}
	loggers[RootName] = root

	r.lock.Lock()
	previous := r.handlers
	r.handlers = handlers
	r.loggers = loggers
	for name := range r.overrides {
		if _, ok := loggers[name]; ok {
			delete(r.overrides, name)
		}
	}
	r.sinks = map[string][]hclog.Logger{}
	r.lock.Unlock()

	return closeHandlers(previous)
}

// BasicConfig attaches a JSON stream handler on stderr to the root logger and sets its level.
// It does nothing if the root logger already has handlers.
func (r *Registry) BasicConfig(level Level) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if len(r.loggers[RootName].Handlers) > 0 {
		return
	}

	const basicHandlerName = "basic"
	r.handlers[basicHandlerName] = &handler{
		name:   basicHandlerName,
		level:  hclog.NoLevel,
		output: r.stderr,
		mu:     &sync.Mutex{},
		json:   true,
	}
	r.loggers[RootName] = LoggerConfig{
		Level:    level.String(),
		Handlers: []string{basicHandlerName},
	}
	delete(r.overrides, RootName)
	r.sinks = map[string][]hclog.Logger{}
}

// Named returns the logger registered under the dotted name; RootName returns the root logger.
func (r *Registry) Named(name string) Logger {
	return &named{registry: r, name: name}
}

// Root returns the root logger.
func (r *Registry) Root() Logger {
	return r.Named(RootName)
}

// EffectiveLevel returns the level in use for name after walking up the loggers hierarchy.
func (r *Registry) EffectiveLevel(name string) Level {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return levelFromHCLog(r.effectiveLevel(name))
}

// Close releases the resources held by the configured handlers.
func (r *Registry) Close() error {
	r.lock.Lock()
	handlers := r.handlers
	r.handlers = map[string]*handler{}
	r.loggers = map[string]LoggerConfig{}
	r.sinks = map[string][]hclog.Logger{}
	r.lock.Unlock()

	return closeHandlers(handlers)
}

func (r *Registry) setLevel(name string, level Level) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.overrides[name] = level.convertedLevel()
	r.sinks = map[string][]hclog.Logger{}
}

func (r *Registry) log(name string, level hclog.Level, msg string, args ...interface{}) {
	for _, sink := range r.sinksFor(name) {
		sink.Log(level, msg, args...)
	}
}

// sinksFor returns one hclog logger per handler reachable from name, building and caching them
// on first use.
func (r *Registry) sinksFor(name string) []hclog.Logger {
	r.lock.RLock()
	sinks, ok := r.sinks[name]
	r.lock.RUnlock()
	if ok {
		return sinks
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	if sinks, ok := r.sinks[name]; ok {
		return sinks
	}

	level := r.effectiveLevel(name)
	handlers := r.effectiveHandlers(name)
	if len(handlers) == 0 {
		handlers = []*handler{r.lastResort}
	}

	sinks = make([]hclog.Logger, 0, len(handlers))
	for _, h := range handlers {
		sinks = append(sinks, h.logger(name, level))
	}

	r.sinks[name] = sinks
	return sinks
}

// effectiveLevel must be called holding the lock.
func (r *Registry) effectiveLevel(name string) hclog.Level {
	for _, current := range ancestors(name) {
		if level, ok := r.overrides[current]; ok {
			return level
		}

		if config, ok := r.loggers[current]; ok {
			if level, set, err := ParseLevel(config.Level); err == nil && set {
				return level.convertedLevel()
			}
		}
	}

	return defaultRootLevel
}

// effectiveHandlers must be called holding the lock.
func (r *Registry) effectiveHandlers(name string) []*handler {
	handlers := make([]*handler, 0)
	for _, current := range ancestors(name) {
		config, ok := r.loggers[current]
		if !ok {
			continue
		}

		for _, handlerName := range config.Handlers {
			if h, ok := r.handlers[handlerName]; ok {
				handlers = append(handlers, h)
			}
		}

		if !config.propagates() {
			break
		}
	}

	return handlers
}

// ancestors returns name followed by each of its dotted parents, ending with the root name.
func ancestors(name string) []string {
	names := make([]string, 0)
	for current := name; current != RootName; {
		names = append(names, current)
		index := strings.LastIndex(current, nameSeparator)
		if index < 0 {
			break
		}
		current = current[:index]
	}

	return append(names, RootName)
}

func closeHandlers(handlers map[string]*handler) error {
	var errs []error
	for _, h := range handlers {
		if h.closer != nil {
			errs = append(errs, h.closer.Close())
		}
	}

	return errors.Join(errs...)
}

// Make sure that named is a Logger.
var _ Logger = &named{}

// named is a Logger bound to a name inside a Registry.
type named struct {
	registry *Registry
	name     string
}

// WithName returns the child logger of n called name.
func (n *named) WithName(name string) Logger {
	if n.name == RootName {
		return n.registry.Named(name)
	}

	return n.registry.Named(n.name + nameSeparator + name)
}

func (n *named) SetLevel(level Level) {
	n.registry.setLevel(n.name, level)
}

func (n *named) Trace(msg string, args ...interface{}) {
	n.registry.log(n.name, hclog.Trace, msg, args...)
}

func (n *named) Debug(msg string, args ...interface{}) {
	n.registry.log(n.name, hclog.Debug, msg, args...)
}

func (n *named) Info(msg string, args ...interface{}) {
	n.registry.log(n.name, hclog.Info, msg, args...)
}

func (n *named) Warn(msg string, args ...interface{}) {
	n.registry.log(n.name, hclog.Warn, msg, args...)
}

func (n *named) Error(msg string, args ...interface{}) {
	n.registry.log(n.name, hclog.Error, msg, args...)
}

// stricter returns the most severe of the two levels; NoLevel lets everything through.
func stricter(a, b hclog.Level) hclog.Level {
	if a > b {
		return a
	}

	return b
}

func newSinkOptions(name string, level hclog.Level, h *handler) *hclog.LoggerOptions {
	return &hclog.LoggerOptions{
		Name:       name,
		Level:      stricter(level, h.level),
		Output:     h.output,
		Mutex:      h.mu,
		JSONFormat: h.json,
		TimeFormat: h.timeFormat,
		TimeFn:     time.Now,
		Color:      hclog.ColorOff,
	}
}
