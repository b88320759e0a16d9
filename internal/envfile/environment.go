// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package envfile

import (
	"maps"
	"os"
	"strings"
	"sync"
)

// Environment is a table of environment variables.
type Environment interface {
	// LookupEnv returns the value of key and whether it is set.
	LookupEnv(key string) (string, bool)
	// Setenv sets the value of key.
	Setenv(key, value string) error
	// Environ returns a copy of all the variables.
	Environ() map[string]string
}

// Process returns the Environment of the running process.
func Process() Environment {
	return processEnvironment{}
}

type processEnvironment struct{}

func (processEnvironment) LookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

func (processEnvironment) Setenv(key, value string) error {
	return os.Setenv(key, value)
}

func (processEnvironment) Environ() map[string]string {
	environ := make(map[string]string)
	for _, pair := range os.Environ() {
		if key, value, ok := strings.Cut(pair, "="); ok {
			environ[key] = value
		}
	}

	return environ
}

// Map is an in-memory Environment, safe for concurrent use.
type Map struct {
	lock sync.RWMutex
	vars map[string]string
}

// NewMap returns a Map holding a copy of vars.
func NewMap(vars map[string]string) *Map {
	m := &Map{vars: make(map[string]string, len(vars))}
	maps.Copy(m.vars, vars)
	return m
}

func (m *Map) LookupEnv(key string) (string, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	value, ok := m.vars[key]
	return value, ok
}

func (m *Map) Setenv(key, value string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.vars == nil {
		m.vars = make(map[string]string)
	}
	m.vars[key] = value
	return nil
}

func (m *Map) Environ() map[string]string {
	m.lock.RLock()
	defer m.lock.RUnlock()

	environ := make(map[string]string, len(m.vars))
	maps.Copy(environ, m.vars)
	return environ
}
