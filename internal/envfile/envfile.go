// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package envfile

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/joho/godotenv"
)

// DefaultFileName is the name of the file searched by Find.
const DefaultFileName = ".env"

var (
	// ErrNotFound is returned when no environment file exists in the searched directories.
	ErrNotFound = errors.New("environment file not found")
)

// Find walks from startDir up to the root of the filesystem and returns the path of the first
// regular file called name.
func Find(startDir, name string) (string, error) {
	if name == "" {
		name = DefaultFileName
	}

	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: no %s file in %q or its parents", ErrNotFound, name, startDir)
		}
		dir = parent
	}
}

// InstallDir returns the directory containing the running executable, with symlinks resolved.
func InstallDir() (string, error) {
	executable, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locating executable: %w", err)
	}

	resolved, err := filepath.EvalSymlinks(executable)
	if err != nil {
		return "", fmt.Errorf("locating executable: %w", err)
	}

	return filepath.Dir(resolved), nil
}

// Load reads the variables defined in the file at path and sets in env the ones that are not
// already defined there. It returns every pair read from the file.
func Load(path string, env Environment) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading environment file %q: %w", path, err)
	}

	for _, key := range slices.Sorted(maps.Keys(vars)) {
		if _, ok := env.LookupEnv(key); ok {
			continue
		}

		if err := env.Setenv(key, vars[key]); err != nil {
			return nil, fmt.Errorf("setting %s: %w", key, err)
		}
	}

	return vars, nil
}

// Marshal renders vars in the .env file format, sorted by key.
func Marshal(vars map[string]string) (string, error) {
	return godotenv.Marshal(vars)
}
