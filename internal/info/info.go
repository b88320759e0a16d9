// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package info holds application name and build metadata.
package info

import "runtime"

var (
	// AppName is the name of the application and of its top level logger.
	AppName = "training"
	// Version is dynamically set by the ci or overridden by the Makefile.
	Version = "DEV"
	// BuildDate is dynamically set at build time by the cli or overridden in the Makefile.
	BuildDate = "" // YYYY-MM-DD
)

// VersionString formats version metadata as "<version> (<build date>), Go Version: <go version>",
// omitting the build date when unknown.
func VersionString(version, buildDate, goVersion string) string {
	outputString := version
	if buildDate != "" {
		outputString += " (" + buildDate + ")"
	}

	return outputString + ", Go Version: " + goVersion
}

// Describe returns the version metadata of the running binary.
func Describe() string {
	return VersionString(Version, BuildDate, runtime.Version())
}
