// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package logger wraps the underlying logging stack behind a consistent interface.
// It centralizes configuration, loading logging.yaml files into a Registry of named loggers,
// and makes loggers available through context helpers.
package logger
