// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package tracking holds the settings of the external experiment tracking integration (Comet),
// which are read from environment variables.
package tracking
