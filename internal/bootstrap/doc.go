// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package bootstrap prepares the process before any training code runs: it configures logging,
// loads the .env file found next to the installation and sets the experiment tracking variables.
package bootstrap
