// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package envfile locates the .env file closest to the installation directory and loads its
// variables into an Environment.
package envfile
