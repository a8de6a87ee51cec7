// SPDX-License-Identifier: MPL-2.0

// Package config loads refit configuration from CUE files layered with
// environment variables and built-in defaults.
package config
