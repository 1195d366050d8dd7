// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package xdg resolves XDG Base Directory paths for userauth.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "userauth"

// ConfigDir returns the userauth config directory.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// ConfigFile returns the default config file path.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ExistingConfigFile returns ConfigFile if it exists, or "".
func ExistingConfigFile() string {
	path := ConfigFile()
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return path
	}
	return ""
}
