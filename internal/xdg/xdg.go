// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

// Package xdg locates blogauth files under the XDG Base Directory layout.
package xdg

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

const appName = "blogauth"

// configFileName is the file looked up in ConfigDir.
const configFileName = "config.yaml"

// ConfigDir returns the XDG config directory for blogauth.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// ConfigFile returns ConfigDir()/config.yaml when that file exists, or "".
// Permission errors count as present so Load reports them instead of
// silently skipping the file.
func ConfigFile() string {
	path := filepath.Join(ConfigDir(), configFileName)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return ""
	}
	return path
}
