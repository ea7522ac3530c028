// Package xdg provides helpers to resolve XDG Base Directory paths for sqlchat.
// Configuration lives in the config directory; the diagnostic log lives in the
// state directory.
//
// The package handles fallback to traditional locations when XDG environment
// variables are not set and creates directories with private permissions.
package xdg

import (
	"os"
	"path/filepath"
)

const appDir = "sqlchat"

// ConfigDir returns the XDG config directory for sqlchat.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.config/sqlchat when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	return resolve("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the XDG state directory for sqlchat.
// It falls back to ~/.local/state/sqlchat when XDG_STATE_HOME is unset.
func StateDir() (string, error) {
	return resolve("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func resolve(envVar, homeRel string) (string, error) {
	base := os.Getenv(envVar)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, homeRel)
	}
	dir := filepath.Join(base, appDir)
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}
