package config

import (
	"os"
	"path/filepath"
	"strings"
)

// SettingsFilePath returns the location of the TOML settings file.
func SettingsFilePath() string {
	return filepath.Join(configDir(), "settings.toml")
}

func configDir() string {
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, "terp")
	}
	return ExpandPath("~/.config/terp")
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

// FileExists reports whether path exists and is not a directory.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
