package config

import (
	"path/filepath"
	"strings"
)

// ResolveRelativePath resolves a path relative to the config file's directory.
// Absolute paths are cleaned, "~/" expands to home.
func ResolveRelativePath(configDir, path, home string) string {
	if strings.HasPrefix(path, "~/") && home != "" {
		path = filepath.Join(home, path[2:])
	}

	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	return filepath.Clean(filepath.Join(configDir, path))
}
