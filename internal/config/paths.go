package config

import (
	"os"
	"path/filepath"
)

// AppPaths contains all filesystem paths used by the client.
type AppPaths struct {
	Home     string // Application home directory (~/.wingman)
	Config   string // TOML client configuration file path
	Settings string // JSON key/value settings file path
	Logs     string // Logs directory
}

// GetAppPaths returns the path layout rooted at the Wingman home directory.
func GetAppPaths() AppPaths {
	home := GetWingmanHome()
	return AppPaths{
		Home:     home,
		Config:   filepath.Join(home, "wingman.toml"),
		Settings: filepath.Join(home, "settings.json"),
		Logs:     filepath.Join(home, "logs"),
	}
}

// GetWingmanHome returns the Wingman home directory (~/.wingman).
func GetWingmanHome() string {
	userHome, _ := os.UserHomeDir()
	return filepath.Join(userHome, ".wingman")
}

// EnsureAppDirs creates the application directory structure if it does not exist.
func EnsureAppDirs() (AppPaths, error) {
	paths := GetAppPaths()

	dirs := []string{
		paths.Home,
		paths.Logs,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return paths, err
		}
	}

	return paths, nil
}

// ExpandPath expands ~ to the user home directory.
func ExpandPath(path string) string {
	if len(path) == 0 {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) == 1 {
			return home
		}
		if path[1] == '/' || path[1] == os.PathSeparator {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
