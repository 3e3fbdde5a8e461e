// Package storage resolves the plugin host's writable data directory and
// lays out the pieces a running host actually needs under it: the plugin
// roster, a default directory to scan/watch for plugin libraries, and a
// per-plugin scratch directory for plugins whose roster entry grants
// filesystem access.
package storage

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

var (
	dataDirOnce sync.Once
	dataDirPath string
)

// RosterFile is the roster's filename within the data directory.
const RosterFile = "roster.json.lz4"

// DataDir returns the platform-appropriate writable data directory and creates it if missing.
func DataDir() string {
	dataDirOnce.Do(func() {
		dataDirPath = resolveDataDir()
		_ = os.MkdirAll(dataDirPath, 0o755)
	})
	return dataDirPath
}

// DataFile joins the data directory with the provided relative name.
func DataFile(name string) string {
	return filepath.Join(DataDir(), name)
}

// DefaultPluginScanDir is the directory a host scans and watches for plugin
// libraries when the user has not pointed it at one explicitly: a
// "plugins" subdirectory of the data directory, analogous to where the
// roster itself lives.
func DefaultPluginScanDir() string {
	return filepath.Join(DataDir(), "plugins")
}

// PluginDataDir returns the writable scratch directory a single plugin may
// use for its own files, creating it if necessary. name is taken as a bare
// path segment (its base name) so a malformed or adversarial plugin name
// cannot escape the data directory via "../".
func PluginDataDir(name string) (string, error) {
	segment := filepath.Base(name)
	if segment == "" || segment == "." || segment == ".." || segment == string(filepath.Separator) {
		segment = "plugin"
	}
	dir := filepath.Join(DataDir(), "plugins-data", segment)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// ReadDataFile reads a file from the data directory.
func ReadDataFile(name string) ([]byte, error) {
	return os.ReadFile(DataFile(name))
}

// WriteDataFile writes data to the data directory, ensuring the directory exists.
func WriteDataFile(name string, data []byte, perm os.FileMode) error {
	path := DataFile(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, perm)
}

func resolveDataDir() string {
	if custom := os.Getenv("YUZU_PLUGIN_HOST_DATA_DIR"); custom != "" {
		return custom
	}

	switch runtime.GOOS {
	case "windows":
		if base := os.Getenv("APPDATA"); base != "" {
			return filepath.Join(base, "yuzu", "plugin-host")
		}
		if base := os.Getenv("LOCALAPPDATA"); base != "" {
			return filepath.Join(base, "yuzu", "plugin-host")
		}
	case "darwin":
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, "Library", "Application Support", "yuzu", "plugin-host")
		}
	default: // Linux and others
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "yuzu", "plugin-host")
		}
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, ".local", "share", "yuzu", "plugin-host")
		}
	}

	// Final fallback: use current directory
	return "./yuzu-plugin-host"
}
