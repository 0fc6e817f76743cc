package config

import (
	"os"
	"path/filepath"
)

// AppName names the XDG subdirectories.
const AppName = "vpo"

// FileName is the config file name looked up in ConfigDir.
const FileName = "vpo.toml"

// CacheDir returns the cache directory using XDG standard (~/.cache/vpo/).
func CacheDir() (string, error) {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

// DataDir returns the data directory using XDG standard (~/.local/share/vpo/).
func DataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// ConfigDir returns the config directory using XDG standard (~/.config/vpo/).
func ConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DefaultPath returns ConfigDir()/vpo.toml.
func DefaultPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

func xdgDir(env, fallback string) (string, error) {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, AppName), nil
}

// LoadOrDefault loads path. An empty path tries DefaultPath and falls back
// to Default when no file exists there.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	def, err := DefaultPath()
	if err != nil {
		return Default(), nil
	}
	if _, err := os.Stat(def); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(def)
}
