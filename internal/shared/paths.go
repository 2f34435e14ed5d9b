package shared

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// AppName names the per-user data and config directories.
const AppName = "crate"

// DataDir is the default directory for cache snapshots and the database.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// DefaultConfigPath prefers ./config.toml and falls back to $XDG_CONFIG_HOME/crate/config.toml.
func DefaultConfigPath() string {
	if _, err := os.Stat("config.toml"); err == nil {
		return "config.toml"
	}
	return filepath.Join(xdg.ConfigHome, AppName, "config.toml")
}
