package config

import (
	"os"
	"path/filepath"
)

// Paths contains all filesystem locations used by a mods-mcp instance.
type Paths struct {
	Home      string // Instance home directory (~/.mods-mcp)
	Settings  string // YAML settings file path
	CatalogDB string // SQLite module catalog path
	Downloads string // Directory where captured downloads are written
	Logs      string // Logs directory
}

// GetPaths returns the directory layout for this installation.
func GetPaths() Paths {
	home := GetHome()
	return Paths{
		Home:      home,
		Settings:  filepath.Join(home, "settings.yaml"),
		CatalogDB: filepath.Join(home, "catalog.db"),
		Downloads: filepath.Join(home, "downloads"),
		Logs:      filepath.Join(home, "logs"),
	}
}

// GetHome returns the mods-mcp home directory (~/.mods-mcp).
// MODS_MCP_HOME overrides the default location.
func GetHome() string {
	if env := os.Getenv("MODS_MCP_HOME"); env != "" {
		return env
	}
	userHome, _ := os.UserHomeDir()
	return filepath.Join(userHome, ".mods-mcp")
}

// EnsureDirs creates the instance directory tree if missing and returns it.
func EnsureDirs() (Paths, error) {
	paths := GetPaths()
	for _, dir := range []string{paths.Home, paths.Downloads, paths.Logs} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return paths, err
		}
	}
	return paths, nil
}
