package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadSettingsMissingFile(t *testing.T) {
	t.Parallel()

	settings, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if settings.ListenAddr != DefaultSettings().ListenAddr {
		t.Errorf("ListenAddr = %q, want default", settings.ListenAddr)
	}
	if settings.ModulesDir != filepath.Join("mods", "modules") {
		t.Errorf("ModulesDir = %q, want derived from ModsDir", settings.ModulesDir)
	}
}

func TestLoadSettingsOverrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := "mods_dir: /srv/mods\nheadless: false\nnavigation_timeout: 30s\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	settings, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if settings.ModsDir != "/srv/mods" {
		t.Errorf("ModsDir = %q", settings.ModsDir)
	}
	if settings.Headless {
		t.Error("headless override ignored")
	}
	if settings.NavigationTimeout != 30*time.Second {
		t.Errorf("NavigationTimeout = %v, want 30s", settings.NavigationTimeout)
	}
	if settings.ProgramsDir != filepath.Join("/srv/mods", "programs") {
		t.Errorf("ProgramsDir = %q, want derived", settings.ProgramsDir)
	}
}

func TestLoadSettingsBadYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("mods_dir: [broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSettings(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestGetHomeEnvOverride(t *testing.T) {
	t.Setenv("MODS_MCP_HOME", "/tmp/mods-mcp-test")
	if got := GetHome(); got != "/tmp/mods-mcp-test" {
		t.Fatalf("GetHome = %q", got)
	}
}
