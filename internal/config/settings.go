package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the single tuning surface for the whole server. Every wait,
// settle delay and host-page selector lives here; call sites never hardcode
// their own constants. The settle delays are best-effort approximations: the
// mods runtime offers no completion event for file loads or module renders,
// so a fixed pause after those actions is the only option available.
type Settings struct {
	// ModsDir is the root of the mods application checkout served to the
	// browser. ModulesDir and ProgramsDir default to subdirectories of it.
	ModsDir     string `yaml:"mods_dir"`
	ModulesDir  string `yaml:"modules_dir"`
	ProgramsDir string `yaml:"programs_dir"`

	// ListenAddr is the local HTTP address serving the mods static tree
	// and the /events websocket feed.
	ListenAddr string `yaml:"listen_addr"`

	// Headless controls whether the controlled browser runs headless.
	Headless bool `yaml:"headless"`

	// Host page contract. These mirror the mods DOM: the div holding module
	// instances, the SVG overlay holding connection lines, and the global
	// function that loads a program document.
	ContainerSelector string `yaml:"container_selector"`
	OverlaySelector   string `yaml:"overlay_selector"`
	LoadEntryPoint    string `yaml:"load_entry_point"`

	NavigationTimeout time.Duration `yaml:"-"`
	SettleDelay       time.Duration `yaml:"-"`
	FileSettleDelay   time.Duration `yaml:"-"`
	ActionSettleDelay time.Duration `yaml:"-"`
}

// UnmarshalYAML decodes duration fields from Go duration strings ("30s",
// "1500ms") since the YAML codec has no native duration support.
func (s *Settings) UnmarshalYAML(value *yaml.Node) error {
	type plain Settings
	aux := struct {
		Plain             plain  `yaml:",inline"`
		NavigationTimeout string `yaml:"navigation_timeout"`
		SettleDelay       string `yaml:"settle_delay"`
		FileSettleDelay   string `yaml:"file_settle_delay"`
		ActionSettleDelay string `yaml:"action_settle_delay"`
	}{Plain: plain(*s)}

	if err := value.Decode(&aux); err != nil {
		return err
	}
	*s = Settings(aux.Plain)
	for _, field := range []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"navigation_timeout", aux.NavigationTimeout, &s.NavigationTimeout},
		{"settle_delay", aux.SettleDelay, &s.SettleDelay},
		{"file_settle_delay", aux.FileSettleDelay, &s.FileSettleDelay},
		{"action_settle_delay", aux.ActionSettleDelay, &s.ActionSettleDelay},
	} {
		if field.raw == "" {
			continue
		}
		d, err := time.ParseDuration(field.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.dst = d
	}
	return nil
}

// DefaultSettings returns the settings used when no file overrides them.
func DefaultSettings() Settings {
	return Settings{
		ModsDir:           "mods",
		ListenAddr:        "127.0.0.1:7777",
		Headless:          true,
		ContainerSelector: "#modules",
		OverlaySelector:   "#links line",
		LoadEntryPoint:    "loadprogram",
		NavigationTimeout: 15 * time.Second,
		SettleDelay:       2 * time.Second,
		FileSettleDelay:   3 * time.Second,
		ActionSettleDelay: 2 * time.Second,
	}
}

// LoadSettings reads the YAML settings file at path, layered over defaults.
// A missing file is not an error: defaults are returned unchanged.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings.normalized(), nil
		}
		return settings, fmt.Errorf("config: read settings: %w", err)
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("config: parse settings %s: %w", path, err)
	}
	return settings.normalized(), nil
}

func (s Settings) normalized() Settings {
	if s.ModulesDir == "" {
		s.ModulesDir = filepath.Join(s.ModsDir, "modules")
	}
	if s.ProgramsDir == "" {
		s.ProgramsDir = filepath.Join(s.ModsDir, "programs")
	}
	if s.NavigationTimeout <= 0 {
		s.NavigationTimeout = DefaultSettings().NavigationTimeout
	}
	if s.SettleDelay <= 0 {
		s.SettleDelay = DefaultSettings().SettleDelay
	}
	if s.FileSettleDelay <= 0 {
		s.FileSettleDelay = DefaultSettings().FileSettleDelay
	}
	if s.ActionSettleDelay <= 0 {
		s.ActionSettleDelay = DefaultSettings().ActionSettleDelay
	}
	return s
}
