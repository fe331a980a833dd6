package glint

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config holds the settings read from ~/.glint/config.toml
type Config struct {
	Debug         bool     `toml:"debug"`
	LogCategories []string `toml:"log_categories"`
	HistoryFile   string   `toml:"history_file"`
	MaxCallDepth  int      `toml:"max_call_depth"`
	Prompt        string   `toml:"prompt"`
	// Color is auto, always or never
	Color string `toml:"color"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	cfg := &Config{
		MaxCallDepth: DefaultMaxCallDepth,
		Prompt:       DefaultPrompt,
		Color:        "auto",
	}
	if dir := ConfigDir(); dir != "" {
		cfg.HistoryFile = filepath.Join(dir, "history")
	}
	return cfg
}

// ConfigDir returns the path to the ~/.glint directory
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".glint")
}

// ConfigPath returns the config file location; GLINT_CONFIG overrides it
func ConfigPath() string {
	if p := os.Getenv("GLINT_CONFIG"); p != "" {
		return p
	}
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.toml")
}

// LoadConfig reads the config file at path on top of the defaults. A
// missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			meta, err := toml.DecodeFile(path, cfg)
			if err != nil {
				return nil, errors.Wrapf(err, "reading config %s", path)
			}
			if undecoded := meta.Undecoded(); len(undecoded) > 0 {
				return nil, errors.Errorf("config %s: unknown key %s", path, undecoded[0])
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "reading config %s", path)
		}
	}
	if v := os.Getenv("GLINT_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.Wrap(err, "parsing GLINT_DEBUG")
		}
		cfg.Debug = debug
	}
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Color {
	case "auto", "always", "never":
	default:
		return errors.Errorf("color must be auto, always or never, got %q", c.Color)
	}
	if c.MaxCallDepth <= 0 {
		return errors.Errorf("max_call_depth must be positive, got %d", c.MaxCallDepth)
	}
	known := map[LogCategory]bool{}
	for _, cat := range AllCategories {
		known[cat] = true
	}
	for _, cat := range c.LogCategories {
		if cat != "all" && !known[LogCategory(cat)] {
			return errors.Errorf("unknown log category %q", cat)
		}
	}
	return nil
}

// Apply configures a logger from the settings
func (c *Config) Apply(logger *Logger) {
	logger.SetEnabled(c.Debug)
	for _, cat := range c.LogCategories {
		if cat == "all" {
			logger.EnableAllCategories()
			continue
		}
		logger.EnableCategory(LogCategory(cat))
	}
	switch c.Color {
	case "always":
		logger.SetColor(true)
	case "never":
		logger.SetColor(false)
	}
}
