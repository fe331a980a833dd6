package glint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("GLINT_DEBUG", "")

	t.Run("Missing file gives defaults", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if cfg.MaxCallDepth != DefaultMaxCallDepth {
			t.Errorf("Expected depth %d, got %d", DefaultMaxCallDepth, cfg.MaxCallDepth)
		}
		if cfg.Prompt != DefaultPrompt || cfg.Color != "auto" {
			t.Errorf("Unexpected defaults %+v", cfg)
		}
	})

	t.Run("Values are read", func(t *testing.T) {
		path := writeConfig(t, `debug = true
log_categories = ["session", "bridge"]
history_file = "/tmp/glint_history"
max_call_depth = 500
prompt = "glint> "
color = "never"
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !cfg.Debug || cfg.MaxCallDepth != 500 || cfg.Prompt != "glint> " || cfg.HistoryFile != "/tmp/glint_history" {
			t.Errorf("Unexpected config %+v", cfg)
		}
		if strings.Join(cfg.LogCategories, ",") != "session,bridge" {
			t.Errorf("Unexpected categories %v", cfg.LogCategories)
		}
	})

	t.Run("Environment overrides debug", func(t *testing.T) {
		t.Setenv("GLINT_DEBUG", "1")
		cfg, err := LoadConfig(writeConfig(t, "debug = false\n"))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !cfg.Debug {
			t.Error("Expected GLINT_DEBUG to enable debug")
		}
	})

	errorsCases := []struct {
		name    string
		content string
		message string
	}{
		{"unknown key", "colour = \"never\"\n", "unknown key colour"},
		{"bad color", "color = \"sometimes\"\n", "color must be auto, always or never"},
		{"bad depth", "max_call_depth = 0\n", "max_call_depth must be positive"},
		{"bad category", "log_categories = [\"network\"]\n", "unknown log category"},
		{"bad syntax", "debug = \n", "reading config"},
	}
	for _, tt := range errorsCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("Expected error containing '%s', got '%v'", tt.message, err)
			}
		})
	}
}

func TestConfigPath(t *testing.T) {
	t.Setenv("GLINT_CONFIG", "/etc/glint.toml")
	if got := ConfigPath(); got != "/etc/glint.toml" {
		t.Errorf("Expected the GLINT_CONFIG path, got '%s'", got)
	}
}

func TestConfigApply(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Debug = true
	cfg.LogCategories = []string{"runtime"}
	logger := NewLogger(false)
	cfg.Apply(logger)
	if !logger.IsCategoryEnabled(CatRuntime) {
		t.Error("Expected the runtime category to be enabled")
	}
	if logger.IsCategoryEnabled(CatBridge) {
		t.Error("Expected the bridge category to stay disabled")
	}

	cfg.LogCategories = []string{"all"}
	cfg.Apply(logger)
	for _, cat := range AllCategories {
		if !logger.IsCategoryEnabled(cat) {
			t.Errorf("Expected %s to be enabled", cat)
		}
	}
}
