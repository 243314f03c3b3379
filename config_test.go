package prism

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEngineConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prism.toml")
	doc := `
debug = true

[window]
width = 1920
title = "demo"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadEngineConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug not read")
	}
	if cfg.Window.Width != 1920 {
		t.Errorf("width = %d", cfg.Window.Width)
	}
	// Unset fields keep their defaults.
	if cfg.Window.Height != 720 {
		t.Errorf("height = %d, want default", cfg.Window.Height)
	}
	if cfg.Window.Title != "demo" {
		t.Errorf("title = %q", cfg.Window.Title)
	}
}

func TestLoadEngineConfigMissingFile(t *testing.T) {
	if _, err := LoadEngineConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("missing config accepted")
	}
}
