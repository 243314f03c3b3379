package prism

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// EngineConfig is the engine-level configuration, read from a TOML file.
// Scene content never lives here; scenes describe worlds, the config
// describes the host process.
type EngineConfig struct {
	Window   WindowConfig `toml:"window"`
	Debug    bool         `toml:"debug"`
	Headless bool         `toml:"headless"`
}

type WindowConfig struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Title  string `toml:"title"`
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
			Title:  "prism",
		},
	}
}

// LoadEngineConfig reads a TOML config file, filling unset fields from the
// defaults. A missing file is an error; callers pass a path only when the
// user asked for one.
func LoadEngineConfig(path string) (EngineConfig, error) {
	cfg := DefaultEngineConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("config %q: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		fmt.Fprintf(os.Stderr, "config %q: ignoring unknown keys: %v\n", path, undecoded)
	}
	return cfg, nil
}
