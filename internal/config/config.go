package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Engine    EngineConfig    `toml:"engine"`
	Fiber     FiberConfig     `toml:"fiber"`
	Scripting ScriptingConfig `toml:"scripting"`
	Scenario  ScenarioConfig  `toml:"scenario"`
	Logging   LoggingConfig   `toml:"logging"`
}

type EngineConfig struct {
	Name      string   `toml:"name"`
	TickRate  Duration `toml:"tick_rate"`  // frame interval of the game loop
	MaxFrames int      `toml:"max_frames"` // 0 = run until every fiber finishes
}

type FiberConfig struct {
	LogLifecycle bool `toml:"log_lifecycle"` // debug-log spawn/finish of every fiber
}

type ScriptingConfig struct {
	Dir   string `toml:"dir"`
	Entry string `toml:"entry"` // optional global Lua function started before the scenario
}

type ScenarioConfig struct {
	Path string `toml:"path"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Duration decodes TOML strings like "50ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Load reads the config file over the defaults. A missing file yields the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Engine.TickRate.Duration <= 0 {
		return fmt.Errorf("engine.tick_rate must be positive, got %s", c.Engine.TickRate)
	}
	if c.Engine.MaxFrames < 0 {
		return fmt.Errorf("engine.max_frames must not be negative, got %d", c.Engine.MaxFrames)
	}
	return nil
}

func Defaults() *Config {
	return &Config{
		Engine: EngineConfig{
			Name:      "fiberd",
			TickRate:  Duration{50 * time.Millisecond},
			MaxFrames: 0,
		},
		Fiber: FiberConfig{
			LogLifecycle: false,
		},
		Scripting: ScriptingConfig{
			Dir: "scripts",
		},
		Scenario: ScenarioConfig{
			Path: "data/scenario.yaml",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
