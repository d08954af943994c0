// Package config loads narr's TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk configuration. Zero values are replaced by
// defaults when loading.
type Config struct {
	Library LibraryConfig `toml:"library"`
	Speech  SpeechConfig  `toml:"speech"`
	Palette PaletteConfig `toml:"palette"`
	Log     LogConfig     `toml:"log"`
}

type LibraryConfig struct {
	// Database is the path of the SQLite story catalog.
	Database string `toml:"database"`
}

type SpeechConfig struct {
	Engine  string `toml:"engine"`  // "paced" or "command"
	Command string `toml:"command"` // synthesizer executable; empty to auto-detect
	Voice   string `toml:"voice"`
	BaseWPM int    `toml:"base_wpm"`
}

type PaletteConfig struct {
	UserAgent         string   `toml:"user_agent"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Timeout           Duration `toml:"timeout"`
}

type LogConfig struct {
	Level string `toml:"level"`
	Dir   string `toml:"dir"`
}

// Duration is a time.Duration written as a string such as "15s".
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

// Dir returns $XDG_CONFIG_HOME/narr, or ~/.config/narr.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "narr"), nil
}

// Path returns the default config file location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Default returns the built-in configuration.
func Default() Config {
	db := "narr.db"
	if dir, err := dataDir(); err == nil {
		db = filepath.Join(dir, "library.db")
	}
	return Config{
		Library: LibraryConfig{Database: db},
		Speech:  SpeechConfig{Engine: "paced", BaseWPM: 180},
		Palette: PaletteConfig{
			UserAgent:         "narr/1.0",
			RequestsPerSecond: 2,
			Timeout:           Duration{15 * time.Second},
		},
		Log: LogConfig{Level: "info"},
	}
}

func dataDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "narr"), nil
}

// Load reads the file at path over the defaults. An empty path means
// Path(). A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		p, err := Path()
		if err != nil {
			return cfg, err
		}
		path = p
	}

	md, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}
	return cfg, cfg.Validate()
}

// Validate checks values that the rest of the program cannot recover from.
func (c Config) Validate() error {
	switch c.Speech.Engine {
	case "paced", "silent", "command":
	default:
		return fmt.Errorf("speech.engine must be \"paced\" or \"command\", got %q", c.Speech.Engine)
	}
	if c.Speech.BaseWPM <= 0 {
		return fmt.Errorf("speech.base_wpm must be positive, got %d", c.Speech.BaseWPM)
	}
	if c.Palette.RequestsPerSecond < 0 {
		return fmt.Errorf("palette.requests_per_second must not be negative")
	}
	return nil
}
