// Package config handles TOML-based configuration loading and validation.
// TOML is parsed as data only; no code execution is possible.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration.
type Config struct {
	Engine          string   `toml:"engine"`
	EnginePath      string   `toml:"engine_path"`
	Volume          int      `toml:"volume"`
	VolumeMin       int      `toml:"volume_min"`
	VolumeMax       int      `toml:"volume_max"`
	VolumeStep      int      `toml:"volume_step"`
	SeekStepMs      int      `toml:"seek_step_ms"`
	PollIntervalMs  int      `toml:"poll_interval_ms"`
	EngineTimeoutMs int      `toml:"engine_timeout_ms"`
	Repeat          bool     `toml:"repeat"`
	WindowID        uint64   `toml:"window_id"`
	SubsLanguage    string   `toml:"subs_language"`
	History         bool     `toml:"history"`
	HistoryLimit    int      `toml:"history_limit"`
	MediaExtensions []string `toml:"media_extensions"`
	Debug           bool     `toml:"debug"`
	LogFile         string   `toml:"log_file"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Engine:          "mpv",
		Volume:          70,
		VolumeMin:       0,
		VolumeMax:       100,
		VolumeStep:      5,
		SeekStepMs:      5000,
		PollIntervalMs:  200,
		EngineTimeoutMs: 3000,
		SubsLanguage:    "english",
		History:         true,
		HistoryLimit:    100,
		MediaExtensions: []string{
			".mp4", ".mkv", ".avi", ".mov", ".webm", ".flv", ".wmv", ".m4v", ".mpg", ".mpeg", ".ts",
			".mp3", ".flac", ".ogg", ".opus", ".wav", ".m4a", ".aac", ".wma",
		},
	}
}

// configDir returns the XDG-compliant config directory.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hydra"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "hydra"), nil
}

// dataDir returns the XDG-compliant data directory.
func dataDir() (string, error) {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "hydra"), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file and merges with defaults.
// If the config file doesn't exist, defaults are returned.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	validEngines := map[string]bool{"mpv": true, "vlc": true}
	if !validEngines[strings.ToLower(c.Engine)] {
		return fmt.Errorf("unsupported engine %q (valid: mpv, vlc)", c.Engine)
	}

	if c.VolumeMin < 0 || c.VolumeMax <= c.VolumeMin {
		return fmt.Errorf("volume range [%d, %d] is empty", c.VolumeMin, c.VolumeMax)
	}
	if c.VolumeMax > 200 {
		return fmt.Errorf("volume_max %d exceeds 200", c.VolumeMax)
	}
	if c.Volume < c.VolumeMin || c.Volume > c.VolumeMax {
		return fmt.Errorf("volume %d outside [%d, %d]", c.Volume, c.VolumeMin, c.VolumeMax)
	}
	if c.VolumeStep <= 0 {
		return fmt.Errorf("volume_step must be positive, got %d", c.VolumeStep)
	}

	if c.SeekStepMs <= 0 {
		return fmt.Errorf("seek_step_ms must be positive, got %d", c.SeekStepMs)
	}
	if c.PollIntervalMs < 20 || c.PollIntervalMs > 5000 {
		return fmt.Errorf("poll_interval_ms %d outside [20, 5000]", c.PollIntervalMs)
	}
	if c.EngineTimeoutMs <= 0 {
		return fmt.Errorf("engine_timeout_ms must be positive, got %d", c.EngineTimeoutMs)
	}

	if c.HistoryLimit < 0 {
		return fmt.Errorf("history_limit cannot be negative")
	}

	for _, ext := range c.MediaExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("media extension %q must start with a dot", ext)
		}
	}

	return nil
}

// PollInterval returns the synchronizer tick period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// SeekStep returns the forward/backward jump.
func (c *Config) SeekStep() time.Duration {
	return time.Duration(c.SeekStepMs) * time.Millisecond
}

// EngineTimeout returns the per-request deadline for engine IPC.
func (c *Config) EngineTimeout() time.Duration {
	return time.Duration(c.EngineTimeoutMs) * time.Millisecond
}

// ExpandLogFile resolves ~ in the log file path. An empty setting
// resolves to hydra.log in the data directory.
func (c *Config) ExpandLogFile() (string, error) {
	path := c.LogFile
	if path == "" {
		dir, err := dataDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "hydra.log"), nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding home dir: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Abs(path)
}

// HistoryPath returns the path to the history database.
func HistoryPath() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}
