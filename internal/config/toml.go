// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Timer TimerConfig `toml:"timer"`
	Log   LogConfig   `toml:"log"`
}

// TimerConfig maps Pomodoro phase lengths in minutes.
type TimerConfig struct {
	FocusMinutes *int `toml:"focus-minutes"`
	BreakMinutes *int `toml:"break-minutes"`
}

// LogConfig maps diagnostic logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
	File  *string `toml:"file"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// SaveTimer stores phase lengths in the config file, keeping other sections.
func SaveTimer(path string, focusMinutes, breakMinutes int) error {
	if focusMinutes <= 0 || breakMinutes <= 0 {
		return fmt.Errorf("timer minutes must be > 0")
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	cfg.Timer.FocusMinutes = &focusMinutes
	cfg.Timer.BreakMinutes = &breakMinutes
	return writeConfig(path, cfg)
}

func writeConfig(path string, cfg FileConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmpFile, err := os.CreateTemp(dir, "config-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create temp config: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if err := toml.NewEncoder(tmpFile).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
