package config

import (
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	DefaultFolder   string  `koanf:"default_folder"`    // folder to scan when no argument is given
	OutputDevice    string  `koanf:"output_device"`     // playback device name, empty means system default
	SeekStepSeconds int     `koanf:"seek_step_seconds"` // arrow-key seek step
	VolumeStep      float64 `koanf:"volume_step"`       // +/- volume increment
	LogLevel        string  `koanf:"log_level"`         // logrus level name
}

func Load() (*Config, error) {
	return loadFrom(getConfigPaths())
}

// loadFrom merges the given TOML files in order (last wins), skipping
// files that do not exist.
func loadFrom(paths []string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := defaults()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if cfg.DefaultFolder != "" {
		cfg.DefaultFolder = expandPath(cfg.DefaultFolder)
	}
	if cfg.SeekStepSeconds <= 0 {
		cfg.SeekStepSeconds = 5
	}
	if cfg.VolumeStep <= 0 || cfg.VolumeStep > 0.5 {
		cfg.VolumeStep = 0.05
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		SeekStepSeconds: 5,
		VolumeStep:      0.05,
		LogLevel:        "info",
	}
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/cadenza/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "cadenza", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
