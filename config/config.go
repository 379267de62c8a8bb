// Package config loads environment defaults and fetch-source manifests.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/examapp/qbank/utils"
)

// Config carries the environment-driven defaults shared by the CLI commands.
type Config struct {
	DBPath        string
	Port          string
	CategoryBig   string
	CategorySmall string
	FetchDelayMS  int
}

// Load reads .env if present, then the environment. Missing values fall back
// to defaults; nothing here is fatal.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		utils.LogStartup("Loaded configuration from .env")
	}
	return &Config{
		DBPath:        utils.GetEnvOrDefault("QBANK_DB_PATH", "./questions.db"),
		Port:          utils.GetEnvOrDefault("PORT", "8080"),
		CategoryBig:   utils.GetEnvOrDefault("QBANK_CATEGORY_BIG", "科技"),
		CategorySmall: utils.GetEnvOrDefault("QBANK_CATEGORY_SMALL", "基础编程"),
		FetchDelayMS:  utils.GetEnvInt("QBANK_FETCH_DELAY_MS", 200),
	}
}

// Source describes one remote quiz range to fetch.
type Source struct {
	Name          string `yaml:"name"`
	BaseURL       string `yaml:"base_url"`
	StartID       int    `yaml:"start_id"`
	EndID         int    `yaml:"end_id"`
	CategoryBig   string `yaml:"category_big"`
	CategorySmall string `yaml:"category_small"`
}

type sourceManifest struct {
	Sources []Source `yaml:"sources"`
}

// LoadSources reads a YAML fetch-source manifest.
func LoadSources(path string) ([]Source, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m sourceManifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	for i, s := range m.Sources {
		if s.Name == "" {
			return nil, fmt.Errorf("manifest source %d: name is required", i)
		}
		if s.BaseURL == "" {
			return nil, fmt.Errorf("manifest source %q: base_url is required", s.Name)
		}
		if s.StartID <= 0 || s.EndID < s.StartID {
			return nil, fmt.Errorf("manifest source %q: invalid id range %d..%d", s.Name, s.StartID, s.EndID)
		}
	}
	return m.Sources, nil
}
