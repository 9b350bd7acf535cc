// Package config loads repo-history settings from a YAML file and the
// environment. Environment variables win over the file; missing values fall
// back to defaults.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all repo-history configuration.
type Config struct {
	Base    BaseConfig    `yaml:"base"`
	GitHub  GitHubConfig  `yaml:"github"`
	SQLite  SQLiteConfig  `yaml:"sqlite"`
	Collect CollectConfig `yaml:"collect"`
}

// BaseConfig holds the HTTP listener and logging settings.
type BaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"` // "debug", "info", "warn", "error"
}

// GitHubConfig identifies the tracked repository and the API token.
type GitHubConfig struct {
	Token string `yaml:"token"`
	Repo  string `yaml:"repo"` // "owner/name"
}

// SQLiteConfig locates the observation database.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// CollectConfig controls snapshot scheduling.
type CollectConfig struct {
	// Interval between background snapshots while serving. Zero disables polling.
	Interval time.Duration `yaml:"interval"`
	// RetrieveInterval is the minimum spacing of manual /retrieve requests.
	RetrieveInterval time.Duration `yaml:"retrieve_interval"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Base: BaseConfig{
			Host:     "127.0.0.1",
			Port:     5000,
			LogLevel: "info",
		},
		SQLite: SQLiteConfig{
			Path: "repo-history.db",
		},
		Collect: CollectConfig{
			Interval:         time.Hour,
			RetrieveInterval: time.Minute,
		},
	}
}

// Load reads the file at path over the defaults and then applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.GitHub.Token = getenv("GITHUB_TOKEN", cfg.GitHub.Token)
	cfg.GitHub.Repo = getenv("REPO_HISTORY_REPO", cfg.GitHub.Repo)
	cfg.SQLite.Path = getenv("REPO_HISTORY_DB", cfg.SQLite.Path)
	cfg.Base.LogLevel = getenv("REPO_HISTORY_LOG_LEVEL", cfg.Base.LogLevel)
	if addr := os.Getenv("REPO_HISTORY_ADDR"); addr != "" {
		if host, port, err := net.SplitHostPort(addr); err == nil {
			if p, err := strconv.Atoi(port); err == nil {
				cfg.Base.Host = host
				cfg.Base.Port = p
			}
		}
	}
	if v := os.Getenv("REPO_HISTORY_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Collect.Interval = d
		}
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Base.Host, strconv.Itoa(c.Base.Port))
}

// ValidateGitHub reports whether the settings needed to poll GitHub are set.
func (c Config) ValidateGitHub() error {
	if c.GitHub.Token == "" {
		return errors.New("github token is not set (github.token or GITHUB_TOKEN)")
	}
	if c.GitHub.Repo == "" {
		return errors.New("github repo is not set (github.repo or REPO_HISTORY_REPO)")
	}
	return nil
}
