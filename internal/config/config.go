package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures jibewatch's settings.
type Config struct {
	APIBase           string
	PollInterval      time.Duration
	RunPollInterval   time.Duration
	RequestsPerSecond float64
	UserAgent         string
	ListenAddr        string
	LogFile           string
	LogLevel          string
}

const (
	defaultConfigPath      = "~/.config/jibewatch/config.toml"
	defaultLogFile         = "~/.local/state/jibewatch/jibewatch.log"
	defaultAPIBase         = "http://127.0.0.1:8080"
	defaultListenAddr      = "127.0.0.1:7480"
	defaultLogLevel        = "info"
	defaultPollInterval    = time.Second
	defaultRunPollInterval = 5 * time.Second
	defaultRequestsPerSec  = 10
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIBase:           defaultAPIBase,
		PollInterval:      defaultPollInterval,
		RunPollInterval:   defaultRunPollInterval,
		RequestsPerSecond: defaultRequestsPerSec,
		ListenAddr:        defaultListenAddr,
		LogFile:           mustExpand(defaultLogFile),
		LogLevel:          defaultLogLevel,
	}
}

// Load locates and parses the config file, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIBase           string  `toml:"api_base"`
		PollInterval      string  `toml:"poll_interval"`
		RunPollInterval   string  `toml:"run_poll_interval"`
		RequestsPerSecond float64 `toml:"requests_per_second"`
		UserAgent         string  `toml:"user_agent"`
		ListenAddr        string  `toml:"listen_addr"`
		LogFile           string  `toml:"log_file"`
		LogLevel          string  `toml:"log_level"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIBase); v != "" {
		cfg.APIBase = v
	}
	if cfg.PollInterval, err = parseInterval("poll_interval", raw.PollInterval, defaultPollInterval); err != nil {
		return Config{}, err
	}
	if cfg.RunPollInterval, err = parseInterval("run_poll_interval", raw.RunPollInterval, defaultRunPollInterval); err != nil {
		return Config{}, err
	}
	if raw.RequestsPerSecond < 0 {
		return Config{}, fmt.Errorf("requests_per_second must not be negative, got %v", raw.RequestsPerSecond)
	}
	if raw.RequestsPerSecond > 0 {
		cfg.RequestsPerSecond = raw.RequestsPerSecond
	}
	cfg.UserAgent = strings.TrimSpace(raw.UserAgent)
	if v := strings.TrimSpace(raw.ListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	return cfg, nil
}

func parseInterval(key, value string, fallback time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves a leading ~ and makes path absolute.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
