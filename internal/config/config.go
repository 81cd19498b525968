package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ServerURL             string `yaml:"server_url"`
	WebSocketURL          string `yaml:"websocket_url"`
	LogFile               string `yaml:"log_file"`
	LogLevel              int    `yaml:"log_level"`
	LogTailBytes          int    `yaml:"log_tail_bytes"`
	CachePath             string `yaml:"cache_path"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
	HeartbeatSeconds      int    `yaml:"heartbeat_seconds"`
}

// GetConfigDir returns the path to the config directory (~/.parley).
func GetConfigDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".parley")
}

// DefaultPath returns the path to the default config file.
func DefaultPath() string {
	return filepath.Join(GetConfigDir(), "config.yml")
}

// Default returns the configuration used when no file exists.
func Default() Config {
	dir := GetConfigDir()
	return Config{
		ServerURL:             "http://localhost:8080",
		WebSocketURL:          "ws://localhost:8080/ws-chat/websocket",
		LogFile:               filepath.Join(dir, "parley.log"),
		LogLevel:              2,
		LogTailBytes:          64 * 1024,
		CachePath:             filepath.Join(dir, "cache.db"),
		RequestTimeoutSeconds: 10,
	}
}

// Load reads the config file at path. A missing file yields the defaults;
// fields absent from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrap(err, "failed to read config file")
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse config file %s", path)
	}

	cfg.LogFile = expandHome(cfg.LogFile)
	cfg.CachePath = expandHome(cfg.CachePath)
	return cfg, cfg.Validate()
}

// Save writes cfg to path, creating the parent directory.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

// Validate checks the values that cannot be defaulted.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ServerURL) == "" {
		return errors.New("server_url is required")
	}
	if strings.TrimSpace(c.WebSocketURL) == "" {
		return errors.New("websocket_url is required")
	}
	if c.LogLevel < 0 || c.LogLevel > 6 {
		return errors.Errorf("log_level %d is not valid, expected 0 (TRACE) to 6 (FATAL)", c.LogLevel)
	}
	if c.LogTailBytes <= 0 {
		return errors.Errorf("log_tail_bytes %d is not valid, expected a positive size", c.LogTailBytes)
	}
	if c.RequestTimeoutSeconds < 0 || c.HeartbeatSeconds < 0 {
		return errors.New("timeouts must not be negative")
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
	}
	return path
}
