package config

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultHost         = "0.0.0.0"
	DefaultPort         = "3002"
	DefaultModel        = "claude-3-5-haiku-latest"
	DefaultMaxTokens    = 1024
	DefaultAITimeout    = 30 * time.Second
	DefaultWriteTimeout = 5 * time.Second
	DefaultLogLevel     = "info"
)

// Config represents the global ~/.groupweaver/config.toml.
type Config struct {
	DefaultProfile string    `toml:"default_profile"`
	ListenAddr     string    `toml:"listen_addr"`
	Banner         bool      `toml:"banner"`
	AI             AIConfig  `toml:"ai"`
	Log            LogConfig `toml:"log"`
	Hub            HubConfig `toml:"hub"`
}

// AIConfig configures the text completion service.
type AIConfig struct {
	APIKey    string   `toml:"api_key"`
	Model     string   `toml:"model"`
	MaxTokens int64    `toml:"max_tokens"`
	Timeout   Duration `toml:"timeout"`
}

// LogConfig configures the daemon log file.
type LogConfig struct {
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// HubConfig configures real-time delivery.
type HubConfig struct {
	WriteTimeout Duration `toml:"write_timeout"`
}

// Duration is a time.Duration written as a string such as "30s".
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

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		ListenAddr: net.JoinHostPort(DefaultHost, DefaultPort),
		Banner:     true,
		AI: AIConfig{
			Model:     DefaultModel,
			MaxTokens: DefaultMaxTokens,
			Timeout:   Duration{DefaultAITimeout},
		},
		Log: LogConfig{
			Level:      DefaultLogLevel,
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Hub: HubConfig{WriteTimeout: Duration{DefaultWriteTimeout}},
	}
}

// Load reads config from the given path. Returns zero config and error if file missing.
// Keys absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault reads path, falling back to the defaults when the file does
// not exist. Other errors are returned.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// ApplyEnv overrides cfg with HOST, PORT, ANTHROPIC_API_KEY, GW_AI_MODEL and
// GW_LOG_LEVEL when they are set.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}

	host, port, err := net.SplitHostPort(c.ListenAddr)
	if err != nil {
		host, port = DefaultHost, DefaultPort
	}
	if v := strings.TrimSpace(getenv("HOST")); v != "" {
		host = v
	}
	if v := strings.TrimSpace(getenv("PORT")); v != "" {
		port = v
	}
	c.ListenAddr = net.JoinHostPort(host, port)

	if v := getenv("ANTHROPIC_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := getenv("GW_AI_MODEL"); v != "" {
		c.AI.Model = v
	}
	if v := getenv("GW_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}
