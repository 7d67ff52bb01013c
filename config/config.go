// config/config.go
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Crypto  CryptoConfig  `yaml:"crypto"`
	Secrets SecretsConfig `yaml:"secrets"`
	Purge   PurgeConfig   `yaml:"purge"`
}

type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"`
}

type StoreConfig struct {
	Type  string      `yaml:"type"`
	DSN   string      `yaml:"dsn"`
	Redis RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type CryptoConfig struct {
	// Key is the base64-encoded 32-byte symmetric key. Required; the
	// server refuses to start without it rather than storing plaintext.
	Key string `yaml:"key"`
}

type SecretsConfig struct {
	DefaultTTL time.Duration `yaml:"default_ttl"`
	MaxTTL     time.Duration `yaml:"max_ttl"`
}

type PurgeConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			BaseURL: "http://localhost:8080",
		},
		Store: StoreConfig{
			Type: "memory",
			DSN:  "file:whisper.db",
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				Password: "",
				DB:       0,
			},
		},
		Secrets: SecretsConfig{
			DefaultTTL: 24 * time.Hour,
			MaxTTL:     7 * 24 * time.Hour,
		},
		Purge: PurgeConfig{
			IntervalSeconds: 3600,
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, err
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File not found is OK, use defaults
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

func (c *Config) loadFromEnv() {
	// Server
	if v := os.Getenv("HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("BASE_URL"); v != "" {
		c.Server.BaseURL = v
	}

	if v := os.Getenv("STORE_TYPE"); v != "" {
		c.Store.Type = v
	}
	if v := os.Getenv("STORE_DSN"); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Store.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Store.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Store.Redis.DB = db
		}
	}

	if v := os.Getenv("SECRET_KEY"); v != "" {
		c.Crypto.Key = v
	}

	if v := os.Getenv("DEFAULT_TTL"); v != "" {
		if ttl, err := time.ParseDuration(v); err == nil {
			c.Secrets.DefaultTTL = ttl
		}
	}
	if v := os.Getenv("MAX_TTL"); v != "" {
		if ttl, err := time.ParseDuration(v); err == nil {
			c.Secrets.MaxTTL = ttl
		}
	}

	if v := os.Getenv("PURGE_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Purge.IntervalSeconds = n
		}
	}
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Server.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}

	switch c.Store.Type {
	case "memory", "redis":
	case "sqlite", "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("dsn is required when store type is %q", c.Store.Type)
		}
	default:
		return fmt.Errorf("invalid store type: %s (must be 'memory', 'sqlite', 'postgres' or 'redis')", c.Store.Type)
	}

	if c.Store.Type == "redis" && c.Store.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required when store type is 'redis'")
	}

	if c.Secrets.DefaultTTL <= 0 {
		return fmt.Errorf("default_ttl must be positive")
	}

	if c.Secrets.MaxTTL < c.Secrets.DefaultTTL {
		return fmt.Errorf("max_ttl must be >= default_ttl")
	}

	return nil
}

// KeyBytes decodes the configured symmetric key. An empty key yields an
// empty slice; key-presence policy belongs to the crypto envelope.
func (c *Config) KeyBytes() ([]byte, error) {
	if c.Crypto.Key == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(c.Crypto.Key)
	if err != nil {
		return nil, fmt.Errorf("decoding crypto key: %w", err)
	}
	return key, nil
}

// PurgeInterval returns the sweep interval as a duration. Non-positive
// values are passed through; the scheduler clamps them to its default.
func (c *Config) PurgeInterval() time.Duration {
	return time.Duration(c.Purge.IntervalSeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
