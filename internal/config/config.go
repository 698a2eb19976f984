package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "LISTINGDRAFT_"

// Transport modes.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Store drivers.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	API       APIConfig       `yaml:"api"`
	Store     StoreConfig     `yaml:"store"`
	Redis     RedisConfig     `yaml:"redis"`
	Staging   StagingConfig   `yaml:"staging"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

// LogConfig sets the log level and an optional log file. The file is cut
// back to its newest part once it grows past MaxSize bytes.
type LogConfig struct {
	Level   string `yaml:"level"`
	Path    string `yaml:"path"`
	MaxSize int64  `yaml:"max_size"`
}

type TransportConfig struct {
	Mode string `yaml:"mode"`
}

type AuthConfig struct {
	Enabled         bool          `yaml:"enabled"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// APIConfig configures the remote listing API client.
type APIConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Token         string        `yaml:"token"`
	Timeout       time.Duration `yaml:"timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	Burst         int           `yaml:"burst"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type StagingConfig struct {
	Dir     string `yaml:"dir"`
	MaxSize int64  `yaml:"max_size"`
}

type LifecycleConfig struct {
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	PendingMaxAge   time.Duration `yaml:"pending_max_age"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "listingdraft.db",
		},
		Log: LogConfig{
			Level:   "info",
			MaxSize: 6 << 20,
		},
		Transport: TransportConfig{
			Mode: TransportStdio,
		},
		Auth: AuthConfig{
			RefreshInterval: 15 * time.Minute,
		},
		API: APIConfig{
			BaseURL:       "http://localhost:5000",
			Timeout:       30 * time.Second,
			RetryAttempts: 3,
			RetryDelay:    time.Second,
			RatePerSecond: 10,
			Burst:         5,
		},
		Store: StoreConfig{
			Driver: StoreSQLite,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Staging: StagingConfig{
			Dir:     "staging",
			MaxSize: 20 << 20,
		},
		Lifecycle: LifecycleConfig{
			CleanupInterval: time.Minute,
			PendingMaxAge:   30 * time.Minute,
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(envPrefix + "CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	switch c.Transport.Mode {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("invalid transport mode %q", c.Transport.Mode)
	}
	switch c.Store.Driver {
	case StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("invalid store driver %q", c.Store.Driver)
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("api base url is required")
	}
	if c.Log.MaxSize < 0 {
		return fmt.Errorf("log max size must not be negative")
	}
	if c.API.RetryAttempts < 1 {
		return fmt.Errorf("api retry attempts must be at least 1")
	}
	if c.Auth.RefreshInterval <= 0 || c.Lifecycle.CleanupInterval <= 0 {
		return fmt.Errorf("schedule intervals must be positive")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if host := os.Getenv(envPrefix + "SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv(envPrefix + "SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid %sSERVER_PORT: %w", envPrefix, err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv(envPrefix + "DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv(envPrefix + "LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if path := os.Getenv(envPrefix + "LOG_PATH"); path != "" {
		cfg.Log.Path = path
	}
	if sizeStr := os.Getenv(envPrefix + "LOG_MAX_SIZE"); sizeStr != "" {
		size, err := strconv.ParseInt(sizeStr, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sLOG_MAX_SIZE: %w", envPrefix, err)
		}
		cfg.Log.MaxSize = size
	}
	if mode := os.Getenv(envPrefix + "TRANSPORT_MODE"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if enabled := os.Getenv(envPrefix + "AUTH_ENABLED"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			return fmt.Errorf("invalid %sAUTH_ENABLED: %w", envPrefix, err)
		}
		cfg.Auth.Enabled = v
	}
	if baseURL := os.Getenv(envPrefix + "API_BASE_URL"); baseURL != "" {
		cfg.API.BaseURL = baseURL
	}
	if token := os.Getenv(envPrefix + "API_TOKEN"); token != "" {
		cfg.API.Token = token
	}
	if driver := os.Getenv(envPrefix + "STORE_DRIVER"); driver != "" {
		cfg.Store.Driver = driver
	}
	if addr := os.Getenv(envPrefix + "REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if password := os.Getenv(envPrefix + "REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if dir := os.Getenv(envPrefix + "STAGING_DIR"); dir != "" {
		cfg.Staging.Dir = dir
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}
