package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bassista/go_microassur/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix = "MICROASSUR"

	// MemoryStoragePath keeps the session in process memory only.
	MemoryStoragePath = ":memory:"
)

// Config is the full console configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Server  ServerConfig  `mapstructure:"server"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Storage StorageConfig `mapstructure:"storage"`
	Misc    MiscConfig    `mapstructure:"misc"`
}

// APIConfig describes the remote microinsurance backend.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ServerConfig describes the local console HTTP surface.
type ServerConfig struct {
	Port               int           `mapstructure:"port"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	IdleTimeout        time.Duration `mapstructure:"idle_timeout"`
	ShutDownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	CORSAllowedOrigins string        `mapstructure:"cors_allowed_origins"`
}

// CacheConfig holds the query cache policy defaults.
type CacheConfig struct {
	StaleTime  time.Duration `mapstructure:"stale_time"`
	GCTime     time.Duration `mapstructure:"gc_time"`
	GCInterval time.Duration `mapstructure:"gc_interval"`
}

// StorageConfig locates the durable session storage.
type StorageConfig struct {
	FilePath string `mapstructure:"file_path"`
}

// MiscConfig holds logging, gin mode and message locale settings.
type MiscConfig struct {
	LogLevel string `mapstructure:"log_level"`
	GinMode  string `mapstructure:"gin_mode"`
	Locale   string `mapstructure:"locale"`
}

// LoadConfig reads .env, config.yaml and MICROASSUR_* environment variables.
// Environment variables like MICROASSUR_API_BASE_URL override api.base_url.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WithComponent("config").Warnf("cannot load .env file: %v", err)
	}

	viper.Reset()
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(getEnvOrDefault(envPrefix+"_CONFIG_PATH", "./config"))

	setDefaults()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config file error: %w", err)
		}
		logger.WithComponent("config").Debugf("no config file found, using defaults and env vars")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	port, err := getEnvOrViperPort("PORT", "server.port")
	if err != nil {
		return nil, err
	}
	cfg.Server.Port = port

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("api.base_url", "http://localhost:8000/api")
	viper.SetDefault("api.timeout", 30*time.Second)

	viper.SetDefault("server.port", 8090)
	viper.SetDefault("server.read_timeout", 10*time.Second)
	viper.SetDefault("server.write_timeout", 35*time.Second)
	viper.SetDefault("server.idle_timeout", 120*time.Second)
	viper.SetDefault("server.shutdown_timeout", 5*time.Second)
	viper.SetDefault("server.request_timeout", 30*time.Second)
	viper.SetDefault("server.cors_allowed_origins", "*")

	viper.SetDefault("cache.stale_time", 30*time.Second)
	viper.SetDefault("cache.gc_time", 5*time.Minute)
	viper.SetDefault("cache.gc_interval", time.Minute)

	viper.SetDefault("storage.file_path", "./config/data/session.json")

	viper.SetDefault("misc.log_level", "info")
	viper.SetDefault("misc.gin_mode", "release")
	viper.SetDefault("misc.locale", "fr")
}

func (c *Config) validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute http(s) URL: %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return errors.New("api.timeout must be positive")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.IdleTimeout <= 0 {
		return errors.New("server read/write/idle timeouts must be positive")
	}
	if c.Server.ShutDownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be positive")
	}
	if c.Server.RequestTimeout < 0 {
		return errors.New("server.request_timeout cannot be negative")
	}

	if c.Cache.StaleTime < 0 {
		return errors.New("cache.stale_time cannot be negative")
	}
	if c.Cache.GCTime <= 0 {
		return errors.New("cache.gc_time must be positive")
	}
	if c.Cache.GCInterval <= 0 {
		return errors.New("cache.gc_interval must be positive")
	}

	if c.Storage.FilePath == "" {
		return errors.New("storage.file_path is required")
	}

	switch c.Misc.Locale {
	case "fr", "en":
	default:
		return fmt.Errorf("misc.locale must be one of fr, en: %q", c.Misc.Locale)
	}
	return nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvOrViperPort lets a bare env var (e.g. PORT) win over the viper key.
func getEnvOrViperPort(envKey, viperKey string) (int, error) {
	if v := os.Getenv(envKey); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", envKey, v, err)
		}
		return port, nil
	}
	return viper.GetInt(viperKey), nil
}
