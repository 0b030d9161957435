package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"pmconsole/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Logging    LoggingConfig    `yaml:"logging"`
	Backend    BackendConfig    `yaml:"backend"`
	API        APIConfig        `yaml:"api"`
	Auth       AuthConfig       `yaml:"auth"`
	Redis      RedisConfig      `yaml:"redis"`
	Cache      CacheConfig      `yaml:"cache"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Refresh    RefreshConfig    `yaml:"refresh"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Kafka      KafkaConfig      `yaml:"kafka"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// BackendConfig describes the upstream property backend.
type BackendConfig struct {
	BaseURL            string        `yaml:"base_url"`
	TimeoutSeconds     int           `yaml:"timeout_seconds"`
	DefaultCountryCode string        `yaml:"default_country_code"`
	Breaker            BreakerConfig `yaml:"breaker"`
}

type BreakerConfig struct {
	MaxConsecutiveFailures uint32 `yaml:"max_consecutive_failures"`
	OpenSeconds            int    `yaml:"open_seconds"`
}

type APIConfig struct {
	HTTP           APIHTTPConfig      `yaml:"http"`
	RateLimit      APIRateLimitConfig `yaml:"rate_limit"`
	AllowedOrigins []string           `yaml:"allowed_origins"`
}

// AuthConfig holds the secret the auth provider signs tokens with. Without it
// websocket owners are verified with a backend call instead.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type CacheConfig struct {
	PropertyTTLSeconds int `yaml:"property_ttl_seconds"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

// RefreshConfig tunes the confirmation refetch after a booking is created.
type RefreshConfig struct {
	InitialDelayMillis int     `yaml:"initial_delay_ms"`
	BackoffMillis      int     `yaml:"backoff_ms"`
	MaxBackoffMillis   int     `yaml:"max_backoff_ms"`
	BackoffFactor      float64 `yaml:"backoff_factor"`
	MaxRetries         int     `yaml:"max_retries"`
	PageSize           int     `yaml:"page_size"`
	MarkerTTLSeconds   int     `yaml:"marker_ttl_seconds"`
}

type TelegramConfig struct {
	BotToken string  `yaml:"bot_token"`
	ChatIDs  []int64 `yaml:"chat_ids"`
	Debug    bool    `yaml:"debug"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; only a malformed file is an error
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	base := strings.TrimSpace(c.Backend.BaseURL)
	if base == "" {
		return errors.New("backend base_url is required")
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("backend base_url %q must be an absolute URL", base)
	}
	if c.Backend.TimeoutSeconds <= 0 {
		return errors.New("backend timeout_seconds must be positive")
	}
	if c.API.RateLimit.RPS < 0 {
		return errors.New("api rate_limit rps must not be negative")
	}
	if len(c.Kafka.Brokers) > 0 && strings.TrimSpace(c.Kafka.Topic) == "" {
		return errors.New("kafka topic is required when brokers are set")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "pmconsole"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if len(c.API.AllowedOrigins) == 0 {
		c.API.AllowedOrigins = []string{"*"}
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Backend.TimeoutSeconds == 0 {
		c.Backend.TimeoutSeconds = 15
	}
	if c.Backend.DefaultCountryCode == "" {
		c.Backend.DefaultCountryCode = models.DefaultCountryCode
	}
	if c.Backend.Breaker.MaxConsecutiveFailures == 0 {
		c.Backend.Breaker.MaxConsecutiveFailures = 3
	}
	if c.Backend.Breaker.OpenSeconds == 0 {
		c.Backend.Breaker.OpenSeconds = 10
	}
	if c.Cache.PropertyTTLSeconds == 0 {
		c.Cache.PropertyTTLSeconds = 300
	}

	if c.Refresh.InitialDelayMillis == 0 {
		c.Refresh.InitialDelayMillis = 2000
	}
	if c.Refresh.BackoffMillis == 0 {
		c.Refresh.BackoffMillis = 2000
	}
	if c.Refresh.MaxBackoffMillis == 0 {
		c.Refresh.MaxBackoffMillis = 30000
	}
	if c.Refresh.BackoffFactor == 0 {
		c.Refresh.BackoffFactor = 2
	}
	if c.Refresh.MaxRetries == 0 {
		c.Refresh.MaxRetries = 4
	}
	if c.Refresh.PageSize == 0 {
		c.Refresh.PageSize = models.DefaultPageSize
	}
	if c.Refresh.MarkerTTLSeconds == 0 {
		c.Refresh.MarkerTTLSeconds = 600
	}
	if c.Kafka.Topic == "" && len(c.Kafka.Brokers) > 0 {
		c.Kafka.Topic = "pmconsole.bookings"
	}
}

// Timeout returns the per-request upstream timeout.
func (c BackendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c CacheConfig) PropertyTTL() time.Duration {
	return time.Duration(c.PropertyTTLSeconds) * time.Second
}

func (c RefreshConfig) MarkerTTL() time.Duration {
	return time.Duration(c.MarkerTTLSeconds) * time.Second
}

func (c RefreshConfig) InitialDelay() time.Duration {
	return time.Duration(c.InitialDelayMillis) * time.Millisecond
}
