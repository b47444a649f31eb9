package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Models     ModelsConfig     `mapstructure:"models"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Email      EmailConfig      `mapstructure:"email"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	I18n       I18nConfig       `mapstructure:"i18n"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type ModelsConfig struct {
	Timeout   time.Duration   `mapstructure:"timeout"`
	Endpoints []ModelEndpoint `mapstructure:"endpoints"`
}

// ModelEndpoint describes one provider in fallback order. Kind selects the
// adapter ("gemini" or "openrouter"); an empty APIKey leaves the provider
// configured but permanently failing, which the invoker treats like any
// other call failure.
type ModelEndpoint struct {
	Name    string `mapstructure:"name"`
	Kind    string `mapstructure:"kind"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

type RetrievalConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	TopK     int           `mapstructure:"top_k"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type EmbeddingConfig struct {
	URL       string        `mapstructure:"url"`
	Token     string        `mapstructure:"token"`
	Dimension int           `mapstructure:"dimension"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	Type   string       `mapstructure:"type"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Memory MemoryConfig `mapstructure:"memory"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MemoryConfig struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

type CacheConfig struct {
	File string        `mapstructure:"file"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type EmailConfig struct {
	SenderEmail    string        `mapstructure:"sender_email"`
	SupportEmail   string        `mapstructure:"support_email"`
	SendGridAPIKey string        `mapstructure:"sendgrid_api_key"`
	SMTP           SMTPConfig    `mapstructure:"smtp"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Output string     `mapstructure:"output"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type I18nConfig struct {
	DefaultLanguage string `mapstructure:"default_language"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	viper.BindEnv("retrieval.api_key", "PINECONE_API_KEY")
	viper.BindEnv("retrieval.endpoint", "PINECONE_ENDPOINT")
	viper.BindEnv("embedding.url", "EMBEDDING_URL")
	viper.BindEnv("embedding.token", "HUGGINGFACE_TOKEN")
	viper.BindEnv("email.sender_email", "SENDER_EMAIL")
	viper.BindEnv("email.support_email", "AVEN_SUPPORT_EMAIL")
	viper.BindEnv("email.sendgrid_api_key", "SENDGRID_API_KEY")
	viper.BindEnv("email.smtp.password", "EMAIL_APP_PASSWORD")
	viper.BindEnv("storage.redis.addr", "REDIS_ADDR")
	viper.BindEnv("storage.redis.password", "REDIS_PASSWORD")
	viper.BindEnv("storage.redis.db", "REDIS_DB")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Provider API keys come from the environment, keyed by endpoint name.
	for i := range config.Models.Endpoints {
		ep := &config.Models.Endpoints[i]
		if ep.APIKey == "" {
			envKey := strings.ToUpper(strings.ReplaceAll(ep.Name, "-", "_")) + "_API_KEY"
			ep.APIKey = os.Getenv(envKey)
		}
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":5000"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Cache.File == "" {
		cfg.Cache.File = "response_cache.json"
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 24 * time.Hour
	}
	if cfg.Models.Timeout == 0 {
		cfg.Models.Timeout = 60 * time.Second
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.Timeout == 0 {
		cfg.Retrieval.Timeout = 7 * time.Second
	}
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = 384
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}
	if cfg.Email.Timeout == 0 {
		cfg.Email.Timeout = 15 * time.Second
	}
	if cfg.Email.SMTP.Host == "" {
		cfg.Email.SMTP.Host = "smtp.gmail.com"
	}
	if cfg.Email.SMTP.Port == 0 {
		cfg.Email.SMTP.Port = 587
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "memory"
	}
	if cfg.Storage.Memory.DefaultExpiration == 0 {
		cfg.Storage.Memory.DefaultExpiration = 24 * time.Hour
	}
	if cfg.Storage.Memory.CleanupInterval == 0 {
		cfg.Storage.Memory.CleanupInterval = time.Hour
	}
	if cfg.I18n.DefaultLanguage == "" {
		cfg.I18n.DefaultLanguage = "en"
	}
}

func validateConfig(cfg *Config) error {
	if len(cfg.Models.Endpoints) == 0 {
		return fmt.Errorf("at least one model endpoint is required")
	}
	for _, ep := range cfg.Models.Endpoints {
		if ep.Kind != "gemini" && ep.Kind != "openrouter" {
			return fmt.Errorf("unknown model endpoint kind: %s", ep.Kind)
		}
	}
	return nil
}
