package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Engine    EngineConfig
	Delivery  DeliveryConfig
	Exchange  ExchangeConfig
	Statement StatementConfig
	Catalog   CatalogConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// EngineConfig tunes the job engine.
type EngineConfig struct {
	MaxAttempts            int
	DistributionRetryDelay time.Duration
	IngestionRetryDelay    time.Duration
	JobTimeout             time.Duration
	PollInterval           time.Duration
	PlatformPriority       []string
}

type DeliveryConfig struct {
	BaseURL string
	APIKey  string
	Timeout int // seconds
}

type ExchangeConfig struct {
	BaseURL string
	APIKey  string
}

type StatementConfig struct {
	ReportingCurrency string
	CommissionRate    float64
}

// CatalogConfig seeds the in-memory track catalog from the config file.
// An empty track list leaves report lines keyed by title and artist.
type CatalogConfig struct {
	Tracks []CatalogTrackConfig
}

type CatalogTrackConfig struct {
	ISRC     string `mapstructure:"isrc"`
	Title    string `mapstructure:"title"`
	Artist   string `mapstructure:"artist"`
	TrackID  string `mapstructure:"track_id"`
	HolderID string `mapstructure:"holder_id"`
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("DELIVERY_API_KEY")
	readSecret("EXCHANGE_API_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("engine.max_attempts", "ENGINE_MAX_ATTEMPTS")
	_ = viper.BindEnv("engine.distribution_retry_delay", "ENGINE_DISTRIBUTION_RETRY_DELAY")
	_ = viper.BindEnv("engine.ingestion_retry_delay", "ENGINE_INGESTION_RETRY_DELAY")
	_ = viper.BindEnv("engine.job_timeout", "ENGINE_JOB_TIMEOUT")
	_ = viper.BindEnv("engine.poll_interval", "ENGINE_POLL_INTERVAL")
	_ = viper.BindEnv("delivery.base_url", "DELIVERY_BASE_URL")
	_ = viper.BindEnv("delivery.api_key", "DELIVERY_API_KEY")
	_ = viper.BindEnv("delivery.timeout", "DELIVERY_TIMEOUT")
	_ = viper.BindEnv("exchange.base_url", "EXCHANGE_BASE_URL")
	_ = viper.BindEnv("exchange.api_key", "EXCHANGE_API_KEY")
	_ = viper.BindEnv("statement.reporting_currency", "REPORTING_CURRENCY")
	_ = viper.BindEnv("statement.commission_rate", "COMMISSION_RATE")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("engine.max_attempts", 3)
	viper.SetDefault("engine.distribution_retry_delay", "5m")
	viper.SetDefault("engine.ingestion_retry_delay", "10m")
	viper.SetDefault("engine.job_timeout", "2h")
	viper.SetDefault("engine.poll_interval", "60s")
	viper.SetDefault("engine.platform_priority", []string{
		"spotify", "applemusic", "bandcamp",
	})

	viper.SetDefault("delivery.timeout", 120)
	viper.SetDefault("exchange.base_url", "https://api.exchangerate.host")
	viper.SetDefault("statement.reporting_currency", "USD")
	viper.SetDefault("statement.commission_rate", 0.15)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	var tracks []CatalogTrackConfig
	if err := viper.UnmarshalKey("catalog.tracks", &tracks); err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Engine: EngineConfig{
			MaxAttempts:            viper.GetInt("engine.max_attempts"),
			DistributionRetryDelay: viper.GetDuration("engine.distribution_retry_delay"),
			IngestionRetryDelay:    viper.GetDuration("engine.ingestion_retry_delay"),
			JobTimeout:             viper.GetDuration("engine.job_timeout"),
			PollInterval:           viper.GetDuration("engine.poll_interval"),
			PlatformPriority:       viper.GetStringSlice("engine.platform_priority"),
		},
		Delivery: DeliveryConfig{
			BaseURL: viper.GetString("delivery.base_url"),
			APIKey:  viper.GetString("delivery.api_key"),
			Timeout: viper.GetInt("delivery.timeout"),
		},
		Exchange: ExchangeConfig{
			BaseURL: viper.GetString("exchange.base_url"),
			APIKey:  viper.GetString("exchange.api_key"),
		},
		Statement: StatementConfig{
			ReportingCurrency: viper.GetString("statement.reporting_currency"),
			CommissionRate:    viper.GetFloat64("statement.commission_rate"),
		},
		Catalog: CatalogConfig{
			Tracks: tracks,
		},
	}

	return cfg, nil
}
