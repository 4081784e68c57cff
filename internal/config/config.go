package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Scan      ScanConfig      `mapstructure:"scan"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Version     string `mapstructure:"version"`
	Debug       bool   `mapstructure:"debug"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	HTTPPort        int           `mapstructure:"http_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	TimeFormat string `mapstructure:"time_format"`
}

// ProvidersConfig holds configuration for all external reputation providers
type ProvidersConfig struct {
	Reputation      ProviderConfig `mapstructure:"reputation"`
	Abuse           ProviderConfig `mapstructure:"abuse"`
	PhoneValidation ProviderConfig `mapstructure:"phone_validation"`
}

// ProviderConfig holds configuration for a single external provider
type ProviderConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MinInterval time.Duration `mapstructure:"min_interval"`
	DailyQuota  int           `mapstructure:"daily_quota"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
}

type ScanConfig struct {
	MaxBatchSize  int  `mapstructure:"max_batch_size"`
	UseRedisCache bool `mapstructure:"use_redis_cache"`
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/mobiguard")
	}

	setDefaults(v)

	// Environment variables
	v.SetEnvPrefix("MOBIGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind nested env vars explicitly (viper doesn't auto-bind nested struct fields)
	v.BindEnv("redis.host", "MOBIGUARD_REDIS_HOST")
	v.BindEnv("redis.port", "MOBIGUARD_REDIS_PORT")
	v.BindEnv("redis.password", "MOBIGUARD_REDIS_PASSWORD")
	v.BindEnv("database.enabled", "MOBIGUARD_DATABASE_ENABLED")
	v.BindEnv("database.host", "MOBIGUARD_DATABASE_HOST")
	v.BindEnv("database.port", "MOBIGUARD_DATABASE_PORT")
	v.BindEnv("database.user", "MOBIGUARD_DATABASE_USER")
	v.BindEnv("database.password", "MOBIGUARD_DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "MOBIGUARD_DATABASE_DBNAME")
	v.BindEnv("providers.reputation.api_key", "MOBIGUARD_PROVIDERS_REPUTATION_API_KEY")
	v.BindEnv("providers.abuse.api_key", "MOBIGUARD_PROVIDERS_ABUSE_API_KEY")
	v.BindEnv("providers.phone_validation.api_key", "MOBIGUARD_PROVIDERS_PHONE_VALIDATION_API_KEY")
	v.BindEnv("app.environment", "MOBIGUARD_APP_ENVIRONMENT")

	// Read config file; missing file falls back to defaults and env
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadDefault loads configuration with default path
func LoadDefault() (*Config, error) {
	return Load("")
}

// setDefaults registers default values so the service runs with no config file
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "mobiguard")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.key_prefix", "mobiguard:")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Accept", "Content-Type", "X-API-Key"})
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests_per_minute", 120)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")

	// File/URL reputation: free tier allows one call per 15 seconds
	v.SetDefault("providers.reputation.enabled", true)
	v.SetDefault("providers.reputation.base_url", "https://www.virustotal.com/vtapi/v2")
	v.SetDefault("providers.reputation.timeout", 10*time.Second)
	v.SetDefault("providers.reputation.min_interval", 15*time.Second)
	v.SetDefault("providers.reputation.daily_quota", 500)
	v.SetDefault("providers.reputation.cache_ttl", time.Hour)

	// IP abuse reputation: daily quota on the free tier
	v.SetDefault("providers.abuse.enabled", true)
	v.SetDefault("providers.abuse.base_url", "https://api.abuseipdb.com/api/v2")
	v.SetDefault("providers.abuse.timeout", 10*time.Second)
	v.SetDefault("providers.abuse.min_interval", time.Second)
	v.SetDefault("providers.abuse.daily_quota", 1000)
	v.SetDefault("providers.abuse.cache_ttl", time.Hour)

	v.SetDefault("providers.phone_validation.enabled", true)
	v.SetDefault("providers.phone_validation.base_url", "http://apilayer.net/api")
	v.SetDefault("providers.phone_validation.timeout", 10*time.Second)
	v.SetDefault("providers.phone_validation.min_interval", time.Second)
	v.SetDefault("providers.phone_validation.daily_quota", 250)
	v.SetDefault("providers.phone_validation.cache_ttl", time.Hour)

	v.SetDefault("scan.max_batch_size", 100)
	v.SetDefault("scan.use_redis_cache", true)
}
