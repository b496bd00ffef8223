package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Feed       FeedConfig
	Redis      RedisConfig
	NATS       NATSConfig
	Database   DatabaseConfig
	CloudWatch CloudWatchConfig
	Security   SecurityConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
}

// FeedConfig настройки live feed: upstream, стратегия деградации, емкости списков
type FeedConfig struct {
	StreamURL      string
	APIURL         string
	APIToken       string
	Strategy       string // fallback | reconnect
	Source         string // api | monitor | synthetic
	ConnectTimeout time.Duration
	PollInterval   time.Duration
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	BackoffRetries int
	Seed           int64

	DeploymentsCap    int
	AlertsCap         int
	HistoryCap        int
	CompletedBuildTTL time.Duration
	CacheWriteEvery   time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

type NATSConfig struct {
	Enabled       bool
	URL           string
	SubjectPrefix string
}

type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	Retention       time.Duration // 0 отключает очистку архива
}

type CloudWatchConfig struct {
	Enabled         bool
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Namespace       string
	LogGroup        string
	LogStream       string
}

type SecurityConfig struct {
	AllowedOrigins []string
	AuthEnabled    bool
	AuthToken      string
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	connectTimeout, err := parseDuration(getEnv("FEED_CONNECT_TIMEOUT", "3s"))
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_CONNECT_TIMEOUT: %w", err)
	}

	pollInterval, err := parseDuration(getEnv("FEED_POLL_INTERVAL", "2s"))
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_POLL_INTERVAL: %w", err)
	}

	backoffBase, err := parseDuration(getEnv("FEED_BACKOFF_BASE", "1s"))
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_BACKOFF_BASE: %w", err)
	}

	backoffMax, err := parseDuration(getEnv("FEED_BACKOFF_MAX", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_BACKOFF_MAX: %w", err)
	}

	backoffRetries, err := strconv.Atoi(getEnv("FEED_BACKOFF_RETRIES", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_BACKOFF_RETRIES: %w", err)
	}

	seed, err := strconv.ParseInt(getEnv("FEED_SEED", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_SEED: %w", err)
	}

	deploymentsCap, err := strconv.Atoi(getEnv("FEED_DEPLOYMENTS_CAP", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_DEPLOYMENTS_CAP: %w", err)
	}

	alertsCap, err := strconv.Atoi(getEnv("FEED_ALERTS_CAP", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_ALERTS_CAP: %w", err)
	}

	historyCap, err := strconv.Atoi(getEnv("FEED_HISTORY_CAP", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_HISTORY_CAP: %w", err)
	}

	completedTTL, err := parseDuration(getEnv("FEED_COMPLETED_BUILD_TTL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_COMPLETED_BUILD_TTL: %w", err)
	}

	cacheWriteEvery, err := parseDuration(getEnv("FEED_CACHE_WRITE_INTERVAL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_CACHE_WRITE_INTERVAL: %w", err)
	}

	rps, err := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "20"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	burst, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "40"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	redisTTL, err := parseDuration(getEnv("REDIS_TTL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_TTL: %w", err)
	}

	retention, err := parseDuration(getEnv("DB_RETENTION", "168h"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_RETENTION: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimitRPS:    rps,
			RateLimitBurst:  burst,
		},
		Feed: FeedConfig{
			StreamURL:         getEnv("FEED_STREAM_URL", "ws://localhost:3001/ws"),
			APIURL:            getEnv("FEED_API_URL", "http://localhost:3001"),
			APIToken:          getEnv("FEED_API_TOKEN", ""),
			Strategy:          getEnv("FEED_STRATEGY", "fallback"),
			Source:            getEnv("FEED_SOURCE", "api"),
			ConnectTimeout:    connectTimeout,
			PollInterval:      pollInterval,
			BackoffBase:       backoffBase,
			BackoffMax:        backoffMax,
			BackoffRetries:    backoffRetries,
			Seed:              seed,
			DeploymentsCap:    deploymentsCap,
			AlertsCap:         alertsCap,
			HistoryCap:        historyCap,
			CompletedBuildTTL: completedTTL,
			CacheWriteEvery:   cacheWriteEvery,
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
			TTL:      redisTTL,
		},
		NATS: NATSConfig{
			Enabled:       getEnvBool("NATS_ENABLED", false),
			URL:           getEnv("NATS_URL", "nats://localhost:4222"),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "devex.feed"),
		},
		Database: DatabaseConfig{
			Enabled:         getEnvBool("DB_ENABLED", false),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "devex"),
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 10 * time.Minute,
			Retention:       retention,
		},
		CloudWatch: CloudWatchConfig{
			Enabled:         getEnvBool("CLOUDWATCH_ENABLED", false),
			Region:          getEnv("CLOUDWATCH_REGION", "us-east-1"),
			Endpoint:        getEnv("CLOUDWATCH_ENDPOINT", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Namespace:       getEnv("CLOUDWATCH_NAMESPACE", "DevExDashboard/Feed"),
			LogGroup:        getEnv("CLOUDWATCH_LOG_GROUP", "devex-dashboard"),
			LogStream:       getEnv("CLOUDWATCH_LOG_STREAM", "relay"),
		},
		Security: SecurityConfig{
			AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")),
			AuthEnabled:    getEnvBool("AUTH_ENABLED", false),
			AuthToken:      getEnv("AUTH_BEARER_TOKEN", ""),
		},
	}

	if err := cfg.Feed.Validate(); err != nil {
		return nil, err
	}

	if cfg.Security.AuthEnabled && cfg.Security.AuthToken == "" {
		return nil, fmt.Errorf("AUTH_BEARER_TOKEN is required when AUTH_ENABLED=true")
	}

	return cfg, nil
}

// Validate проверяет согласованность настроек feed
func (c *FeedConfig) Validate() error {
	switch c.Strategy {
	case "fallback", "reconnect":
	default:
		return fmt.Errorf("invalid FEED_STRATEGY: %q", c.Strategy)
	}

	switch c.Source {
	case "api", "monitor", "synthetic":
	default:
		return fmt.Errorf("invalid FEED_SOURCE: %q", c.Source)
	}

	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("FEED_CONNECT_TIMEOUT must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("FEED_POLL_INTERVAL must be positive")
	}
	if c.BackoffRetries < 0 {
		return fmt.Errorf("FEED_BACKOFF_RETRIES must not be negative")
	}
	if c.DeploymentsCap < 0 || c.AlertsCap < 0 || c.HistoryCap < 0 {
		return fmt.Errorf("feed capacities must not be negative")
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database)
}

func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func splitCSV(raw string) []string {
	items := make([]string, 0)
	current := ""

	for _, r := range raw {
		if r == ',' {
			if current != "" {
				items = append(items, current)
				current = ""
			}
			continue
		}
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			current += string(r)
		}
	}

	if current != "" {
		items = append(items, current)
	}

	return items
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
