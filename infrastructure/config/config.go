package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const developmentJWTSecret = "dev-secret-change-me"

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`
	LogLevel      string `yaml:"log_level"`

	// Storage
	StorageBackend string `yaml:"storage_backend"`
	SQLitePath     string `yaml:"sqlite_path"`
	AWSRegion      string `yaml:"aws_region"`
	DynamoDBTable  string `yaml:"dynamodb_table"`
	// DynamoDBEndpoint points the client at DynamoDB Local when set
	DynamoDBEndpoint string `yaml:"dynamodb_endpoint"`

	// Events
	EventsBackend string `yaml:"events_backend"`
	EventBusName  string `yaml:"event_bus_name"`
	// OutboxRelayTarget is where the outbox relay forwards stored events
	OutboxRelayTarget string `yaml:"outbox_relay_target"`

	// Tree cache
	CacheBackend        string `yaml:"cache_backend"`
	RedisAddr           string `yaml:"redis_addr"`
	RedisPassword       string `yaml:"redis_password"`
	RedisDB             int    `yaml:"redis_db"`
	TreeCacheTTLSeconds int    `yaml:"tree_cache_ttl_seconds"`

	// Authentication
	JWTSecret                string `yaml:"jwt_secret"`
	JWTIssuer                string `yaml:"jwt_issuer"`
	AccessTokenExpireMinutes int    `yaml:"access_token_expire_minutes"`
	EmailTokenExpireHours    int    `yaml:"email_token_expire_hours"`
	PublicBaseURL            string `yaml:"public_base_url"`
	AuthRateLimitPerMinute   int    `yaml:"auth_rate_limit_per_minute"`

	// HTTP
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	// Feature flags
	EnableMetrics bool `yaml:"enable_metrics"`
	EnableTracing bool `yaml:"enable_tracing"`

	// Lambda
	IsLambda bool `yaml:"-"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() *Config {
	return &Config{
		ServerAddress:            ":8000",
		Environment:              "development",
		LogLevel:                 "info",
		StorageBackend:           "sqlite",
		SQLitePath:               "evolution.db",
		AWSRegion:                "us-west-2",
		DynamoDBTable:            "evolution-tree",
		EventsBackend:            "log",
		EventBusName:             "evolution-tree-events",
		OutboxRelayTarget:        "log",
		CacheBackend:             "memory",
		RedisAddr:                "localhost:6379",
		TreeCacheTTLSeconds:      60,
		JWTIssuer:                "evolution-tree-backend",
		AccessTokenExpireMinutes: 60,
		EmailTokenExpireHours:    24,
		PublicBaseURL:            "http://localhost:8000",
		AuthRateLimitPerMinute:   30,
		CORSAllowedOrigins:       []string{"*"},
		EnableMetrics:            true,
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file
// named by CONFIG_FILE and environment variables, in that order.
func LoadConfig() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.loadEnvironment()

	if cfg.JWTSecret == "" && !cfg.IsProduction() {
		cfg.JWTSecret = developmentJWTSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnvironment() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.StorageBackend = getEnv("STORAGE_BACKEND", c.StorageBackend)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.DynamoDBTable = getEnv("DYNAMODB_TABLE", getEnv("TABLE_NAME", c.DynamoDBTable))
	c.DynamoDBEndpoint = getEnv("DYNAMODB_ENDPOINT", c.DynamoDBEndpoint)

	c.EventsBackend = getEnv("EVENTS_BACKEND", c.EventsBackend)
	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)
	c.OutboxRelayTarget = getEnv("OUTBOX_RELAY_TARGET", c.OutboxRelayTarget)

	c.CacheBackend = getEnv("CACHE_BACKEND", c.CacheBackend)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getEnvInt("REDIS_DB", c.RedisDB)
	c.TreeCacheTTLSeconds = getEnvInt("TREE_CACHE_TTL_SECONDS", c.TreeCacheTTLSeconds)

	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTIssuer = getEnv("JWT_ISSUER", c.JWTIssuer)
	c.AccessTokenExpireMinutes = getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", c.AccessTokenExpireMinutes)
	c.EmailTokenExpireHours = getEnvInt("EMAIL_TOKEN_EXPIRE_HOURS", c.EmailTokenExpireHours)
	c.PublicBaseURL = getEnv("PUBLIC_BASE_URL", c.PublicBaseURL)
	c.AuthRateLimitPerMinute = getEnvInt("AUTH_RATE_LIMIT_PER_MINUTE", c.AuthRateLimitPerMinute)

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		c.CORSAllowedOrigins = splitList(origins)
	}

	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)

	c.IsLambda = os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

// Validate checks the configuration for values the application cannot run with
func (c *Config) Validate() error {
	if c.Environment != "development" && c.Environment != "production" {
		return fmt.Errorf("unknown ENVIRONMENT %q", c.Environment)
	}
	if c.IsProduction() && (c.JWTSecret == "" || c.JWTSecret == developmentJWTSecret) {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	switch c.StorageBackend {
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
		}
	case "dynamodb":
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required for the dynamodb backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	switch c.EventsBackend {
	case "eventbridge":
		if c.EventBusName == "" {
			return fmt.Errorf("EVENT_BUS_NAME is required for the eventbridge backend")
		}
	case "outbox":
		if c.StorageBackend != "dynamodb" {
			return fmt.Errorf("EVENTS_BACKEND outbox requires the dynamodb storage backend")
		}
		switch c.OutboxRelayTarget {
		case "eventbridge":
			if c.EventBusName == "" {
				return fmt.Errorf("EVENT_BUS_NAME is required to relay to eventbridge")
			}
		case "log":
		default:
			return fmt.Errorf("unknown OUTBOX_RELAY_TARGET %q", c.OutboxRelayTarget)
		}
	case "log", "none":
	default:
		return fmt.Errorf("unknown EVENTS_BACKEND %q", c.EventsBackend)
	}

	switch c.CacheBackend {
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis backend")
		}
	case "memory", "none":
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}

	if c.TreeCacheTTLSeconds <= 0 {
		return fmt.Errorf("TREE_CACHE_TTL_SECONDS must be positive")
	}
	if c.AccessTokenExpireMinutes <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if c.EmailTokenExpireHours <= 0 {
		return fmt.Errorf("EMAIL_TOKEN_EXPIRE_HOURS must be positive")
	}
	if c.AuthRateLimitPerMinute <= 0 {
		return fmt.Errorf("AUTH_RATE_LIMIT_PER_MINUTE must be positive")
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// TreeCacheTTL returns the tree cache lifetime.
func (c *Config) TreeCacheTTL() time.Duration {
	return time.Duration(c.TreeCacheTTLSeconds) * time.Second
}

// AccessTokenTTL returns the lifetime of issued access tokens.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

// EmailTokenTTL returns the lifetime of email verification tokens.
func (c *Config) EmailTokenTTL() time.Duration {
	return time.Duration(c.EmailTokenExpireHours) * time.Hour
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
