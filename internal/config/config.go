package config

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

type Config struct {
	Server    ServerConfig    `json:"server"`
	Redis     RedisConfig     `json:"redis"`
	Database  DatabaseConfig  `json:"database"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	JWT       JWTConfig       `json:"jwt"`
	Auth      AuthConfig      `json:"auth"`
	Services  []ServiceConfig `json:"services"`
}

type ServerConfig struct {
	Port        string `json:"port"`
	Environment string `json:"environment"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

func (r RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

type DatabaseConfig struct {
	DSN string `json:"dsn"`
}

type RateLimitConfig struct {
	GlobalRequestsPerMinute   int `json:"global_requests_per_minute"`
	IPRequestsPerMinute       int `json:"ip_requests_per_minute"`
	StrictRequestsPerInterval int `json:"strict_requests_per_interval"`
	StrictIntervalMinutes     int `json:"strict_interval_minutes"`
	BucketCleanupMinutes      int `json:"bucket_cleanup_minutes"`
	BucketMaxAgeMinutes       int `json:"bucket_max_age_minutes"`
}

type JWTConfig struct {
	// Base64-encoded signing key; the JWT_SECRET env var takes precedence
	Secret                        string `json:"secret"`
	ExpirationMinutes             int    `json:"expiration_minutes"`
	RefreshExpirationMinutes      int    `json:"refresh_expiration_minutes"`
	BlacklistCleanupMinutes       int    `json:"blacklist_cleanup_minutes"`
	BlacklistTokenLifetimeMinutes int    `json:"blacklist_token_lifetime_minutes"`
}

type AuthConfig struct {
	MaxLoginAttempts     int `json:"max_login_attempts"`
	AttemptWindowMinutes int `json:"attempt_window_minutes"`
	CodeTTLMinutes       int `json:"code_ttl_minutes"`
}

type ServiceConfig struct {
	Path     string   `json:"path"`
	Targets  []string `json:"targets"`
	Strategy string   `json:"strategy"`
}

func Load(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	config.applyEnv()
	config.applyDefaults()

	return &config, nil
}

// Secrets come from the environment when set, so config.json can be
// committed without them.
func (c *Config) applyEnv() {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		c.Redis.Password = password
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.RateLimit.GlobalRequestsPerMinute == 0 {
		c.RateLimit.GlobalRequestsPerMinute = 1000
	}
	if c.RateLimit.IPRequestsPerMinute == 0 {
		c.RateLimit.IPRequestsPerMinute = 100
	}
	if c.RateLimit.StrictRequestsPerInterval == 0 {
		c.RateLimit.StrictRequestsPerInterval = 10
	}
	if c.RateLimit.StrictIntervalMinutes == 0 {
		c.RateLimit.StrictIntervalMinutes = 15
	}
	if c.RateLimit.BucketCleanupMinutes == 0 {
		c.RateLimit.BucketCleanupMinutes = 120
	}
	if c.RateLimit.BucketMaxAgeMinutes == 0 {
		c.RateLimit.BucketMaxAgeMinutes = 120
	}
	if c.JWT.ExpirationMinutes == 0 {
		c.JWT.ExpirationMinutes = 360
	}
	if c.JWT.RefreshExpirationMinutes == 0 {
		c.JWT.RefreshExpirationMinutes = 10080
	}
	if c.JWT.BlacklistCleanupMinutes == 0 {
		c.JWT.BlacklistCleanupMinutes = 60
	}
	if c.JWT.BlacklistTokenLifetimeMinutes == 0 {
		c.JWT.BlacklistTokenLifetimeMinutes = 1440
	}
	if c.Auth.MaxLoginAttempts == 0 {
		c.Auth.MaxLoginAttempts = 5
	}
	if c.Auth.AttemptWindowMinutes == 0 {
		c.Auth.AttemptWindowMinutes = 15
	}
	if c.Auth.CodeTTLMinutes == 0 {
		c.Auth.CodeTTLMinutes = 5
	}
}

// SigningKey decodes the configured JWT secret.
func (c *Config) SigningKey() ([]byte, error) {
	if c.JWT.Secret == "" {
		return nil, errors.New("jwt secret is not configured (set JWT_SECRET)")
	}

	key, err := base64.StdEncoding.DecodeString(c.JWT.Secret)
	if err != nil {
		return nil, fmt.Errorf("jwt secret is not valid base64: %w", err)
	}

	return key, nil
}
