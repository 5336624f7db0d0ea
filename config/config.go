package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultJWTSecret = "dev-secret-key"

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	JWT       JWTConfig       `yaml:"jwt"`
	Firebase  FirebaseConfig  `yaml:"firebase"`
	Store     StoreConfig     `yaml:"store"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
	AI        AIConfig        `yaml:"ai"`
	Redis     RedisConfig     `yaml:"redis"`
	Memory    MemoryConfig    `yaml:"memory"`
}

type ServerConfig struct {
	Port        string `yaml:"port"`
	Host        string `yaml:"host"`
	Environment string `yaml:"environment"`
}

type JWTConfig struct {
	Secret                 string        `yaml:"secret"`
	Expiration             time.Duration `yaml:"expiration"`
	RefreshTokenExpiration time.Duration `yaml:"refresh_token_expiration"`
}

type FirebaseConfig struct {
	ProjectID       string `yaml:"project_id"`
	CredentialsPath string `yaml:"credentials_path"`
}

// StoreConfig selects the document store: "firestore" or "memory".
type StoreConfig struct {
	Backend string `yaml:"backend"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type AIConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Enabled reports whether a completion endpoint is configured.
func (c AIConfig) Enabled() bool { return c.BaseURL != "" }

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// Enabled reports whether a Redis address is configured.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

type MemoryConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080", Host: "0.0.0.0", Environment: "development"},
		JWT: JWTConfig{
			Secret:                 defaultJWTSecret,
			Expiration:             30 * time.Minute,
			RefreshTokenExpiration: 7 * 24 * time.Hour,
		},
		Firebase:  FirebaseConfig{CredentialsPath: "./serviceAccountKey.json"},
		Store:     StoreConfig{Backend: "firestore"},
		CORS:      CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		RateLimit: RateLimitConfig{Requests: 100, Window: 60 * time.Second},
		Logging:   LoggingConfig{Level: "info", Format: "json", MaxSizeMB: 50, MaxBackups: 7, MaxAgeDays: 14, Compress: true},
		AI:        AIConfig{Model: "gpt-4o-mini", Timeout: 30 * time.Second},
		Redis:     RedisConfig{CacheTTL: 24 * time.Hour},
		Memory:    MemoryConfig{Debounce: 500 * time.Millisecond},
	}
}

// Load builds the configuration from defaults, then the YAML file (if any),
// then environment variables.
func Load(configFile string) (*Config, error) {
	c := Default()
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configFile, err)
		}
	}

	envString(&c.Server.Port, "PORT")
	envString(&c.Server.Host, "HOST")
	envString(&c.Server.Environment, "ENVIRONMENT")
	envString(&c.JWT.Secret, "JWT_SECRET")
	envDuration(&c.JWT.Expiration, "JWT_EXPIRATION")
	envDuration(&c.JWT.RefreshTokenExpiration, "REFRESH_TOKEN_EXPIRATION")
	envString(&c.Firebase.ProjectID, "FIREBASE_PROJECT_ID")
	envString(&c.Firebase.CredentialsPath, "FIREBASE_CREDENTIALS_PATH")
	envString(&c.Store.Backend, "STORE_BACKEND")
	envList(&c.CORS.AllowedOrigins, "ALLOWED_ORIGINS")
	envInt(&c.RateLimit.Requests, "RATE_LIMIT_REQUESTS")
	envDuration(&c.RateLimit.Window, "RATE_LIMIT_WINDOW")
	envString(&c.Logging.Level, "LOG_LEVEL")
	envString(&c.Logging.Format, "LOG_FORMAT")
	envString(&c.Logging.File, "LOG_FILE")
	envString(&c.AI.BaseURL, "AI_BASE_URL")
	envString(&c.AI.APIKey, "AI_API_KEY")
	envString(&c.AI.Model, "AI_MODEL")
	envDuration(&c.AI.Timeout, "AI_TIMEOUT")
	envString(&c.Redis.Addr, "REDIS_ADDR")
	envString(&c.Redis.Password, "REDIS_PASSWORD")
	envInt(&c.Redis.DB, "REDIS_DB")
	envDuration(&c.Redis.CacheTTL, "REDIS_CACHE_TTL")
	envDuration(&c.Memory.Debounce, "MEMORY_DEBOUNCE")

	return c, nil
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = parseInt(v, *dst)
	}
}

func envDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = parseDuration(v, *dst)
	}
}

func envList(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = parseStringSlice(v)
	}
}

func parseInt(s string, defaultValue int) int {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return defaultValue
}

// parseDuration accepts Go durations, a day suffix ("7d") or bare seconds ("60").
func parseDuration(s string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if strings.HasSuffix(s, "d") {
		if days, err := strconv.Atoi(strings.TrimSuffix(s, "d")); err == nil {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	if i, err := strconv.Atoi(s); err == nil {
		return time.Duration(i) * time.Second
	}
	return defaultValue
}

func parseStringSlice(s string) []string {
	result := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func (c *Config) Validate() error {
	var errs []error
	if c.JWT.Secret == defaultJWTSecret && c.IsProduction() {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	switch c.Store.Backend {
	case "firestore":
		if c.Firebase.ProjectID == "" {
			errs = append(errs, errors.New("FIREBASE_PROJECT_ID must be set"))
		}
		if _, err := os.Stat(c.Firebase.CredentialsPath); os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("firebase credentials file not found: %s", c.Firebase.CredentialsPath))
		}
	case "memory":
		if c.IsProduction() {
			errs = append(errs, errors.New("memory store is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate limit requests and window must be positive"))
	}
	if c.Memory.Debounce < 0 {
		errs = append(errs, errors.New("memory debounce must not be negative"))
	}
	return errors.Join(errs...)
}
