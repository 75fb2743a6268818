package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kkyr/fig"
	"go.uber.org/zap"
)

const (
	envPrefix = "FOODGRAM" // env prefix for env vars

	// DefaultFile is looked up in the working directory and the home directory.
	DefaultFile = ".foodgram.yaml"

	devSecretKey = "dev-secret-change-me"
)

type Server struct {
	Host              string        `fig:"host" default:"0.0.0.0"`
	Port              int           `fig:"port" default:"8080"`
	BaseURL           string        `fig:"base_url"`
	ReadHeaderTimeout time.Duration `fig:"read_header_timeout" default:"10s"`
	ShutdownTimeout   time.Duration `fig:"shutdown_timeout" default:"15s"`
	AllowedOrigins    []string      `fig:"allowed_origins" default:"[*]"`
}

// Addr is the listen address for the HTTP server.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DB struct {
	// Driver is either postgres or sqlite.
	Driver             string `fig:"driver" default:"postgres"`
	Host               string `fig:"host" default:"localhost"`
	Port               int    `fig:"port" default:"5432"`
	User               string `fig:"user" default:"postgres"`
	Password           string `fig:"password"`
	Database           string `fig:"database" default:"foodgram"`
	SSLMode            string `fig:"ssl_mode" default:"disable"`
	Path               string `fig:"path" default:"foodgram.db"`
	MaxIdleConnections int    `fig:"max_idle_connections" default:"10"`
	MaxOpenConnections int    `fig:"max_open_connections" default:"10"`
}

// DSN renders a lib/pq connection string.
func (d DB) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode)
}

type Redis struct {
	// URL is optional; when empty, rate limiting is off and revoked tokens live in the database.
	URL      string `fig:"url"`
	Password string `fig:"password"`
	DB       int    `fig:"db"`
}

type Auth struct {
	SecretKey string        `fig:"secret_key"`
	TokenTTL  time.Duration `fig:"token_ttl" default:"24h"`
}

type Storage struct {
	// Backend is either disk or s3.
	Backend string `fig:"backend" default:"disk"`
	Dir     string `fig:"dir" default:"media"`
	// PublicURL prefixes stored object keys in API payloads.
	PublicURL    string `fig:"public_url"`
	Bucket       string `fig:"bucket" default:"foodgram-recipe-images"`
	Region       string `fig:"region" default:"us-east-1"`
	Endpoint     string `fig:"endpoint"`
	PublicPolicy bool   `fig:"public_policy"`
}

type Pagination struct {
	DefaultLimit int `fig:"default_limit" default:"6"`
	MaxLimit     int `fig:"max_limit" default:"100"`
}

type Recipes struct {
	DefaultRecipesLimit int `fig:"default_recipes_limit" default:"6"`
	MaxRecipesLimit     int `fig:"max_recipes_limit" default:"100"`
}

type RateLimit struct {
	Requests int           `fig:"requests" default:"30"`
	Window   time.Duration `fig:"window" default:"1m"`
}

// Config holds all configuration for the application
type Config struct {
	Server     Server     `fig:"server"`
	DB         DB         `fig:"db"`
	Redis      Redis      `fig:"redis"`
	Auth       Auth       `fig:"auth"`
	Storage    Storage    `fig:"storage"`
	Pagination Pagination `fig:"pagination"`
	Recipes    Recipes    `fig:"recipes"`
	RateLimit  RateLimit  `fig:"rate_limit"`
}

// GetConfig loads the named yaml file (optional) and FOODGRAM_* environment
// overrides, fills credentials from Docker secrets and validates the result
// for the current environment.
func GetConfig(configFileName string, logger *zap.Logger) (*Config, error) {
	config := Config{}
	homeDir, _ := os.UserHomeDir()

	if configFileName == "" {
		configFileName = DefaultFile
	}

	logger.Info("Loading config", zap.String("file", configFileName))

	err := fig.Load(&config, fig.File(configFileName), fig.Dirs(".", homeDir), fig.UseEnv(envPrefix))
	if err != nil {
		if !strings.Contains(err.Error(), "file not found") {
			return nil, err
		}
		logger.Warn("Could not find config file", zap.String("file", configFileName))

		config = Config{}
		if err = fig.Load(&config, fig.IgnoreFile(), fig.UseEnv(envPrefix)); err != nil {
			return nil, err
		}
	}

	loadSecrets(&config)

	env := GetEnvironment()
	if config.Auth.SecretKey == "" && env != Production {
		logger.Warn("No secret key configured, using development key", zap.String("env", string(env)))
		config.Auth.SecretKey = devSecretKey
	}

	if err := ValidateConfig(&config, env); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// loadSecrets fills credentials that were not set through file or env from Docker secrets.
func loadSecrets(cfg *Config) {
	if cfg.DB.Password == "" {
		cfg.DB.Password = readSecret("db_password")
	}
	if cfg.Auth.SecretKey == "" {
		cfg.Auth.SecretKey = readSecret("jwt_secret")
	}
	if cfg.Redis.Password == "" {
		cfg.Redis.Password = readSecret("redis_password")
	}
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	if data, err := os.ReadFile(filepath.Join(secretsDir, name)); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
