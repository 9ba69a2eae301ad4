package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=finance port=5432 sslmode=disable"

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	JWTTTL      time.Duration
	CORSOrigins string
	LogLevel    string
	LogFormat   string // json | text
	Currency    string // ISO code used when formatting exported amounts

	loadProblems []string // values Load could not parse
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		DatabaseDSN: getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		CORSOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
		Currency:    strings.ToUpper(getEnv("CURRENCY", "BRL")),
	}

	ttl, err := getEnvDuration("JWT_TTL", 24*time.Hour)
	if err != nil {
		cfg.loadProblems = append(cfg.loadProblems, err.Error())
	}
	cfg.JWTTTL = ttl

	return cfg
}

// Validate checks the loaded values and reports every problem at once.
func (c *Config) Validate() error {
	problems := append([]string(nil), c.loadProblems...)

	if port, err := strconv.Atoi(c.HTTPPort); err != nil {
		problems = append(problems, fmt.Sprintf("invalid HTTP_PORT '%s': must be a number", c.HTTPPort))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid HTTP_PORT %d: must be between 1 and 65535", port))
	}

	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	} else if len(c.JWTSecret) < 32 {
		problems = append(problems, "JWT_SECRET must be at least 32 characters")
	}

	if c.JWTTTL <= 0 {
		problems = append(problems, "JWT_TTL must be positive")
	}

	switch c.LogFormat {
	case "json", "text":
	default:
		problems = append(problems, fmt.Sprintf("invalid LOG_FORMAT '%s': must be json or text", c.LogFormat))
	}

	if len(c.Currency) != 3 {
		problems = append(problems, fmt.Sprintf("invalid CURRENCY '%s': must be a 3 letter ISO code", c.Currency))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

// UsesDefaultDSN reports whether DATABASE_DSN was left at the local default.
func (c *Config) UsesDefaultDSN() bool {
	return c.DatabaseDSN == defaultDSN
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s '%s': must be a duration like 24h", key, v)
	}
	return d, nil
}
