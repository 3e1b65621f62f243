package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds process settings read from the environment (and an optional
// .env file in the working directory).
type Config struct {
	DatabaseURL        string
	DBMaxConns         int32
	ServerPort         string
	AllowedOrigins     string
	JWTSecret          string
	Location           *time.Location
	GradingTolerance   decimal.Decimal
	ScaleMaxReadingAge time.Duration
}

const (
	defaultPort         = "8080"
	defaultTimezone     = "Asia/Jakarta"
	defaultReadingAge   = 10 * time.Second
	defaultGradingDelta = "0.01"
)

// Load reads .env if present, then the environment. DATABASE_URL is required.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// LoadJWTSecret reads .env if present and returns JWT_SECRET. Unlike Load it
// does not need DATABASE_URL, so token minting works on machines without
// database access.
func LoadJWTSecret() (string, error) {
	_ = godotenv.Load()
	return JWTSecretFromEnv(os.Getenv)
}

// JWTSecretFromEnv returns JWT_SECRET from getenv.
func JWTSecretFromEnv(getenv func(string) string) (string, error) {
	secret := getenv("JWT_SECRET")
	if secret == "" {
		return "", fmt.Errorf("JWT_SECRET environment variable not set")
	}
	return secret, nil
}

// FromEnv builds a Config from getenv. Exposed so tests can supply a map.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		DatabaseURL:    getenv("DATABASE_URL"),
		ServerPort:     getenv("SERVER_PORT"),
		AllowedOrigins: getenv("ALLOWED_ORIGINS"),
		JWTSecret:      getenv("JWT_SECRET"),
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = defaultPort
	}

	tz := strings.TrimSpace(getenv("TIMEZONE"))
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}
	cfg.Location = loc

	tol := getenv("GRADING_SUM_TOLERANCE")
	if tol == "" {
		tol = defaultGradingDelta
	}
	cfg.GradingTolerance, err = decimal.NewFromString(tol)
	if err != nil || cfg.GradingTolerance.IsNegative() {
		return nil, fmt.Errorf("invalid GRADING_SUM_TOLERANCE %q", tol)
	}

	cfg.ScaleMaxReadingAge = defaultReadingAge
	if v := getenv("SCALE_MAX_READING_AGE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid SCALE_MAX_READING_AGE %q", v)
		}
		cfg.ScaleMaxReadingAge = d
	}

	if v := getenv("DB_MAX_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid DB_MAX_CONNS %q", v)
		}
		cfg.DBMaxConns = int32(n)
	}

	return cfg, nil
}
