package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"oddclimb-backend/internal/engine"
)

type Config struct {
	Port string
	Env  string

	RedisURL  string
	RedisPass string
	RedisDB   int

	JWTSecret string
	JWTExpiry time.Duration

	ClaimNonceTTL         time.Duration
	AllowBreakEvenCashout bool

	HazardTarget     int
	FinishMultiplier float64
	MaxMultiplier    float64
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		RedisURL:  getEnv("REDIS_URL", "localhost:6379"),
		RedisPass: getEnv("REDIS_PASSWORD", ""),
		JWTSecret: getEnv("JWT_SECRET", ""),
	}

	if cfg.JWTSecret == "" {
		if cfg.Env == "production" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "dev-only-secret"
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.HazardTarget, err = getEnvInt("BOARD_HAZARD_TARGET", 0); err != nil {
		return nil, err
	}
	if cfg.FinishMultiplier, err = getEnvFloat("BOARD_FINISH_MULTIPLIER", 0); err != nil {
		return nil, err
	}
	if cfg.MaxMultiplier, err = getEnvFloat("BOARD_MAX_MULTIPLIER", 0); err != nil {
		return nil, err
	}

	jwtMinutes, err := getEnvInt("JWT_EXPIRY_MINUTES", 24*60)
	if err != nil {
		return nil, err
	}
	cfg.JWTExpiry = time.Duration(jwtMinutes) * time.Minute

	nonceMinutes, err := getEnvInt("CLAIM_NONCE_TTL_MINUTES", 5)
	if err != nil {
		return nil, err
	}
	cfg.ClaimNonceTTL = time.Duration(nonceMinutes) * time.Minute

	// Policy knob: clients may hide the cash-out button at 1x, the server
	// default stays permissive.
	cfg.AllowBreakEvenCashout = getEnv("ALLOW_BREAK_EVEN_CASHOUT", "true") != "false"

	return cfg, nil
}

// BoardConfig returns the production board tuning with any env overrides
// applied.
func (c *Config) BoardConfig() engine.Config {
	board := engine.DefaultConfig()
	if c.HazardTarget > 0 {
		board.HazardTarget = c.HazardTarget
	}
	if c.FinishMultiplier > 0 {
		board.FinishMultiplier = c.FinishMultiplier
	}
	if c.MaxMultiplier > 0 {
		board.MaxMultiplier = c.MaxMultiplier
	}
	return board
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return f, nil
}
