package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	TicketsDBPath  string
	IdentityDBPath string
	DBPoolSize     int

	JWTSecret         string
	JWTKeyID          string
	JWTPreviousSecret string
	JWTPreviousKeyID  string
	JWTIssuer         string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	PasswordResetTTL  time.Duration
	SweepInterval     time.Duration
	BcryptCost        int

	CORSAllowedOrigins []string
	PurchaseRetries    int
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:              getEnvWithDefault("PORT", "8080"),
		Environment:       getEnvWithDefault("ENVIRONMENT", "development"),
		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
		TicketsDBPath:     getEnvWithDefault("TICKETS_DB_PATH", "data/tickets.db"),
		IdentityDBPath:    getEnvWithDefault("IDENTITY_DB_PATH", "data/identity.db"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		JWTKeyID:          getEnvWithDefault("JWT_KEY_ID", "primary"),
		JWTPreviousSecret: os.Getenv("JWT_PREVIOUS_SECRET"),
		JWTPreviousKeyID:  os.Getenv("JWT_PREVIOUS_KEY_ID"),
		JWTIssuer:         getEnvWithDefault("JWT_ISSUER", "tigertix-auth"),
		CORSAllowedOrigins: splitList(
			getEnvWithDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		),
	}

	var err error
	if cfg.DBPoolSize, err = getIntWithDefault("DB_POOL_SIZE", 0); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = getIntWithDefault("BCRYPT_COST", 0); err != nil {
		return nil, err
	}
	if cfg.PurchaseRetries, err = getIntWithDefault("PURCHASE_RETRIES", 2); err != nil {
		return nil, err
	}
	if cfg.AccessTokenTTL, err = getDurationWithDefault("ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RefreshTokenTTL, err = getDurationWithDefault("REFRESH_TOKEN_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.PasswordResetTTL, err = getDurationWithDefault("PASSWORD_RESET_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getDurationWithDefault("TOKEN_SWEEP_INTERVAL", time.Hour); err != nil {
		return nil, err
	}

	// Validate required fields
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.JWTPreviousSecret != "" && cfg.JWTPreviousKeyID == "" {
		return nil, fmt.Errorf("JWT_PREVIOUS_KEY_ID is required when JWT_PREVIOUS_SECRET is set")
	}
	if cfg.JWTPreviousKeyID != "" && cfg.JWTPreviousKeyID == cfg.JWTKeyID {
		return nil, fmt.Errorf("JWT_PREVIOUS_KEY_ID must differ from JWT_KEY_ID")
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, fmt.Errorf("token lifetimes must be positive")
	}
	if cfg.AccessTokenTTL >= cfg.RefreshTokenTTL {
		return nil, fmt.Errorf("ACCESS_TOKEN_TTL must be shorter than REFRESH_TOKEN_TTL")
	}
	// Zero selects bcrypt.DefaultCost.
	if cfg.BcryptCost != 0 && (cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost) {
		return nil, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if cfg.PurchaseRetries < 0 {
		return nil, fmt.Errorf("PURCHASE_RETRIES must not be negative")
	}

	return cfg, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntWithDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, value)
	}
	return n, nil
}

func getDurationWithDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, value)
	}
	return d, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
