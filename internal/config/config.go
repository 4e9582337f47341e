package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const minJWTSecretLen = 32

type Config struct {
	Port      string        `env:"PORT" envDefault:"3002"`
	JWTSecret string        `env:"JWT_SECRET,required"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"1h"`

	MetricsToken string `env:"METRICS_TOKEN"`

	DatabaseURL  string `env:"DATABASE_URL"`
	SeedProducts int    `env:"SEED_PRODUCTS" envDefault:"1000"`
	SeedRandom   uint64 `env:"SEED_RANDOM" envDefault:"42"`

	RedisURL string        `env:"REDIS_URL"`
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"60s"`

	AuditLogFile    string `env:"AUDIT_LOG_FILE" envDefault:"logs/audit.log"`
	AuditMaxSizeMB  int    `env:"AUDIT_MAX_SIZE_MB" envDefault:"50"`
	AuditMaxBackups int    `env:"AUDIT_MAX_BACKUPS" envDefault:"5"`
	AuditMaxAgeDays int    `env:"AUDIT_MAX_AGE_DAYS" envDefault:"14"`

	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`

	LoginRatePerMin    int `env:"LOGIN_RATE_PER_MIN" envDefault:"5"`
	RegisterRatePerMin int `env:"REGISTER_RATE_PER_MIN" envDefault:"3"`
}

// Load reads an optional .env file (or the files given) into the process
// environment, then parses it. Variables already set win over file values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			files = []string{".env"}
		}
	}
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return Config{}, fmt.Errorf("load env files: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if len(c.JWTSecret) < minJWTSecretLen {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d chars", minJWTSecretLen))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if c.SeedProducts < 0 {
		errs = append(errs, errors.New("SEED_PRODUCTS must not be negative"))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, errors.New("CACHE_TTL must not be negative"))
	}
	return errors.Join(errs...)
}
