// config/config.go
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	AuthModeGateway = "gateway"
	AuthModeJWT     = "jwt"
)

type Config struct {
	Port           string   `env:"PORT" envDefault:"5200"`
	DatabaseURL    string   `env:"DATABASE_URL"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	AuthMode         string `env:"AUTH_MODE" envDefault:"gateway"`
	GameServiceToken string `env:"GAME_SERVICE_TOKEN"`
	JWTSecret        string `env:"JWT_SECRET"`

	SessionStartFee    decimal.Decimal `env:"SESSION_START_FEE" envDefault:"0.50"`
	MoveFee            decimal.Decimal `env:"MOVE_FEE" envDefault:"0.025"`
	WinAward           decimal.Decimal `env:"WIN_AWARD" envDefault:"1"`
	AbandonPenalty     decimal.Decimal `env:"ABANDON_PENALTY" envDefault:"0.5"`
	RefundIllegalMoves bool            `env:"REFUND_ILLEGAL_MOVES" envDefault:"false"`

	AbandonAfter         time.Duration `env:"ABANDON_AFTER" envDefault:"24h"`
	AbandonSweepInterval time.Duration `env:"ABANDON_SWEEP_INTERVAL" envDefault:"5m"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	Archive Archive
}

// Archive configures the R2 bucket finished games are uploaded to.
// Archiving is off unless a bucket is named.
type Archive struct {
	AccountID       string        `env:"CLOUDFLARE_ACCOUNT_ID"`
	AccessKeyID     string        `env:"R2_ACCESS_KEY_ID"`
	AccessKeySecret string        `env:"R2_ACCESS_KEY_SECRET"`
	Bucket          string        `env:"R2_BUCKET_NAME"`
	CDNBaseURL      string        `env:"CDN_BASE_URL"`
	Interval        time.Duration `env:"ARCHIVE_INTERVAL" envDefault:"10m"`
}

func (a Archive) Enabled() bool {
	return a.Bucket != ""
}

// Load reads .env if present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, cfg.Validate()
}

// FromMap parses cfg from an explicit variable set instead of the process environment.
func FromMap(vars map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}

	c.AuthMode = strings.ToLower(strings.TrimSpace(c.AuthMode))
	switch c.AuthMode {
	case AuthModeGateway:
		if c.GameServiceToken == "" {
			errs = append(errs, errors.New("GAME_SERVICE_TOKEN is required when AUTH_MODE=gateway"))
		}
	case AuthModeJWT:
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET is required when AUTH_MODE=jwt"))
		}
	default:
		errs = append(errs, fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeGateway, AuthModeJWT, c.AuthMode))
	}

	if !c.SessionStartFee.IsPositive() {
		errs = append(errs, errors.New("SESSION_START_FEE must be > 0"))
	}
	if !c.MoveFee.IsPositive() {
		errs = append(errs, errors.New("MOVE_FEE must be > 0"))
	}
	if c.WinAward.IsNegative() {
		errs = append(errs, errors.New("WIN_AWARD must be >= 0"))
	}
	if c.AbandonPenalty.IsNegative() {
		errs = append(errs, errors.New("ABANDON_PENALTY must be >= 0"))
	}
	if c.AbandonAfter <= 0 || c.AbandonSweepInterval <= 0 {
		errs = append(errs, errors.New("ABANDON_AFTER and ABANDON_SWEEP_INTERVAL must be positive"))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}
	if c.Archive.Enabled() && c.Archive.Interval <= 0 {
		errs = append(errs, errors.New("ARCHIVE_INTERVAL must be positive"))
	}

	for i, o := range c.AllowedOrigins {
		c.AllowedOrigins[i] = strings.TrimSpace(o)
	}
	return errors.Join(errs...)
}
