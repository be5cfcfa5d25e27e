package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// セッションバックエンドの種別
const (
	SessionBackendPostgres = "postgres"
	SessionBackendRedis    = "redis"
	SessionBackendMemory   = "memory"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL        string        `env:"DATABASE_URL,notEmpty"`
	PersistenceTimeout time.Duration `env:"PERSISTENCE_TIMEOUT" envDefault:"5s"`

	// OAuth
	GoogleClientID     string        `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string        `env:"GOOGLE_CLIENT_SECRET"`
	GitHubClientID     string        `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string        `env:"GITHUB_CLIENT_SECRET"`
	OAuthTimeout       time.Duration `env:"OAUTH_TIMEOUT" envDefault:"10s"`

	// Session
	SessionSecret          string        `env:"SESSION_SECRET,notEmpty"`
	SessionMaxAge          int           `env:"SESSION_MAX_AGE" envDefault:"86400"`
	SessionBackend         string        `env:"SESSION_BACKEND" envDefault:"postgres"`
	SessionCleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"1h"`
	RedisURL               string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	// Site
	EventYears    []int    `env:"EVENT_YEARS" envSeparator:"," envDefault:"2012,2013,2014,2015,2016,2017"`
	Locales       []string `env:"LOCALES" envSeparator:"," envDefault:"en,fr"`
	DefaultLocale string   `env:"DEFAULT_LOCALE" envDefault:"en"`
	StaticDir     string   `env:"STATIC_DIR" envDefault:"static"`

	// Rate Limit（req/min/client）
	RateLimitGeneral int `env:"RATE_LIMIT_GENERAL" envDefault:"120"`
	RateLimitLogin   int `env:"RATE_LIMIT_LOGIN" envDefault:"10"`

	// Server
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	BaseURL    string `env:"BASE_URL,notEmpty"`

	// Cookie
	CookieSecure bool
	CookieDomain string `env:"COOKIE_DOMAIN"`
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate は値の組み合わせを検証する。
func (c *Config) validate() error {
	var errs []error

	switch c.SessionBackend {
	case SessionBackendPostgres, SessionBackendRedis, SessionBackendMemory:
	default:
		errs = append(errs, fmt.Errorf("SESSION_BACKEND must be one of postgres, redis, memory: %q", c.SessionBackend))
	}

	if c.SessionMaxAge <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_MAX_AGE must be positive: %d", c.SessionMaxAge))
	}
	if c.OAuthTimeout <= 0 {
		errs = append(errs, fmt.Errorf("OAUTH_TIMEOUT must be positive: %s", c.OAuthTimeout))
	}
	if c.PersistenceTimeout <= 0 {
		errs = append(errs, fmt.Errorf("PERSISTENCE_TIMEOUT must be positive: %s", c.PersistenceTimeout))
	}
	if len(c.SessionSecret) < 32 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 32 bytes"))
	}

	return errors.Join(errs...)
}

// SessionTTL はセッションの有効期間を返す。
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionMaxAge) * time.Second
}
