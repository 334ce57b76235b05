package config

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAddr           = ":8080"
	defaultCRMTimeout     = "10s"
	defaultSessionTTL     = "12h"
	defaultCookieSecure   = "false"
	defaultCookieSameSite = "Lax"
	defaultCookiePath     = "/"
	defaultSessionSecret  = "change-me-session-secret"
	defaultPublicBaseURL  = "http://localhost:8080"
)

// PortalConfig is the runtime configuration of the customer portal.
type PortalConfig struct {
	AppEnv         string
	Addr           string
	CRMBaseURL     string
	CRMAPIKey      string
	CRMTimeout     time.Duration
	DatabaseURL    string // empty keeps portal sessions in memory
	SessionSecret  string
	SessionTTL     time.Duration
	CookieSecure   bool
	CookieSameSite string
	CookiePath     string
	PublicBaseURL  string
	AllowedOrigins []string
}

// Load reads the configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*PortalConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables only.
func FromEnv() (*PortalConfig, error) {
	cfg := &PortalConfig{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.Addr = strings.TrimSpace(getEnv("ADDR", defaultAddr))
	cfg.CRMBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("CRM_BASE_URL")), "/")
	cfg.CRMAPIKey = strings.TrimSpace(os.Getenv("CRM_API_KEY"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.SessionSecret = strings.TrimSpace(getEnv("SESSION_SECRET", defaultSessionSecret))
	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(getEnv("PUBLIC_BASE_URL", defaultPublicBaseURL)), "/")

	var err error
	cfg.CRMTimeout, err = parseDurationEnv("CRM_TIMEOUT", defaultCRMTimeout)
	if err != nil {
		return nil, err
	}

	cfg.SessionTTL, err = parseDurationEnv("SESSION_TTL", defaultSessionTTL)
	if err != nil {
		return nil, err
	}

	cfg.CookieSecure = parseBoolEnv("COOKIE_SECURE", defaultCookieSecure)
	cfg.CookieSameSite = strings.TrimSpace(getEnv("COOKIE_SAMESITE", defaultCookieSameSite))
	cfg.CookiePath = strings.TrimSpace(getEnv("COOKIE_PATH", defaultCookiePath))
	cfg.AllowedOrigins = parseListEnv("CORS_ALLOWED_ORIGINS")

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	log.Printf("portal config: env=%s crm=%s sessions=%s cookie_secure=%t same_site=%s",
		cfg.AppEnv, cfg.CRMBaseURL, cfg.sessionBackend(), cfg.CookieSecure, cfg.CookieSameSite)

	return cfg, nil
}

// IsProdLike reports whether the portal runs in a production-like environment.
func (cfg *PortalConfig) IsProdLike() bool {
	return isProdLike(cfg.AppEnv)
}

// SameSite maps COOKIE_SAMESITE to the cookie attribute.
func (cfg *PortalConfig) SameSite() http.SameSite {
	switch strings.ToLower(cfg.CookieSameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// Origins are the browser origins allowed to call the portal API. The public
// base URL is always included.
func (cfg *PortalConfig) Origins() []string {
	out := append([]string(nil), cfg.AllowedOrigins...)
	if cfg.PublicBaseURL == "" {
		return out
	}
	for _, o := range out {
		if o == cfg.PublicBaseURL {
			return out
		}
	}
	return append(out, cfg.PublicBaseURL)
}

func (cfg *PortalConfig) sessionBackend() string {
	if cfg.DatabaseURL == "" {
		return "memory"
	}
	if strings.HasPrefix(cfg.DatabaseURL, "postgres://") || strings.HasPrefix(cfg.DatabaseURL, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}

func validateConfig(cfg *PortalConfig) error {
	if cfg.CRMBaseURL == "" {
		return fmt.Errorf("CRM_BASE_URL must be set")
	}
	if u, err := url.Parse(cfg.CRMBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("CRM_BASE_URL must be an absolute URL, got %q", cfg.CRMBaseURL)
	}
	if cfg.CRMTimeout <= 0 {
		return fmt.Errorf("CRM_TIMEOUT must be > 0")
	}
	if cfg.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if cfg.CookiePath == "" {
		return fmt.Errorf("COOKIE_PATH must not be empty")
	}
	sameSite := strings.ToLower(cfg.CookieSameSite)
	if sameSite != "lax" && sameSite != "none" && sameSite != "strict" {
		return fmt.Errorf("COOKIE_SAMESITE must be one of: Lax, None, Strict")
	}
	if sameSite == "none" && !cfg.CookieSecure {
		return fmt.Errorf("COOKIE_SECURE must be true when COOKIE_SAMESITE=None")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.SessionSecret, defaultSessionSecret) {
			return fmt.Errorf("in prod/release SESSION_SECRET must be set and not default")
		}
		if !cfg.CookieSecure {
			return fmt.Errorf("in prod/release COOKIE_SECURE must be true")
		}
		if cfg.DatabaseURL == "" {
			log.Printf("portal config warning: DATABASE_URL empty in %s, sessions are lost on restart", cfg.AppEnv)
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

// parseListEnv splits a comma separated variable, e.g.
// CORS_ALLOWED_ORIGINS=https://angebot.example.de,https://www.example.de
func parseListEnv(name string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(name), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
