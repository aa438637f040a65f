// ABOUTME: Configuration for the catalog browser and its development server
// ABOUTME: Loads settings from .env and environment variables with defaults

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	jmespath "github.com/jmespath-community/go-jmespath"
	"github.com/joho/godotenv"
	"github.com/markalston/catalog-browser/internal/client"
)

// AppName names the XDG config subdirectory.
const AppName = "catalog-browser"

// Timeout bounds applied by Sanitize.
const (
	MinHTTPTimeout = time.Second
	MaxHTTPTimeout = 5 * time.Minute
)

// Config is the application configuration.
type Config struct {
	API       APIConfig
	Log       LogConfig
	DevServer DevServerConfig

	// ConfigDir holds recent logins and the TUI debug log. Defaults to the XDG config dir.
	ConfigDir string `env:"CATALOG_CONFIG_DIR"`
}

// APIConfig configures the backend client.
type APIConfig struct {
	URL        string        `env:"CATALOG_API_URL" envDefault:"http://localhost:8001"`
	LanguageID string        `env:"CATALOG_LANGUAGE_ID" envDefault:"1"`
	Timeout    time.Duration `env:"CATALOG_HTTP_TIMEOUT" envDefault:"30s"`

	// JMESPath expressions applied to response bodies.
	PendingIDPath  string `env:"CATALOG_PENDING_ID_PATH"`
	CredentialPath string `env:"CATALOG_CREDENTIAL_PATH"`
	ProductsPath   string `env:"CATALOG_PRODUCTS_PATH"`
}

// LogConfig selects the slog level and handler.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// DevServerConfig configures the local stand-in backend.
type DevServerConfig struct {
	Addr       string        `env:"DEVSERVER_ADDR" envDefault:":8001"`
	OTP        string        `env:"DEVSERVER_OTP" envDefault:"123456"`
	SigningKey string        `env:"DEVSERVER_SIGNING_KEY"`
	PendingTTL time.Duration `env:"DEVSERVER_PENDING_TTL" envDefault:"5m"`
	TokenTTL   time.Duration `env:"DEVSERVER_TOKEN_TTL" envDefault:"1h"`

	// RateLimit is login attempts per minute per email, and OTP attempts per minute
	// per pending login; 0 disables.
	RateLimit int `env:"DEVSERVER_RATE_LIMIT" envDefault:"10"`
}

// Load reads .env files and then the environment. With no files given, ./.env is
// tried and may be missing. Files named explicitly must exist.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil {
		var pathErr *os.PathError
		if len(files) > 0 || !errors.As(err, &pathErr) {
			return Config{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// Sanitize applies guardrails to values loaded from env.
func (c *Config) Sanitize() {
	c.API.Sanitize()
	c.Log.Sanitize()
	c.DevServer.Sanitize()
	if strings.TrimSpace(c.ConfigDir) == "" {
		c.ConfigDir = DefaultConfigDir()
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	return errors.Join(c.API.Validate(), c.Log.Validate())
}

// Sanitize fills empty values with defaults and clamps the timeout.
func (a *APIConfig) Sanitize() {
	a.URL = strings.TrimRight(strings.TrimSpace(a.URL), "/")
	if a.URL == "" {
		a.URL = client.DefaultBaseURL
	}
	if strings.TrimSpace(a.LanguageID) == "" {
		a.LanguageID = client.DefaultLanguageID
	}
	switch {
	case a.Timeout <= 0:
		a.Timeout = client.DefaultTimeout
	case a.Timeout < MinHTTPTimeout:
		a.Timeout = MinHTTPTimeout
	case a.Timeout > MaxHTTPTimeout:
		a.Timeout = MaxHTTPTimeout
	}
	if strings.TrimSpace(a.PendingIDPath) == "" {
		a.PendingIDPath = client.DefaultPendingIDPath
	}
	if strings.TrimSpace(a.CredentialPath) == "" {
		a.CredentialPath = client.DefaultCredentialPath
	}
	if strings.TrimSpace(a.ProductsPath) == "" {
		a.ProductsPath = client.DefaultProductsPath
	}
}

// Validate checks the URL and compiles the JMESPath expressions.
func (a *APIConfig) Validate() error {
	var errs []error

	u, err := url.Parse(a.URL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("CATALOG_API_URL: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("CATALOG_API_URL: scheme must be http or https, got %q", u.Scheme))
	case u.Host == "":
		errs = append(errs, errors.New("CATALOG_API_URL: host is required"))
	}

	for name, expr := range map[string]string{
		"CATALOG_PENDING_ID_PATH": a.PendingIDPath,
		"CATALOG_CREDENTIAL_PATH": a.CredentialPath,
		"CATALOG_PRODUCTS_PATH":   a.ProductsPath,
	} {
		if _, err := jmespath.Compile(expr); err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid expression %q: %w", name, expr, err))
		}
	}

	return errors.Join(errs...)
}

// ClientOptions returns the client options matching this configuration.
func (a APIConfig) ClientOptions() []client.Option {
	return []client.Option{
		client.WithTimeout(a.Timeout),
		client.WithLanguageID(a.LanguageID),
		client.WithPaths(a.PendingIDPath, a.CredentialPath, a.ProductsPath),
	}
}

// Sanitize normalizes level and format names.
func (l *LogConfig) Sanitize() {
	l.Level = strings.ToLower(strings.TrimSpace(l.Level))
	if l.Level == "" {
		l.Level = "info"
	}
	l.Format = strings.ToLower(strings.TrimSpace(l.Format))
	if l.Format == "" {
		l.Format = "text"
	}
}

// Validate rejects unknown levels and formats.
func (l *LogConfig) Validate() error {
	var errs []error
	switch l.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL: unknown level %q", l.Level))
	}
	if l.Format != "text" && l.Format != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT: must be text or json, got %q", l.Format))
	}
	return errors.Join(errs...)
}

// Sanitize fills empty values with defaults.
func (d *DevServerConfig) Sanitize() {
	if strings.TrimSpace(d.Addr) == "" {
		d.Addr = ":8001"
	}
	if strings.TrimSpace(d.OTP) == "" {
		d.OTP = "123456"
	}
	if d.PendingTTL <= 0 {
		d.PendingTTL = 5 * time.Minute
	}
	if d.TokenTTL <= 0 {
		d.TokenTTL = time.Hour
	}
	if d.RateLimit < 0 {
		d.RateLimit = 0
	}
}

// DefaultConfigDir returns $XDG_CONFIG_HOME/catalog-browser, or ~/.config/catalog-browser
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", AppName)
}
