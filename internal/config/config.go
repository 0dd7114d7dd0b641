// Package config loads server configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Defaults for optional settings.
const (
	DefaultAPIURL       = "https://developer.api.autodesk.com/construction/issues/v1"
	DefaultAuthURL      = "https://developer.api.autodesk.com/authentication/v2/authorize"
	DefaultTokenURL     = "https://developer.api.autodesk.com/authentication/v2/token"
	DefaultRedirectURI  = "http://127.0.0.1:8000/oauth/callback"
	DefaultCallbackPort = 8000

	DefaultCacheTTL       = time.Hour
	DefaultRequestTimeout = 30 * time.Second
	DefaultTokenMargin    = 60 * time.Second
)

// Config holds all externally supplied settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	CallbackPort int

	ProjectID string

	APIURL   string
	AuthURL  string
	TokenURL string

	CacheTTL       time.Duration
	RequestTimeout time.Duration
	TokenMargin    time.Duration

	TokenDBPath string
	LogLevel    string
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindings := [][2]string{
		{"acc.client.id", "ACC_CLIENT_ID"},
		{"acc.client.secret", "ACC_CLIENT_SECRET"},
		{"acc.redirect.uri", "ACC_REDIRECT_URI"},
		{"acc.callback.port", "ACC_CALLBACK_PORT"},
		{"acc.project.id", "ACC_PROJECT_ID"},
		{"acc.api.url", "ACC_API_URL"},
		{"acc.auth.url", "ACC_AUTH_URL"},
		{"acc.token.url", "ACC_TOKEN_URL"},
		{"acc.cache.ttl", "ACC_CACHE_TTL"},
		{"acc.request.timeout", "ACC_REQUEST_TIMEOUT"},
		{"acc.token.margin", "ACC_TOKEN_MARGIN"},
		{"acc.token.db.path", "ACC_TOKEN_DB_PATH"},
		{"log.level", "LOG_LEVEL"},
	}
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return nil, fmt.Errorf("binding %s: %w", b[1], err)
		}
	}

	v.SetDefault("acc.redirect.uri", DefaultRedirectURI)
	v.SetDefault("acc.callback.port", DefaultCallbackPort)
	v.SetDefault("acc.api.url", DefaultAPIURL)
	v.SetDefault("acc.auth.url", DefaultAuthURL)
	v.SetDefault("acc.token.url", DefaultTokenURL)
	v.SetDefault("acc.cache.ttl", DefaultCacheTTL)
	v.SetDefault("acc.request.timeout", DefaultRequestTimeout)
	v.SetDefault("acc.token.margin", DefaultTokenMargin)
	v.SetDefault("log.level", "info")

	cfg := &Config{
		ClientID:       v.GetString("acc.client.id"),
		ClientSecret:   v.GetString("acc.client.secret"),
		RedirectURI:    v.GetString("acc.redirect.uri"),
		CallbackPort:   v.GetInt("acc.callback.port"),
		ProjectID:      v.GetString("acc.project.id"),
		APIURL:         v.GetString("acc.api.url"),
		AuthURL:        v.GetString("acc.auth.url"),
		TokenURL:       v.GetString("acc.token.url"),
		CacheTTL:       v.GetDuration("acc.cache.ttl"),
		RequestTimeout: v.GetDuration("acc.request.timeout"),
		TokenMargin:    v.GetDuration("acc.token.margin"),
		TokenDBPath:    v.GetString("acc.token.db.path"),
		LogLevel:       v.GetString("log.level"),
	}

	if cfg.TokenDBPath == "" {
		path, err := defaultTokenDBPath()
		if err != nil {
			return nil, err
		}
		cfg.TokenDBPath = path
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate collects every missing required setting into one error so the
// operator sees the full list at once.
func validate(cfg *Config) error {
	var missing []string
	if cfg.ClientID == "" {
		missing = append(missing, "ACC_CLIENT_ID")
	}
	if cfg.ClientSecret == "" {
		missing = append(missing, "ACC_CLIENT_SECRET")
	}
	if cfg.ProjectID == "" {
		missing = append(missing, "ACC_PROJECT_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if cfg.CallbackPort < 1 || cfg.CallbackPort > 65535 {
		return fmt.Errorf("invalid ACC_CALLBACK_PORT: %d", cfg.CallbackPort)
	}
	if cfg.CacheTTL <= 0 {
		return fmt.Errorf("ACC_CACHE_TTL must be positive, got %s", cfg.CacheTTL)
	}
	return nil
}

func defaultTokenDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".acc-issues-mcp", "tokens.db"), nil
}
