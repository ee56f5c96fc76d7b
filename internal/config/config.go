// Package config loads application configuration from environment variables.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	defaultTokenURL         = "https://dev-yfve51b1ewip55b8.us.auth0.com/oauth/token"
	defaultAudience         = "https://vitareq.api"
	defaultVitareqBaseURL   = "https://vitareq.vercel.app"
	defaultFallbackClientID = "FGMiI81z8Sobv06TMZ4QsrSCUDTLO6gz"
	defaultGraphBaseURL     = "https://api.atlassian.com"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	DBPath     string

	// SecretKey is the decoded AES-256 key. Nil means the secret store
	// refuses every operation.
	SecretKey []byte

	TokenURL             string
	Audience             string
	VitareqBaseURL       string
	FallbackClientID     string
	FallbackClientSecret string

	GraphBaseURL string
	GraphToken   string
	ConnectionID string

	JiraBaseURL  string
	JiraEmail    string
	JiraAPIToken string

	Principal PrincipalConfig
	Tenant    string

	WebhookRPS float64

	LogFile   string
	LogFormat string
}

// PrincipalConfig identifies the user ingested by principal-scoped imports.
type PrincipalConfig struct {
	ExternalID  string
	Email       string
	DisplayName string
	UserName    string
}

// HasJira returns true when every issue tracker setting is present. Used by
// the composition root to decide whether to build a tracker at all.
func (c *Config) HasJira() bool {
	return c.JiraBaseURL != "" && c.JiraEmail != "" && c.JiraAPIToken != ""
}

// Load reads configuration from environment variables and returns a validated Config.
// Every variable is optional. REQBRIDGE_SECRET_KEY must decode to 32 bytes when set
// and REQBRIDGE_WEBHOOK_RPS must be a positive number.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:           envOr("REQBRIDGE_LISTEN_ADDR", "127.0.0.1:8080"),
		DBPath:               envOr("REQBRIDGE_DB_PATH", "reqbridge.db"),
		TokenURL:             envOr("REQBRIDGE_TOKEN_URL", defaultTokenURL),
		Audience:             envOr("REQBRIDGE_AUDIENCE", defaultAudience),
		VitareqBaseURL:       strings.TrimRight(envOr("REQBRIDGE_VITAREQ_BASE_URL", defaultVitareqBaseURL), "/"),
		FallbackClientID:     envOr("REQBRIDGE_FALLBACK_CLIENT_ID", defaultFallbackClientID),
		FallbackClientSecret: envOr("REQBRIDGE_FALLBACK_CLIENT_SECRET", os.Getenv("CLIENT_SECRET")),
		GraphBaseURL:         strings.TrimRight(envOr("REQBRIDGE_GRAPH_BASE_URL", defaultGraphBaseURL), "/"),
		GraphToken:           os.Getenv("REQBRIDGE_GRAPH_TOKEN"),
		ConnectionID:         envOr("REQBRIDGE_CONNECTION_ID", "default"),
		JiraBaseURL:          os.Getenv("REQBRIDGE_JIRA_BASE_URL"),
		JiraEmail:            os.Getenv("REQBRIDGE_JIRA_EMAIL"),
		JiraAPIToken:         os.Getenv("REQBRIDGE_JIRA_API_TOKEN"),
		Principal: PrincipalConfig{
			ExternalID:  envOr("REQBRIDGE_PRINCIPAL_ID", "demo-user"),
			Email:       envOr("REQBRIDGE_PRINCIPAL_EMAIL", "demo@example.com"),
			DisplayName: envOr("REQBRIDGE_PRINCIPAL_NAME", "Demo User"),
			UserName:    envOr("REQBRIDGE_PRINCIPAL_USERNAME", "demo"),
		},
		Tenant:     envOr("REQBRIDGE_TENANT", "default"),
		WebhookRPS: 5,
		LogFile:    os.Getenv("REQBRIDGE_LOG_FILE"),
		LogFormat:  envOr("REQBRIDGE_LOG_FORMAT", "text"),
	}

	if v, ok := os.LookupEnv("REQBRIDGE_SECRET_KEY"); ok && v != "" {
		key, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("REQBRIDGE_SECRET_KEY is not valid base64: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("REQBRIDGE_SECRET_KEY must decode to 32 bytes, got %d", len(key))
		}
		cfg.SecretKey = key
	}

	if v, ok := os.LookupEnv("REQBRIDGE_WEBHOOK_RPS"); ok {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("REQBRIDGE_WEBHOOK_RPS has invalid number %q: %w", v, err)
		}
		if rps <= 0 {
			return nil, fmt.Errorf("REQBRIDGE_WEBHOOK_RPS must be positive, got %v", rps)
		}
		cfg.WebhookRPS = rps
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("REQBRIDGE_LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	return cfg, nil
}

// envOr returns the value of key, or def when it is unset or empty.
func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
