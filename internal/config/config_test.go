package config

import (
	"encoding/base64"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every env var that Load() reads.
var allConfigKeys = []string{
	"REQBRIDGE_LISTEN_ADDR",
	"REQBRIDGE_DB_PATH",
	"REQBRIDGE_SECRET_KEY",
	"REQBRIDGE_TOKEN_URL",
	"REQBRIDGE_AUDIENCE",
	"REQBRIDGE_VITAREQ_BASE_URL",
	"REQBRIDGE_FALLBACK_CLIENT_ID",
	"REQBRIDGE_FALLBACK_CLIENT_SECRET",
	"CLIENT_SECRET",
	"REQBRIDGE_GRAPH_BASE_URL",
	"REQBRIDGE_GRAPH_TOKEN",
	"REQBRIDGE_CONNECTION_ID",
	"REQBRIDGE_JIRA_BASE_URL",
	"REQBRIDGE_JIRA_EMAIL",
	"REQBRIDGE_JIRA_API_TOKEN",
	"REQBRIDGE_PRINCIPAL_ID",
	"REQBRIDGE_PRINCIPAL_EMAIL",
	"REQBRIDGE_PRINCIPAL_NAME",
	"REQBRIDGE_PRINCIPAL_USERNAME",
	"REQBRIDGE_TENANT",
	"REQBRIDGE_WEBHOOK_RPS",
	"REQBRIDGE_LOG_FILE",
	"REQBRIDGE_LOG_FORMAT",
}

// isolateConfigEnv saves and unsets all config env vars so tests don't
// inherit values from the host environment (e.g. a running dev server).
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func validKey() string {
	return base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "reqbridge.db", cfg.DBPath)
	assert.Nil(t, cfg.SecretKey)
	assert.Equal(t, defaultTokenURL, cfg.TokenURL)
	assert.Equal(t, "https://vitareq.api", cfg.Audience)
	assert.Equal(t, "https://vitareq.vercel.app", cfg.VitareqBaseURL)
	assert.Equal(t, defaultFallbackClientID, cfg.FallbackClientID)
	assert.Empty(t, cfg.FallbackClientSecret)
	assert.Equal(t, "https://api.atlassian.com", cfg.GraphBaseURL)
	assert.Equal(t, "default", cfg.ConnectionID)
	assert.Equal(t, "default", cfg.Tenant)
	assert.Equal(t, "demo-user", cfg.Principal.ExternalID)
	assert.InDelta(t, 5.0, cfg.WebhookRPS, 0.0001)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.False(t, cfg.HasJira())
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("REQBRIDGE_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("REQBRIDGE_DB_PATH", "/tmp/test.db")
	t.Setenv("REQBRIDGE_SECRET_KEY", validKey())
	t.Setenv("REQBRIDGE_VITAREQ_BASE_URL", "https://req.example/")
	t.Setenv("REQBRIDGE_GRAPH_TOKEN", "graph-token")
	t.Setenv("REQBRIDGE_JIRA_BASE_URL", "https://acme.atlassian.net")
	t.Setenv("REQBRIDGE_JIRA_EMAIL", "bot@acme.test")
	t.Setenv("REQBRIDGE_JIRA_API_TOKEN", "jira-token")
	t.Setenv("REQBRIDGE_PRINCIPAL_ID", "u-42")
	t.Setenv("REQBRIDGE_WEBHOOK_RPS", "2.5")
	t.Setenv("REQBRIDGE_LOG_FORMAT", "json")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Len(t, cfg.SecretKey, 32)
	assert.Equal(t, "https://req.example", cfg.VitareqBaseURL)
	assert.Equal(t, "graph-token", cfg.GraphToken)
	assert.True(t, cfg.HasJira())
	assert.Equal(t, "u-42", cfg.Principal.ExternalID)
	assert.InDelta(t, 2.5, cfg.WebhookRPS, 0.0001)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_FallbackSecret(t *testing.T) {
	t.Run("legacy variable", func(t *testing.T) {
		isolateConfigEnv(t)
		t.Setenv("CLIENT_SECRET", "legacy")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, "legacy", cfg.FallbackClientSecret)
	})

	t.Run("prefixed variable wins", func(t *testing.T) {
		isolateConfigEnv(t)
		t.Setenv("CLIENT_SECRET", "legacy")
		t.Setenv("REQBRIDGE_FALLBACK_CLIENT_SECRET", "prefixed")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, "prefixed", cfg.FallbackClientSecret)
	})
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{name: "secret key not base64", key: "REQBRIDGE_SECRET_KEY", value: "%%%", wantErr: "not valid base64"},
		{name: "secret key wrong length", key: "REQBRIDGE_SECRET_KEY", value: base64.StdEncoding.EncodeToString([]byte("short")), wantErr: "32 bytes"},
		{name: "webhook rps not a number", key: "REQBRIDGE_WEBHOOK_RPS", value: "fast", wantErr: "invalid number"},
		{name: "webhook rps zero", key: "REQBRIDGE_WEBHOOK_RPS", value: "0", wantErr: "must be positive"},
		{name: "unknown log format", key: "REQBRIDGE_LOG_FORMAT", value: "xml", wantErr: "text or json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()

			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
