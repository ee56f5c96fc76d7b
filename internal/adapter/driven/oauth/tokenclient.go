// Package oauth implements the TokenExchanger port with an OAuth2
// client-credentials grant.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ericfisherdev/reqbridge/internal/domain/port/driven"
	"github.com/ericfisherdev/reqbridge/internal/metrics"
)

// missingTokenText is the text x/oauth2 (internal/token.go) puts in the
// error it returns for a 2xx response without access_token. The library
// exports no sentinel for it; TestAccessToken_MissingAccessToken pins the
// wording for the version in go.mod.
const missingTokenText = "server response missing access_token"

// Compile-time interface satisfaction check.
var _ driven.TokenExchanger = (*TokenClient)(nil)

// Fallback is the out-of-band client credential pair used when no active
// credentials are stored. Both fields must be set for it to apply.
type Fallback struct {
	ClientID     string
	ClientSecret string
}

// Options configures a TokenClient.
type Options struct {
	TokenURL   string
	Audience   string
	Tenant     string
	Fallback   Fallback
	HTTPClient *http.Client
}

// TokenClient performs a client-credentials grant on every call using the
// active credentials of one tenant. Tokens are never cached.
type TokenClient struct {
	active     driven.ActiveCredentialStore
	tokenURL   string
	audience   string
	tenant     string
	fallback   Fallback
	httpClient *http.Client
}

// NewTokenClient creates a TokenClient reading credentials from active.
func NewTokenClient(active driven.ActiveCredentialStore, opts Options) *TokenClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &TokenClient{
		active:     active,
		tokenURL:   opts.TokenURL,
		audience:   opts.Audience,
		tenant:     opts.Tenant,
		fallback:   opts.Fallback,
		httpClient: httpClient,
	}
}

// AccessToken exchanges the active client credentials for a bearer token.
// It returns driven.ErrCredentialsNotConfigured without a network call when no
// credential pair is available, *driven.TokenError on a non-success status,
// and driven.ErrNoAccessToken when the response carries no token.
func (c *TokenClient) AccessToken(ctx context.Context) (string, error) {
	clientID, clientSecret, err := c.resolveCredentials(ctx)
	if err != nil {
		metrics.TokenExchanges.WithLabelValues("not_configured").Inc()
		return "", err
	}

	cfg := clientcredentials.Config{
		ClientID:       clientID,
		ClientSecret:   clientSecret,
		TokenURL:       c.tokenURL,
		EndpointParams: url.Values{"audience": {c.audience}},
		AuthStyle:      oauth2.AuthStyleInParams,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := cfg.Token(ctx)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			status := retrieveErr.Response.StatusCode
			slog.Warn("token exchange rejected", "status", status, "body", truncate(string(retrieveErr.Body), 200))
			metrics.TokenExchanges.WithLabelValues("http_error").Inc()
			return "", &driven.TokenError{StatusCode: status}
		}
		if strings.Contains(err.Error(), missingTokenText) {
			slog.Warn("token exchange returned no access_token")
			metrics.TokenExchanges.WithLabelValues("no_token").Inc()
			return "", driven.ErrNoAccessToken
		}
		metrics.TokenExchanges.WithLabelValues("error").Inc()
		return "", fmt.Errorf("token exchange: %w", err)
	}

	if tok.AccessToken == "" {
		metrics.TokenExchanges.WithLabelValues("no_token").Inc()
		return "", driven.ErrNoAccessToken
	}

	metrics.TokenExchanges.WithLabelValues("ok").Inc()
	return tok.AccessToken, nil
}

// resolveCredentials prefers the stored active pair and falls back to the
// configured out-of-band pair.
func (c *TokenClient) resolveCredentials(ctx context.Context) (string, string, error) {
	creds, err := c.active.Load(ctx, c.tenant)
	if err != nil {
		slog.Warn("load active credentials failed", "tenant", c.tenant, "error", err)
	} else if creds.HasClientCredentials() {
		return creds.ClientID, creds.ClientSecret, nil
	}

	if c.fallback.ClientID != "" && c.fallback.ClientSecret != "" {
		slog.Info("using fallback client credentials", "tenant", c.tenant)
		return c.fallback.ClientID, c.fallback.ClientSecret, nil
	}

	return "", "", driven.ErrCredentialsNotConfigured
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
