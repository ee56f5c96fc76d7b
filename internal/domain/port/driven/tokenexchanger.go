package driven

import (
	"context"
	"errors"
	"fmt"
)

// ErrCredentialsNotConfigured is returned when no client credential pair is
// available, before any network call is made.
var ErrCredentialsNotConfigured = errors.New("client credentials not configured")

// ErrNoAccessToken is returned when the token endpoint answered successfully
// but the body carried no access_token.
var ErrNoAccessToken = errors.New("token response missing access_token")

// TokenError reports a non-success status from the token endpoint.
type TokenError struct {
	StatusCode int
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("token endpoint returned HTTP %d", e.StatusCode)
}

// TokenExchanger turns stored client credentials into a bearer token.
// Every call performs a fresh grant.
type TokenExchanger interface {
	AccessToken(ctx context.Context) (string, error)
}
