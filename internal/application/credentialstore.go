package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/reqbridge/internal/domain/model"
	"github.com/ericfisherdev/reqbridge/internal/domain/port/driven"
)

// Secret key layout. Every key starts with keyPrefix so the store can be
// shared with other tools without collisions.
const (
	keyPrefix = "reqbridge"

	fieldClientID     = "clientId"
	fieldClientSecret = "clientSecret"
	fieldConnectionID = "connectionId"

	fieldAccessToken  = "accessToken"
	fieldRefreshToken = "refreshToken"
	fieldExpiry       = "expiry"
)

func connectionKey(connectionID, field string) string {
	return fmt.Sprintf("%s:connection:%s:%s", keyPrefix, connectionID, field)
}

func activeKey(tenant, field string) string {
	return fmt.Sprintf("%s:active:%s:%s", keyPrefix, tenant, field)
}

func sessionKey(accountID, field string) string {
	return fmt.Sprintf("%s:session:%s:%s", keyPrefix, accountID, field)
}

// Compile-time interface satisfaction checks.
var (
	_ driven.ActiveCredentialStore = (*SecretActiveStore)(nil)
	_ driven.SessionStore          = (*SecretSessionStore)(nil)
)

// SecretActiveStore keeps the active credential pointer as three independent
// secrets per tenant.
type SecretActiveStore struct {
	secrets driven.SecretStore
}

// NewSecretActiveStore creates a SecretActiveStore over secrets.
func NewSecretActiveStore(secrets driven.SecretStore) *SecretActiveStore {
	return &SecretActiveStore{secrets: secrets}
}

// Load reads the active fields of tenant. Absent fields are left empty.
func (s *SecretActiveStore) Load(ctx context.Context, tenant string) (model.ActiveCredentials, error) {
	var creds model.ActiveCredentials
	fields := []struct {
		name string
		dst  *string
	}{
		{fieldClientID, &creds.ClientID},
		{fieldClientSecret, &creds.ClientSecret},
		{fieldConnectionID, &creds.ConnectionID},
	}

	for _, f := range fields {
		value, _, err := s.secrets.Get(ctx, activeKey(tenant, f.name))
		if err != nil {
			return model.ActiveCredentials{}, fmt.Errorf("loading active %s: %w", f.name, err)
		}
		*f.dst = value
	}
	return creds, nil
}

// Store writes each non-nil field of update.
func (s *SecretActiveStore) Store(ctx context.Context, tenant string, update driven.ActiveCredentialUpdate) error {
	fields := []struct {
		name  string
		value *string
	}{
		{fieldClientID, update.ClientID},
		{fieldClientSecret, update.ClientSecret},
		{fieldConnectionID, update.ConnectionID},
	}

	for _, f := range fields {
		if f.value == nil {
			continue
		}
		if err := s.secrets.Set(ctx, activeKey(tenant, f.name), *f.value); err != nil {
			return fmt.Errorf("storing active %s: %w", f.name, err)
		}
	}
	return nil
}

// Clear deletes every active field of tenant. All deletes are attempted even
// when one fails.
func (s *SecretActiveStore) Clear(ctx context.Context, tenant string) error {
	var errs []error
	for _, name := range []string{fieldClientID, fieldClientSecret, fieldConnectionID} {
		if err := s.secrets.Delete(ctx, activeKey(tenant, name)); err != nil {
			errs = append(errs, fmt.Errorf("clearing active %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// SecretSessionStore keeps delegated sessions in the secret store, one secret
// per session field.
type SecretSessionStore struct {
	secrets driven.SecretStore
}

// NewSecretSessionStore creates a SecretSessionStore over secrets.
func NewSecretSessionStore(secrets driven.SecretStore) *SecretSessionStore {
	return &SecretSessionStore{secrets: secrets}
}

// LoadSession returns nil when no access token is stored for accountID.
func (s *SecretSessionStore) LoadSession(ctx context.Context, accountID string) (*model.Session, error) {
	token, found, err := s.secrets.Get(ctx, sessionKey(accountID, fieldAccessToken))
	if err != nil {
		return nil, fmt.Errorf("loading session token: %w", err)
	}
	if !found || token == "" {
		return nil, nil
	}

	refresh, _, err := s.secrets.Get(ctx, sessionKey(accountID, fieldRefreshToken))
	if err != nil {
		return nil, fmt.Errorf("loading session refresh token: %w", err)
	}

	session := &model.Session{AccountID: accountID, AccessToken: token, RefreshToken: refresh}

	expiry, found, err := s.secrets.Get(ctx, sessionKey(accountID, fieldExpiry))
	if err != nil {
		return nil, fmt.Errorf("loading session expiry: %w", err)
	}
	if found && expiry != "" {
		t, err := time.Parse(time.RFC3339, expiry)
		if err != nil {
			return nil, fmt.Errorf("parsing session expiry %q: %w", expiry, err)
		}
		session.Expiry = t
	}
	return session, nil
}

// SaveSession replaces the stored session of session.AccountID.
func (s *SecretSessionStore) SaveSession(ctx context.Context, session model.Session) error {
	if err := s.secrets.Set(ctx, sessionKey(session.AccountID, fieldAccessToken), session.AccessToken); err != nil {
		return fmt.Errorf("storing session token: %w", err)
	}

	if session.RefreshToken != "" {
		if err := s.secrets.Set(ctx, sessionKey(session.AccountID, fieldRefreshToken), session.RefreshToken); err != nil {
			return fmt.Errorf("storing session refresh token: %w", err)
		}
	} else if err := s.secrets.Delete(ctx, sessionKey(session.AccountID, fieldRefreshToken)); err != nil {
		return fmt.Errorf("clearing session refresh token: %w", err)
	}

	if !session.Expiry.IsZero() {
		if err := s.secrets.Set(ctx, sessionKey(session.AccountID, fieldExpiry), session.Expiry.UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("storing session expiry: %w", err)
		}
	} else if err := s.secrets.Delete(ctx, sessionKey(session.AccountID, fieldExpiry)); err != nil {
		return fmt.Errorf("clearing session expiry: %w", err)
	}
	return nil
}

// DeleteSession removes every field of the session of accountID.
func (s *SecretSessionStore) DeleteSession(ctx context.Context, accountID string) error {
	var errs []error
	for _, name := range []string{fieldAccessToken, fieldRefreshToken, fieldExpiry} {
		if err := s.secrets.Delete(ctx, sessionKey(accountID, name)); err != nil {
			errs = append(errs, fmt.Errorf("deleting session %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
