package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ericfisherdev/reqbridge/internal/domain/model"
	"github.com/ericfisherdev/reqbridge/internal/domain/port/driven"
)

// defaultConnectionID is used when an event names neither an id nor a name.
const defaultConnectionID = "default"

// Ack is the acknowledgement returned to the connection event sender.
type Ack struct {
	OK bool `json:"ok"`
}

// CredentialManager owns the per-connection and active credential keys and
// the delegated session of each account.
type CredentialManager struct {
	secrets  driven.SecretStore
	active   driven.ActiveCredentialStore
	sessions driven.SessionStore
	tenant   string
}

// NewCredentialManager creates a CredentialManager for one tenant.
func NewCredentialManager(
	secrets driven.SecretStore,
	active driven.ActiveCredentialStore,
	sessions driven.SessionStore,
	tenant string,
) *CredentialManager {
	return &CredentialManager{
		secrets:  secrets,
		active:   active,
		sessions: sessions,
		tenant:   tenant,
	}
}

// OnConnectionChanged applies a connection lifecycle event. Store failures
// are logged and the event is still acknowledged: delivery is never retried,
// so failing the acknowledgement gains nothing.
func (m *CredentialManager) OnConnectionChanged(ctx context.Context, event model.ConnectionEvent) Ack {
	id := connectionIDOf(event)

	var err error
	switch event.Action {
	case model.ConnectionActionCreated, model.ConnectionActionUpdated:
		err = m.storeConnection(ctx, id, event.ConfigProperties)
	case model.ConnectionActionDeleted:
		err = m.deleteConnection(ctx, id)
	default:
		slog.Warn("ignoring connection event with unknown action", "action", event.Action, "connection_id", id)
		return Ack{OK: true}
	}

	if err != nil {
		slog.Error("connection event bookkeeping failed", "action", event.Action, "connection_id", id, "error", err)
	} else {
		slog.Info("connection event applied", "action", event.Action, "connection_id", id)
	}
	return Ack{OK: true}
}

// connectionIDOf derives a stable id: explicit id, then name, then default.
func connectionIDOf(event model.ConnectionEvent) string {
	if id := strings.TrimSpace(event.ConnectionID); id != "" {
		return id
	}
	if name := strings.TrimSpace(event.Name); name != "" {
		return name
	}
	return defaultConnectionID
}

// storeConnection writes each present field under the connection keys and
// the active pointer. Fields are independent; every write is attempted.
func (m *CredentialManager) storeConnection(ctx context.Context, id string, props model.ConnectionProperties) error {
	var errs []error
	update := driven.ActiveCredentialUpdate{ConnectionID: &id}

	if clientID, ok := present(props.ClientID); ok {
		if err := m.secrets.Set(ctx, connectionKey(id, fieldClientID), clientID); err != nil {
			errs = append(errs, err)
		}
		update.ClientID = &clientID
	}
	if secret, ok := present(props.ClientSecret); ok {
		if err := m.secrets.Set(ctx, connectionKey(id, fieldClientSecret), secret); err != nil {
			errs = append(errs, err)
		}
		update.ClientSecret = &secret
	}
	if err := m.secrets.Set(ctx, connectionKey(id, fieldConnectionID), id); err != nil {
		errs = append(errs, err)
	}

	if err := m.active.Store(ctx, m.tenant, update); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// deleteConnection removes the connection keys and clears the active pointer.
// Deleting absent keys is not an error.
func (m *CredentialManager) deleteConnection(ctx context.Context, id string) error {
	var errs []error
	for _, field := range []string{fieldClientID, fieldClientSecret, fieldConnectionID} {
		if err := m.secrets.Delete(ctx, connectionKey(id, field)); err != nil {
			errs = append(errs, err)
		}
	}
	if err := m.active.Clear(ctx, m.tenant); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func present(v *string) (string, bool) {
	if v == nil {
		return "", false
	}
	trimmed := strings.TrimSpace(*v)
	return trimmed, trimmed != ""
}

// ValidateConnection checks the configuration form locally. It never calls
// the token endpoint.
func (m *CredentialManager) ValidateConnection(props model.ConnectionProperties) error {
	if _, ok := present(props.ClientID); !ok {
		return &ValidationError{Message: "Client ID is required"}
	}
	if _, ok := present(props.ClientSecret); !ok {
		return &ValidationError{Message: "Client Secret is required"}
	}
	return nil
}

// GetActiveCredentials returns the active credentials with the secret masked.
func (m *CredentialManager) GetActiveCredentials(ctx context.Context) (model.MaskedCredentials, error) {
	creds, err := m.active.Load(ctx, m.tenant)
	if err != nil {
		return model.MaskedCredentials{}, fmt.Errorf("loading active credentials: %w", err)
	}
	return model.MaskedCredentials{
		ClientID:           creds.ClientID,
		ClientSecretMasked: Mask(creds.ClientSecret),
		ConnectionID:       creds.ConnectionID,
	}, nil
}

// StoreSession records a delegated session for an account.
func (m *CredentialManager) StoreSession(ctx context.Context, session model.Session) error {
	session.AccountID = strings.TrimSpace(session.AccountID)
	if session.AccountID == "" {
		return fmt.Errorf("%w: accountId", ErrMissingParameter)
	}
	if strings.TrimSpace(session.AccessToken) == "" {
		return fmt.Errorf("%w: accessToken", ErrMissingParameter)
	}
	if err := m.sessions.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("saving session for %s: %w", session.AccountID, err)
	}
	slog.Info("delegated session stored", "account_id", session.AccountID, "expires", session.Expiry)
	return nil
}

// RevokeSession forgets the delegated session of an account.
func (m *CredentialManager) RevokeSession(ctx context.Context, accountID string) error {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return fmt.Errorf("%w: accountId", ErrMissingParameter)
	}
	if err := m.sessions.DeleteSession(ctx, accountID); err != nil {
		return fmt.Errorf("deleting session for %s: %w", accountID, err)
	}
	return nil
}

// usableSession reports whether session can be used at now. A zero expiry
// never expires.
func usableSession(session *model.Session, now time.Time) bool {
	if session == nil || session.AccessToken == "" {
		return false
	}
	return session.Expiry.IsZero() || now.Before(session.Expiry)
}
