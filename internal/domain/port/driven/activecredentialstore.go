package driven

import (
	"context"

	"github.com/ericfisherdev/reqbridge/internal/domain/model"
)

// ActiveCredentialStore holds the active credential pointer of each tenant.
// Only one tenant is configured today. Writes for the same tenant are
// last-writer-wins: concurrent connection events race and no ordering is
// guaranteed.
type ActiveCredentialStore interface {
	// Load returns the active credentials of tenant. Missing fields are empty.
	Load(ctx context.Context, tenant string) (model.ActiveCredentials, error)

	// Store writes the non-nil fields of the update, leaving the others as they are.
	Store(ctx context.Context, tenant string, update ActiveCredentialUpdate) error

	// Clear removes every active field of tenant.
	Clear(ctx context.Context, tenant string) error
}

// ActiveCredentialUpdate is a partial write of the active pointer.
type ActiveCredentialUpdate struct {
	ClientID     *string
	ClientSecret *string
	ConnectionID *string
}
