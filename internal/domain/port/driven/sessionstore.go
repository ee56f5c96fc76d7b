package driven

import (
	"context"

	"github.com/ericfisherdev/reqbridge/internal/domain/model"
)

// SessionStore persists delegated per-account sessions with the requirements source.
type SessionStore interface {
	// LoadSession returns the stored session, or nil when none exists.
	LoadSession(ctx context.Context, accountID string) (*model.Session, error)
	SaveSession(ctx context.Context, session model.Session) error
	DeleteSession(ctx context.Context, accountID string) error
}
