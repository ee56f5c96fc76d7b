package driven

import (
	"context"

	"github.com/ericfisherdev/reqbridge/internal/domain/model"
)

// RequirementSource defines the driven port for the external requirements API.
// Every call authenticates with the given bearer token.
type RequirementSource interface {
	// ListRequirements returns all records matching query as a flat list.
	ListRequirements(ctx context.Context, token string, query model.RequirementQuery) ([]model.Requirement, error)

	// FindRequirement returns the first record matching query, or nil when the
	// source has none (including a 404 answer).
	FindRequirement(ctx context.Context, token string, query model.RequirementQuery) (*model.Requirement, error)

	// GetRequirement fetches a single record by id. Returns nil on 404.
	GetRequirement(ctx context.Context, token, id string) (*model.Requirement, error)

	CreateRequirement(ctx context.Context, token string, input model.RequirementInput) (*model.Requirement, error)
	UpdateRequirement(ctx context.Context, token, id string, input model.RequirementInput) (*model.Requirement, error)
}
