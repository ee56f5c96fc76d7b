package driven

import (
	"context"

	"github.com/ericfisherdev/reqbridge/internal/domain/model"
)

// GraphStore defines the driven port for the third-party object graph.
type GraphStore interface {
	// UpsertObjects writes objects in a single bulk call tagged with properties.
	// A nil error means the call itself succeeded; per-object rejections are
	// reported in the BulkResult.
	UpsertObjects(ctx context.Context, objects []model.GraphObject, properties map[string]string) (model.BulkResult, error)

	// DeleteObjectsByProperties deletes every object of objectType carrying properties.
	DeleteObjectsByProperties(ctx context.Context, objectType model.ObjectType, properties map[string]string) (model.DeleteOutcome, error)

	// UpsertUsers ingests principals, idempotent by external id.
	UpsertUsers(ctx context.Context, users []model.Principal, properties map[string]string) (model.BulkResult, error)

	// MapUsers links ingested principals to platform accounts.
	MapUsers(ctx context.Context, mappings []model.UserMapping) (model.BulkResult, error)

	// DeleteUser removes a principal by external id. Deleting a missing user is not an error.
	DeleteUser(ctx context.Context, externalID string) error

	// GetObject returns the stored object payload, or nil when absent.
	GetObject(ctx context.Context, objectType model.ObjectType, externalID string) (model.GraphPayload, error)

	// GetUser returns the stored user payload, or nil when absent.
	GetUser(ctx context.Context, externalID string) (model.GraphPayload, error)
}
