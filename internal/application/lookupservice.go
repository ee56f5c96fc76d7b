package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/reqbridge/internal/domain/model"
	"github.com/ericfisherdev/reqbridge/internal/domain/port/driven"
)

// VerifyResult pairs an object lookup with a user lookup. A nil payload means
// the store has no such entity.
type VerifyResult struct {
	Object model.GraphPayload `json:"object"`
	User   model.GraphPayload `json:"user"`
}

// LookupService resolves single graph entities by external id and issue
// browse URLs for enrichment.
type LookupService struct {
	graph   driven.GraphStore
	tracker driven.IssueTracker
}

// NewLookupService creates a LookupService. tracker may be nil when no issue
// tracker is configured.
func NewLookupService(graph driven.GraphStore, tracker driven.IssueTracker) *LookupService {
	return &LookupService{graph: graph, tracker: tracker}
}

// GetObjectByExternalID returns the stored object verbatim, or nil when the
// store has none.
func (s *LookupService) GetObjectByExternalID(ctx context.Context, objectType, externalID string) (model.GraphPayload, error) {
	objectType = strings.TrimSpace(objectType)
	externalID = strings.TrimSpace(externalID)
	if objectType == "" {
		return nil, fmt.Errorf("%w: objectType", ErrMissingParameter)
	}
	if externalID == "" {
		return nil, fmt.Errorf("%w: externalId", ErrMissingParameter)
	}

	payload, err := s.graph.GetObject(ctx, model.ObjectType(objectType), externalID)
	if err != nil {
		return nil, fmt.Errorf("getting object %s/%s: %w", objectType, externalID, err)
	}
	return payload, nil
}

// GetUserByExternalID returns the stored user verbatim, or nil when the store
// has none.
func (s *LookupService) GetUserByExternalID(ctx context.Context, externalID string) (model.GraphPayload, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, fmt.Errorf("%w: externalId", ErrMissingParameter)
	}

	payload, err := s.graph.GetUser(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", externalID, err)
	}
	return payload, nil
}

// Verify looks up an object and a user concurrently. The lookups touch
// disjoint keys.
func (s *LookupService) Verify(ctx context.Context, objectType, objectID, userID string) (VerifyResult, error) {
	var result VerifyResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		payload, err := s.GetObjectByExternalID(gctx, objectType, objectID)
		result.Object = payload
		return err
	})
	g.Go(func() error {
		payload, err := s.GetUserByExternalID(gctx, userID)
		result.User = payload
		return err
	})

	if err := g.Wait(); err != nil {
		return VerifyResult{}, err
	}
	return result, nil
}

// ResolveIssueBrowseURL returns the browse URL of issueKey, or "" when it
// cannot be resolved for any reason.
func (s *LookupService) ResolveIssueBrowseURL(ctx context.Context, issueKey string) string {
	issueKey = strings.TrimSpace(issueKey)
	if s.tracker == nil || issueKey == "" {
		return ""
	}

	browseURL, err := s.tracker.BrowseURL(ctx, issueKey)
	if err != nil {
		slog.Warn("issue browse URL unavailable", "issue_key", issueKey, "error", err)
		return ""
	}
	return browseURL
}
