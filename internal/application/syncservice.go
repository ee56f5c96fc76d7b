package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/reqbridge/internal/domain/model"
	"github.com/ericfisherdev/reqbridge/internal/domain/port/driven"
	"github.com/ericfisherdev/reqbridge/internal/metrics"
)

// syncTimestampKey is the per-run property written next to the provenance tag.
const syncTimestampKey = "syncTimestamp"

// StepResult is the outcome of one identity sub-call of an import run.
type StepResult struct {
	Success bool              `json:"success"`
	Error   string            `json:"error,omitempty"`
	Results *model.BulkResult `json:"results,omitempty"`
}

// ImportResult is the outcome of ImportRequirements. Success reflects the
// bulk upsert call itself; per-object rejections are listed in Results.
type ImportResult struct {
	Success            bool                `json:"success"`
	RunID              string              `json:"runId"`
	Results            model.BulkResult    `json:"results"`
	Objects            []model.GraphObject `json:"objects"`
	UserResults        *StepResult         `json:"userResults,omitempty"`
	UserMappingResults *StepResult         `json:"userMappingResults,omitempty"`
	UserMappingSuccess *bool               `json:"userMappingSuccess,omitempty"`
}

// DeleteStep is the outcome of one delete-by-property call.
type DeleteStep struct {
	Success bool   `json:"success"`
	Deleted int    `json:"deleted"`
	Error   string `json:"error,omitempty"`
}

// DeleteResult is the outcome of DeleteByProperties. Only the object
// deletions decide Success.
type DeleteResult struct {
	Success        bool                  `json:"success"`
	WorkItemDelete DeleteStep            `json:"workItemDelete"`
	DocumentDelete DeleteStep            `json:"documentDelete"`
	UserDelete     model.OperationResult `json:"userDelete"`
}

// SyncService imports requirement records into the graph store and deletes
// everything it imported. Network calls within one run are sequential.
type SyncService struct {
	tokens    driven.TokenExchanger
	source    driven.RequirementSource
	graph     driven.GraphStore
	principal model.Principal
	now       func() time.Time
}

// NewSyncService creates a SyncService. principal is the identity used for
// principal-scoped imports; an empty ExternalID disables that path.
func NewSyncService(
	tokens driven.TokenExchanger,
	source driven.RequirementSource,
	graph driven.GraphStore,
	principal model.Principal,
) *SyncService {
	return &SyncService{
		tokens:    tokens,
		source:    source,
		graph:     graph,
		principal: principal,
		now:       time.Now,
	}
}

// ImportRequirements fetches every record, maps it and writes the objects in
// one bulk call tagged with the provenance property. Unless scope is
// workspace-wide, the principal is ingested and mapped first so its
// permission checks resolve.
//
// Update sequence numbers are runBase+index with runBase the run's start in
// milliseconds. Two runs started within the same millisecond produce equal
// numbers for the same positions and the store may reject the later one.
func (s *SyncService) ImportRequirements(ctx context.Context, scope model.SyncScope) (ImportResult, error) {
	runID := uuid.NewString()
	start := s.now()
	log := slog.With("run_id", runID, "workspace", scope.Workspace)

	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		metrics.SyncRuns.WithLabelValues("import", "auth_failed").Inc()
		if errors.Is(err, driven.ErrCredentialsNotConfigured) {
			return ImportResult{}, fmt.Errorf("%w: %w", ErrMissingCredentials, err)
		}
		return ImportResult{}, fmt.Errorf("acquiring access token: %w", err)
	}

	reqs, err := s.source.ListRequirements(ctx, token, model.RequirementQuery{})
	if err != nil {
		metrics.SyncRuns.WithLabelValues("import", "fetch_failed").Inc()
		return ImportResult{}, fmt.Errorf("fetching requirements: %w", err)
	}
	log.Info("fetched requirements", "count", len(reqs))

	principalScoped := !scope.Workspace && s.principal.ExternalID != ""
	opts := mapOptions{
		runBase:   start.UnixMilli(),
		now:       start,
		workspace: !principalScoped,
	}
	if principalScoped {
		opts.principal = s.principal.ExternalID
	}
	objects := mapRequirements(reqs, opts)

	result := ImportResult{RunID: runID, Objects: objects}

	if principalScoped {
		result.UserResults, result.UserMappingResults = s.ingestPrincipal(ctx, log)
		mapped := result.UserMappingResults.Success
		result.UserMappingSuccess = &mapped
	}

	properties := model.ProvenanceProperties()
	properties[syncTimestampKey] = strconv.FormatInt(opts.runBase, 10)

	bulk, err := s.graph.UpsertObjects(ctx, objects, properties)
	if err != nil {
		metrics.SyncRuns.WithLabelValues("import", "upsert_failed").Inc()
		return result, fmt.Errorf("upserting objects: %w", err)
	}

	result.Success = true
	result.Results = bulk
	metrics.SyncObjects.WithLabelValues("accepted").Add(float64(len(bulk.Accepted)))
	metrics.SyncObjects.WithLabelValues("rejected").Add(float64(len(bulk.Rejected)))
	metrics.SyncRuns.WithLabelValues("import", "success").Inc()

	if bulk.HasRejections() {
		for _, r := range bulk.Rejected {
			log.Warn("object rejected", "entity_id", r.Key.EntityID, "errors", r.Errors)
		}
	}
	log.Info("import complete",
		"objects", len(objects),
		"accepted", len(bulk.Accepted),
		"rejected", len(bulk.Rejected),
		"duration", time.Since(start),
	)
	return result, nil
}

// ingestPrincipal upserts the principal and maps it to its platform account.
// The two steps are accounted independently; mapping runs even when ingestion
// failed because the principal may already exist.
func (s *SyncService) ingestPrincipal(ctx context.Context, log *slog.Logger) (*StepResult, *StepResult) {
	ingest := &StepResult{}
	users, err := s.graph.UpsertUsers(ctx, []model.Principal{s.principal}, model.ProvenanceProperties())
	if err != nil {
		log.Error("principal ingestion failed", "external_id", s.principal.ExternalID, "error", err)
		ingest.Error = err.Error()
	} else {
		ingest.Success = !users.HasRejections()
		ingest.Results = &users
	}

	mapping := &StepResult{}
	mapped, err := s.graph.MapUsers(ctx, []model.UserMapping{{
		ExternalID: s.principal.ExternalID,
		Email:      s.principal.PrimaryEmail,
	}})
	if err != nil {
		log.Error("principal mapping failed", "external_id", s.principal.ExternalID, "error", err)
		mapping.Error = err.Error()
	} else {
		mapping.Success = !mapped.HasRejections()
		mapping.Results = &mapped
	}
	return ingest, mapping
}

// DeleteByProperties deletes every object carrying the provenance tag, one
// call per object category, then makes a best-effort delete of the principal.
// Deleting when nothing is left is a success with zero deletions.
func (s *SyncService) DeleteByProperties(ctx context.Context) DeleteResult {
	properties := model.ProvenanceProperties()
	result := DeleteResult{Success: true, UserDelete: model.Succeeded()}
	for _, objectType := range model.SyncedObjectTypes {
		step := s.deleteCategory(ctx, objectType, properties)
		result.Success = result.Success && step.Success
		switch objectType {
		case model.ObjectTypeWorkItem:
			result.WorkItemDelete = step
		case model.ObjectTypeDocument:
			result.DocumentDelete = step
		}
	}

	if s.principal.ExternalID != "" {
		if err := s.graph.DeleteUser(ctx, s.principal.ExternalID); err != nil {
			slog.Warn("principal delete failed", "external_id", s.principal.ExternalID, "error", err)
			result.UserDelete = model.Failed(err)
		}
	}

	outcome := "success"
	if !result.Success {
		outcome = "failed"
	}
	metrics.SyncRuns.WithLabelValues("delete", outcome).Inc()
	slog.Info("delete by properties complete",
		"success", result.Success,
		"work_items", result.WorkItemDelete.Deleted,
		"documents", result.DocumentDelete.Deleted,
		"user_deleted", result.UserDelete.Success,
	)
	return result
}

func (s *SyncService) deleteCategory(ctx context.Context, objectType model.ObjectType, properties map[string]string) DeleteStep {
	outcome, err := s.graph.DeleteObjectsByProperties(ctx, objectType, properties)
	if err != nil {
		slog.Error("delete by properties failed", "object_type", objectType, "error", err)
		return DeleteStep{Error: err.Error()}
	}
	return DeleteStep{Success: true, Deleted: outcome.Deleted}
}
