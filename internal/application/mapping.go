package application

import (
	"fmt"
	"time"

	"github.com/ericfisherdev/reqbridge/internal/domain/model"
)

const (
	workItemSubtype  = "requirement"
	documentCategory = "requirement-document"
	documentMimeType = "text/html"
)

// mapOptions carries the per-run inputs of the requirement mapping.
type mapOptions struct {
	runBase   int64
	now       time.Time
	workspace bool
	principal string
}

// permissions returns the access descriptor for the run's scope.
func (o mapOptions) permissions() []model.Permissions {
	if o.workspace || o.principal == "" {
		return model.WorkspacePermissions()
	}
	return model.PrincipalPermissions(o.principal)
}

// mapRequirements converts records to graph objects. Position i gets the
// update sequence number runBase+i.
func mapRequirements(reqs []model.Requirement, opts mapOptions) []model.GraphObject {
	objects := make([]model.GraphObject, 0, len(reqs))
	for i, r := range reqs {
		objects = append(objects, mapRequirement(r, i, opts))
	}
	return objects
}

func mapRequirement(r model.Requirement, index int, opts mapOptions) model.GraphObject {
	createdAt := opts.now
	if !r.CreatedAt.IsZero() {
		createdAt = r.CreatedAt
	}
	updatedAt := createdAt
	if !r.UpdatedAt.IsZero() {
		updatedAt = r.UpdatedAt
	}

	obj := model.GraphObject{
		SchemaVersion:        model.GraphSchemaVersion,
		ID:                   objectID(r, index),
		UpdateSequenceNumber: opts.runBase + int64(index),
		DisplayName:          firstNonEmpty(r.Title, r.RequirementNumber, "Requirement"),
		URL:                  firstNonEmpty(r.WebURL, r.URL),
		CreatedAt:            createdAt.UTC().Format(time.RFC3339),
		LastUpdatedAt:        updatedAt.UTC().Format(time.RFC3339),
		Description:          r.Description,
		Permissions:          opts.permissions(),
	}

	if r.IsDocument() {
		obj.Document = &model.DocumentPayload{
			Type: model.DocumentType{Category: documentCategory},
			Content: model.DocumentContent{
				MimeType: documentMimeType,
				Text:     RenderDocumentContent(r.Description),
			},
		}
	} else {
		obj.WorkItem = &model.WorkItemPayload{
			Type:    workItemSubtype,
			Status:  r.Status,
			DueDate: r.DueDate,
		}
	}
	return obj
}

// objectID picks the natural key: record id, requirement number, URL, issue
// key, then the record's position.
func objectID(r model.Requirement, index int) string {
	if id := firstNonEmpty(r.ID, r.RequirementNumber, r.URL, r.IssueKey); id != "" {
		return id
	}
	return fmt.Sprintf("requirement-%d", index+1)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
