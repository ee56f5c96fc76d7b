package model

import "encoding/json"

// GraphSchemaVersion is the object schema version written on every object.
const GraphSchemaVersion = "1.0"

// ProvenanceKey and ProvenanceValue form the tag attached to everything an
// import run writes. Bulk deletion selects on this pair only.
const (
	ProvenanceKey   = "source"
	ProvenanceValue = "reqbridge"
)

// ProvenanceProperties returns a fresh copy of the provenance tag.
func ProvenanceProperties() map[string]string {
	return map[string]string{ProvenanceKey: ProvenanceValue}
}

// PrincipalType identifies who an access control entry grants.
type PrincipalType string

const (
	PrincipalEveryone PrincipalType = "EVERYONE"
	PrincipalUser     PrincipalType = "USER"
)

// AccessPrincipal is one grantee of an access control entry.
type AccessPrincipal struct {
	Type PrincipalType `json:"type"`
	ID   string        `json:"id,omitempty"`
}

// AccessControl groups the principals that can see an object.
type AccessControl struct {
	Principals []AccessPrincipal `json:"principals"`
}

// Permissions is the access-control descriptor of a graph object.
type Permissions struct {
	AccessControls []AccessControl `json:"accessControls"`
}

// WorkspacePermissions grants visibility to everyone in the workspace.
func WorkspacePermissions() []Permissions {
	return []Permissions{{AccessControls: []AccessControl{{
		Principals: []AccessPrincipal{{Type: PrincipalEveryone}},
	}}}}
}

// PrincipalPermissions restricts visibility to a single user.
func PrincipalPermissions(externalID string) []Permissions {
	return []Permissions{{AccessControls: []AccessControl{{
		Principals: []AccessPrincipal{{Type: PrincipalUser, ID: externalID}},
	}}}}
}

// WorkItemPayload is the type-specific payload of a work item.
type WorkItemPayload struct {
	Type    string `json:"type,omitempty"`
	Status  string `json:"status,omitempty"`
	DueDate string `json:"dueDate,omitempty"`
}

// DocumentContent is the rendered body of a document object.
type DocumentContent struct {
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

// DocumentPayload is the type-specific payload of a document.
type DocumentPayload struct {
	Type    DocumentType    `json:"type"`
	Content DocumentContent `json:"content"`
}

// DocumentType describes the category of a document payload.
type DocumentType struct {
	Category string `json:"category"`
}

// GraphObject is the target store's representation of a synced record.
type GraphObject struct {
	SchemaVersion        string           `json:"schemaVersion"`
	ID                   string           `json:"id"`
	UpdateSequenceNumber int64            `json:"updateSequenceNumber"`
	DisplayName          string           `json:"displayName"`
	URL                  string           `json:"url,omitempty"`
	CreatedAt            string           `json:"createdAt"`
	LastUpdatedAt        string           `json:"lastUpdatedAt"`
	Description          string           `json:"description,omitempty"`
	Permissions          []Permissions    `json:"permissions"`
	WorkItem             *WorkItemPayload `json:"atlassian:work-item,omitempty"`
	Document             *DocumentPayload `json:"atlassian:document,omitempty"`
}

// ObjectType returns the category the object is written under.
func (o GraphObject) ObjectType() ObjectType {
	if o.Document != nil {
		return ObjectTypeDocument
	}
	return ObjectTypeWorkItem
}

// EntityKey identifies one object in an upsert response.
type EntityKey struct {
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
}

// FieldError is a field-level rejection reason.
type FieldError struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// RejectedEntity is an object the graph store refused, with the reasons.
type RejectedEntity struct {
	Key    EntityKey    `json:"key"`
	Errors []FieldError `json:"errors"`
}

// BulkResult is the per-object breakdown of a bulk write.
type BulkResult struct {
	Accepted []EntityKey      `json:"accepted"`
	Rejected []RejectedEntity `json:"rejected"`
}

// HasRejections reports whether any item was refused.
func (r BulkResult) HasRejections() bool {
	return len(r.Rejected) > 0
}

// DeleteOutcome is the result of one delete-by-property call.
type DeleteOutcome struct {
	Deleted int
}

// GraphPayload is an object or user document returned verbatim by the graph
// store. A nil payload means the store has no such entity.
type GraphPayload = json.RawMessage
