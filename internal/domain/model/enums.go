package model

import "strings"

// ConnectionAction is the lifecycle action carried by a connection event.
type ConnectionAction string

const (
	ConnectionActionCreated ConnectionAction = "CREATED"
	ConnectionActionUpdated ConnectionAction = "UPDATED"
	ConnectionActionDeleted ConnectionAction = "DELETED"
)

// ObjectType is a graph object category. The graph store's delete-by-property
// call accepts exactly one category per request.
type ObjectType string

const (
	ObjectTypeWorkItem ObjectType = "atlassian:work-item"
	ObjectTypeDocument ObjectType = "atlassian:document"
)

// SyncedObjectTypes lists every category an import run can write.
var SyncedObjectTypes = []ObjectType{ObjectTypeWorkItem, ObjectTypeDocument}

// StatusAppearance is the badge style used to display a requirement status.
type StatusAppearance string

const (
	AppearanceNew        StatusAppearance = "new"
	AppearanceInProgress StatusAppearance = "inprogress"
	AppearanceSuccess    StatusAppearance = "success"
	AppearanceDefault    StatusAppearance = "default"
)

// AppearanceForStatus maps a free-form requirement status to a badge style.
// Matching is case-insensitive and treats runs of whitespace as underscores.
func AppearanceForStatus(status string) StatusAppearance {
	s := strings.Join(strings.Fields(strings.ToLower(status)), "_")
	switch s {
	case "draft":
		return AppearanceNew
	case "in_review":
		return AppearanceInProgress
	case "approved":
		return AppearanceSuccess
	default:
		return AppearanceDefault
	}
}
