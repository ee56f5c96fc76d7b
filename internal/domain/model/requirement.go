package model

import "time"

// Requirement is a record owned by the external requirements source.
// Optional fields are zero when the source omits them.
type Requirement struct {
	ID                string
	RequirementNumber string
	Title             string
	Description       string
	Status            string
	Kind              string // "document" selects the document projection; anything else is a work item.
	DueDate           string
	URL               string
	WebURL            string
	IssueKey          string
	CreatedAt         time.Time
	UpdatedAt         time.Time

	// IssueBrowseURL is filled by enrichment and never sent by the source.
	IssueBrowseURL string
}

// IsDocument reports whether the record maps to a document object.
func (r Requirement) IsDocument() bool {
	return r.Kind == "document"
}

// RequirementQuery selects records from the requirements source. An empty
// query lists every record.
type RequirementQuery struct {
	IssueKey string
}

// RequirementInput carries the writable fields of a requirement. Empty
// strings are omitted from the request body.
type RequirementInput struct {
	Title       string
	Description string
	Status      string
}

// IsEmpty reports whether no field is set.
func (in RequirementInput) IsEmpty() bool {
	return in.Title == "" && in.Description == "" && in.Status == ""
}
