package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reqbridge/internal/domain/model"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func TestMapRequirements_SequenceNumbers(t *testing.T) {
	reqs := []model.Requirement{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	objects := mapRequirements(reqs, mapOptions{runBase: 1000, now: testNow, workspace: true})
	require.Len(t, objects, 3)
	for i, obj := range objects {
		assert.Equal(t, int64(1000+i), obj.UpdateSequenceNumber)
		assert.Equal(t, model.GraphSchemaVersion, obj.SchemaVersion)
	}

	later := mapRequirements(reqs, mapOptions{runBase: 2000, now: testNow, workspace: true})
	assert.Greater(t, later[0].UpdateSequenceNumber, objects[2].UpdateSequenceNumber)
}

func TestObjectID_Fallbacks(t *testing.T) {
	tests := []struct {
		name string
		req  model.Requirement
		want string
	}{
		{name: "id", req: model.Requirement{ID: "r1", RequirementNumber: "REQ-1"}, want: "r1"},
		{name: "requirement number", req: model.Requirement{RequirementNumber: "REQ-1", URL: "https://x/1"}, want: "REQ-1"},
		{name: "url", req: model.Requirement{URL: "https://x/1", IssueKey: "VIT-1"}, want: "https://x/1"},
		{name: "issue key", req: model.Requirement{IssueKey: "VIT-1"}, want: "VIT-1"},
		{name: "position", req: model.Requirement{}, want: "requirement-3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, objectID(tt.req, 2))
		})
	}
}

func TestMapRequirement_Fields(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := model.Requirement{
		ID:                "r1",
		RequirementNumber: "REQ-1",
		Status:            "approved",
		DueDate:           "2026-06-01",
		URL:               "https://api/requirements/r1",
		WebURL:            "https://web/r1",
		CreatedAt:         created,
		Description:       "plain",
	}

	obj := mapRequirement(r, 0, mapOptions{runBase: 1, now: testNow, workspace: true})

	assert.Equal(t, "REQ-1", obj.DisplayName)
	assert.Equal(t, "https://web/r1", obj.URL)
	assert.Equal(t, "2026-01-02T03:04:05Z", obj.CreatedAt)
	assert.Equal(t, obj.CreatedAt, obj.LastUpdatedAt)
	require.NotNil(t, obj.WorkItem)
	assert.Nil(t, obj.Document)
	assert.Equal(t, "approved", obj.WorkItem.Status)
	assert.Equal(t, "2026-06-01", obj.WorkItem.DueDate)
	assert.Equal(t, model.ObjectTypeWorkItem, obj.ObjectType())
	assert.Equal(t, model.PrincipalEveryone, obj.Permissions[0].AccessControls[0].Principals[0].Type)
}

func TestMapRequirement_Defaults(t *testing.T) {
	obj := mapRequirement(model.Requirement{}, 0, mapOptions{now: testNow, workspace: true})

	assert.Equal(t, "Requirement", obj.DisplayName)
	assert.Equal(t, "2026-05-01T12:00:00Z", obj.CreatedAt)
	assert.Empty(t, obj.URL)
}

func TestMapRequirement_Document(t *testing.T) {
	r := model.Requirement{ID: "d1", Title: "Dosage guide", Kind: "document", Description: "# Heading\n\n**bold**"}

	obj := mapRequirement(r, 0, mapOptions{now: testNow, workspace: true})

	require.NotNil(t, obj.Document)
	assert.Nil(t, obj.WorkItem)
	assert.Equal(t, model.ObjectTypeDocument, obj.ObjectType())
	assert.Equal(t, "text/html", obj.Document.Content.MimeType)
	assert.Contains(t, obj.Document.Content.Text, "<strong>bold</strong>")
}

func TestMapRequirement_PrincipalPermissions(t *testing.T) {
	obj := mapRequirement(model.Requirement{ID: "r1"}, 0, mapOptions{now: testNow, principal: "user-1"})

	principal := obj.Permissions[0].AccessControls[0].Principals[0]
	assert.Equal(t, model.PrincipalUser, principal.Type)
	assert.Equal(t, "user-1", principal.ID)
}
