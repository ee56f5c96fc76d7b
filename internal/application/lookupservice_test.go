package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reqbridge/internal/application"
	"github.com/ericfisherdev/reqbridge/internal/domain/model"
)

func TestGetObjectByExternalID_MissingParameter(t *testing.T) {
	lookup := application.NewLookupService(newMemoryGraph(), nil)

	_, err := lookup.GetObjectByExternalID(context.Background(), "  ", "r1")
	assert.ErrorIs(t, err, application.ErrMissingParameter)

	_, err = lookup.GetObjectByExternalID(context.Background(), string(model.ObjectTypeWorkItem), "")
	assert.ErrorIs(t, err, application.ErrMissingParameter)
}

func TestGetObjectByExternalID_AbsentIsEmpty(t *testing.T) {
	lookup := application.NewLookupService(newMemoryGraph(), nil)

	payload, err := lookup.GetObjectByExternalID(context.Background(), string(model.ObjectTypeWorkItem), "missing")
	require.NoError(t, err)
	assert.Nil(t, payload)
}

func TestGetUserByExternalID(t *testing.T) {
	graph := newMemoryGraph()
	graph.users["user-1"] = testPrincipal
	lookup := application.NewLookupService(graph, nil)

	_, err := lookup.GetUserByExternalID(context.Background(), " ")
	assert.ErrorIs(t, err, application.ErrMissingParameter)

	payload, err := lookup.GetUserByExternalID(context.Background(), " user-1 ")
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"externalId":"user-1"`)
}

func TestVerify(t *testing.T) {
	graph := newMemoryGraph()
	graph.users["user-1"] = testPrincipal
	graph.objects["atlassian:work-item/r1"] = storedObject{object: model.GraphObject{ID: "r1", DisplayName: "One"}}
	lookup := application.NewLookupService(graph, nil)

	result, err := lookup.Verify(context.Background(), string(model.ObjectTypeWorkItem), "r1", "user-1")
	require.NoError(t, err)
	assert.Contains(t, string(result.Object), `"displayName":"One"`)
	assert.Contains(t, string(result.User), `"user-1"`)

	_, err = lookup.Verify(context.Background(), string(model.ObjectTypeWorkItem), "r1", "")
	assert.ErrorIs(t, err, application.ErrMissingParameter)
}

func TestResolveIssueBrowseURL(t *testing.T) {
	lookup := application.NewLookupService(newMemoryGraph(), &stubTracker{url: "https://acme.atlassian.net"})
	assert.Equal(t, "https://acme.atlassian.net/browse/VIT-1", lookup.ResolveIssueBrowseURL(context.Background(), "VIT-1"))
	assert.Empty(t, lookup.ResolveIssueBrowseURL(context.Background(), ""))

	failing := application.NewLookupService(newMemoryGraph(), &stubTracker{err: errBoom})
	assert.Empty(t, failing.ResolveIssueBrowseURL(context.Background(), "VIT-1"))

	none := application.NewLookupService(newMemoryGraph(), nil)
	assert.Empty(t, none.ResolveIssueBrowseURL(context.Background(), "VIT-1"))
}
