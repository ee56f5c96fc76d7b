package graph_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reqbridge/internal/adapter/driven/graph"
	"github.com/ericfisherdev/reqbridge/internal/domain/model"
	"github.com/ericfisherdev/reqbridge/internal/domain/port/driven"
)

const prefix = "/graph/v1/connections/conn-1"

func newTestClient(t *testing.T, handler http.HandlerFunc) *graph.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return graph.NewClient(server.URL, "conn-1", "graph-token", server.Client())
}

func TestUpsertObjects_PartialFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, prefix+"/objects/bulk", r.URL.Path)
		assert.Equal(t, "Bearer graph-token", r.Header.Get("Authorization"))

		var body struct {
			Objects    []model.GraphObject `json:"objects"`
			Properties map[string]string   `json:"properties"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body.Objects, 3)
		assert.Equal(t, "reqbridge", body.Properties["source"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"accepted": [
				{"entityType":"atlassian:work-item","entityId":"a"},
				{"entityId":{"id":"b"}}
			],
			"rejected": [
				{"key":{"entityType":"atlassian:work-item","entityId":"c"},
				 "errors":[{"key":"containerKey","message":"containerKey is required"}]}
			]
		}`))
	})

	objects := []model.GraphObject{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	result, err := client.UpsertObjects(context.Background(), objects, model.ProvenanceProperties())
	require.NoError(t, err)

	require.Len(t, result.Accepted, 2)
	assert.Equal(t, "a", result.Accepted[0].EntityID)
	assert.Equal(t, "b", result.Accepted[1].EntityID)

	require.True(t, result.HasRejections())
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, "c", result.Rejected[0].Key.EntityID)
	require.Len(t, result.Rejected[0].Errors, 1)
	assert.Equal(t, "containerKey", result.Rejected[0].Errors[0].Key)
}

func TestUpsertObjects_UpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"forbidden"}`))
	})

	_, err := client.UpsertObjects(context.Background(), []model.GraphObject{{ID: "a"}}, model.ProvenanceProperties())

	var upstream *driven.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusForbidden, upstream.StatusCode)
}

func TestDeleteObjectsByProperties(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, prefix+"/objects/delete-by-properties", r.URL.Path)

		var body struct {
			ObjectType string            `json:"objectType"`
			Properties map[string]string `json:"properties"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "atlassian:document", body.ObjectType)
		assert.Equal(t, map[string]string{"source": "reqbridge"}, body.Properties)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"deleted":4}`))
	})

	outcome, err := client.DeleteObjectsByProperties(context.Background(), model.ObjectTypeDocument, model.ProvenanceProperties())
	require.NoError(t, err)
	assert.Equal(t, 4, outcome.Deleted)
}

func TestDeleteObjectsByProperties_EmptyBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	outcome, err := client.DeleteObjectsByProperties(context.Background(), model.ObjectTypeWorkItem, model.ProvenanceProperties())
	require.NoError(t, err)
	assert.Zero(t, outcome.Deleted)
}

func TestUpsertUsersAndMapUsers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case prefix + "/users/bulk":
			_, _ = w.Write([]byte(`{"accepted":[{"entityId":"u-1"}],"rejected":[]}`))
		case prefix + "/users/mappings":
			var body struct {
				Mappings []model.UserMapping `json:"mappings"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "u@example.com", body.Mappings[0].Email)
			_, _ = w.Write([]byte(`{"accepted":[{"key":{"entityId":{"id":"u-1"}}}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	users, err := client.UpsertUsers(context.Background(), []model.Principal{{ExternalID: "u-1"}}, model.ProvenanceProperties())
	require.NoError(t, err)
	require.Len(t, users.Accepted, 1)
	assert.Equal(t, "u-1", users.Accepted[0].EntityID)

	mapped, err := client.MapUsers(context.Background(), []model.UserMapping{{ExternalID: "u-1", Email: "u@example.com"}})
	require.NoError(t, err)
	require.Len(t, mapped.Accepted, 1)
	assert.Equal(t, "u-1", mapped.Accepted[0].EntityID)
	assert.False(t, mapped.HasRejections())
}

func TestDeleteUser_NotFoundIsSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, prefix+"/users/u-1", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	})

	assert.NoError(t, client.DeleteUser(context.Background(), "u-1"))
}

func TestDeleteUser_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	var upstream *driven.UpstreamError
	require.ErrorAs(t, client.DeleteUser(context.Background(), "u-1"), &upstream)
	assert.Equal(t, http.StatusInternalServerError, upstream.StatusCode)
}

func TestGetObject(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case prefix + "/objects/atlassian:work-item/r1":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"r1","displayName":"One","extra":{"kept":true}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	payload, err := client.GetObject(context.Background(), model.ObjectTypeWorkItem, "r1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"r1","displayName":"One","extra":{"kept":true}}`, string(payload))

	missing, err := client.GetObject(context.Background(), model.ObjectTypeWorkItem, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGetUser(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, prefix+"/users/u-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"externalId":"u-1","displayName":"Demo"}`))
	})

	payload, err := client.GetUser(context.Background(), "u-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"externalId":"u-1","displayName":"Demo"}`, string(payload))
}

func TestClient_KeepsBaseTimeoutWithToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"late"}`))
		}
	}))
	t.Cleanup(server.Close)

	base := server.Client()
	base.Timeout = 50 * time.Millisecond
	client := graph.NewClient(server.URL, "conn-1", "graph-token", base)

	start := time.Now()
	_, err := client.GetObject(context.Background(), model.ObjectTypeWorkItem, "slow")
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
