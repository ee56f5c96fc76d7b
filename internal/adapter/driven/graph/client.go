// Package graph implements the GraphStore port against the object graph
// connector REST API.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/ericfisherdev/reqbridge/internal/domain/model"
	"github.com/ericfisherdev/reqbridge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GraphStore = (*Client)(nil)

const serviceName = "graph"

// Client implements driven.GraphStore. All calls are scoped to one connection
// and authenticated with a static bearer token.
type Client struct {
	baseURL      string
	connectionID string
	httpClient   *http.Client
}

// NewClient creates a Client for the connection connectionID. When token is
// empty requests are sent without an Authorization header.
func NewClient(baseURL, connectionID, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		authed := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: token,
			TokenType:   "Bearer",
		}))
		// oauth2.NewClient keeps only the base transport.
		authed.Timeout = httpClient.Timeout
		httpClient = authed
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		connectionID: connectionID,
		httpClient:   httpClient,
	}
}

type bulkResponse struct {
	Accepted []json.RawMessage `json:"accepted"`
	Rejected []json.RawMessage `json:"rejected"`
}

// UpsertObjects writes objects in one bulk call.
func (c *Client) UpsertObjects(ctx context.Context, objects []model.GraphObject, properties map[string]string) (model.BulkResult, error) {
	payload := struct {
		Objects    []model.GraphObject `json:"objects"`
		Properties map[string]string   `json:"properties"`
	}{Objects: objects, Properties: properties}

	return c.bulk(ctx, "/objects/bulk", payload)
}

// DeleteObjectsByProperties deletes every object of objectType carrying the
// given properties.
func (c *Client) DeleteObjectsByProperties(ctx context.Context, objectType model.ObjectType, properties map[string]string) (model.DeleteOutcome, error) {
	payload := struct {
		ObjectType model.ObjectType  `json:"objectType"`
		Properties map[string]string `json:"properties"`
	}{ObjectType: objectType, Properties: properties}

	body, status, err := c.do(ctx, http.MethodPost, "/objects/delete-by-properties", payload)
	if err != nil {
		return model.DeleteOutcome{}, err
	}
	if !isSuccess(status) {
		return model.DeleteOutcome{}, upstreamError(status, body)
	}

	var resp struct {
		Deleted int `json:"deleted"`
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &resp); err != nil {
			return model.DeleteOutcome{}, fmt.Errorf("decoding delete response: %w", err)
		}
	}
	return model.DeleteOutcome{Deleted: resp.Deleted}, nil
}

// UpsertUsers ingests principals in one bulk call.
func (c *Client) UpsertUsers(ctx context.Context, users []model.Principal, properties map[string]string) (model.BulkResult, error) {
	payload := struct {
		Users      []model.Principal `json:"users"`
		Properties map[string]string `json:"properties"`
	}{Users: users, Properties: properties}

	return c.bulk(ctx, "/users/bulk", payload)
}

// MapUsers links ingested principals to platform accounts.
func (c *Client) MapUsers(ctx context.Context, mappings []model.UserMapping) (model.BulkResult, error) {
	payload := struct {
		Mappings []model.UserMapping `json:"mappings"`
	}{Mappings: mappings}

	return c.bulk(ctx, "/users/mappings", payload)
}

// DeleteUser removes one principal. A 404 is treated as already deleted.
func (c *Client) DeleteUser(ctx context.Context, externalID string) error {
	body, status, err := c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(externalID), nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound || isSuccess(status) {
		return nil
	}
	return upstreamError(status, body)
}

// GetObject fetches one object payload. A 404 yields a nil payload.
func (c *Client) GetObject(ctx context.Context, objectType model.ObjectType, externalID string) (model.GraphPayload, error) {
	path := "/objects/" + url.PathEscape(string(objectType)) + "/" + url.PathEscape(externalID)
	return c.get(ctx, path)
}

// GetUser fetches one user payload. A 404 yields a nil payload.
func (c *Client) GetUser(ctx context.Context, externalID string) (model.GraphPayload, error) {
	return c.get(ctx, "/users/"+url.PathEscape(externalID))
}

func (c *Client) get(ctx context.Context, path string) (model.GraphPayload, error) {
	body, status, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if !isSuccess(status) {
		return nil, upstreamError(status, body)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("GET %s: %w", path, driven.ErrUnexpectedResponse)
	}
	return model.GraphPayload(trimmed), nil
}

func (c *Client) bulk(ctx context.Context, path string, payload any) (model.BulkResult, error) {
	body, status, err := c.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return model.BulkResult{}, err
	}
	if !isSuccess(status) {
		return model.BulkResult{}, upstreamError(status, body)
	}

	var resp bulkResponse
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &resp); err != nil {
			return model.BulkResult{}, fmt.Errorf("decoding %s response: %w", path, err)
		}
	}
	return toBulkResult(resp), nil
}

func toBulkResult(resp bulkResponse) model.BulkResult {
	result := model.BulkResult{
		Accepted: make([]model.EntityKey, 0, len(resp.Accepted)),
		Rejected: make([]model.RejectedEntity, 0, len(resp.Rejected)),
	}

	for _, raw := range resp.Accepted {
		key, _ := entityKeyOf(raw)
		result.Accepted = append(result.Accepted, key)
	}

	for _, raw := range resp.Rejected {
		key, _ := entityKeyOf(raw)
		var detail struct {
			Errors []model.FieldError `json:"errors"`
		}
		if err := json.Unmarshal(raw, &detail); err != nil {
			slog.Warn("graph: undecodable rejection", "error", err)
		}
		result.Rejected = append(result.Rejected, model.RejectedEntity{Key: key, Errors: detail.Errors})
	}

	return result
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, int, error) {
	endpoint := fmt.Sprintf("%s/graph/v1/connections/%s%s", c.baseURL, url.PathEscape(c.connectionID), path)

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("marshaling %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("creating %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading %s %s response: %w", method, path, err)
	}

	slog.Debug("graph response", "method", method, "path", path, "status", resp.StatusCode)
	return body, resp.StatusCode, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func upstreamError(status int, body []byte) error {
	text := string(body)
	if len(text) > 200 {
		text = text[:200]
	}
	return &driven.UpstreamError{Service: serviceName, StatusCode: status, Body: text}
}
