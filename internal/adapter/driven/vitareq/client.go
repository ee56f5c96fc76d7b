// Package vitareq implements the RequirementSource port against the Vitareq
// REST API.
package vitareq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/ericfisherdev/reqbridge/internal/domain/model"
	"github.com/ericfisherdev/reqbridge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RequirementSource = (*Client)(nil)

const serviceName = "vitareq"

// Client implements driven.RequirementSource over HTTP. Each call wraps the
// base HTTP client in an oauth2 transport carrying the caller's bearer token.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the API rooted at baseURL. httpClient may be
// nil, in which case a client with a 30-second timeout is used.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// ListRequirements fetches every record matching query and flattens the
// response envelope.
func (c *Client) ListRequirements(ctx context.Context, token string, query model.RequirementQuery) ([]model.Requirement, error) {
	body, status, err := c.do(ctx, token, http.MethodGet, "/api/requirements", queryValues(query), nil)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, upstreamError(status, body)
	}

	records, err := NormalizeEnvelope(body)
	if err != nil {
		return nil, fmt.Errorf("listing requirements: %w", err)
	}

	requirements := make([]model.Requirement, 0, len(records))
	for i, raw := range records {
		req, err := decodeRequirement(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding requirement %d: %w", i, err)
		}
		requirements = append(requirements, req)
	}
	return requirements, nil
}

// FindRequirement returns the first record matching query. A 404 or an empty
// envelope yields (nil, nil).
func (c *Client) FindRequirement(ctx context.Context, token string, query model.RequirementQuery) (*model.Requirement, error) {
	body, status, err := c.do(ctx, token, http.MethodGet, "/api/requirements", queryValues(query), nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if !isSuccess(status) {
		return nil, upstreamError(status, body)
	}

	raw, err := FirstRecord(body)
	if err != nil {
		return nil, fmt.Errorf("finding requirement: %w", err)
	}
	if raw == nil {
		return nil, nil
	}

	req, err := decodeRequirement(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding requirement: %w", err)
	}
	if req.RequirementNumber == "" {
		if n, ok := ExtractRequirementNumber(body); ok {
			req.RequirementNumber = n
		}
	}
	return &req, nil
}

// GetRequirement fetches a single record by id. A 404 yields (nil, nil).
func (c *Client) GetRequirement(ctx context.Context, token, id string) (*model.Requirement, error) {
	body, status, err := c.do(ctx, token, http.MethodGet, "/api/requirements/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if !isSuccess(status) {
		return nil, upstreamError(status, body)
	}
	return decodeSingle(body)
}

// CreateRequirement posts a new record and returns the created record.
func (c *Client) CreateRequirement(ctx context.Context, token string, input model.RequirementInput) (*model.Requirement, error) {
	body, status, err := c.do(ctx, token, http.MethodPost, "/api/requirements", nil, inputBody(input))
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, upstreamError(status, body)
	}
	return decodeSingle(body)
}

// UpdateRequirement applies the non-empty fields of input to record id.
func (c *Client) UpdateRequirement(ctx context.Context, token, id string, input model.RequirementInput) (*model.Requirement, error) {
	body, status, err := c.do(ctx, token, http.MethodPut, "/api/requirements/"+url.PathEscape(id), nil, inputBody(input))
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, upstreamError(status, body)
	}
	return decodeSingle(body)
}

// do performs one authenticated request. It returns driven.ErrUnexpectedResponse
// when a successful response is not JSON.
func (c *Client) do(ctx context.Context, token, method, path string, query url.Values, payload any) ([]byte, int, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

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

	resp, err := c.authorized(ctx, token).Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading %s %s response: %w", method, path, err)
	}

	slog.Debug("vitareq response", "method", method, "path", path, "status", resp.StatusCode)

	if isSuccess(resp.StatusCode) && !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		slog.Warn("vitareq: non-JSON response", "path", path, "content_type", resp.Header.Get("Content-Type"), "body", truncate(string(body), 500))
		return nil, resp.StatusCode, driven.ErrUnexpectedResponse
	}

	return body, resp.StatusCode, nil
}

func (c *Client) authorized(ctx context.Context, token string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	// oauth2.NewClient keeps only the base transport.
	client.Timeout = c.httpClient.Timeout
	return client
}

// requirementWire is the JSON shape of a record. Identifiers arrive as either
// strings or numbers.
type requirementWire struct {
	ID                flexString `json:"id"`
	RequirementNumber flexString `json:"requirementNumber"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Status            string     `json:"status"`
	Type              string     `json:"type"`
	DueDate           string     `json:"dueDate"`
	URL               string     `json:"url"`
	WebURL            string     `json:"web_url"`
	JiraKey           string     `json:"jiraKey"`
	IssueKey          string     `json:"issueKey"`
	CreatedAt         string     `json:"createdAt"`
	UpdatedAt         string     `json:"updatedAt"`
}

func decodeRequirement(raw json.RawMessage) (model.Requirement, error) {
	var w requirementWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.Requirement{}, err
	}

	issueKey := w.JiraKey
	if issueKey == "" {
		issueKey = w.IssueKey
	}

	return model.Requirement{
		ID:                string(w.ID),
		RequirementNumber: string(w.RequirementNumber),
		Title:             w.Title,
		Description:       w.Description,
		Status:            w.Status,
		Kind:              strings.ToLower(w.Type),
		DueDate:           w.DueDate,
		URL:               w.URL,
		WebURL:            w.WebURL,
		IssueKey:          issueKey,
		CreatedAt:         parseTime(w.CreatedAt),
		UpdatedAt:         parseTime(w.UpdatedAt),
	}, nil
}

func decodeSingle(body []byte) (*model.Requirement, error) {
	raw, err := FirstRecord(body)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	req, err := decodeRequirement(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding requirement: %w", err)
	}
	return &req, nil
}

// flexString accepts a JSON string, number, or null.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("identifier must be a string or number: %w", err)
	}
	*f = flexString(n.String())
	return nil
}

func queryValues(q model.RequirementQuery) url.Values {
	if q.IssueKey == "" {
		return nil
	}
	return url.Values{"jiraKey": {q.IssueKey}}
}

func inputBody(in model.RequirementInput) map[string]string {
	body := make(map[string]string, 3)
	if in.Title != "" {
		body["title"] = in.Title
	}
	if in.Description != "" {
		body["description"] = in.Description
	}
	if in.Status != "" {
		body["status"] = in.Status
	}
	return body
}

func parseTime(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func upstreamError(status int, body []byte) error {
	return &driven.UpstreamError{
		Service:    serviceName,
		StatusCode: status,
		Body:       truncate(string(body), 200),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…(" + strconv.Itoa(len(s)-n) + " more bytes)"
}
