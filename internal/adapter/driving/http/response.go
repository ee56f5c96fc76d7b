package httphandler

import (
	"encoding/json"
	"net/http"

	"github.com/ericfisherdev/reqbridge/internal/application"
	"github.com/ericfisherdev/reqbridge/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a structured failure with the given status code.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Success: false, Error: message})
}

// errorResponse is the standard failure body.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// ConnectionEventRequest is the body of a connection lifecycle webhook.
type ConnectionEventRequest struct {
	Action           string                     `json:"action"`
	ConnectionID     string                     `json:"connectionId"`
	DatasourceID     string                     `json:"datasourceId"`
	Name             string                     `json:"name"`
	ConfigProperties model.ConnectionProperties `json:"configProperties"`
}

func (r ConnectionEventRequest) toEvent() model.ConnectionEvent {
	id := r.ConnectionID
	if id == "" {
		id = r.DatasourceID
	}
	return model.ConnectionEvent{
		Action:           model.ConnectionAction(r.Action),
		ConnectionID:     id,
		Name:             r.Name,
		ConfigProperties: r.ConfigProperties,
	}
}

// ValidateConnectionRequest is the body of the validation endpoint.
type ValidateConnectionRequest struct {
	Name             string                     `json:"name"`
	ConfigProperties model.ConnectionProperties `json:"configProperties"`
}

// OKResponse acknowledges a connection operation.
type OKResponse struct {
	OK bool `json:"ok"`
}

// ActiveCredentialsResponse is the masked view of the active credentials.
type ActiveCredentialsResponse struct {
	Success            bool   `json:"success"`
	ClientID           string `json:"clientId"`
	ClientSecretMasked string `json:"clientSecretMasked"`
	ConnectionID       string `json:"connectionId"`
}

func toActiveCredentialsResponse(c model.MaskedCredentials) ActiveCredentialsResponse {
	return ActiveCredentialsResponse{
		Success:            true,
		ClientID:           c.ClientID,
		ClientSecretMasked: c.ClientSecretMasked,
		ConnectionID:       c.ConnectionID,
	}
}

// SessionRequest stores a delegated session. ExpiresIn is in seconds and
// takes precedence over ExpiresAt.
type SessionRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
	ExpiresAt    string `json:"expiresAt"`
}

// ImportRequest selects the scope of an import run. A missing body means
// principal scope.
type ImportRequest struct {
	Workspace bool `json:"workspace"`
}

// ObjectResponse wraps an object lookup. Object is null when absent.
type ObjectResponse struct {
	Success bool            `json:"success"`
	Object  json.RawMessage `json:"object"`
}

// UserResponse wraps a user lookup. User is null when absent.
type UserResponse struct {
	Success bool            `json:"success"`
	User    json.RawMessage `json:"user"`
}

// VerifyResponse wraps a combined object and user lookup.
type VerifyResponse struct {
	Success bool            `json:"success"`
	Object  json.RawMessage `json:"object"`
	User    json.RawMessage `json:"user"`
}

// RequirementRequest carries the writable fields of a requirement.
type RequirementRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

func (r RequirementRequest) toInput() model.RequirementInput {
	return model.RequirementInput{Title: r.Title, Description: r.Description, Status: r.Status}
}

// ResolveLinksRequest lists URLs to resolve.
type ResolveLinksRequest struct {
	URLs []string `json:"urls"`
}

// ResolveLinksResponse lists one resolution per requested URL.
type ResolveLinksResponse struct {
	Entities []application.LinkResolution `json:"entities"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// rawOrNull renders an absent payload as JSON null.
func rawOrNull(p model.GraphPayload) json.RawMessage {
	if len(p) == 0 {
		return json.RawMessage("null")
	}
	return json.RawMessage(p)
}
