// Package httphandler is the REST driving adapter.
package httphandler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/ericfisherdev/reqbridge/internal/application"
	"github.com/ericfisherdev/reqbridge/internal/domain/model"
	"github.com/ericfisherdev/reqbridge/internal/domain/port/driven"
	"github.com/ericfisherdev/reqbridge/internal/metrics"
)

// accountHeader carries the account id used to pick a delegated session.
const accountHeader = "X-Account-Id"

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	credentials  *application.CredentialManager
	syncSvc      *application.SyncService
	lookupSvc    *application.LookupService
	requirements *application.RequirementService
	logger       *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	credentials *application.CredentialManager,
	syncSvc *application.SyncService,
	lookupSvc *application.LookupService,
	requirements *application.RequirementService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		credentials:  credentials,
		syncSvc:      syncSvc,
		lookupSvc:    lookupSvc,
		requirements: requirements,
		logger:       logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with metrics, body limit, recovery and logging middleware. webhookRPS
// paces connection event deliveries; they are delayed, never rejected.
func NewServeMux(h *Handler, logger *slog.Logger, webhookRPS float64) http.Handler {
	mux := http.NewServeMux()

	burst := max(int(webhookRPS), 1)
	webhookLimiter := rate.NewLimiter(rate.Limit(webhookRPS), burst)

	mux.HandleFunc("POST /api/v1/connections/events", throttled(webhookLimiter, logger, h.ConnectionChanged))
	mux.HandleFunc("POST /api/v1/connections/validate", h.ValidateConnection)
	mux.HandleFunc("GET /api/v1/credentials/active", h.ActiveCredentials)
	mux.HandleFunc("PUT /api/v1/sessions/{accountId}", h.StoreSession)
	mux.HandleFunc("DELETE /api/v1/sessions/{accountId}", h.RevokeSession)
	mux.HandleFunc("POST /api/v1/sync/import", h.ImportRequirements)
	mux.HandleFunc("POST /api/v1/sync/delete", h.DeleteByProperties)
	mux.HandleFunc("GET /api/v1/objects/{objectType}/{externalId}", h.GetObject)
	mux.HandleFunc("GET /api/v1/users/{externalId}", h.GetUser)
	mux.HandleFunc("GET /api/v1/verify", h.Verify)
	mux.HandleFunc("GET /api/v1/requirements", h.FetchRequirements)
	mux.HandleFunc("POST /api/v1/requirements", h.CreateRequirement)
	mux.HandleFunc("PUT /api/v1/requirements/{id}", h.UpdateRequirement)
	mux.HandleFunc("POST /api/v1/links/resolve", h.ResolveLinks)
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.Handle("GET /metrics", metrics.Handler())

	// Instrument directly around the mux so the matched pattern is visible.
	wrapped := metrics.Instrument(mux)
	wrapped = maxBodyMiddleware(wrapped)
	// Recovery innermost of the logging pair so panics are caught before logging.
	wrapped = recoveryMiddleware(logger, wrapped)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ConnectionChanged applies a connection lifecycle event. Bookkeeping
// failures are logged by the service; the event is always acknowledged.
func (h *Handler) ConnectionChanged(w http.ResponseWriter, r *http.Request) {
	var req ConnectionEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("undecodable connection event", "error", err)
		writeJSON(w, http.StatusOK, OKResponse{OK: true})
		return
	}

	ack := h.credentials.OnConnectionChanged(r.Context(), req.toEvent())
	writeJSON(w, http.StatusOK, OKResponse{OK: ack.OK})
}

// ValidateConnection checks a connection form without side effects.
func (h *Handler) ValidateConnection(w http.ResponseWriter, r *http.Request) {
	var req ValidateConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.credentials.ValidateConnection(req.ConfigProperties); err != nil {
		h.writeServiceError(w, "connection validation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// ActiveCredentials returns the active credentials with the secret masked.
func (h *Handler) ActiveCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := h.credentials.GetActiveCredentials(r.Context())
	if err != nil {
		h.writeServiceError(w, "failed to load active credentials", err)
		return
	}
	writeJSON(w, http.StatusOK, toActiveCredentialsResponse(creds))
}

// StoreSession records a delegated session for the account in the path.
func (h *Handler) StoreSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session := model.Session{
		AccountID:    r.PathValue("accountId"),
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
	}
	switch {
	case req.ExpiresIn > 0:
		session.Expiry = time.Now().Add(time.Duration(req.ExpiresIn) * time.Second)
	case req.ExpiresAt != "":
		expiry, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "expiresAt must be RFC 3339")
			return
		}
		session.Expiry = expiry
	}

	if err := h.credentials.StoreSession(r.Context(), session); err != nil {
		h.writeServiceError(w, "failed to store session", err)
		return
	}
	writeJSON(w, http.StatusOK, model.Succeeded())
}

// RevokeSession forgets the delegated session of the account in the path.
func (h *Handler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	if err := h.credentials.RevokeSession(r.Context(), r.PathValue("accountId")); err != nil {
		h.writeServiceError(w, "failed to revoke session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImportRequirements runs one import. An empty body selects principal scope.
func (h *Handler) ImportRequirements(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.syncSvc.ImportRequirements(r.Context(), model.SyncScope{Workspace: req.Workspace})
	if err != nil {
		h.writeServiceError(w, "import failed", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// DeleteByProperties deletes everything the imports wrote. Sub-call failures
// are reported in the body; the status is 200 whenever the request ran.
func (h *Handler) DeleteByProperties(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.syncSvc.DeleteByProperties(r.Context()))
}

// GetObject returns one graph object verbatim.
func (h *Handler) GetObject(w http.ResponseWriter, r *http.Request) {
	payload, err := h.lookupSvc.GetObjectByExternalID(r.Context(), r.PathValue("objectType"), r.PathValue("externalId"))
	if err != nil {
		h.writeServiceError(w, "object lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, ObjectResponse{Success: true, Object: rawOrNull(payload)})
}

// GetUser returns one graph user verbatim.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	payload, err := h.lookupSvc.GetUserByExternalID(r.Context(), r.PathValue("externalId"))
	if err != nil {
		h.writeServiceError(w, "user lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{Success: true, User: rawOrNull(payload)})
}

// Verify looks up an object and a user together.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.lookupSvc.Verify(r.Context(), q.Get("objectType"), q.Get("objectId"), q.Get("userId"))
	if err != nil {
		h.writeServiceError(w, "verify failed", err)
		return
	}
	writeJSON(w, http.StatusOK, VerifyResponse{
		Success: true,
		Object:  rawOrNull(result.Object),
		User:    rawOrNull(result.User),
	})
}

// FetchRequirements returns the requirement linked to the jiraKey query
// parameter. The outcome is always 200 with a user-facing output.
func (h *Handler) FetchRequirements(w http.ResponseWriter, r *http.Request) {
	outcome := h.requirements.FetchRequirements(r.Context(), r.Header.Get(accountHeader), r.URL.Query().Get("jiraKey"))
	writeJSON(w, http.StatusOK, outcome)
}

// CreateRequirement creates a requirement record.
func (h *Handler) CreateRequirement(w http.ResponseWriter, r *http.Request) {
	var req RequirementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, h.requirements.CreateRequirement(r.Context(), r.Header.Get(accountHeader), req.toInput()))
}

// UpdateRequirement updates the requirement in the path.
func (h *Handler) UpdateRequirement(w http.ResponseWriter, r *http.Request) {
	var req RequirementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	outcome := h.requirements.UpdateRequirement(r.Context(), r.Header.Get(accountHeader), r.PathValue("id"), req.toInput())
	writeJSON(w, http.StatusOK, outcome)
}

// ResolveLinks resolves requirement URLs to entities.
func (h *Handler) ResolveLinks(w http.ResponseWriter, r *http.Request) {
	var req ResolveLinksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	entities := h.requirements.ResolveLinks(r.Context(), r.Header.Get(accountHeader), req.URLs)
	writeJSON(w, http.StatusOK, ResolveLinksResponse{Entities: entities})
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// writeServiceError maps a service error to a status code and a structured
// failure body. Unknown errors are logged and reported generically.
func (h *Handler) writeServiceError(w http.ResponseWriter, msg string, err error) {
	var upstream *driven.UpstreamError
	var tokenErr *driven.TokenError
	switch {
	case errors.Is(err, application.ErrValidation),
		errors.Is(err, application.ErrMissingParameter),
		errors.Is(err, driven.ErrInvalidKey):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, application.ErrMissingCredentials),
		errors.Is(err, application.ErrAuthenticationRequired):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, driven.ErrEncryptionKeyNotSet):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &upstream), errors.As(err, &tokenErr), errors.Is(err, driven.ErrNoAccessToken):
		h.logger.Warn(msg, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		h.logger.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
