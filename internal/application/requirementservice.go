package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/reqbridge/internal/domain/model"
	"github.com/ericfisherdev/reqbridge/internal/domain/port/driven"
)

// authRequiredOutput is shown when no token path is usable.
const authRequiredOutput = "Authentication required. Please connect Vitareq or set CLIENT_SECRET for fallback."

// requirementLinkPattern extracts the record id from a requirement URL.
var requirementLinkPattern = regexp.MustCompile(`/requirements/([A-Za-z0-9_-]+)`)

// RequirementView is the display form of a requirement record.
type RequirementView struct {
	ID                string                 `json:"id,omitempty"`
	RequirementNumber string                 `json:"requirementNumber,omitempty"`
	Title             string                 `json:"title,omitempty"`
	Description       string                 `json:"description,omitempty"`
	Status            string                 `json:"status,omitempty"`
	Appearance        model.StatusAppearance `json:"appearance"`
	Type              string                 `json:"type,omitempty"`
	DueDate           string                 `json:"dueDate,omitempty"`
	URL               string                 `json:"url,omitempty"`
	WebURL            string                 `json:"web_url,omitempty"`
	JiraKey           string                 `json:"jiraKey,omitempty"`
	IssueURL          string                 `json:"issueUrl,omitempty"`
	CreatedAt         string                 `json:"createdAt,omitempty"`
	UpdatedAt         string                 `json:"updatedAt,omitempty"`
}

func newRequirementView(r model.Requirement) RequirementView {
	return RequirementView{
		ID:                r.ID,
		RequirementNumber: r.RequirementNumber,
		Title:             r.Title,
		Description:       r.Description,
		Status:            r.Status,
		Appearance:        model.AppearanceForStatus(r.Status),
		Type:              r.Kind,
		DueDate:           r.DueDate,
		URL:               r.URL,
		WebURL:            r.WebURL,
		JiraKey:           r.IssueKey,
		IssueURL:          r.IssueBrowseURL,
		CreatedAt:         formatTime(r.CreatedAt),
		UpdatedAt:         formatTime(r.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// RequirementOutcome is the user-facing result of a requirement action.
// Output is always set; Data is empty on failure.
type RequirementOutcome struct {
	Output string            `json:"output"`
	Data   []RequirementView `json:"data"`
}

func failedOutcome(output string) RequirementOutcome {
	return RequirementOutcome{Output: output, Data: []RequirementView{}}
}

// LinkResolution is the resolved form of one requirement URL.
type LinkResolution struct {
	URL        string             `json:"url"`
	Access     string             `json:"access"`
	Visibility string             `json:"visibility"`
	Entity     *model.GraphObject `json:"entity,omitempty"`
}

// RequirementService reads and writes requirement records on behalf of an
// account. It prefers the account's delegated session and falls back to a
// client-credentials token.
type RequirementService struct {
	source   driven.RequirementSource
	tokens   driven.TokenExchanger
	sessions driven.SessionStore
	lookup   *LookupService
	now      func() time.Time
}

// NewRequirementService creates a RequirementService. lookup may be nil, in
// which case records are not enriched with issue URLs.
func NewRequirementService(
	source driven.RequirementSource,
	tokens driven.TokenExchanger,
	sessions driven.SessionStore,
	lookup *LookupService,
) *RequirementService {
	return &RequirementService{
		source:   source,
		tokens:   tokens,
		sessions: sessions,
		lookup:   lookup,
		now:      time.Now,
	}
}

// bearer returns the token for one logical operation: the delegated session
// of accountID when usable, otherwise a fresh client-credentials token.
func (s *RequirementService) bearer(ctx context.Context, accountID string) (string, error) {
	if accountID != "" && s.sessions != nil {
		session, err := s.sessions.LoadSession(ctx, accountID)
		if err != nil {
			slog.Warn("loading delegated session failed, using client credentials", "account_id", accountID, "error", err)
		} else if usableSession(session, s.now()) {
			return session.AccessToken, nil
		}
	}

	token, err := s.tokens.AccessToken(ctx)
	if errors.Is(err, driven.ErrCredentialsNotConfigured) {
		return "", fmt.Errorf("%w: no delegated session and no client credentials", ErrAuthenticationRequired)
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

// outputForError maps a failure to its user-facing output.
func outputForError(err error) string {
	var tokenErr *driven.TokenError
	var upstream *driven.UpstreamError
	switch {
	case errors.Is(err, ErrAuthenticationRequired):
		return authRequiredOutput
	case errors.As(err, &tokenErr):
		return fmt.Sprintf("Auth failed (%d)", tokenErr.StatusCode)
	case errors.Is(err, driven.ErrNoAccessToken):
		return "Auth failed (no access_token)"
	case errors.As(err, &upstream):
		return fmt.Sprintf("Failed: %d", upstream.StatusCode)
	case errors.Is(err, driven.ErrUnexpectedResponse):
		return "Unexpected response"
	default:
		return "Error"
	}
}

// FetchRequirements returns the requirement linked to issueKey.
func (s *RequirementService) FetchRequirements(ctx context.Context, accountID, issueKey string) RequirementOutcome {
	issueKey = strings.TrimSpace(issueKey)
	if issueKey == "" {
		return failedOutcome("jiraKey is required")
	}

	token, err := s.bearer(ctx, accountID)
	if err != nil {
		slog.Warn("requirement fetch not authorized", "issue_key", issueKey, "error", err)
		return failedOutcome(outputForError(err))
	}

	req, err := s.source.FindRequirement(ctx, token, model.RequirementQuery{IssueKey: issueKey})
	if err != nil {
		slog.Error("requirement fetch failed", "issue_key", issueKey, "error", err)
		return failedOutcome(outputForError(err))
	}
	if req == nil {
		return failedOutcome("No requirement found")
	}

	if req.IssueKey == "" {
		req.IssueKey = issueKey
	}
	if s.lookup != nil {
		req.IssueBrowseURL = s.lookup.ResolveIssueBrowseURL(ctx, req.IssueKey)
	}

	output := "No requirement found"
	if req.RequirementNumber != "" {
		output = "Found requirement " + req.RequirementNumber
	}
	return RequirementOutcome{Output: output, Data: []RequirementView{newRequirementView(*req)}}
}

// CreateRequirement creates a record. Title is required.
func (s *RequirementService) CreateRequirement(ctx context.Context, accountID string, input model.RequirementInput) RequirementOutcome {
	input = trimInput(input)
	if input.Title == "" {
		return failedOutcome("title is required")
	}

	token, err := s.bearer(ctx, accountID)
	if err != nil {
		return failedOutcome(outputForError(err))
	}

	created, err := s.source.CreateRequirement(ctx, token, input)
	if err != nil {
		slog.Error("requirement create failed", "error", err)
		return failedOutcome(outputForError(err))
	}
	if created == nil {
		return failedOutcome("Created requirement")
	}

	summary := firstNonEmpty(created.RequirementNumber, created.ID, created.Title, "requirement")
	slog.Info("requirement created", "summary", summary)
	return RequirementOutcome{Output: "Created " + summary, Data: []RequirementView{newRequirementView(*created)}}
}

// UpdateRequirement applies the non-empty fields of input to record id.
func (s *RequirementService) UpdateRequirement(ctx context.Context, accountID, id string, input model.RequirementInput) RequirementOutcome {
	id = strings.TrimSpace(id)
	if id == "" {
		return failedOutcome("id is required")
	}
	input = trimInput(input)
	if input.IsEmpty() {
		return failedOutcome("No fields to update")
	}

	token, err := s.bearer(ctx, accountID)
	if err != nil {
		return failedOutcome(outputForError(err))
	}

	updated, err := s.source.UpdateRequirement(ctx, token, id, input)
	if err != nil {
		slog.Error("requirement update failed", "id", id, "error", err)
		return failedOutcome(outputForError(err))
	}
	if updated == nil {
		return failedOutcome("Updated " + id)
	}

	summary := firstNonEmpty(updated.RequirementNumber, updated.ID, updated.Title, id)
	slog.Info("requirement updated", "summary", summary)
	return RequirementOutcome{Output: "Updated " + summary, Data: []RequirementView{newRequirementView(*updated)}}
}

func trimInput(in model.RequirementInput) model.RequirementInput {
	return model.RequirementInput{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Status:      strings.TrimSpace(in.Status),
	}
}

// ResolveLinks resolves requirement URLs to work-item entities. A URL that
// cannot be authorized or fetched resolves with access "unauthorized"; a URL
// without a requirement id resolves with access granted and no entity.
func (s *RequirementService) ResolveLinks(ctx context.Context, accountID string, urls []string) []LinkResolution {
	results := make([]LinkResolution, len(urls))
	if len(urls) == 0 {
		return results
	}

	token, tokenErr := s.bearer(ctx, accountID)
	now := s.now()
	opts := mapOptions{runBase: now.UnixMilli(), now: now, workspace: true}

	g, gctx := errgroup.WithContext(ctx)
	for i, u := range urls {
		g.Go(func() error {
			results[i] = s.resolveLink(gctx, token, tokenErr, u, opts)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *RequirementService) resolveLink(ctx context.Context, token string, tokenErr error, link string, opts mapOptions) LinkResolution {
	res := LinkResolution{URL: link, Access: "granted", Visibility: "restricted"}

	match := requirementLinkPattern.FindStringSubmatch(link)
	if match == nil {
		return res
	}
	if tokenErr != nil {
		slog.Warn("link resolve not authorized", "url", link, "error", tokenErr)
		res.Access = "unauthorized"
		return res
	}

	req, err := s.source.GetRequirement(ctx, token, match[1])
	if err != nil {
		slog.Warn("link resolve failed", "url", link, "error", err)
		res.Access = "unauthorized"
		return res
	}
	if req != nil {
		obj := mapRequirement(*req, 0, opts)
		obj.Document = nil
		obj.WorkItem = &model.WorkItemPayload{Type: workItemSubtype, Status: req.Status, DueDate: req.DueDate}
		res.Entity = &obj
	}
	return res
}
