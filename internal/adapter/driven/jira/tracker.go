// Package jira implements the IssueTracker port using the go-jira library.
package jira

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	gojira "github.com/andygrunwald/go-jira"
	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/reqbridge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.IssueTracker = (*Tracker)(nil)

// errNoSelfLink is returned when an issue carries no usable self link.
var errNoSelfLink = errors.New("issue has no self link")

// Tracker implements driven.IssueTracker against the Jira REST API.
type Tracker struct {
	client *gojira.Client
}

// NewTracker creates a Tracker with the following transport stack:
//  1. basic auth (account email + API token)
//  2. httpcache (ETag-based conditional request caching)
//  3. base, or http.DefaultTransport when nil
func NewTracker(baseURL, email, apiToken string, base http.RoundTripper) (*Tracker, error) {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	cacheTransport.Transport = base

	auth := gojira.BasicAuthTransport{
		Username:  email,
		Password:  apiToken,
		Transport: cacheTransport,
	}

	client, err := gojira.NewClient(auth.Client(), baseURL)
	if err != nil {
		return nil, fmt.Errorf("creating jira client: %w", err)
	}
	return &Tracker{client: client}, nil
}

// BrowseURL returns https://<site>/browse/<KEY> for the issue, derived from the
// host of the issue's self link.
func (t *Tracker) BrowseURL(ctx context.Context, issueKey string) (string, error) {
	issue, resp, err := t.client.Issue.GetWithContext(ctx, issueKey, &gojira.GetQueryOptions{Fields: "summary"})
	if err != nil {
		if resp != nil {
			return "", &driven.UpstreamError{Service: "jira", StatusCode: resp.StatusCode}
		}
		return "", fmt.Errorf("fetching issue %s: %w", issueKey, err)
	}

	if issue.Self == "" {
		return "", fmt.Errorf("issue %s: %w", issueKey, errNoSelfLink)
	}
	self, err := url.Parse(issue.Self)
	if err != nil || self.Scheme == "" || self.Host == "" {
		return "", fmt.Errorf("issue %s: unparsable self link %q: %w", issueKey, issue.Self, errNoSelfLink)
	}

	key := issue.Key
	if key == "" {
		key = issueKey
	}

	browse := url.URL{Scheme: self.Scheme, Host: self.Host, Path: "/browse/" + key}
	return browse.String(), nil
}
