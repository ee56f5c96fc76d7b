package driven

import "context"

// IssueTracker resolves issue metadata used to enrich requirement records.
type IssueTracker interface {
	// BrowseURL returns the human-facing URL of the issue with the given key.
	BrowseURL(ctx context.Context, issueKey string) (string, error)
}
