package driven

import (
	"errors"
	"fmt"
)

// UpstreamError reports a non-success HTTP status from an external API.
// Callers surface the status and do not retry.
type UpstreamError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Service, e.StatusCode, e.Body)
}

// ErrUnexpectedResponse is returned when an external API answers with a
// content type other than JSON.
var ErrUnexpectedResponse = errors.New("unexpected non-JSON response")
