package application

import "errors"

var (
	// ErrValidation marks a configuration field that is missing or empty.
	ErrValidation = errors.New("validation failed")

	// ErrMissingCredentials is returned by sync operations when no client
	// credential pair is configured.
	ErrMissingCredentials = errors.New("missing credentials: connect the requirements source or configure a fallback client secret")

	// ErrAuthenticationRequired is returned when neither a delegated session
	// nor a client-credentials token is available. It is distinct from an
	// upstream 4xx/5xx.
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrMissingParameter is returned when a required argument is blank.
	ErrMissingParameter = errors.New("missing parameter")
)

// ValidationError carries the user-facing message of a failed connection
// validation. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }
