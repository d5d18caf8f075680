package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the user lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrIngestInProgress indicates an ingest run is already active for the company
	ErrIngestInProgress = errors.New("ingest already in progress")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrSessionNotFound indicates the session does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidCredentials indicates wrong email/password combination
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrServiceUnavailable indicates an external service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")
)

// AmbiguousQueryError reports a time expression that looked like an
// explicit constraint but could not be parsed. The user must clarify;
// the pipeline never guesses.
type AmbiguousQueryError struct {
	Token  string // The offending fragment
	Reason string
}

func (e *AmbiguousQueryError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("ambiguous query: %s", e.Reason)
	}
	return fmt.Sprintf("ambiguous query: %s (%q)", e.Reason, e.Token)
}

// NoRelevantContentError reports that the entire orchestrated retrieval
// produced nothing usable. A scope limitation, not a bug.
type NoRelevantContentError struct {
	Query    string
	Requests int // How many retrieval requests were attempted
}

func (e *NoRelevantContentError) Error() string {
	return fmt.Sprintf("no relevant content found across %d retrieval requests", e.Requests)
}

// SynthesisUnavailableError reports that the model collaborator failed
// after all retries. It carries the retrieval output so callers can
// still present citations without narrative text.
type SynthesisUnavailableError struct {
	Result    *RetrievalResult
	Citations []Citation
	Attempts  int
	Err       error
}

func (e *SynthesisUnavailableError) Error() string {
	return fmt.Sprintf("synthesis unavailable after %d attempts: %v", e.Attempts, e.Err)
}

func (e *SynthesisUnavailableError) Unwrap() error {
	return e.Err
}
