// Package errors defines the error taxonomy shared by the collector core.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for conditions that carry no extra payload. Callers match
// them with errors.Is.
var (
	// ErrNotFound is returned when the remote reports that a repository or
	// pull request does not exist (or the caller has no access to it).
	ErrNotFound = errors.New("not found on remote")

	// ErrAuthRequired is returned when the remote rejects the configured
	// credential (or the lack of one).
	ErrAuthRequired = errors.New("authentication required")

	// ErrProfileUnavailable is returned by the scraper when a profile page
	// is missing or its markup matches none of the known patterns.
	ErrProfileUnavailable = errors.New("profile page unavailable")

	// ErrRepositoryNotFound is returned by store reads keyed on a repository
	// identity that has never been collected.
	ErrRepositoryNotFound = errors.New("repository not found in store")
)

// InvalidRepoFormatError is returned when a repository argument is not in
// 'owner/name' form.
type InvalidRepoFormatError struct {
	Repo string
}

func (e *InvalidRepoFormatError) Error() string {
	return fmt.Sprintf("invalid repository format: %q, expected 'owner/name'", e.Repo)
}

// RateLimitedError is returned after the client has already waited for the
// limiter's reset and retried once without success.
type RateLimitedError struct {
	ResetAt time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited by remote, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// TransientError wraps a network or 5xx failure that survived the bounded
// retry budget.
type TransientError struct {
	Attempts int
	Cause    error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient fetch failure after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *TransientError) Unwrap() error { return e.Cause }

// MalformedResponseError indicates a remote JSON object missing a required
// field or carrying one of the wrong shape.
type MalformedResponseError struct {
	Entity string
	Field  string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed %s response: missing or invalid field %q", e.Entity, e.Field)
}

// CorruptRowError indicates a persisted row that cannot be decoded. Loads
// skip such rows and count them rather than failing outright.
type CorruptRowError struct {
	Table string
	Field string
	Cause error
}

func (e *CorruptRowError) Error() string {
	return fmt.Sprintf("corrupt row in table %q: field %q: %v", e.Table, e.Field, e.Cause)
}

func (e *CorruptRowError) Unwrap() error { return e.Cause }

// PersistError indicates a failed write of the store's table group. The
// store guarantees the on-disk state was left as it was before the call.
type PersistError struct {
	Table string
	Cause error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to persist table %q (store left unchanged): %v", e.Table, e.Cause)
}

func (e *PersistError) Unwrap() error { return e.Cause }
