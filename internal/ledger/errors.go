package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input: bad periods, filters, plan names.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an unknown tenant, month, category or file.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a versioned save loses against a concurrent writer.
	ErrConflict = errors.New("concurrent modification detected")

	// ErrExternalService marks a failing collaborator (mail, etc.). Never fatal to a mutation.
	ErrExternalService = errors.New("external service failure")

	// ErrLocked is returned when a write targets a locked month or category.
	ErrLocked = errors.New("node is locked")

	// ErrForbidden is returned when the acting role may not perform an operation.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError describes which input was rejected and why.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NotFoundError names the kind of node that was missing.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ExternalServiceError wraps a collaborator failure.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() []error {
	return []error{ErrExternalService, e.Err}
}

// IsClientError reports whether err was caused by caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrLocked)
}

// IsRetryable reports whether err might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
