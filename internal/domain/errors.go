package domain

import "fmt"

// Error types for consistent error handling across the BFA.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates a bad request from the client: a missing field
// or identifier for the requested step. Surfaced verbatim, no retry.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrConflict indicates an RNC or email is already claimed. Conflicts maps
// the offending field name to a human-readable message so the client can
// highlight it.
type ErrConflict struct {
	Message   string
	Conflicts map[string]string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrDuplicate is the store's own unique-constraint violation, mapped by
// the persistence adapter. The write path treats it as the authoritative
// duplicate signal even when the pre-check passed.
type ErrDuplicate struct {
	Key string // constraint or field name, when the store reports one
}

func (e *ErrDuplicate) Error() string {
	return fmt.Sprintf("duplicate key: %s", e.Key)
}

// ErrStore is any other persistence failure. The full cause is logged
// server-side; callers only ever see the generic message.
type ErrStore struct {
	Op  string
	Err error
}

func (e *ErrStore) Error() string {
	return "No se pudo guardar, intenta de nuevo"
}

func (e *ErrStore) Unwrap() error {
	return e.Err
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrForbidden indicates the operator lacks permission for the operation.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}
