package supabase

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/larimar/onboarding-bfa-go/internal/domain"
)

// Error classification for PostgREST responses. All string/code matching
// against raw store errors lives in this file; the rest of the codebase
// only ever sees the classified result.

// ErrorClass is the closed set of store error classes.
type ErrorClass int

const (
	ClassOther ErrorClass = iota
	ClassDuplicateKey
	ClassUnknownColumn
	ClassNotFound
)

// Postgres / PostgREST error codes we care about.
const (
	pgUniqueViolation  = "23505"
	pgUndefinedColumn  = "42703"
	pgNoConflictTarget = "42P10"
	pgrstStaleColumn   = "PGRST204" // column missing from PostgREST's schema cache
	pgrstNoRows        = "PGRST116"
)

// StoreError is a raw PostgREST failure carrying the parsed error payload.
// Duplicate-key and not-found cases are surfaced as domain errors instead;
// a *StoreError reaching a service means "generic store failure".
type StoreError struct {
	Class   ErrorClass
	Status  int
	Code    string
	Message string
	Table   string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("supabase %s returned %d (code %s): %s", e.Table, e.Status, e.Code, e.Message)
}

// unknownColumnError is internal to the adapter: the schema-compatibility
// shim retries on it and it never crosses the port boundary.
type unknownColumnError struct {
	column string
	cause  *StoreError
}

func (e *unknownColumnError) Error() string {
	return fmt.Sprintf("unknown column %q: %v", e.column, e.cause)
}

func (e *unknownColumnError) Unwrap() error {
	return e.cause
}

// postgrestError is the JSON error body PostgREST returns on failure.
type postgrestError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// classify maps a non-2xx PostgREST response to exactly one of the error
// classes {DuplicateKey, UnknownColumn, NotFound, Other}.
func classify(table string, status int, body []byte) error {
	var pe postgrestError
	_ = json.Unmarshal(body, &pe)

	se := &StoreError{
		Class:   ClassOther,
		Status:  status,
		Code:    pe.Code,
		Message: pe.Message,
		Table:   table,
	}
	if se.Message == "" {
		se.Message = string(body)
	}

	switch {
	case pe.Code == pgUniqueViolation:
		return &domain.ErrDuplicate{Key: constraintName(pe.Message)}
	case pe.Code == pgrstStaleColumn,
		pe.Code == pgUndefinedColumn,
		strings.Contains(pe.Message, "schema cache") && strings.Contains(pe.Message, "column"):
		se.Class = ClassUnknownColumn
		return &unknownColumnError{column: columnName(pe.Message), cause: se}
	case status == http.StatusNotFound, pe.Code == pgrstNoRows:
		se.Class = ClassNotFound
		return &domain.ErrNotFound{Resource: table}
	default:
		return se
	}
}

// isNoConflictTarget reports whether the error means the table lacks the
// unique constraint named as an on_conflict target. The ownership upsert
// falls back to a plain insert on it.
func isNoConflictTarget(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Code == pgNoConflictTarget
}

// asUnknownColumn extracts the stripped-column name when err is an
// unknown-column classification.
func asUnknownColumn(err error) (string, bool) {
	var uc *unknownColumnError
	if errors.As(err, &uc) {
		return uc.column, true
	}
	return "", false
}

// constraintName pulls the constraint out of a message like
// `duplicate key value violates unique constraint "companies_rnc_key"`.
func constraintName(msg string) string {
	if i := strings.Index(msg, `constraint "`); i >= 0 {
		rest := msg[i+len(`constraint "`):]
		if j := strings.Index(rest, `"`); j >= 0 {
			return rest[:j]
		}
	}
	return msg
}

// columnName pulls the column out of a message like
// `Could not find the 'created_by' column of 'companies' in the schema cache`
// or `column "created_by" of relation "companies" does not exist`.
func columnName(msg string) string {
	for _, q := range []string{"'", `"`} {
		if i := strings.Index(msg, q); i >= 0 {
			rest := msg[i+1:]
			if j := strings.Index(rest, q); j >= 0 && rest[:j] != "" {
				return rest[:j]
			}
		}
	}
	return ""
}
