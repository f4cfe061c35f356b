package memory

import (
	"errors"
	"fmt"
)

// Kind classifies the expected failure modes of store operations. The kind
// string ends up in the "error" field of an error envelope.
type Kind string

const (
	KindConfiguration    Kind = "configuration_error"
	KindValidation       Kind = "validation_error"
	KindNotFound         Kind = "not_found"
	KindDuplicateKey     Kind = "duplicate_key"
	KindMissingReference Kind = "missing_reference"
	KindFormat           Kind = "format_error"
	KindDatabase         Kind = "database_error"
)

// Sentinels the backends translate driver-specific failures into.
var (
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrValidationFailed = errors.New("document failed validation")
)

/*
StoreError carries a classified failure through the store. It is the only
error type the public operations produce, and it always surfaces inside an
error envelope rather than as a raised error.
*/
type StoreError struct {
	Kind    Kind
	Message string
	Details string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// WithDetails returns a copy of the error with a remediation hint attached,
// leaving the receiver untouched.
func (e *StoreError) WithDetails(details string) *StoreError {
	c := *e
	c.Details = details
	return &c
}

func newError(kind Kind, format string, args ...any) *StoreError {
	return &StoreError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// classify turns a backend error into a StoreError, mapping the uniqueness
// and validator sentinels onto their kinds and everything else onto
// KindDatabase.
func classify(err error) *StoreError {
	switch {
	case errors.Is(err, ErrDuplicateKey):
		return newError(KindDuplicateKey, "duplicate key error: %v", err).
			WithDetails("A document with the same unique key already exists. Use update_entity to modify an existing entity, or pick a different name.")
	case errors.Is(err, ErrValidationFailed):
		return newError(KindValidation, "%v", err).
			WithDetails("Every entity requires a string 'name' field.")
	default:
		return newError(KindDatabase, "database operation failed: %v", err)
	}
}
