package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// ConflictError reports a uniqueness violation on Key (a column or constraint
// name). Every storage backend must raise it consistently on duplicate keys so
// workflows can branch on it without sniffing driver error strings.
type ConflictError struct {
	Err error
	Key string
}

func NewConflictError(err error, key string) error {
	return &ConflictError{Err: err, Key: key}
}

func (err ConflictError) Error() string {
	if err.Err == nil {
		return "duplicate key: " + err.Key
	}
	return err.Err.Error()
}

// IsDuplicateKey reports whether err (or its cause) is a ConflictError.
func IsDuplicateKey(err error) bool {
	_, ok := errors.Cause(err).(*ConflictError)
	return ok
}

// DuplicateKeyOn reports whether err is a ConflictError on the given key.
func DuplicateKeyOn(err error, key string) bool {
	if cErr, ok := errors.Cause(err).(*ConflictError); ok {
		return cErr.Key == key
	}
	return false
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
