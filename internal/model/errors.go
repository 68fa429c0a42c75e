package model

import (
	"errors"
	"strings"
)

var (
	ErrUnauthorized           = errors.New("unauthorized")
	ErrForbidden              = errors.New("forbidden")
	ErrNotFound               = errors.New("not found")
	ErrInvalidTransition      = errors.New("invalid transition")
	ErrDuplicateRecord        = errors.New("duplicate record")
	ErrDuplicateActiveRequest = errors.New("duplicate active request")
	ErrValidationFailed       = errors.New("validation failed")
	ErrUnsupportedFileType    = errors.New("unsupported file type")
	ErrFileTooLarge           = errors.New("file too large")
	ErrInvalidCode            = errors.New("invalid attendance code")
	ErrAlreadyDecided         = errors.New("already decided")
	ErrWrongMethod            = errors.New("session does not use code attendance")
	ErrSessionNotOpen         = errors.New("session not open")
	ErrNotEnrolled            = errors.New("student not enrolled")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports malformed input; errors.Is(err, ErrValidationFailed) holds.
type ValidationError struct {
	Fields []FieldError
}

func NewValidationError(flds ...FieldError) error {
	return &ValidationError{Fields: flds}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidationFailed.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Error)
	}
	return ErrValidationFailed.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}
