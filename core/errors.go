package core

import "github.com/pkg/errors"

// FieldError ties an error message to a single struct field,
// keyed by the field's JSON name.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is returned by services when a request is well formed
// but semantically invalid. With Fields set, the API renders a field map;
// otherwise Err is rendered as a plain message.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err *ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown signals that the integrity of the service is compromised
// and the web app should terminate.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error { return &shutdown{message: msg} }

func (s *shutdown) Error() string { return s.message }

// IsShutdown reports whether err (or its cause) requests a shutdown.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
