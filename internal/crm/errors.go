package crm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is matched by a *StatusError carrying HTTP 404.
	ErrNotFound  = errors.New("crm: not found")
	ErrNilClient = errors.New("crm: client is nil")
)

// StatusError is a non-2xx answer of the CRM backend.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("crm %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("crm %s: status %d", e.Op, e.StatusCode)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == 404
}

// TransportError means the backend could not be reached or its answer could
// not be read. Calls failing this way may be retried.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("crm %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is (or wraps) a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Ack is the answer to a confirmation or conversion call.
type Ack struct {
	Success bool
	Message string
	// AlreadyConfirmed is set when the backend refused because the lead was
	// confirmed before. Callers treat it as a terminal success.
	AlreadyConfirmed bool
}

func isAlreadyConfirmed(status int, message string) bool {
	if status == 409 {
		return true
	}
	m := strings.ToLower(message)
	return strings.Contains(m, "already confirmed") || strings.Contains(m, "bereits")
}
