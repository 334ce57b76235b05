package quote

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrQuoteNotFound        = errors.New("quote not found")
	ErrBackendUnavailable   = errors.New("quote backend unavailable")
	ErrSessionNotFound      = errors.New("portal session not found or expired")
	ErrNotGrouped           = errors.New("quote has no per-day decisions")
	ErrConfirmationRequired = errors.New("confirmation must be prepared and acknowledged first")
	ErrConfirmationInFlight = errors.New("a confirmation is already running for this session")
	ErrConversionRefused    = errors.New("backend refused the conversion")
)

// LoadError means the quote could not be shown at all.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string { return "load quote: " + e.Err.Error() }
func (e *LoadError) Unwrap() error { return e.Err }

// SiblingLoadError means the other days of a group could not be listed. The
// quote is shown as a single day instead.
type SiblingLoadError struct {
	GroupID string
	Err     error
}

func (e *SiblingLoadError) Error() string {
	return fmt.Sprintf("load days of group %s: %v", e.GroupID, e.Err)
}

func (e *SiblingLoadError) Unwrap() error { return e.Err }

// NetworkError is a transport failure talking to the backend. The operation
// may be retried.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return e.Op + ": network error: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError lists the contact form fields that block a confirmation,
// keyed by json field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return "validation failed: " + strings.Join(names, ", ")
}

// ConversionError reports the day a confirmation stopped at. Outcome holds the
// status of every day, including those converted before the failure.
type ConversionError struct {
	Outcome *Outcome
	Day     DayResult
	Err     error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion of %s failed: %v", e.Day.Label, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }
