package booking

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrBookingNotFound     = errors.New("booking not found")
	ErrBackendUnavailable  = errors.New("booking backend unavailable")
	ErrValidation          = errors.New("validation error")
	ErrLayoutNotBooked     = errors.New("booking has no photo print")
	ErrLayoutLocked        = errors.New("layout was already submitted")
	ErrApprovalNotPossible = errors.New("layout is not awaiting approval")
)

// ValidationError lists the invalid layout fields keyed by json name.
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

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
