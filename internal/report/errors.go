package report

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable matches any failure to obtain a report from the backend.
	ErrUnavailable = errors.New("report unavailable")
	// ErrMalformed matches a report body that does not satisfy the schema.
	ErrMalformed = errors.New("report malformed")
)

// UnavailableError reports a transport failure, a timeout, or a non-success
// HTTP status from the report endpoint.
type UnavailableError struct {
	StatusCode int    // zero for transport failures
	Status     string // status text, e.g. "Internal Server Error"
	Timeout    bool
	Reason     string
	Err        error
}

func (e *UnavailableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("report endpoint returned %d %s", e.StatusCode, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("report endpoint unreachable: %s: %v", e.Reason, e.Err)
	}
	return "report endpoint unreachable: " + e.Reason
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

// MalformedError reports a body that is not JSON or violates the report
// schema. Field holds the dotted path of the offending field when known.
type MalformedError struct {
	Field  string
	Reason string
	Err    error
}

func (e *MalformedError) Error() string {
	msg := "malformed report"
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedError) Unwrap() error { return e.Err }

func (e *MalformedError) Is(target error) bool { return target == ErrMalformed }

func missing(field string) error {
	return &MalformedError{Field: field, Reason: "missing required field"}
}

func invalid(field, reason string) error {
	return &MalformedError{Field: field, Reason: reason}
}
