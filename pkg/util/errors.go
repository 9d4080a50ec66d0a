// Package util provides identifier normalization, logging helpers, and the
// error taxonomy shared by every portfinder package.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Typed errors below unwrap to one of these so callers can
// branch with errors.Is.
var (
	ErrTransport            = errors.New("device transport failure")
	ErrMalformedResult      = errors.New("malformed getter result")
	ErrInvalidFormat        = errors.New("invalid format")
	ErrInvalidVlanSelection = errors.New("requested VLAN not present on device")
	ErrIneligibleInterface  = errors.New("interface is not access-eligible")
	ErrNotFound             = errors.New("not found")
	ErrValidationFailed     = errors.New("validation failed")
	ErrLocked               = errors.New("device locked by another change")
)

// TransportError reports that a device could not be reached or refused a
// command. It is always scoped to one host.
type TransportError struct {
	Host string
	Op   string
	Err  error
}

func (e *TransportError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Host, e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// NewTransportError wraps err as a transport failure on host.
func NewTransportError(host, op string, err error) *TransportError {
	return &TransportError{Host: host, Op: op, Err: err}
}

// MalformedError reports a getter payload that did not have the expected shape.
type MalformedError struct {
	Host   string
	Getter string
	Err    error
}

func (e *MalformedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: malformed %s result", e.Host, e.Getter)
	}
	return fmt.Sprintf("%s: malformed %s result: %v", e.Host, e.Getter, e.Err)
}

func (e *MalformedError) Unwrap() error {
	return ErrMalformedResult
}

// FormatError reports an operator-supplied value that does not parse.
type FormatError struct {
	Kind  string
	Value string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Kind, e.Value)
}

func (e *FormatError) Unwrap() error {
	return ErrInvalidFormat
}

// NewFormatError creates a format error for a value of the given kind.
func NewFormatError(kind, value string) *FormatError {
	return &FormatError{Kind: kind, Value: value}
}

// NotFoundError is a negative lookup result, not a failure.
type NotFoundError struct {
	Resource string
	Name     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Resource, e.Name)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError creates a not-found error
func NewNotFoundError(resource, name string) *NotFoundError {
	return &NotFoundError{Resource: resource, Name: name}
}

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a validation error from messages
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Errors: messages}
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}
