// SPDX-License-Identifier: MIT

// Package validate accumulates configuration validation failures.
package validate

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Error represents a validation error
type Error struct {
	Field   string      // Field name that failed validation
	Value   interface{} // The invalid value
	Message string      // Human-readable error message
}

// Error implements the error interface
func (e Error) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// Validator accumulates validation errors and can produce a ValidationError when invalid.
type Validator struct {
	errors []Error
}

// ValidationError bundles multiple validation errors into a single error value.
type ValidationError struct {
	errors []Error
}

// New creates a new validator
func New() *Validator {
	return &Validator{
		errors: make([]Error, 0),
	}
}

// AddError adds a validation error
func (v *Validator) AddError(field, message string, value interface{}) {
	v.errors = append(v.errors, Error{
		Field:   field,
		Value:   value,
		Message: message,
	})
}

// IsValid returns true if no errors have been accumulated
func (v *Validator) IsValid() bool {
	return len(v.errors) == 0
}

// Errors returns all accumulated validation errors
func (v *Validator) Errors() []Error {
	return v.errors
}

// Err converts the accumulated validation errors into an error value.
func (v *Validator) Err() error {
	if len(v.errors) == 0 {
		return nil
	}

	copied := make([]Error, len(v.errors))
	copy(copied, v.errors)

	return ValidationError{errors: copied}
}

// Errors returns the individual validation errors making up the validation failure.
func (e ValidationError) Errors() []Error {
	return e.errors
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	if len(e.errors) == 0 {
		return ""
	}

	if len(e.errors) == 1 {
		return e.errors[0].Error()
	}

	msgs := make([]string, len(e.errors))
	for i, err := range e.errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Positive validates that an integer is at least 1.
func (v *Validator) Positive(field string, value int) {
	if value < 1 {
		v.AddError(field, fmt.Sprintf("must be positive, got %d", value), value)
	}
}

// Range validates that an integer is within a specified range (inclusive)
func (v *Validator) Range(field string, value, minVal, maxVal int) {
	if value < minVal || value > maxVal {
		v.AddError(field,
			fmt.Sprintf("value must be between %d and %d, got %d", minVal, maxVal, value),
			value)
	}
}

// Ordered validates lo <= hi for a pair of bounds.
func (v *Validator) Ordered(field string, lo, hi int) {
	if lo > hi {
		v.AddError(field, fmt.Sprintf("lower bound %d exceeds upper bound %d", lo, hi), [2]int{lo, hi})
	}
}

// PositiveDuration validates d > 0.
func (v *Validator) PositiveDuration(field string, d time.Duration) {
	if d <= 0 {
		v.AddError(field, fmt.Sprintf("must be a positive duration, got %s", d), d)
	}
}

// NonNegativeDuration validates d >= 0.
func (v *Validator) NonNegativeDuration(field string, d time.Duration) {
	if d < 0 {
		v.AddError(field, fmt.Sprintf("must not be negative, got %s", d), d)
	}
}

// Fraction validates 0 <= f <= 1.
func (v *Validator) Fraction(field string, f float64) {
	if f < 0 || f > 1 {
		v.AddError(field, fmt.Sprintf("must be between 0 and 1, got %g", f), f)
	}
}

// OneOf validates that value is one of allowed.
func (v *Validator) OneOf(field, value string, allowed ...string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.AddError(field, fmt.Sprintf("must be one of %v, got %q", allowed, value), value)
}

// ListenAddr validates a host:port listen address. The host may be empty.
func (v *Validator) ListenAddr(field, addr string) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid listen address: %v", err), addr)
		return
	}
	if host != "" && host != "localhost" && net.ParseIP(host) == nil {
		v.AddError(field, "host must be empty, localhost or an IP", addr)
		return
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 0 || p > 65535 {
		v.AddError(field, "port must be between 0 and 65535", addr)
	}
}
