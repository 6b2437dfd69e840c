package domain

import (
	"errors"
	"fmt"
)

// APIError represents a standardized API error with HTTP status code
type APIError struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Title
}

// ValidationMessages provides human-readable validation error messages
// These map validator tags to user-friendly messages
var ValidationMessages = map[string]string{
	"required": "This field is required",
	"email":    "Must be a valid email address",
	"max":      "Exceeds maximum length",
	"min":      "Below minimum length",
	"gte":      "Must be greater than or equal to minimum value",
	"lte":      "Must be less than or equal to maximum value",
	"uuid":     "Must be a valid UUID",
	"oneof":    "Must be one of the allowed values",
	"alphanum": "Must contain only alphanumeric characters",
}

// GetValidationMessage returns a human-readable message for a validation tag
func GetValidationMessage(tag string) string {
	if msg, ok := ValidationMessages[tag]; ok {
		return msg
	}
	return "Validation failed: " + tag
}

// Common error types for RFC 7807 Problem Details
const (
	ErrorTypeValidation   = "validation_error"
	ErrorTypeNotFound     = "not_found"
	ErrorTypeBadRequest   = "bad_request"
	ErrorTypeConflict     = "conflict"
	ErrorTypeUnauthorized = "unauthorized"
	ErrorTypeForbidden    = "forbidden"
	ErrorTypeInternal     = "internal_error"
	ErrorTypeRateLimited  = "rate_limited"
)

// ErrorKind classifies why a request was refused
type ErrorKind string

const (
	KindNotFound   ErrorKind = "not_found"
	KindForbidden  ErrorKind = "forbidden"
	KindValidation ErrorKind = "validation_failed"
	KindConflict   ErrorKind = "conflict"
)

// RuleError is a refusal produced by the authorization and consistency rules.
// Field is set when the refusal concerns a single input field.
type RuleError struct {
	Kind   ErrorKind
	Field  string
	Reason string
}

func (e *RuleError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return e.Reason
}

// Is matches another RuleError of the same kind and reason, so sentinel
// values can be compared with errors.Is even after wrapping.
func (e *RuleError) Is(target error) bool {
	t, ok := target.(*RuleError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Reason == e.Reason && t.Field == e.Field
}

// NotFound reports an absent or invisible entity
func NotFound(reason string) *RuleError {
	return &RuleError{Kind: KindNotFound, Reason: reason}
}

// Forbidden reports an operation or field the principal may not use
func Forbidden(reason string) *RuleError {
	return &RuleError{Kind: KindForbidden, Reason: reason}
}

// ValidationFailed reports a business rule violation on a field
func ValidationFailed(field, reason string) *RuleError {
	return &RuleError{Kind: KindValidation, Field: field, Reason: reason}
}

// Conflict reports a uniqueness violation detected by storage
func Conflict(reason string) *RuleError {
	return &RuleError{Kind: KindConflict, Reason: reason}
}

// AsRuleError extracts a RuleError from an error chain
func AsRuleError(err error) (*RuleError, bool) {
	var re *RuleError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// KindOf returns the rule kind of err, or an empty kind for infrastructure errors
func KindOf(err error) ErrorKind {
	if re, ok := AsRuleError(err); ok {
		return re.Kind
	}
	return ""
}
