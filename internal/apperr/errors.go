// Package apperr defines the error categories surfaced by the HTTP API.
// Services return errors wrapping one of the sentinels below; the HTTP layer
// maps them to status codes in a single place.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrAuth       = errors.New("unauthorized")
	ErrNotFound   = errors.New("not found")
	ErrUpstream   = errors.New("upstream error")
)

// Error carries a user-facing message and optional extra response fields.
type Error struct {
	Kind    error
	Message string
	Fields  map[string]any
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func Validation(msg string) error {
	return &Error{Kind: ErrValidation, Message: msg}
}

// ValidationWith is Validation with extra body fields, e.g. per-item details.
func ValidationWith(msg string, fields map[string]any) error {
	return &Error{Kind: ErrValidation, Message: msg, Fields: fields}
}

func NotFound(msg string) error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func NotFoundWith(msg string, fields map[string]any) error {
	return &Error{Kind: ErrNotFound, Message: msg, Fields: fields}
}

func Auth(msg string) error {
	return &Error{Kind: ErrAuth, Message: msg}
}

func Upstream(msg string) error {
	return &Error{Kind: ErrUpstream, Message: msg}
}

// RateLimitError reports a denied attempt and how long the caller must wait.
type RateLimitError struct {
	RetryAfter int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("Please try again in %d seconds", e.RetryAfter)
}
