package erp

import (
	"errors"
	"fmt"

	"babettepos/internal/apperr"
)

var (
	// ErrEmptyResult is returned when a response carries neither result nor error.
	ErrEmptyResult = fmt.Errorf("no result returned from ERP: %w", apperr.ErrUpstream)
	// ErrInvalidCredentials is returned by Authenticate when the ERP answers false.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const unknownErrorMessage = "Unknown ERP error"

// RPCError is an error object returned inside a JSON-RPC response.
type RPCError struct {
	Code    int
	Message string
	Name    string
}

func (e *RPCError) Error() string { return e.Message }

func (e *RPCError) Unwrap() error { return apperr.ErrUpstream }

// HTTPError reports a non-2xx transport status.
type HTTPError struct {
	Status int
}

func (e *HTTPError) Error() string { return fmt.Sprintf("HTTP error! status: %d", e.Status) }

func (e *HTTPError) Unwrap() error { return apperr.ErrUpstream }

// TransportError wraps a failure to reach the ERP at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return e.Err.Error() }

func (e *TransportError) Unwrap() []error { return []error{e.Err, apperr.ErrUpstream} }

// ShapeError reports a result that does not match the expected schema.
type ShapeError struct {
	Model  string
	Method string
	Err    error
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("unexpected result shape from %s.%s: %v", e.Model, e.Method, e.Err)
}

func (e *ShapeError) Unwrap() []error { return []error{e.Err, apperr.ErrUpstream} }

// Message extracts the user-facing text of an ERP failure.
func Message(err error) string {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Message
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Error()
	}
	if errors.Is(err, ErrEmptyResult) {
		return "No result returned from ERP"
	}
	return err.Error()
}

func rpcErrorFrom(body *rpcErrorBody) *RPCError {
	out := &RPCError{Code: body.Code, Message: body.Message}
	if body.Data != nil {
		out.Name = body.Data.Name
		if body.Data.Message != "" {
			out.Message = body.Data.Message
		}
	}
	if out.Message == "" {
		out.Message = unknownErrorMessage
	}
	return out
}
