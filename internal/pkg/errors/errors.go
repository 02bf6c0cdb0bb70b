// Package errors provides the structured error type returned across the
// HTTP boundary of PO Approvals.
//
// Domain packages return plain sentinel or typed errors; handlers translate
// them into an AppError carrying a stable code and HTTP status.
//
// Import Path: github.com/ppockey/po-approvals/internal/pkg/errors
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is an application error with a machine-readable code.
type AppError struct {
	// Code is stable across releases, e.g. "CHAIN_NOT_PENDING".
	Code string `json:"code"`

	Message string `json:"message"`

	HTTPStatus int `json:"-"`

	// Params carries structured context such as the current chain status.
	Params map[string]any `json:"params,omitempty"`

	Err error `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError.
func New(code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

// Wrap wraps err into an AppError.
func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus, Err: err}
}

// WithParam attaches one structured parameter and returns e.
func (e *AppError) WithParam(key string, value any) *AppError {
	if e == nil {
		return nil
	}
	if e.Params == nil {
		e.Params = make(map[string]any, 1)
	}
	e.Params[key] = value
	return e
}

func NotFound(code, message string) *AppError {
	return New(code, message, http.StatusNotFound)
}

func BadRequest(code, message string) *AppError {
	return New(code, message, http.StatusBadRequest)
}

func Conflict(code, message string) *AppError {
	return New(code, message, http.StatusConflict)
}

func Internal(code, message string) *AppError {
	return New(code, message, http.StatusInternalServerError)
}

// BadGateway is used when a downstream system of record rejected a write.
func BadGateway(code, message string) *AppError {
	return New(code, message, http.StatusBadGateway)
}

// IsAppError reports whether err wraps an AppError and returns it.
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
