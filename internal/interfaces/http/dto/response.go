// Package dto defines the HTTP response envelope for the serving API.
package dto

import (
	"errors"
	"net/http"

	"github.com/phc/analytics-backend/internal/domain/shared"
)

// Error codes returned by the serving API.
const (
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeInternal   = "INTERNAL_ERROR"
)

// Response is the standard envelope for every API response.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo carries error details in the response envelope.
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// NewSuccessResponse wraps data in a success envelope.
func NewSuccessResponse(data any) Response {
	return Response{Success: true, Data: data}
}

// NewErrorResponse builds an error envelope.
func NewErrorResponse(code, message, requestID string) Response {
	return Response{
		Success: false,
		Error:   &ErrorInfo{Code: code, Message: message, RequestID: requestID},
	}
}

// statusByDomainCode maps domain error codes to HTTP status codes.
var statusByDomainCode = map[string]int{
	"NOT_FOUND":             http.StatusNotFound,
	"ALREADY_EXISTS":        http.StatusConflict,
	"INVALID_INPUT":         http.StatusBadRequest,
	"DATA_VALIDATION":       http.StatusUnprocessableEntity,
	"REFERENTIAL_VIOLATION": http.StatusUnprocessableEntity,
	"UPSTREAM_UNAVAILABLE":  http.StatusBadGateway,
}

// StatusForError derives the HTTP status and error code for a domain error.
// Unknown errors map to a 500.
func StatusForError(err error) (int, string) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		if status, ok := statusByDomainCode[domainErr.Code]; ok {
			return status, domainErr.Code
		}
	}
	return http.StatusInternalServerError, ErrCodeInternal
}
