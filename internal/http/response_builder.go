// Package http provides the REST transport of the expense API.
//
// This file implements the Builder Pattern for constructing JSON envelope
// responses: {success, data, message, error, pagination}.

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"expensetracker/internal/core"
)

// Envelope is the body of every /api response.
type Envelope struct {
	Success    bool            `json:"success"`
	Data       any             `json:"data,omitempty"`
	Message    string          `json:"message,omitempty"`
	Error      string          `json:"error,omitempty"`
	Pagination *paginationJSON `json:"pagination,omitempty"`
}

// ResponseBuilder provides a fluent API for building envelope responses.
type ResponseBuilder struct {
	statusCode int
	envelope   Envelope
	headers    map[string]string
}

// NewResponse creates a successful response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		envelope:   Envelope{Success: true},
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Data sets the payload.
func (b *ResponseBuilder) Data(data any) *ResponseBuilder {
	b.envelope.Data = data
	return b
}

// Message sets the human readable message.
func (b *ResponseBuilder) Message(message string) *ResponseBuilder {
	b.envelope.Message = message
	return b
}

// Error attaches diagnostic detail and marks the response as failed.
func (b *ResponseBuilder) Error(detail string) *ResponseBuilder {
	b.envelope.Success = false
	b.envelope.Error = detail
	return b
}

// Pagination attaches the pagination block of a list response.
func (b *ResponseBuilder) Pagination(p core.Pagination) *ResponseBuilder {
	b.envelope.Pagination = &paginationJSON{
		Page:  p.Page,
		Limit: p.Limit,
		Total: p.Total,
		Pages: p.Pages,
	}
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	writeJSON(w, b.statusCode, b.envelope, b.headers)
}

func writeJSON(w http.ResponseWriter, status int, body any, headers map[string]string) {
	for name, value := range headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

// ErrorResponse creates a failed response carrying a message.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	b := NewResponse().Status(statusCode).Message(message)
	b.envelope.Success = false
	return b
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// InternalServerError creates a 500 response with a generic message and the
// diagnostic detail.
func InternalServerError(message, detail string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message).Error(detail)
}

// MethodNotAllowedError creates a 405 Method Not Allowed error response.
func MethodNotAllowedError() *ResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed")
}

// TooManyRequestsError creates a 429 response.
func TooManyRequestsError() *ResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}
