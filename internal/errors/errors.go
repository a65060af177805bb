package errors

import (
	"encoding/json"
	"net/http"
)

// AppError represents an application error with HTTP context.
// It serializes flat as {error, detail?, retryAfter?}.
type AppError struct {
	Code       string `json:"-"`
	Message    string `json:"error"`
	Detail     string `json:"detail,omitempty"`
	RetryAfter int64  `json:"retryAfter,omitempty"`
	StatusCode int    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}

// WriteJSON writes the error as JSON response
func (e *AppError) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	json.NewEncoder(w).Encode(e)
}

// ============================================================
// ERROR CONSTRUCTORS
// ============================================================

// Validation Errors (400)
func BadRequest(message string) *AppError {
	return &AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func InvalidJSON(details string) *AppError {
	return &AppError{
		Code:       "INVALID_JSON",
		Message:    "Invalid JSON body",
		Detail:     details,
		StatusCode: http.StatusBadRequest,
	}
}

func PromptRequired() *AppError {
	return &AppError{
		Code:       "PROMPT_REQUIRED",
		Message:    "Prompt required",
		StatusCode: http.StatusBadRequest,
	}
}

func PromptTooLong() *AppError {
	return &AppError{
		Code:       "PROMPT_TOO_LONG",
		Message:    "Prompt too long",
		StatusCode: http.StatusBadRequest,
	}
}

// Forbidden (403)
func Forbidden() *AppError {
	return &AppError{
		Code:       "FORBIDDEN",
		Message:    "Forbidden",
		StatusCode: http.StatusForbidden,
	}
}

// Not Found Errors (404)
func NotFound() *AppError {
	return &AppError{
		Code:       "NOT_FOUND",
		Message:    "Not found",
		StatusCode: http.StatusNotFound,
	}
}

// Rate Limit Error (429)
func RateLimitExceeded(retryAfter int64) *AppError {
	return &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Rate limit exceeded. Please wait before making more requests.",
		RetryAfter: retryAfter,
		StatusCode: http.StatusTooManyRequests,
	}
}

// Upstream Errors (502)
func Upstream(userMessage, detail string) *AppError {
	return &AppError{
		Code:       "UPSTREAM_ERROR",
		Message:    userMessage,
		Detail:     detail,
		StatusCode: http.StatusBadGateway,
	}
}

func EmptyGeneration() *AppError {
	return &AppError{
		Code:       "EMPTY_GENERATION",
		Message:    "Empty response from AI. Please try again.",
		StatusCode: http.StatusBadGateway,
	}
}

// SurpriseFailed carries no upstream detail; the cause is only logged
func SurpriseFailed() *AppError {
	return &AppError{
		Code:       "SURPRISE_FAILED",
		Message:    "Could not generate idea. Try again!",
		StatusCode: http.StatusBadGateway,
	}
}

// Server Errors (500)
func Internal(details string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "Internal server error",
		Detail:     details,
		StatusCode: http.StatusInternalServerError,
	}
}
