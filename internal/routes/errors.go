package routes

import (
	"errors"
	"net/http"

	"facility-access-control/internal/readers"
	"facility-access-control/internal/storage"
	"facility-access-control/internal/tap"
)

// HTTPError represents an error with an associated HTTP status code and user message
type HTTPError struct {
	Err        error  // The underlying error
	StatusCode int    // HTTP status code
	Message    string // User-friendly message
	Internal   bool   // Whether this is an internal error (hide details from user)
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewHTTPError creates a new HTTPError
func NewHTTPError(statusCode int, err error, message string) *HTTPError {
	return &HTTPError{
		Err:        err,
		StatusCode: statusCode,
		Message:    message,
		Internal:   statusCode >= 500,
	}
}

// Routes-specific errors (that don't conflict with the domain packages)
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrReaderNotApproved = errors.New("reader not approved")

	ErrInvalidRequest   = errors.New("invalid request")
	ErrMissingParameter = errors.New("missing required parameter")

	ErrInternalServer = errors.New("internal server error")
	ErrDatabaseError  = errors.New("database error")
)

// errorStatusMap maps errors to HTTP status codes
var errorStatusMap = map[error]int{
	// 400 Bad Request
	ErrInvalidRequest:   http.StatusBadRequest,
	ErrMissingParameter: http.StatusBadRequest,
	tap.ErrEmptyCardUID: http.StatusBadRequest,

	// 401 Unauthorized
	ErrUnauthorized:          http.StatusUnauthorized,
	readers.ErrInvalidToken:  http.StatusUnauthorized,
	readers.ErrNonValidToken: http.StatusUnauthorized,

	// 403 Forbidden
	ErrReaderNotApproved: http.StatusForbidden,

	// 404 Not Found
	storage.ErrNotFound: http.StatusNotFound,

	// 409 Conflict
	storage.ErrResourceUnavailable: http.StatusConflict,
	storage.ErrNoActiveLoan:        http.StatusConflict,
	storage.ErrCardInUse:           http.StatusConflict,

	// 500 Internal Server Error
	ErrInternalServer: http.StatusInternalServerError,
	ErrDatabaseError:  http.StatusInternalServerError,
}

// errorMessageMap maps errors to user-facing messages
var errorMessageMap = map[error]string{
	ErrUnauthorized:          "Authentication required",
	readers.ErrInvalidToken:  "Invalid reader token",
	readers.ErrNonValidToken: "Invalid or expired reader token",
	ErrReaderNotApproved:     "Reader has not been approved",

	tap.ErrEmptyCardUID: "Card UID is required",
	ErrInvalidRequest:   "Invalid request format",
	ErrMissingParameter: "Required parameter is missing",

	storage.ErrNotFound:            "Record not found",
	storage.ErrResourceUnavailable: "Resource is already loaned or under maintenance",
	storage.ErrNoActiveLoan:        "Resource has no active loan",
	storage.ErrCardInUse:           "Card is already bound to another entity",

	ErrInternalServer: "An internal error occurred",
	ErrDatabaseError:  "Database operation failed",
}

// GetErrorStatus returns the HTTP status code for an error
func GetErrorStatus(err error) int {
	// Check if it's already an HTTPError
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}

	// Check direct match
	if status, ok := errorStatusMap[err]; ok {
		return status
	}

	// Check if error wraps a known error
	for knownErr, status := range errorStatusMap {
		if errors.Is(err, knownErr) {
			return status
		}
	}

	// Default to 500 Internal Server Error
	return http.StatusInternalServerError
}

// GetErrorMessage returns a user-friendly message for an error
func GetErrorMessage(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Message
	}

	if msg, ok := errorMessageMap[err]; ok {
		return msg
	}

	for knownErr, msg := range errorMessageMap {
		if errors.Is(err, knownErr) {
			return msg
		}
	}

	// For unknown errors, return a generic message for 5xx, specific for others
	if GetErrorStatus(err) >= 500 {
		return "An internal error occurred"
	}
	return err.Error()
}
