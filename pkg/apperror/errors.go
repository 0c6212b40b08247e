package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes that callers branch on.
const (
	CodeDuplicateRequest = "DUPLICATE_REQUEST"
	CodeVersionConflict  = "VERSION_CONFLICT"
	CodeGatewayDeclined  = "GATEWAY_DECLINED"
	CodeGatewayError     = "GATEWAY_ERROR"
	CodeInvalidState     = "INVALID_STATE"
	CodeEventNotFound    = "EVENT_NOT_FOUND"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Code extracts the error code from err, or "" if err is not an AppError.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether err carries the given error code.
func HasCode(err error, code string) bool {
	return Code(err) == code
}

// ---- Payment Orders ----

func ErrOrderNotFound() *AppError {
	return New("ORDER_NOT_FOUND", "Payment order not found", http.StatusNotFound)
}

// ErrInvalidState embeds the current status for diagnostics.
func ErrInvalidState(current string) *AppError {
	return New(CodeInvalidState, fmt.Sprintf("Operation not allowed from state %s", current), http.StatusConflict)
}

func ErrDuplicateRequest() *AppError {
	return New(CodeDuplicateRequest, "Duplicate request detected", http.StatusConflict)
}

func ErrAuthMissing() *AppError {
	return New("AUTH_MISSING", "Authorization transaction missing", http.StatusUnprocessableEntity)
}

func ErrCaptureMissing() *AppError {
	return New("CAPTURE_MISSING", "Capture transaction missing", http.StatusUnprocessableEntity)
}

func ErrInvalidAmount(message string) *AppError {
	return New("INVALID_AMOUNT", message, http.StatusBadRequest)
}

// ---- Gateway ----

func ErrGatewayDeclined(responseCode, responseMessage string) *AppError {
	return New(CodeGatewayDeclined,
		fmt.Sprintf("Gateway declined transaction (%s): %s", responseCode, responseMessage),
		http.StatusPaymentRequired)
}

func ErrGatewayError(err error) *AppError {
	return Wrap(CodeGatewayError, "Gateway call failed", http.StatusBadGateway, err)
}

// ---- Subscriptions ----

func ErrSubscriptionNotFound() *AppError {
	return New("SUBSCRIPTION_NOT_FOUND", "Subscription not found", http.StatusNotFound)
}

func ErrDuplicateSubscription(clientReference string) *AppError {
	return New("DUPLICATE_SUBSCRIPTION",
		fmt.Sprintf("Subscription already exists for reference %s", clientReference),
		http.StatusConflict)
}

// ---- Webhooks ----

func ErrEventNotFound() *AppError {
	return New(CodeEventNotFound, "Webhook event not found", http.StatusNotFound)
}

// ---- System & Infrastructure ----

// ErrVersionConflict signals a lost optimistic-lock race. Callers may
// re-read the aggregate and retry.
func ErrVersionConflict(entity string) *AppError {
	return New(CodeVersionConflict, fmt.Sprintf("%s was modified concurrently", entity), http.StatusConflict)
}

// InternalError wraps an internal error.
func InternalError(err error) *AppError {
	return Wrap("INTERNAL", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New("VALIDATION", message, http.StatusBadRequest)
}
