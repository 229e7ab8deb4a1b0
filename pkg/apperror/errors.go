package apperror

import (
	"errors"
	"fmt"
	"net/http"
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

// ---- Ledger Preconditions & Authorization (LED) ----

// ErrInvalidRecipient rejects the null principal as a transfer or mint target.
func ErrInvalidRecipient() *AppError {
	return New("LED_001", "Recipient is the zero principal", http.StatusBadRequest)
}

// ErrNonPositiveAmount rejects amounts that are not strictly positive.
func ErrNonPositiveAmount() *AppError {
	return New("LED_002", "Amount must be positive", http.StatusBadRequest)
}

// ErrInsufficientBalance rejects a transfer or burn exceeding the caller's balance.
func ErrInsufficientBalance() *AppError {
	return New("LED_003", "Insufficient balance", http.StatusPaymentRequired)
}

// ErrNotOwner rejects an owner-restricted operation by a non-owner caller.
func ErrNotOwner() *AppError {
	return New("LED_004", "Only the owner can perform this operation", http.StatusForbidden)
}

// ErrNotInitialized rejects mutations before the ledger's one-time init.
func ErrNotInitialized() *AppError {
	return New("LED_005", "Ledger is not initialized", http.StatusConflict)
}

// ErrAlreadyInitialized rejects a repeated init.
func ErrAlreadyInitialized() *AppError {
	return New("LED_006", "Ledger is already initialized", http.StatusConflict)
}

// ErrSupplyUnderflow flags arithmetic that would drive the total supply
// negative. It indicates a broken conservation invariant, never a user error.
func ErrSupplyUnderflow() *AppError {
	return New("LED_007", "Total supply underflow", http.StatusInternalServerError)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- System & Infrastructure (SYS) ----

// ErrStorage wraps a persistence failure.
func ErrStorage(err error) *AppError {
	return Wrap("SYS_001", "Internal storage error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_002 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_002", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request-validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

// Code extracts the AppError code from err, or "" when err is not an AppError.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
