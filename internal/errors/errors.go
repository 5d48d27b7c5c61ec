package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application
var (
	ErrNotFound         = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists    = new(ErrCodeAlreadyExists, "resource already exists")
	ErrValidation       = new(ErrCodeValidation, "validation error")
	ErrInvalidState     = new(ErrCodeInvalidState, "invalid lifecycle state")
	ErrGateway          = new(ErrCodeGateway, "payment gateway error")
	ErrSignatureInvalid = new(ErrCodeSignatureInvalid, "webhook signature invalid")
	ErrUnsupportedEvent = new(ErrCodeUnsupportedEvent, "unsupported webhook event")
	ErrFraudDeclined    = new(ErrCodeFraudDeclined, "transaction declined by fraud screening")
	ErrNotRefundable    = new(ErrCodeNotRefundable, "payment not refundable")
	ErrUnknownGateway   = new(ErrCodeUnknownGateway, "unknown payment gateway")
	ErrPermissionDenied = new(ErrCodePermissionDenied, "permission denied")
	ErrHTTPClient       = new(ErrCodeHTTPClient, "http client error")
	ErrDatabase         = new(ErrCodeDatabase, "database error")
	ErrInternal         = new(ErrCodeInternal, "internal error")
	ErrSystem           = new(ErrCodeSystemError, "system error")

	// maps errors to http status codes
	statusCodeMap = map[error]int{
		ErrHTTPClient:       http.StatusInternalServerError,
		ErrDatabase:         http.StatusInternalServerError,
		ErrNotFound:         http.StatusNotFound,
		ErrAlreadyExists:    http.StatusConflict,
		ErrValidation:       http.StatusBadRequest,
		ErrInvalidState:     http.StatusBadRequest,
		ErrGateway:          http.StatusBadGateway,
		ErrSignatureInvalid: http.StatusBadRequest,
		ErrUnsupportedEvent: http.StatusBadRequest,
		ErrFraudDeclined:    http.StatusBadRequest,
		ErrNotRefundable:    http.StatusBadRequest,
		ErrUnknownGateway:   http.StatusBadRequest,
		ErrPermissionDenied: http.StatusForbidden,
		ErrInternal:         http.StatusInternalServerError,
		ErrSystem:           http.StatusInternalServerError,
	}
)

const (
	ErrCodeHTTPClient       = "http_client_error"
	ErrCodeSystemError      = "system_error"
	ErrCodeInternal         = "internal_error"
	ErrCodeNotFound         = "not_found"
	ErrCodeAlreadyExists    = "already_exists"
	ErrCodeValidation       = "validation_error"
	ErrCodeInvalidState     = "invalid_state"
	ErrCodeGateway          = "gateway_error"
	ErrCodeSignatureInvalid = "signature_invalid"
	ErrCodeUnsupportedEvent = "unsupported_event"
	ErrCodeFraudDeclined    = "fraud_declined"
	ErrCodeNotRefundable    = "not_refundable"
	ErrCodeUnknownGateway   = "unknown_gateway"
	ErrCodePermissionDenied = "permission_denied"
	ErrCodeDatabase         = "database_error"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Op      string // Logical operation name
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

// new creates a new InternalError
func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidState checks if an error is an invalid lifecycle state error
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsGateway checks if an error is a payment gateway error
func IsGateway(err error) bool {
	return errors.Is(err, ErrGateway)
}

// IsSignatureInvalid checks if an error is a webhook signature error
func IsSignatureInvalid(err error) bool {
	return errors.Is(err, ErrSignatureInvalid)
}

// IsUnsupportedEvent checks if an error is an unmapped webhook event error
func IsUnsupportedEvent(err error) bool {
	return errors.Is(err, ErrUnsupportedEvent)
}

// IsFraudDeclined checks if an error is a fraud screening decline
func IsFraudDeclined(err error) bool {
	return errors.Is(err, ErrFraudDeclined)
}

// IsNotRefundable checks if an error is a not refundable error
func IsNotRefundable(err error) bool {
	return errors.Is(err, ErrNotRefundable)
}

func HTTPStatusFromErr(err error) int {
	for e, status := range statusCodeMap {
		if errors.Is(err, e) {
			return status
		}
	}
	return http.StatusInternalServerError
}
