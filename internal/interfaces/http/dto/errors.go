package dto

import (
	"net/http"

	"github.com/go-playground/validator/v10"
)

// Wire-level error codes for conditions raised by the HTTP layer itself.
// Domain error codes pass through unchanged.
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeRateLimited  = "RATE_LIMITED"
)

// errorCodeHTTPStatus maps domain error codes to HTTP status codes.
// Unlisted codes fall back to 500 so a new domain error is loud rather
// than silently mislabeled.
var errorCodeHTTPStatus = map[string]int{
	// Input and validation problems
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeValidation:      http.StatusBadRequest,
	"INVALID_INPUT":        http.StatusBadRequest,
	"INVALID_AMOUNT":       http.StatusBadRequest,
	"INVALID_WINDOW":       http.StatusBadRequest,
	"INVALID_ORIGIN":       http.StatusBadRequest,
	"INVALID_DATE":         http.StatusBadRequest,
	"INVALID_UNIT":         http.StatusBadRequest,
	"INVALID_UNIT_NAME":    http.StatusBadRequest,
	"INVALID_TARGET":       http.StatusBadRequest,
	"INVALID_USER":         http.StatusBadRequest,
	"INVALID_USERNAME":     http.StatusBadRequest,
	"INVALID_ROLES":        http.StatusBadRequest,
	"INVALID_TENANT_NAME":  http.StatusBadRequest,
	"INVALID_SUBSCRIPTION": http.StatusBadRequest,
	"WEAK_PASSWORD":        http.StatusBadRequest,

	// Authentication
	ErrCodeUnauthorized:   http.StatusUnauthorized,
	"INVALID_CREDENTIALS": http.StatusUnauthorized,
	"INVALID_TOKEN":       http.StatusUnauthorized,

	// Authorization and isolation
	ErrCodeForbidden:      http.StatusForbidden,
	"TENANT_MISMATCH":     http.StatusForbidden,
	"ACCOUNT_DEACTIVATED": http.StatusForbidden,
	"INVALID_SCOPE":       http.StatusForbidden,

	// Missing resources
	ErrCodeNotFound: http.StatusNotFound,

	// Conflicts with current persisted state
	"ALREADY_EXISTS":       http.StatusConflict,
	"ALREADY_OPEN":         http.StatusConflict,
	"ALREADY_DEACTIVATED":  http.StatusConflict,
	"OVERLAP_CONFLICT":     http.StatusConflict,
	"CONCURRENCY_CONFLICT": http.StatusConflict,
	"INTEGRITY_VIOLATION":  http.StatusConflict,

	// Transitions the state machine forbids
	"STATE_CONFLICT":          http.StatusUnprocessableEntity,
	"NOTHING_TO_CLOSE":        http.StatusUnprocessableEntity,
	"CANNOT_REOPEN_CANCELLED": http.StatusUnprocessableEntity,
	"UNIT_INACTIVE":           http.StatusUnprocessableEntity,

	// Rate limiting
	ErrCodeRateLimited: http.StatusTooManyRequests,

	ErrCodeInternal: http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status for a domain error code
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// BindingErrorDetails converts validator errors from gin binding into
// per-field details. Non-validator errors produce an empty slice.
func BindingErrorDetails(err error) []ValidationDetail {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	details := make([]ValidationDetail, 0, len(validationErrs))
	for _, fe := range validationErrs {
		details = append(details, ValidationDetail{
			Field:   fe.Field(),
			Message: bindingMessage(fe),
		})
	}
	return details
}

func bindingMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "uuid":
		return "Must be a valid UUID"
	case "min":
		return "Value is below the allowed minimum"
	case "max":
		return "Value is above the allowed maximum"
	case "oneof":
		return "Value is not one of the allowed options"
	default:
		return "Invalid value"
	}
}
