package dto

import (
	"net/http"

	"github.com/erp/bankrecon/internal/domain/shared"
)

// Error codes returned by the API.
// Format: ERR_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	ErrCodeValidation      = "ERR_VALIDATION"
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Domain error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeInvalidArguments    = "ERR_INVALID_ARGUMENTS"
	ErrCodeInvalidState        = "ERR_INVALID_STATE"
	ErrCodeNoPendingDebt       = "ERR_NO_PENDING_DEBT"
	ErrCodeAlreadyReconciled   = "ERR_ALREADY_RECONCILED"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeNotFound:         http.StatusNotFound,
	ErrCodeInvalidArguments: http.StatusBadRequest,

	// business rule violations -> 422
	ErrCodeInvalidState:  http.StatusUnprocessableEntity,
	ErrCodeNoPendingDebt: http.StatusUnprocessableEntity,

	ErrCodeAlreadyReconciled:   http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps shared.DomainError codes to API codes
var DomainErrorCodeMapping = map[string]string{
	shared.CodeNotFound:          ErrCodeNotFound,
	shared.CodeInvalidArguments:  ErrCodeInvalidArguments,
	shared.CodeInvalidState:      ErrCodeInvalidState,
	shared.CodeNoPendingDebt:     ErrCodeNoPendingDebt,
	shared.CodeAlreadyReconciled: ErrCodeAlreadyReconciled,
	shared.CodeConcurrency:       ErrCodeConcurrencyConflict,
}

// NormalizeErrorCode converts a domain error code to its API code.
// Codes that are already API codes are returned as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
