package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same code, so that errors.Is works
// against the sentinels below even when the message was customised.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes
const (
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidArguments  = "INVALID_ARGUMENTS"
	CodeInvalidState      = "INVALID_STATE"
	CodeNoPendingDebt     = "NO_PENDING_DEBT"
	CodeAlreadyReconciled = "ALREADY_RECONCILED"
	CodeConcurrency       = "CONCURRENCY_CONFLICT"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidArguments    = NewDomainError(CodeInvalidArguments, "Invalid arguments")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrNoPendingDebt       = NewDomainError(CodeNoPendingDebt, "No pending debt to apply the movement to")
	ErrAlreadyReconciled   = NewDomainError(CodeAlreadyReconciled, "Movement is already reconciled")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrency, "Resource was modified by another process")
)
