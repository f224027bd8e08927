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

// Is reports whether target carries the same code, so wrapped copies built
// with NewDomainError still match the shared sentinels.
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

// Common domain errors
var (
	ErrNotFound      = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput  = NewDomainError("INVALID_INPUT", "Invalid input provided")
)

// Reconciliation error codes
const (
	CodeInvalidDocumentType = "INVALID_DOCUMENT_TYPE"
	CodeInvalidQuantity     = "INVALID_QUANTITY"
	CodeInvalidPrice        = "INVALID_PRICE"
	CodeDuplicateDocument   = "DUPLICATE_DOCUMENT"
	CodeInvalidEntity       = "INVALID_ENTITY"
	CodeInvalidReason       = "INVALID_REASON"
	CodeNotAReceipt         = "NOT_A_RECEIPT"
	CodeEntityNotFound      = "ENTITY_NOT_FOUND"
	CodeDocumentNotFound    = "DOCUMENT_NOT_FOUND"
)
