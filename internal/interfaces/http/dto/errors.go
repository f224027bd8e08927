package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeUnavailable is used when a dependency is not configured or down
	ErrCodeUnavailable = "ERR_UNAVAILABLE"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	// ErrCodeValidationRange is used when a value is out of range
	ErrCodeValidationRange = "ERR_VALIDATION_RANGE"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeTokenExpired is used when the auth token has expired
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	// ErrCodeTokenInvalid is used when the auth token is invalid
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
	// ErrCodeForbidden is used when a valid token lacks the route's scope
	ErrCodeForbidden = "ERR_FORBIDDEN"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeBatchRunning is used when another batch run holds the lock
	ErrCodeBatchRunning = "ERR_BATCH_RUNNING"
)

// Reconciliation error codes
const (
	// ErrCodeEntityNotFound is used when the referenced entity does not exist
	ErrCodeEntityNotFound = "ERR_ENTITY_NOT_FOUND"
	// ErrCodeDocumentNotFound is used when the referenced document does not exist
	ErrCodeDocumentNotFound = "ERR_DOCUMENT_NOT_FOUND"
	// ErrCodeDuplicateDocument is used when a document id was already recorded
	ErrCodeDuplicateDocument = "ERR_DUPLICATE_DOCUMENT"
	// ErrCodeInvalidDocumentType is used for an unknown or misplaced document type
	ErrCodeInvalidDocumentType = "ERR_INVALID_DOCUMENT_TYPE"
	// ErrCodeNotAReceipt is used when an allocation names an invoice type
	ErrCodeNotAReceipt = "ERR_NOT_A_RECEIPT"
	// ErrCodeInvalidQuantity is used for non-positive quantities
	ErrCodeInvalidQuantity = "ERR_INVALID_QUANTITY"
	// ErrCodeInvalidPrice is used for negative or zero prices
	ErrCodeInvalidPrice = "ERR_INVALID_PRICE"
	// ErrCodeInvalidEntity is used for an empty or malformed entity
	ErrCodeInvalidEntity = "ERR_INVALID_ENTITY"
	// ErrCodeInvalidReason is used when a merit change carries no reason
	ErrCodeInvalidReason = "ERR_INVALID_REASON"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodePayloadTooLarge is used when the body exceeds the configured limit
	ErrCodePayloadTooLarge = "ERR_PAYLOAD_TOO_LARGE"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:     http.StatusInternalServerError,
	ErrCodeInternal:    http.StatusInternalServerError,
	ErrCodeUnavailable: http.StatusServiceUnavailable,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,

	// Resource errors
	ErrCodeNotFound:          http.StatusNotFound,
	ErrCodeEntityNotFound:    http.StatusNotFound,
	ErrCodeDocumentNotFound:  http.StatusNotFound,
	ErrCodeAlreadyExists:     http.StatusConflict,
	ErrCodeConflict:          http.StatusConflict,
	ErrCodeDuplicateDocument: http.StatusConflict,
	ErrCodeBatchRunning:      http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:        http.StatusUnprocessableEntity,
	ErrCodeNotAReceipt:         http.StatusUnprocessableEntity,
	ErrCodeInvalidDocumentType: http.StatusUnprocessableEntity,
	ErrCodeInvalidQuantity:     http.StatusUnprocessableEntity,
	ErrCodeInvalidPrice:        http.StatusUnprocessableEntity,
	ErrCodeInvalidEntity:       http.StatusUnprocessableEntity,
	ErrCodeInvalidReason:       http.StatusUnprocessableEntity,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	ErrCodePayloadTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":             ErrCodeNotFound,
	"ALREADY_EXISTS":        ErrCodeAlreadyExists,
	"INVALID_INPUT":         ErrCodeInvalidInput,
	"INVALID_STATE":         ErrCodeInvalidState,
	"ENTITY_NOT_FOUND":      ErrCodeEntityNotFound,
	"DOCUMENT_NOT_FOUND":    ErrCodeDocumentNotFound,
	"DUPLICATE_DOCUMENT":    ErrCodeDuplicateDocument,
	"INVALID_DOCUMENT_TYPE": ErrCodeInvalidDocumentType,
	"NOT_A_RECEIPT":         ErrCodeNotAReceipt,
	"INVALID_QUANTITY":      ErrCodeInvalidQuantity,
	"INVALID_PRICE":         ErrCodeInvalidPrice,
	"INVALID_ENTITY":        ErrCodeInvalidEntity,
	"INVALID_REASON":        ErrCodeInvalidReason,
	"BATCH_IN_PROGRESS":     ErrCodeBatchRunning,
}

// NormalizeErrorCode converts a domain error code to the API format
// If the code is already in the API format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
