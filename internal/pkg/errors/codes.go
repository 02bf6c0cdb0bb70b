package errors

import "net/http"

// Approval chain error codes.
const (
	CodeChainNotFound    = "CHAIN_NOT_FOUND"
	CodeChainNotPending  = "CHAIN_NOT_PENDING"
	CodeStageNotFound    = "STAGE_NOT_FOUND"
	CodeStageNotPending  = "STAGE_NOT_PENDING"
	CodeStageNotCurrent  = "STAGE_NOT_CURRENT"
	CodeHeaderNotFound   = "PO_HEADER_NOT_FOUND"
	CodeInvalidDecision  = "INVALID_DECISION_CODE"
	CodeValidationFailed = "VALIDATION_FAILED"
)

// Legacy (PRMS) error codes.
const (
	CodeLegacyWriteFailed = "LEGACY_WRITE_FAILED"
	CodeLegacyDisabled    = "LEGACY_DISABLED"
)

// Generic codes.
const (
	CodeInternal        = "INTERNAL_ERROR"
	CodeServiceUnavail  = "SERVICE_UNAVAILABLE"
	CodeTransientFailed = "TRANSIENT_TX_FAILED"
)

// ErrChainNotPending creates the 409 returned when a decision targets a chain
// that is already finalized.
func ErrChainNotPending(poNumber, current string) *AppError {
	return (&AppError{
		Code:       CodeChainNotPending,
		Message:    "approval chain is not pending",
		HTTPStatus: http.StatusConflict,
	}).WithParam("po_number", poNumber).WithParam("current", current)
}

// ErrValidation creates a 400 for a missing or malformed request field.
func ErrValidation(field, message string) *AppError {
	return (&AppError{
		Code:       CodeValidationFailed,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}).WithParam("field", field)
}
