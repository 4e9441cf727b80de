package x402

import (
	"errors"
	"fmt"
)

// PaymentError is a classified payment fault. Code selects the caller's
// next action; Message is safe to show to a user; Details optionally
// carries the underlying fault text.
type PaymentError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is makes errors.Is match two PaymentErrors by code.
func (e *PaymentError) Is(target error) bool {
	var pe *PaymentError
	if errors.As(target, &pe) {
		return pe.Code == e.Code
	}
	return false
}

// Error codes for the full challenge/settle lifecycle.
const (
	ErrCodeMalformedProof         = "malformed-proof"
	ErrCodeUnknownResource        = "unknown-resource"
	ErrCodeFacilitatorUnreachable = "facilitator-unreachable"
	ErrCodeFacilitatorRejected    = "facilitator-rejected"
	ErrCodeSignerRejected         = "signer-rejected"
	ErrCodeInsufficientFunds      = "insufficient-funds"
	ErrCodeTransactionReverted    = "transaction-reverted"
	ErrCodeConfirmationTimeout    = "confirmation-timeout"
	ErrCodeManualVerifyFailed     = "manual-verification-failed"
)

// Sentinel instances for errors.Is classification. Construct richer
// variants with NewPaymentError; they still match these by code.
var (
	ErrMalformedProof         = &PaymentError{Code: ErrCodeMalformedProof, Message: "payment proof is malformed"}
	ErrUnknownResource        = &PaymentError{Code: ErrCodeUnknownResource, Message: "resource is not registered"}
	ErrFacilitatorUnreachable = &PaymentError{Code: ErrCodeFacilitatorUnreachable, Message: "facilitator could not be reached"}
	ErrFacilitatorRejected    = &PaymentError{Code: ErrCodeFacilitatorRejected, Message: "facilitator rejected the payment"}
	ErrSignerRejected         = &PaymentError{Code: ErrCodeSignerRejected, Message: "transaction was rejected in the wallet"}
	ErrInsufficientFunds      = &PaymentError{Code: ErrCodeInsufficientFunds, Message: "insufficient balance to pay"}
	ErrTransactionReverted    = &PaymentError{Code: ErrCodeTransactionReverted, Message: "transaction reverted on chain"}
	ErrConfirmationTimeout    = &PaymentError{Code: ErrCodeConfirmationTimeout, Message: "confirmation not observed in time"}
	ErrManualVerifyFailed     = &PaymentError{Code: ErrCodeManualVerifyFailed, Message: "manual verification could not complete"}
)

// NewPaymentError creates a payment error with the given code and attaches
// the underlying fault as detail without making it the primary message.
func NewPaymentError(code, message string, cause error) *PaymentError {
	e := &PaymentError{Code: code, Message: message}
	if cause != nil {
		e.Details = map[string]any{"cause": cause.Error()}
	}
	return e
}
