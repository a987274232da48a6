package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrorKind classifies every error leaving the ledger engine.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation_error"
	KindAuthorization    ErrorKind = "authorization_denied"
	KindConflict         ErrorKind = "concurrency_conflict"
	KindNotFound         ErrorKind = "not_found"
	KindStoreUnavailable ErrorKind = "store_unavailable"
)

// LedgerError carries a kind, a machine reason and a human-safe message.
// The underlying cause is kept for logs only and never rendered.
type LedgerError struct {
	Kind    ErrorKind
	Reason  string
	Message string
	cause   error
}

func (e *LedgerError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *LedgerError) Unwrap() error {
	return e.cause
}

// Is matches on kind and reason so sentinels work with errors.Is even when a
// copy with a different message or cause is returned.
func (e *LedgerError) Is(target error) bool {
	t, ok := target.(*LedgerError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// Retryable reports whether the identical request may simply be sent again.
func (e *LedgerError) Retryable() bool {
	return e.Kind == KindStoreUnavailable
}

// WithMessage returns a copy carrying a more specific message.
func (e *LedgerError) WithMessage(format string, args ...interface{}) *LedgerError {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

func newLedgerError(kind ErrorKind, reason, message string) *LedgerError {
	return &LedgerError{Kind: kind, Reason: reason, Message: message}
}

var (
	// Kind-only sentinels, for errors.Is(err, ErrValidation) style checks.
	ErrValidation       = &LedgerError{Kind: KindValidation}
	ErrAuthorization    = &LedgerError{Kind: KindAuthorization}
	ErrConflict         = &LedgerError{Kind: KindConflict}
	ErrNotFound         = &LedgerError{Kind: KindNotFound}
	ErrStoreUnavailable = &LedgerError{Kind: KindStoreUnavailable}

	// Guard denials.
	ErrBusinessNotFound = newLedgerError(KindNotFound, "not_found", "business not found")
	ErrNotInvestable    = newLedgerError(KindAuthorization, "not_investable", "business is not accepting investments")
	ErrSelfInvestment   = newLedgerError(KindAuthorization, "self_investment", "owners cannot invest in their own business")
	ErrInvalidAmount    = newLedgerError(KindValidation, "invalid_amount", "investment amount is out of range")
	ErrFullyFunded      = newLedgerError(KindConflict, "fully_funded", "business has already reached its funding goal")

	ErrFundingGoalExceeded = newLedgerError(KindConflict, "funding_goal_exceeded", "investment would exceed the funding goal; try a smaller amount")
	ErrCodeExhausted       = newLedgerError(KindConflict, "code_exhausted", "this promo code has no redemptions left")
	ErrCodeInactive        = newLedgerError(KindValidation, "code_inactive", "promo code is not active")
	ErrCodeExpired         = newLedgerError(KindValidation, "code_expired", "promo code is outside its validity window")
	ErrPromoCodeNotFound   = newLedgerError(KindNotFound, "promo_code_not_found", "promo code not found")
	ErrPromoCodeExists     = newLedgerError(KindConflict, "promo_code_exists", "promo code already exists")

	ErrIllegalTransition     = newLedgerError(KindValidation, "illegal_transition", "transition is not allowed from the current state")
	ErrDocumentsRequired     = newLedgerError(KindValidation, "documents_required", "verification documents must be attached before submission")
	ErrListingFeeUnpaid      = newLedgerError(KindValidation, "listing_fee_unpaid", "listing fee must be paid before activation")
	ErrListingFeeAlreadyPaid = newLedgerError(KindConflict, "listing_fee_paid", "listing fee has already been paid")

	ErrInvestmentNotFound   = newLedgerError(KindNotFound, "investment_not_found", "investment not found")
	ErrInvestmentNotActive  = newLedgerError(KindConflict, "investment_not_active", "investment is not active")
	ErrRefundNotAllowed     = newLedgerError(KindValidation, "refund_not_allowed", "investments in a funded business cannot be refunded")
	ErrVerificationNotFound = newLedgerError(KindNotFound, "verification_not_found", "no verification submission found")
	ErrVerificationReviewed = newLedgerError(KindConflict, "verification_reviewed", "verification has already been reviewed")
	ErrForbidden            = newLedgerError(KindAuthorization, "forbidden", "actor is not allowed to perform this action")
	ErrInvalidInput         = newLedgerError(KindValidation, "invalid_input", "invalid input")
)

// storeError converts anything the store returned into the taxonomy. Ledger
// errors pass through; record-not-found becomes notFound; everything else,
// including timeouts and cancellation, is store_unavailable.
func storeError(err error, notFound *LedgerError) error {
	if err == nil {
		return nil
	}
	var le *LedgerError
	if errors.As(err, &le) {
		return le
	}
	if notFound != nil && errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	msg := "storage is temporarily unavailable; retry the operation"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "operation timed out; retry the operation"
	} else if errors.Is(err, context.Canceled) {
		msg = "operation was cancelled"
	}
	return &LedgerError{Kind: KindStoreUnavailable, Reason: "store_unavailable", Message: msg, cause: err}
}

// validationError builds a validation error for a specific field problem.
func validationError(format string, args ...interface{}) *LedgerError {
	return ErrInvalidInput.WithMessage(format, args...)
}
