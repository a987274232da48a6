package errors

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/investly/investly-backend/internal/app/service"
	"gorm.io/gorm"
)

// ErrorInfo is a parsed error ready to be rendered.
type ErrorInfo struct {
	Status    int    // HTTP status
	Code      string // error code (see codes.go)
	Message   string // safe, user facing message
	Retryable bool
}

// reasonCodes maps ledger reasons to response codes.
var reasonCodes = map[string]string{
	"not_found":              BusinessNotFound,
	"not_investable":         AuthzNotInvestable,
	"self_investment":        AuthzSelfInvestment,
	"forbidden":              AuthzForbidden,
	"invalid_amount":         ValidationInvalidAmount,
	"invalid_input":          ValidationInvalidInput,
	"fully_funded":           FundingFullyFunded,
	"funding_goal_exceeded":  FundingGoalExceeded,
	"code_exhausted":         PromoExhausted,
	"code_inactive":          PromoInactive,
	"code_expired":           PromoExpired,
	"promo_code_not_found":   PromoNotFound,
	"promo_code_exists":      PromoExists,
	"illegal_transition":     BusinessIllegalTransition,
	"documents_required":     BusinessDocumentsRequired,
	"listing_fee_unpaid":     BusinessListingFeeUnpaid,
	"listing_fee_paid":       BusinessListingFeePaid,
	"investment_not_found":   InvestmentNotFound,
	"investment_not_active":  InvestmentNotActive,
	"refund_not_allowed":     InvestmentRefundBlocked,
	"verification_not_found": BusinessVerificationMissing,
	"verification_reviewed":  BusinessVerificationDone,
	"ledger_inconsistent":    InternalLedgerMismatch,
}

var kindStatus = map[service.ErrorKind]int{
	service.KindValidation:       http.StatusBadRequest,
	service.KindAuthorization:    http.StatusForbidden,
	service.KindConflict:         http.StatusConflict,
	service.KindNotFound:         http.StatusNotFound,
	service.KindStoreUnavailable: http.StatusServiceUnavailable,
}

var kindCodes = map[service.ErrorKind]string{
	service.KindValidation:       ValidationInvalidInput,
	service.KindAuthorization:    AuthzForbidden,
	service.KindConflict:         ResourceConflict,
	service.KindNotFound:         ResourceNotFound,
	service.KindStoreUnavailable: InternalDatabaseError,
}

// ParseError converts an error into a status, code and message. Ledger errors
// carry their own classification; raw storage errors are recognised by their
// postgres text. Sensitive details never reach the message.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Status:  http.StatusInternalServerError,
			Code:    InternalServerError,
			Message: "an unexpected error occurred",
		}
	}

	var le *service.LedgerError
	if errors.As(err, &le) {
		return parseLedgerError(le)
	}

	errStr := err.Error()
	errStrLower := strings.ToLower(errStr)

	// 1. gorm sentinels
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Status:  http.StatusNotFound,
			Code:    ResourceNotFound,
			Message: getNotFoundMessage(context),
		}
	}

	// 2. postgres constraint violations

	// 2-1. unique (23505)
	if strings.Contains(errStrLower, "duplicate key") || strings.Contains(errStrLower, "unique constraint") {
		return parseDuplicateKeyError(errStr)
	}

	// 2-2. foreign key (23503)
	if strings.Contains(errStrLower, "foreign key constraint") {
		return ErrorInfo{
			Status:  http.StatusNotFound,
			Code:    ResourceNotFound,
			Message: "referenced record does not exist",
		}
	}

	// 2-3. not null (23502)
	if strings.Contains(errStrLower, "null value") && strings.Contains(errStrLower, "violates not-null constraint") {
		return ErrorInfo{
			Status:  http.StatusBadRequest,
			Code:    ValidationRequired,
			Message: "a required field is missing",
		}
	}

	// 2-4. check (23514)
	if strings.Contains(errStrLower, "check constraint") {
		return parseCheckConstraintError(errStr)
	}

	// 3. deadlines and connectivity
	if isStoreUnavailable(err, errStrLower) {
		return ErrorInfo{
			Status:    http.StatusServiceUnavailable,
			Code:      InternalStoreTimeout,
			Message:   "service is temporarily unavailable; retry the request",
			Retryable: true,
		}
	}

	// 4. default
	return ErrorInfo{
		Status:  http.StatusInternalServerError,
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(context),
	}
}

func parseLedgerError(le *service.LedgerError) ErrorInfo {
	status, ok := kindStatus[le.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	code, ok := reasonCodes[le.Reason]
	if !ok {
		code = kindCodes[le.Kind]
	}
	if code == "" {
		code = InternalServerError
	}
	if le.Kind == service.KindStoreUnavailable && le.Reason == "store_unavailable" {
		code = InternalDatabaseError
	}
	return ErrorInfo{
		Status:    status,
		Code:      code,
		Message:   le.Error(),
		Retryable: le.Retryable(),
	}
}

func isStoreUnavailable(err error, errLower string) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	return strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "connection reset") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "timeout")
}

func parseDuplicateKeyError(errStr string) ErrorInfo {
	errLower := strings.ToLower(errStr)

	if strings.Contains(errLower, "idx_promo_codes_code") {
		return ErrorInfo{Status: http.StatusConflict, Code: PromoExists, Message: "promo code already exists"}
	}
	if strings.Contains(errLower, "slug") {
		return ErrorInfo{Status: http.StatusConflict, Code: ResourceAlreadyExists, Message: "business identifier is already taken"}
	}
	if strings.Contains(errLower, "pkey") || strings.Contains(errLower, "primary key") {
		return ErrorInfo{Status: http.StatusConflict, Code: ResourceAlreadyExists, Message: "record already exists; retry the request"}
	}

	return ErrorInfo{Status: http.StatusConflict, Code: ResourceAlreadyExists, Message: "record already exists"}
}

func parseCheckConstraintError(errStr string) ErrorInfo {
	errLower := strings.ToLower(errStr)

	switch {
	case strings.Contains(errLower, "chk_businesses_amount_raised"):
		return ErrorInfo{Status: http.StatusConflict, Code: ResourceConflict, Message: "amount raised cannot become negative"}
	case strings.Contains(errLower, "chk_promo_codes_uses"):
		return ErrorInfo{Status: http.StatusConflict, Code: PromoExhausted, Message: "promo code usage is out of range"}
	case strings.Contains(errLower, "chk_investments_amount"):
		return ErrorInfo{Status: http.StatusBadRequest, Code: ValidationInvalidAmount, Message: "investment amount must be positive"}
	}

	return ErrorInfo{
		Status:  http.StatusBadRequest,
		Code:    ValidationInvalidInput,
		Message: "input is invalid",
	}
}

func getNotFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "business"):
		return "business not found"
	case strings.Contains(contextLower, "investment"):
		return "investment not found"
	case strings.Contains(contextLower, "promo"):
		return "promo code not found"
	case strings.Contains(contextLower, "verification"):
		return "verification not found"
	}
	return "requested record not found"
}

func getDefaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "create"):
		return "failed to create the record; try again later"
	case strings.Contains(contextLower, "update"):
		return "failed to update the record; try again later"
	case strings.Contains(contextLower, "export"):
		return "failed to build the export; try again later"
	}
	return "an unexpected error occurred; try again later"
}
