package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/investly/investly-backend/internal/app/service"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestParseError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		context    string
		wantStatus int
		wantCode   string
		retryable  bool
	}{
		{"Nil error", nil, "", http.StatusInternalServerError, InternalServerError, false},
		{"Funding goal exceeded", service.ErrFundingGoalExceeded, "invest", http.StatusConflict, FundingGoalExceeded, false},
		{"Wrapped exhausted code", fmt.Errorf("redeem: %w", service.ErrCodeExhausted), "redeem", http.StatusConflict, PromoExhausted, false},
		{"Self investment", service.ErrSelfInvestment, "invest", http.StatusForbidden, AuthzSelfInvestment, false},
		{"Validation with custom message", service.ErrInvalidInput.WithMessage("name is required"), "create business", http.StatusBadRequest, ValidationInvalidInput, false},
		{"Business not found", service.ErrBusinessNotFound, "get business", http.StatusNotFound, BusinessNotFound, false},
		{"Kind only sentinel", service.ErrConflict, "", http.StatusConflict, ResourceConflict, false},
		{"Store unavailable", service.ErrStoreUnavailable, "invest", http.StatusServiceUnavailable, InternalDatabaseError, true},
		{"Record not found", gorm.ErrRecordNotFound, "get business", http.StatusNotFound, ResourceNotFound, false},
		{"Duplicate promo", fmt.Errorf(`ERROR: duplicate key value violates unique constraint "idx_promo_codes_code" (SQLSTATE 23505)`), "create promo", http.StatusConflict, PromoExists, false},
		{"Check constraint", fmt.Errorf(`ERROR: new row violates check constraint "chk_investments_amount"`), "invest", http.StatusBadRequest, ValidationInvalidAmount, false},
		{"Deadline", context.DeadlineExceeded, "invest", http.StatusServiceUnavailable, InternalStoreTimeout, true},
		{"Unknown", fmt.Errorf("boom"), "create business", http.StatusInternalServerError, InternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParseError(tt.err, tt.context)
			assert.Equal(t, tt.wantStatus, info.Status)
			assert.Equal(t, tt.wantCode, info.Code)
			assert.Equal(t, tt.retryable, info.Retryable)
			assert.NotEmpty(t, info.Message)
		})
	}
}

func TestParseError_KeepsLedgerMessage(t *testing.T) {
	err := service.ErrFundingGoalExceeded.WithMessage("at most 400.00 remains")
	info := ParseError(err, "invest")
	assert.Equal(t, "at most 400.00 remains", info.Message)
}

func TestParseError_HidesStorageDetails(t *testing.T) {
	info := ParseError(fmt.Errorf("dial tcp 10.1.2.3:5432: connection refused"), "invest")
	assert.Equal(t, http.StatusServiceUnavailable, info.Status)
	assert.NotContains(t, info.Message, "10.1.2.3")
}
