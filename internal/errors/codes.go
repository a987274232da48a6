package errors

// Error codes returned in the "error" field of every error response.
// Format: CATEGORY_SPECIFIC_DETAIL. Clients map messages from these codes.

const (
	// ==================== Authentication (AUTH_) ====================
	AuthUnauthorized = "AUTH_UNAUTHORIZED"  // login required
	AuthTokenExpired = "AUTH_TOKEN_EXPIRED" // token expired
	AuthTokenInvalid = "AUTH_TOKEN_INVALID" // malformed or unsigned token

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden      = "AUTHZ_FORBIDDEN"       // not allowed
	AuthzAdminOnly      = "AUTHZ_ADMIN_ONLY"      // administrators only
	AuthzOwnerOnly      = "AUTHZ_OWNER_ONLY"      // business owner only
	AuthzSelfInvestment = "AUTHZ_SELF_INVESTMENT" // owner investing in own business
	AuthzNotInvestable  = "AUTHZ_NOT_INVESTABLE"  // business not accepting investments

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID     = "VALIDATION_INVALID_ID"
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT"
	ValidationInvalidRange  = "VALIDATION_INVALID_RANGE"
	ValidationInvalidAmount = "VALIDATION_INVALID_AMOUNT"
	ValidationRequired      = "VALIDATION_REQUIRED"

	// ==================== Resources (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== Businesses (BUSINESS_) ====================
	BusinessNotFound            = "BUSINESS_NOT_FOUND"
	BusinessIllegalTransition   = "BUSINESS_ILLEGAL_TRANSITION"
	BusinessDocumentsRequired   = "BUSINESS_DOCUMENTS_REQUIRED"
	BusinessListingFeeUnpaid    = "BUSINESS_LISTING_FEE_UNPAID"
	BusinessListingFeePaid      = "BUSINESS_LISTING_FEE_PAID"
	BusinessVerificationMissing = "BUSINESS_VERIFICATION_NOT_FOUND"
	BusinessVerificationDone    = "BUSINESS_VERIFICATION_REVIEWED"

	// ==================== Funding (FUNDING_) ====================
	FundingGoalExceeded = "FUNDING_GOAL_EXCEEDED" // would cross the goal
	FundingFullyFunded  = "FUNDING_FULLY_FUNDED"  // goal already reached

	// ==================== Investments (INVESTMENT_) ====================
	InvestmentNotFound      = "INVESTMENT_NOT_FOUND"
	InvestmentNotActive     = "INVESTMENT_NOT_ACTIVE"
	InvestmentRefundBlocked = "INVESTMENT_REFUND_NOT_ALLOWED"
	InvestmentInFlight      = "INVESTMENT_REQUEST_IN_FLIGHT" // same Idempotency-Key still running

	// ==================== Promo codes (PROMO_) ====================
	PromoNotFound  = "PROMO_NOT_FOUND"
	PromoExhausted = "PROMO_CODE_EXHAUSTED"
	PromoInactive  = "PROMO_CODE_INACTIVE"
	PromoExpired   = "PROMO_CODE_EXPIRED"
	PromoExists    = "PROMO_CODE_EXISTS"

	// ==================== Uploads (UPLOAD_) ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFileTooLarge    = "UPLOAD_FILE_TOO_LARGE"
	UploadFailed          = "UPLOAD_FAILED"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError    = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError  = "INTERNAL_DATABASE_ERROR"
	InternalStoreTimeout   = "INTERNAL_STORE_TIMEOUT"
	InternalExternalAPI    = "INTERNAL_EXTERNAL_API"
	InternalConfigError    = "INTERNAL_CONFIG_ERROR"
	InternalLedgerMismatch = "INTERNAL_LEDGER_INCONSISTENT"
)
