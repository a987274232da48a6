package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Document types accepted with a verification submission.
const (
	DocumentBusinessLicense = "business_license"
	DocumentTaxCertificate  = "tax_certificate"
	DocumentIdentity        = "identity"
	DocumentFinancialReport = "financial_report"
	DocumentOther           = "other"
)

// BusinessVerification is one submitted document and its review. A business
// may have many; Business.VerificationStatus mirrors the latest.
type BusinessVerification struct {
	ID            string            `gorm:"type:varchar(36);primaryKey" json:"id"`
	BusinessID    string            `gorm:"type:varchar(36);not null;index" json:"business_id"`
	DocumentType  string            `gorm:"type:varchar(50);not null" json:"document_type"`
	DocumentRef   string            `gorm:"type:text;not null" json:"document_ref"` // S3 key or URL
	Status        VerificationState `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ReviewerID    *string           `gorm:"type:varchar(36)" json:"reviewer_id,omitempty"`
	ReviewerNotes string            `gorm:"type:text" json:"reviewer_notes,omitempty"`
	SubmittedAt   time.Time         `gorm:"not null" json:"submitted_at"`
	ReviewedAt    *time.Time        `json:"reviewed_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func (BusinessVerification) TableName() string {
	return "business_verifications"
}

func (v *BusinessVerification) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.Status == "" {
		v.Status = VerificationPending
	}
	return nil
}

func IsValidDocumentType(t string) bool {
	switch t {
	case DocumentBusinessLicense, DocumentTaxCertificate, DocumentIdentity, DocumentFinancialReport, DocumentOther:
		return true
	}
	return false
}
