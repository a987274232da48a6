package service

import (
	"context"
	"strings"

	"github.com/investly/investly-backend/internal/app/model"
	"github.com/investly/investly-backend/internal/app/repository"
	"github.com/investly/investly-backend/internal/clock"
	"github.com/investly/investly-backend/pkg/logger"
	"gorm.io/gorm"
)

type ReviewDecision string

const (
	DecisionApprove ReviewDecision = "approve"
	DecisionReject  ReviewDecision = "reject"
)

type SubmitVerificationInput struct {
	DocumentType string `json:"document_type"`
	DocumentRef  string `json:"document_ref" binding:"required"`
}

type ReviewVerificationInput struct {
	Decision   ReviewDecision `json:"decision" binding:"required"`
	ReviewerID string         `json:"reviewer_id"`
	Notes      string         `json:"notes"`
}

// VerificationOutcome is the verification row together with the business
// state after the operation committed.
type VerificationOutcome struct {
	Verification *model.BusinessVerification `json:"verification"`
	Business     *model.Business             `json:"business"`
	Activated    bool                        `json:"activated"`
}

type VerificationService interface {
	Submit(ctx context.Context, actor Actor, businessID string, input SubmitVerificationInput) (*VerificationOutcome, error)
	Review(ctx context.Context, reviewer Actor, businessID string, input ReviewVerificationInput) (*VerificationOutcome, error)
	ListVerifications(ctx context.Context, actor Actor, businessID string) ([]model.BusinessVerification, error)
}

type verificationService struct {
	db               *gorm.DB
	businessRepo     repository.BusinessRepository
	verificationRepo repository.VerificationRepository
	lifecycle        LifecycleManager
	notifier         FundingNotifier
	clock            clock.Clock
}

func NewVerificationService(
	db *gorm.DB,
	businessRepo repository.BusinessRepository,
	verificationRepo repository.VerificationRepository,
	lifecycle LifecycleManager,
	notifier FundingNotifier,
	clk clock.Clock,
) VerificationService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if clk == nil {
		clk = clock.New()
	}
	return &verificationService{
		db:               db,
		businessRepo:     businessRepo,
		verificationRepo: verificationRepo,
		lifecycle:        lifecycle,
		notifier:         notifier,
		clock:            clk,
	}
}

func canManage(actor Actor, business *model.Business) bool {
	return business.OwnerID == actor.ID || actor.IsAdmin()
}

// Submit attaches a document and moves a draft to pending_verification.
// Further documents may be attached while verification is pending; each one
// resets the verification state to pending.
func (s *verificationService) Submit(ctx context.Context, actor Actor, businessID string, input SubmitVerificationInput) (*VerificationOutcome, error) {
	ref := strings.TrimSpace(input.DocumentRef)
	if ref == "" {
		return nil, validationError("document_ref is required")
	}
	docType := strings.TrimSpace(input.DocumentType)
	if docType == "" {
		docType = model.DocumentOther
	}
	if !model.IsValidDocumentType(docType) {
		return nil, validationError("unknown document type %q", docType)
	}

	var outcome *VerificationOutcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		businessRepo := s.businessRepo.WithTx(tx)

		business, err := businessRepo.FindByIDForUpdate(ctx, businessID)
		if err != nil {
			return storeError(err, ErrBusinessNotFound)
		}
		if !canManage(actor, business) {
			return ErrForbidden
		}
		if business.Status != model.BusinessStatusDraft && business.Status != model.BusinessStatusPendingVerification {
			return ErrIllegalTransition.WithMessage("documents cannot be submitted for a %s business", business.Status)
		}

		docs := append(business.VerificationDocuments, ref)
		if err := businessRepo.UpdateFields(ctx, businessID, map[string]interface{}{
			"verification_documents": docs,
			"verification_status":    model.VerificationPending,
		}); err != nil {
			return storeError(err, nil)
		}

		verification := &model.BusinessVerification{
			BusinessID:   businessID,
			DocumentType: docType,
			DocumentRef:  ref,
			Status:       model.VerificationPending,
			SubmittedAt:  s.clock.Now(),
		}
		if err := s.verificationRepo.WithTx(tx).Create(ctx, verification); err != nil {
			return storeError(err, nil)
		}

		result, err := s.lifecycle.ApplyTx(ctx, tx, businessID, EventSubmit)
		if err != nil {
			return err
		}
		outcome = &VerificationOutcome{Verification: verification, Business: result.Business}
		return nil
	})
	if err != nil {
		return nil, storeError(err, ErrBusinessNotFound)
	}

	logger.Info("Verification document submitted", map[string]interface{}{
		"business_id":   businessID,
		"document_type": docType,
		"documents":     len(outcome.Business.VerificationDocuments),
	})
	return outcome, nil
}

// Review decides the latest pending submission. Approval activates the
// business only once the listing fee is paid; otherwise activation happens
// when the fee payment completes.
func (s *verificationService) Review(ctx context.Context, reviewer Actor, businessID string, input ReviewVerificationInput) (*VerificationOutcome, error) {
	if !reviewer.IsAdmin() {
		return nil, ErrForbidden
	}
	if input.ReviewerID != "" && input.ReviewerID != reviewer.ID {
		return nil, ErrForbidden.WithMessage("reviewer_id must match the authenticated reviewer")
	}
	decision := ReviewDecision(strings.ToLower(strings.TrimSpace(string(input.Decision))))
	if decision != DecisionApprove && decision != DecisionReject {
		return nil, validationError("decision must be approve or reject")
	}

	var outcome *VerificationOutcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		businessRepo := s.businessRepo.WithTx(tx)
		verificationRepo := s.verificationRepo.WithTx(tx)

		business, err := businessRepo.FindByIDForUpdate(ctx, businessID)
		if err != nil {
			return storeError(err, ErrBusinessNotFound)
		}
		if business.Status != model.BusinessStatusPendingVerification {
			return ErrIllegalTransition.WithMessage("cannot review a %s business", business.Status)
		}

		latest, err := verificationRepo.FindLatestByBusiness(ctx, businessID)
		if err != nil {
			return storeError(err, ErrVerificationNotFound)
		}
		if latest.Status != model.VerificationPending {
			return ErrVerificationReviewed
		}

		state := model.VerificationApproved
		if decision == DecisionReject {
			state = model.VerificationRejected
		}
		reviewerID := reviewer.ID
		now := s.clock.Now()
		ok, err := verificationRepo.Review(ctx, latest.ID, state, &reviewerID, strings.TrimSpace(input.Notes), now)
		if err != nil {
			return storeError(err, nil)
		}
		if !ok {
			return ErrVerificationReviewed
		}
		latest.Status = state
		latest.ReviewerID = &reviewerID
		latest.ReviewerNotes = strings.TrimSpace(input.Notes)
		latest.ReviewedAt = &now

		outcome = &VerificationOutcome{Verification: latest}

		if decision == DecisionReject {
			if err := businessRepo.UpdateFields(ctx, businessID, map[string]interface{}{
				"verification_notes": latest.ReviewerNotes,
			}); err != nil {
				return storeError(err, nil)
			}
			result, err := s.lifecycle.ApplyTx(ctx, tx, businessID, EventReject)
			if err != nil {
				return err
			}
			outcome.Business = result.Business
			return nil
		}

		if err := businessRepo.UpdateFields(ctx, businessID, map[string]interface{}{
			"verification_status": model.VerificationApproved,
			"verification_notes":  latest.ReviewerNotes,
		}); err != nil {
			return storeError(err, nil)
		}
		if !business.ListingFeePaid {
			updated, err := businessRepo.FindByID(ctx, businessID)
			if err != nil {
				return storeError(err, ErrBusinessNotFound)
			}
			outcome.Business = updated
			return nil
		}

		result, err := s.lifecycle.ApplyTx(ctx, tx, businessID, EventApprove)
		if err != nil {
			return err
		}
		outcome.Business = result.Business
		outcome.Activated = result.Changed
		return nil
	})
	if err != nil {
		return nil, storeError(err, ErrBusinessNotFound)
	}

	if outcome.Business.Status != model.BusinessStatusPendingVerification {
		s.notifier.PublishFunding(updateFromBusiness("status", outcome.Business, s.clock.Now()))
	}
	logger.Info("Verification reviewed", map[string]interface{}{
		"business_id": businessID,
		"decision":    decision,
		"reviewer_id": reviewer.ID,
		"status":      outcome.Business.Status,
	})
	return outcome, nil
}

func (s *verificationService) ListVerifications(ctx context.Context, actor Actor, businessID string) ([]model.BusinessVerification, error) {
	business, err := s.businessRepo.FindByID(ctx, businessID)
	if err != nil {
		return nil, storeError(err, ErrBusinessNotFound)
	}
	if !canManage(actor, business) {
		return nil, ErrForbidden
	}

	verifications, err := s.verificationRepo.FindByBusiness(ctx, businessID)
	if err != nil {
		return nil, storeError(err, nil)
	}
	return verifications, nil
}
