package service

import (
	"context"
	"testing"

	"github.com/investly/investly-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ownerActor = Actor{ID: ownerID, Role: "user"}
	adminActor = Actor{ID: adminID, Role: "admin"}
)

func TestVerificationService_Submit(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	business := f.seedBusiness(t, model.BusinessStatusDraft, "1000.00", "0.00")

	outcome, err := f.verifications.Submit(ctx, ownerActor, business.ID, SubmitVerificationInput{
		DocumentType: model.DocumentBusinessLicense,
		DocumentRef:  "verifications/license.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, model.BusinessStatusPendingVerification, outcome.Business.Status)
	assert.Equal(t, model.VerificationPending, outcome.Business.VerificationStatus)
	assert.Equal(t, []string{"verifications/license.pdf"}, []string(outcome.Business.VerificationDocuments))
	assert.Equal(t, model.VerificationPending, outcome.Verification.Status)
	assert.True(t, outcome.Verification.SubmittedAt.Equal(fixtureNow))

	outcome, err = f.verifications.Submit(ctx, ownerActor, business.ID, SubmitVerificationInput{
		DocumentType: model.DocumentTaxCertificate,
		DocumentRef:  "verifications/tax.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, model.BusinessStatusPendingVerification, outcome.Business.Status)
	assert.Len(t, outcome.Business.VerificationDocuments, 2)

	list, err := f.verifications.ListVerifications(ctx, ownerActor, business.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestVerificationService_SubmitRejections(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	draft := f.seedBusiness(t, model.BusinessStatusDraft, "1000.00", "0.00")
	active := f.seedBusiness(t, model.BusinessStatusActive, "1000.00", "0.00")

	_, err := f.verifications.Submit(ctx, ownerActor, draft.ID, SubmitVerificationInput{DocumentRef: " "})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.verifications.Submit(ctx, ownerActor, draft.ID, SubmitVerificationInput{DocumentType: "selfie", DocumentRef: "a.png"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.verifications.Submit(ctx, Actor{ID: investorA, Role: "user"}, draft.ID, SubmitVerificationInput{DocumentRef: "a.pdf"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.verifications.Submit(ctx, ownerActor, active.ID, SubmitVerificationInput{DocumentRef: "a.pdf"})
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = f.verifications.Submit(ctx, ownerActor, "missing", SubmitVerificationInput{DocumentRef: "a.pdf"})
	assert.ErrorIs(t, err, ErrBusinessNotFound)

	reloaded := f.reload(t, draft.ID)
	assert.Equal(t, model.BusinessStatusDraft, reloaded.Status)
	assert.Empty(t, reloaded.VerificationDocuments)
}

func TestVerificationService_ReviewApproveAfterFeePaid(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	business := f.seedBusiness(t, model.BusinessStatusDraft, "1000.00", "0.00")

	_, err := f.verifications.Submit(ctx, ownerActor, business.ID, SubmitVerificationInput{DocumentRef: "doc.pdf"})
	require.NoError(t, err)
	_, err = f.fees.PayListingFee(ctx, ownerActor, business.ID, PayListingFeeInput{PaymentReference: "pay_123"})
	require.NoError(t, err)

	outcome, err := f.verifications.Review(ctx, adminActor, business.ID, ReviewVerificationInput{
		Decision: DecisionApprove,
		Notes:    "documents in order",
	})
	require.NoError(t, err)
	assert.True(t, outcome.Activated)
	assert.Equal(t, model.BusinessStatusActive, outcome.Business.Status)
	assert.Equal(t, model.VerificationApproved, outcome.Business.VerificationStatus)
	assert.Equal(t, model.VerificationApproved, outcome.Verification.Status)
	require.NotNil(t, outcome.Verification.ReviewerID)
	assert.Equal(t, adminID, *outcome.Verification.ReviewerID)
	require.NotNil(t, outcome.Business.ClosesAt)

	_, err = f.verifications.Review(ctx, adminActor, business.ID, ReviewVerificationInput{Decision: DecisionApprove})
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestVerificationService_ReviewApproveBeforeFeePaid(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	business := f.seedBusiness(t, model.BusinessStatusDraft, "1000.00", "0.00")

	_, err := f.verifications.Submit(ctx, ownerActor, business.ID, SubmitVerificationInput{DocumentRef: "doc.pdf"})
	require.NoError(t, err)

	outcome, err := f.verifications.Review(ctx, adminActor, business.ID, ReviewVerificationInput{Decision: "APPROVE"})
	require.NoError(t, err)
	assert.False(t, outcome.Activated)
	assert.Equal(t, model.BusinessStatusPendingVerification, outcome.Business.Status)
	assert.Equal(t, model.VerificationApproved, outcome.Business.VerificationStatus)

	_, err = f.verifications.Review(ctx, adminActor, business.ID, ReviewVerificationInput{Decision: DecisionReject})
	assert.ErrorIs(t, err, ErrVerificationReviewed)

	payment, err := f.fees.PayListingFee(ctx, ownerActor, business.ID, PayListingFeeInput{PaymentReference: "pay_456"})
	require.NoError(t, err)
	assert.True(t, payment.Activated)
	assert.Equal(t, model.BusinessStatusActive, payment.Business.Status)

	updates := f.notifier.all()
	require.Len(t, updates, 1)
	assert.Equal(t, model.BusinessStatusActive, updates[0].Status)
}

func TestVerificationService_ReviewReject(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	business := f.seedBusiness(t, model.BusinessStatusDraft, "1000.00", "0.00")

	_, err := f.verifications.Submit(ctx, ownerActor, business.ID, SubmitVerificationInput{DocumentRef: "doc.pdf"})
	require.NoError(t, err)

	_, err = f.verifications.Review(ctx, ownerActor, business.ID, ReviewVerificationInput{Decision: DecisionReject})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.verifications.Review(ctx, adminActor, business.ID, ReviewVerificationInput{Decision: "maybe"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.verifications.Review(ctx, adminActor, business.ID, ReviewVerificationInput{Decision: DecisionReject, ReviewerID: "someone-else"})
	assert.ErrorIs(t, err, ErrForbidden)

	outcome, err := f.verifications.Review(ctx, adminActor, business.ID, ReviewVerificationInput{
		Decision: DecisionReject,
		Notes:    "license expired",
	})
	require.NoError(t, err)
	assert.Equal(t, model.BusinessStatusRejected, outcome.Business.Status)
	assert.Equal(t, model.VerificationRejected, outcome.Business.VerificationStatus)
	assert.Equal(t, "license expired", outcome.Business.VerificationNotes)

	_, err = f.verifications.Submit(ctx, ownerActor, business.ID, SubmitVerificationInput{DocumentRef: "again.pdf"})
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestVerificationService_ReviewWithoutSubmission(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	business := f.seedBusiness(t, model.BusinessStatusPendingVerification, "1000.00", "0.00")

	_, err := f.verifications.Review(ctx, adminActor, business.ID, ReviewVerificationInput{Decision: DecisionApprove})
	assert.ErrorIs(t, err, ErrVerificationNotFound)
}
