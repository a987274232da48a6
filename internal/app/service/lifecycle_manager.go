package service

import (
	"context"
	"time"

	"github.com/investly/investly-backend/internal/app/model"
	"github.com/investly/investly-backend/internal/app/repository"
	"github.com/investly/investly-backend/internal/clock"
	"github.com/investly/investly-backend/internal/observability/metrics"
	"github.com/investly/investly-backend/pkg/logger"
	"gorm.io/gorm"
)

type LifecycleEvent string

const (
	EventSubmit         LifecycleEvent = "submit"
	EventApprove        LifecycleEvent = "approve"
	EventReject         LifecycleEvent = "reject"
	EventFundingReached LifecycleEvent = "funding_reached"
	EventClose          LifecycleEvent = "close"
	EventExpire         LifecycleEvent = "expire"
)

type transitionKey struct {
	from  model.BusinessStatus
	event LifecycleEvent
}

var transitions = map[transitionKey]model.BusinessStatus{
	{model.BusinessStatusDraft, EventSubmit}:                model.BusinessStatusPendingVerification,
	{model.BusinessStatusPendingVerification, EventApprove}: model.BusinessStatusActive,
	{model.BusinessStatusPendingVerification, EventReject}:  model.BusinessStatusRejected,
	{model.BusinessStatusActive, EventFundingReached}:       model.BusinessStatusFunded,
	{model.BusinessStatusActive, EventClose}:                model.BusinessStatusClosed,
	{model.BusinessStatusActive, EventExpire}:               model.BusinessStatusClosed,
	{model.BusinessStatusFunded, EventClose}:                model.BusinessStatusClosed,
}

// eventTargets is the single status each event leads to. Applying an event
// whose target is already the current status is a no-op.
var eventTargets = map[LifecycleEvent]model.BusinessStatus{
	EventSubmit:         model.BusinessStatusPendingVerification,
	EventApprove:        model.BusinessStatusActive,
	EventReject:         model.BusinessStatusRejected,
	EventFundingReached: model.BusinessStatusFunded,
	EventClose:          model.BusinessStatusClosed,
	EventExpire:         model.BusinessStatusClosed,
}

func (e LifecycleEvent) IsValid() bool {
	_, ok := eventTargets[e]
	return ok
}

// NextStatus is the transition function. It returns the current status and
// false for an idempotent no-op.
func NextStatus(current model.BusinessStatus, event LifecycleEvent) (model.BusinessStatus, bool, error) {
	target, ok := eventTargets[event]
	if !ok {
		return current, false, ErrIllegalTransition.WithMessage("unknown lifecycle event %q", event)
	}
	if current == target {
		return current, false, nil
	}
	next, ok := transitions[transitionKey{current, event}]
	if !ok {
		return current, false, ErrIllegalTransition.WithMessage("cannot %s a business that is %s", event, current)
	}
	return next, true, nil
}

// TransitionResult describes what Apply did.
type TransitionResult struct {
	Business *model.Business
	From     model.BusinessStatus
	To       model.BusinessStatus
	Changed  bool
}

type LifecycleManager interface {
	Apply(ctx context.Context, businessID string, event LifecycleEvent) (*TransitionResult, error)
	ApplyTx(ctx context.Context, tx *gorm.DB, businessID string, event LifecycleEvent) (*TransitionResult, error)
	EvaluateFundingTx(ctx context.Context, tx *gorm.DB, businessID string) (*TransitionResult, error)
	CloseExpired(ctx context.Context) ([]TransitionResult, error)
}

type lifecycleManager struct {
	db             *gorm.DB
	businessRepo   repository.BusinessRepository
	investmentRepo repository.InvestmentRepository
	clock          clock.Clock
}

func NewLifecycleManager(
	db *gorm.DB,
	businessRepo repository.BusinessRepository,
	investmentRepo repository.InvestmentRepository,
	clk clock.Clock,
) LifecycleManager {
	if clk == nil {
		clk = clock.New()
	}
	return &lifecycleManager{
		db:             db,
		businessRepo:   businessRepo,
		investmentRepo: investmentRepo,
		clock:          clk,
	}
}

// Apply runs a single event in its own transaction.
func (m *lifecycleManager) Apply(ctx context.Context, businessID string, event LifecycleEvent) (*TransitionResult, error) {
	var result *TransitionResult
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = m.ApplyTx(ctx, tx, businessID, event)
		return err
	})
	if err != nil {
		return nil, storeError(err, ErrBusinessNotFound)
	}
	return result, nil
}

// ApplyTx locks the business row and applies the event inside tx.
func (m *lifecycleManager) ApplyTx(ctx context.Context, tx *gorm.DB, businessID string, event LifecycleEvent) (*TransitionResult, error) {
	businessRepo := m.businessRepo.WithTx(tx)

	business, err := businessRepo.FindByIDForUpdate(ctx, businessID)
	if err != nil {
		return nil, storeError(err, ErrBusinessNotFound)
	}

	next, changed, err := NextStatus(business.Status, event)
	if err != nil {
		logger.Warn("Rejected lifecycle event", map[string]interface{}{
			"business_id": businessID,
			"status":      business.Status,
			"event":       event,
		})
		return nil, err
	}
	if !changed {
		return &TransitionResult{Business: business, From: business.Status, To: business.Status}, nil
	}

	if err := checkTransitionGuard(business, event); err != nil {
		return nil, err
	}

	now := m.clock.Now()
	fields := transitionFields(business, event, now)

	ok, err := businessRepo.CompareAndSetStatus(ctx, businessID, business.Status, next, fields)
	if err != nil {
		return nil, storeError(err, ErrBusinessNotFound)
	}
	if !ok {
		return nil, ErrIllegalTransition.WithMessage("business status changed concurrently")
	}

	if business.Status == model.BusinessStatusFunded && next == model.BusinessStatusClosed {
		if _, err := m.investmentRepo.WithTx(tx).CompleteActive(ctx, businessID); err != nil {
			return nil, storeError(err, nil)
		}
	}

	from := business.Status
	updated, err := businessRepo.FindByID(ctx, businessID)
	if err != nil {
		return nil, storeError(err, ErrBusinessNotFound)
	}

	metrics.IncLifecycleTransition(string(from), string(next))
	logger.Info("Business status transitioned", map[string]interface{}{
		"business_id": businessID,
		"event":       event,
		"from":        from,
		"to":          next,
	})
	return &TransitionResult{Business: updated, From: from, To: next, Changed: true}, nil
}

// EvaluateFundingTx applies funding_reached when the aggregate in tx has
// reached the goal. It is the only producer of the funded status.
func (m *lifecycleManager) EvaluateFundingTx(ctx context.Context, tx *gorm.DB, businessID string) (*TransitionResult, error) {
	business, err := m.businessRepo.WithTx(tx).FindByID(ctx, businessID)
	if err != nil {
		return nil, storeError(err, ErrBusinessNotFound)
	}
	if business.Status != model.BusinessStatusActive || business.AmountRaised < business.FundingGoal {
		return &TransitionResult{Business: business, From: business.Status, To: business.Status}, nil
	}
	return m.ApplyTx(ctx, tx, businessID, EventFundingReached)
}

// CloseExpired applies expire to every active business whose funding period
// has elapsed. Each business is closed in its own transaction so one failure
// does not hold back the rest.
func (m *lifecycleManager) CloseExpired(ctx context.Context) ([]TransitionResult, error) {
	now := m.clock.Now()
	due, err := m.businessRepo.FindExpiring(ctx, now, 500)
	if err != nil {
		return nil, storeError(err, nil)
	}

	var closed []TransitionResult
	var firstErr error
	for _, business := range due {
		result, err := m.Apply(ctx, business.ID, EventExpire)
		if err != nil {
			logger.Error("Failed to close expired business", err, map[string]interface{}{
				"business_id": business.ID,
			})
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if result.Changed {
			closed = append(closed, *result)
		}
	}

	logger.Info("Expired businesses closed", map[string]interface{}{
		"due":    len(due),
		"closed": len(closed),
	})
	return closed, firstErr
}

func checkTransitionGuard(business *model.Business, event LifecycleEvent) error {
	switch event {
	case EventSubmit:
		if len(business.VerificationDocuments) == 0 {
			return ErrDocumentsRequired
		}
	case EventApprove:
		if !business.ListingFeePaid {
			return ErrListingFeeUnpaid
		}
	case EventFundingReached:
		if business.AmountRaised < business.FundingGoal {
			return ErrIllegalTransition.WithMessage("funding goal has not been reached")
		}
	}
	return nil
}

func transitionFields(business *model.Business, event LifecycleEvent, now time.Time) map[string]interface{} {
	fields := map[string]interface{}{}
	switch event {
	case EventSubmit:
		fields["verification_status"] = model.VerificationPending
	case EventApprove:
		closesAt := now.AddDate(0, business.DurationMonths, 0)
		fields["verification_status"] = model.VerificationApproved
		fields["activated_at"] = now
		fields["closes_at"] = closesAt
	case EventReject:
		fields["verification_status"] = model.VerificationRejected
	case EventFundingReached:
		fields["funded_at"] = now
	case EventClose, EventExpire:
		fields["closed_at"] = now
	}
	return fields
}
