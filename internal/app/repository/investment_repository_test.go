package repository

import (
	"context"
	"testing"
	"time"

	"github.com/investly/investly-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvestmentRepository_StatusAndAggregates(t *testing.T) {
	ctx := context.Background()
	testDB := setupRepoTest(t)
	businessRepo := NewBusinessRepository(testDB)
	repo := NewInvestmentRepository(testDB)

	business := createBusiness(t, businessRepo, "Print Shop", model.BusinessStatusActive, "1000.00")

	amounts := []struct {
		investor string
		amount   string
	}{
		{"investor-1", "100.00"},
		{"investor-1", "50.00"},
		{"investor-2", "200.00"},
	}
	var created []*model.Investment
	for _, a := range amounts {
		inv := &model.Investment{InvestorID: a.investor, BusinessID: business.ID, Amount: model.MustParseMoney(a.amount)}
		require.NoError(t, repo.Create(ctx, inv))
		assert.Equal(t, model.InvestmentStatusActive, inv.Status)
		created = append(created, inv)
	}

	sum, err := repo.SumAdmitted(ctx, business.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MustParseMoney("350.00"), sum)

	investors, err := repo.CountInvestors(ctx, business.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), investors)

	ok, err := repo.TransitionStatus(ctx, created[2].ID, model.InvestmentStatusActive, model.InvestmentStatusRefunded, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TransitionStatus(ctx, created[2].ID, model.InvestmentStatusActive, model.InvestmentStatusRefunded, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok, "already refunded")

	refunded, err := repo.FindByID(ctx, created[2].ID)
	require.NoError(t, err)
	require.NotNil(t, refunded.RefundedAt)

	sum, err = repo.SumAdmitted(ctx, business.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MustParseMoney("150.00"), sum)

	completed, err := repo.CompleteActive(ctx, business.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), completed)

	sum, err = repo.SumAdmitted(ctx, business.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MustParseMoney("150.00"), sum, "completed investments still count")

	active, err := repo.FindByBusiness(ctx, business.ID, model.InvestmentStatusActive)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := repo.FindByBusiness(ctx, business.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
