package service

import (
	"context"
	"errors"
	"testing"

	"mpola/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDepositCoversShortfall(t *testing.T) {
	f := newFixture(t)
	sched, _ := f.seedPlan(t, "100.00", 10) // total 1015.00
	f.fund(t, sched, "400.00")

	details, err := f.fundingSvc.CreateDeposit(context.Background(), sched.ID, "TRON")
	require.NoError(t, err)

	fund := details.FundTransaction
	assert.True(t, fund.Amount.Equal(dec("615.00")), "deposit covers remaining shortfall, got %s", fund.Amount)
	assert.Equal(t, "UGX", fund.Currency)
	assert.Equal(t, "TRON", fund.StablecoinNetwork)
	assert.NotEmpty(t, fund.StablecoinAddress)
	assert.NotEmpty(t, fund.Reference)
	assert.Equal(t, domain.FundStatusPending, fund.Status)

	// 615 / 3800 rounded to 6dp
	expected := dec("615").Div(dec("3800")).Round(6)
	assert.True(t, fund.StablecoinAmount.Equal(expected), "got %s want %s", fund.StablecoinAmount, expected)
	assert.True(t, details.Rate.Equal(dec("3800")))
}

func TestCreateDepositRejectsUnsupportedNetwork(t *testing.T) {
	f := newFixture(t)
	sched, _ := f.seedPlan(t, "100.00", 10)

	_, err := f.fundingSvc.CreateDeposit(context.Background(), sched.ID, "DOGECHAIN")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateDepositRejectedWhenFullyFunded(t *testing.T) {
	f := newFixture(t)
	sched, _ := f.seedPlan(t, "100.00", 10)
	f.fund(t, sched, "1015.00")

	_, err := f.fundingSvc.CreateDeposit(context.Background(), sched.ID, "TRON")
	assert.ErrorIs(t, err, ErrAlreadyFunded)
}

func TestCreateDepositRejectedWhileAnotherPending(t *testing.T) {
	f := newFixture(t)
	sched, _ := f.seedPlan(t, "100.00", 10)

	first, err := f.fundingSvc.CreateDeposit(context.Background(), sched.ID, "TRON")
	require.NoError(t, err)

	_, err = f.fundingSvc.CreateDeposit(context.Background(), sched.ID, "ETHEREUM")
	var pendingErr *PendingDepositError
	require.ErrorAs(t, err, &pendingErr)
	assert.Equal(t, first.FundTransaction.ID, pendingErr.Existing.ID)
}

func TestCreateDepositRateFailureIsHardError(t *testing.T) {
	f := newFixture(t)
	sched, _ := f.seedPlan(t, "100.00", 10)
	f.provider.GetBuyRateErr = errors.New("rate feed timeout")

	_, err := f.fundingSvc.CreateDeposit(context.Background(), sched.ID, "TRON")
	assert.ErrorIs(t, err, ErrRateUnavailable)

	// no deposit row was created
	list, err := f.funding.ListBySchedule(sched.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateDepositRejectsNonPositiveRate(t *testing.T) {
	f := newFixture(t)
	sched, _ := f.seedPlan(t, "100.00", 10)
	f.provider.BuyRate = dec("0")

	_, err := f.fundingSvc.CreateDeposit(context.Background(), sched.ID, "TRON")
	assert.ErrorIs(t, err, ErrRateUnavailable)
}

func TestConfirmManuallyIsIdempotent(t *testing.T) {
	f := newFixture(t)
	sched, _ := f.seedPlan(t, "100.00", 10)
	fund := f.pendingDeposit(t, sched, "1015.00", "manual-ref-1")

	first, err := f.fundingSvc.ConfirmManually(fund.ID)
	require.NoError(t, err)
	assert.True(t, first.Applied)
	assert.Equal(t, domain.FundStatusPaid, first.NewStatus)

	reloaded, err := f.schedules.GetByID(sched.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsFunded)

	second, err := f.fundingSvc.ConfirmManually(fund.ID)
	require.NoError(t, err)
	assert.False(t, second.Applied)

	funded, err := f.ledger.TotalFunded(sched.ID)
	require.NoError(t, err)
	assert.True(t, funded.Equal(dec("1015.00")))
}

func TestFundingStatusReport(t *testing.T) {
	f := newFixture(t)
	sched, recv := f.seedPlan(t, "100.00", 10)
	f.fund(t, sched, "500.00")
	f.pendingDeposit(t, sched, "515.00", "open-ref")
	f.recordPayout(t, recv, 1, "100.00", domain.TxnStatusSuccess)

	report, err := f.fundingSvc.FundingStatus(sched.ID)
	require.NoError(t, err)
	assert.True(t, report.TotalRequired.Equal(dec("1015.00")))
	assert.True(t, report.TotalFunded.Equal(dec("500.00")))
	assert.True(t, report.TotalPaymentsMade.Equal(dec("100.00")))
	assert.True(t, report.AvailableBalance.Equal(dec("400.00")))
	assert.True(t, report.Shortfall.Equal(dec("515.00")))
	assert.False(t, report.IsAdequatelyFunded)
	assert.Len(t, report.FundTransactions, 2)
}
