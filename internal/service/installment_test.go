package service

import (
	"testing"
	"time"

	"mpola/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextInstallmentNumberCountsAllAttempts(t *testing.T) {
	f := newFixture(t)
	_, recv := f.seedPlan(t, "100.00", 5)

	n, err := f.installments.NextInstallmentNumber(recv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f.recordPayout(t, recv, 1, "100.00", domain.TxnStatusSuccess)
	f.recordPayout(t, recv, 2, "100.00", domain.TxnStatusFailed)

	// a failed attempt still occupies its number; numbering never reuses it
	n, err = f.installments.NextInstallmentNumber(recv.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

// A receiver with three installments' worth of funding gets exactly three
// green lights; the fourth check refuses with the outstanding shortfall.
func TestPartialFundingAllowsExactlyCoveredInstallments(t *testing.T) {
	f := newFixture(t)
	sched, recv := f.seedPlan(t, "100.00", 10)
	f.fund(t, sched, "300.00")

	for i := 1; i <= 3; i++ {
		decision, err := f.installments.CanReceiveNextInstallment(recv, sched)
		require.NoError(t, err)
		require.True(t, decision.Allowed, "installment %d: %s", i, decision.Reason)
		assert.Equal(t, domain.DecisionReady, decision.Code)
		assert.Equal(t, i, decision.NextInstallmentNumber)
		f.recordPayout(t, recv, i, "100.00", domain.TxnStatusSuccess)
	}

	decision, err := f.installments.CanReceiveNextInstallment(recv, sched)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, domain.DecisionInsufficientFunds, decision.Code)
	assert.True(t, decision.AvailableBalance.IsZero(), "available %s", decision.AvailableBalance)
	assert.True(t, decision.Shortfall.Equal(dec("100.00")), "shortfall %s", decision.Shortfall)
}

func TestDecisionCompletedWinsOverEverything(t *testing.T) {
	f := newFixture(t)
	sched, recv := f.seedPlan(t, "100.00", 2)
	// no funding, not due: completion must still be reported first
	f.recordPayout(t, recv, 1, "100.00", domain.TxnStatusSuccess)
	f.recordPayout(t, recv, 2, "100.00", domain.TxnStatusSuccess)

	decision, err := f.installments.CanReceiveNextInstallment(recv, sched)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, domain.DecisionCompleted, decision.Code)
}

func TestDecisionNotDueReportsWait(t *testing.T) {
	f := newFixture(t)
	sched, recv := f.seedPlan(t, "100.00", 5)
	f.fund(t, sched, "500.00")

	next := f.clock.Add(6 * time.Hour)
	sched.NextPaymentDate = &next
	require.NoError(t, f.schedules.UpdatePaymentDates(f.db, sched))

	decision, err := f.installments.CanReceiveNextInstallment(recv, sched)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, domain.DecisionNotDue, decision.Code)
	assert.Equal(t, 6*time.Hour, decision.WaitRemaining)
}

func TestDecisionInProgressReportsBlockingTransaction(t *testing.T) {
	f := newFixture(t)
	sched, recv := f.seedPlan(t, "100.00", 5)
	f.fund(t, sched, "500.00")

	blocking := f.recordPayout(t, recv, 1, "100.00", domain.TxnStatusProcessing)

	decision, err := f.installments.CanReceiveNextInstallment(recv, sched)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, domain.DecisionInProgress, decision.Code)
	assert.Equal(t, blocking.ID, decision.BlockingTransactionID)
}

func TestProgressReport(t *testing.T) {
	f := newFixture(t)
	_, recv := f.seedPlan(t, "100.00", 4)
	f.recordPayout(t, recv, 1, "100.00", domain.TxnStatusSuccess)
	f.recordPayout(t, recv, 2, "100.00", domain.TxnStatusFailed)
	f.recordPayout(t, recv, 3, "100.00", domain.TxnStatusProcessing)

	report, err := f.installments.Progress(recv)
	require.NoError(t, err)
	assert.Equal(t, 4, report.TotalInstallments)
	assert.Equal(t, 1, report.Completed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Pending)
	assert.True(t, report.CompletedAmount.Equal(dec("100.00")))
	assert.InDelta(t, 25.0, report.ProgressPercentage, 0.001)
	assert.Len(t, report.Transactions, 3)
}
