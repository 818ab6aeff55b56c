package service

import (
	"mpola/internal/models"
	"mpola/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerService computes a schedule's funding state from its durable fund and
// installment transactions. Aggregates are always computed on read; the only
// cached value is the schedule's display flag, maintained by
// UpdateFundingStatus.
type LedgerService struct {
	db        *gorm.DB
	schedules *repository.ScheduleRepository
	funding   *repository.FundingRepository
	txns      *repository.TransactionRepository
}

func NewLedgerService(
	db *gorm.DB,
	schedules *repository.ScheduleRepository,
	funding *repository.FundingRepository,
	txns *repository.TransactionRepository,
) *LedgerService {
	return &LedgerService{db: db, schedules: schedules, funding: funding, txns: txns}
}

// TotalFunded is the sum of paid fund transactions for the schedule.
func (l *LedgerService) TotalFunded(scheduleID uuid.UUID) (decimal.Decimal, error) {
	return l.funding.SumPaidBySchedule(scheduleID)
}

// TotalPaymentsMade is the sum of successful installment amounts across all
// receivers of the schedule.
func (l *LedgerService) TotalPaymentsMade(scheduleID uuid.UUID) (decimal.Decimal, error) {
	return l.txns.SumSuccessfulBySchedule(scheduleID)
}

// AvailableBalance is funded minus disbursed. A negative value signals a
// bookkeeping error and is returned as-is, never clamped.
func (l *LedgerService) AvailableBalance(scheduleID uuid.UUID) (decimal.Decimal, error) {
	funded, err := l.TotalFunded(scheduleID)
	if err != nil {
		return decimal.Zero, err
	}
	paid, err := l.TotalPaymentsMade(scheduleID)
	if err != nil {
		return decimal.Zero, err
	}
	return funded.Sub(paid), nil
}

// FundingShortfall is how much more funding the schedule needs, floored at 0.
func (l *LedgerService) FundingShortfall(s *models.PaymentSchedule) (decimal.Decimal, error) {
	funded, err := l.TotalFunded(s.ID)
	if err != nil {
		return decimal.Zero, err
	}
	shortfall := s.TotalAmount.Sub(funded)
	if shortfall.IsNegative() {
		return decimal.Zero, nil
	}
	return shortfall, nil
}

// IsAdequatelyFunded reports whether the schedule is fully funded. This is a
// schedule-wide display condition, not the gate for individual payments.
func (l *LedgerService) IsAdequatelyFunded(s *models.PaymentSchedule) (bool, error) {
	funded, err := l.TotalFunded(s.ID)
	if err != nil {
		return false, err
	}
	return funded.GreaterThanOrEqual(s.TotalAmount), nil
}

// HasSufficientFundsFor is the gate used before any disbursement: the
// available balance must cover the amount. Returns the balance alongside so
// refusals can report it.
func (l *LedgerService) HasSufficientFundsFor(scheduleID uuid.UUID, amount decimal.Decimal) (bool, decimal.Decimal, error) {
	available, err := l.AvailableBalance(scheduleID)
	if err != nil {
		return false, decimal.Zero, err
	}
	return available.GreaterThanOrEqual(amount), available, nil
}

// UpdateFundingStatus recomputes the cached funded flag and persists it.
// Callable after any funding-state change.
func (l *LedgerService) UpdateFundingStatus(s *models.PaymentSchedule) (bool, error) {
	return l.updateFundingStatus(l.db, s)
}

// UpdateFundingStatusTx is the in-transaction variant used by the webhook
// reconciler so the recomputation commits atomically with the status change.
func (l *LedgerService) UpdateFundingStatusTx(tx *gorm.DB, s *models.PaymentSchedule) (bool, error) {
	return l.updateFundingStatus(tx, s)
}

func (l *LedgerService) updateFundingStatus(tx *gorm.DB, s *models.PaymentSchedule) (bool, error) {
	funded, err := l.funding.SumPaidByScheduleTx(tx, s.ID)
	if err != nil {
		return false, err
	}
	s.IsFunded = funded.GreaterThanOrEqual(s.TotalAmount)
	if err := l.schedules.UpdateFundedFlag(tx, s); err != nil {
		return false, err
	}
	return s.IsFunded, nil
}
