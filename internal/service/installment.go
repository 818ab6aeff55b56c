package service

import (
	"errors"
	"fmt"
	"time"

	"mpola/internal/domain"
	"mpola/internal/models"
	"mpola/internal/repository"

	"github.com/shopspring/decimal"
)

// Decision is the structured outcome of the next-installment check. Refusals
// are normal outcomes, not errors; the code identifies the failing check and
// the remaining fields carry enough detail for the caller to act.
type Decision struct {
	Allowed               bool            `json:"allowed"`
	Code                  string          `json:"code"`
	Reason                string          `json:"reason"`
	NextInstallmentNumber int             `json:"next_installment_number"`
	AvailableBalance      decimal.Decimal `json:"available_balance"`
	Shortfall             decimal.Decimal `json:"shortfall,omitempty"`
	WaitRemaining         time.Duration   `json:"wait_remaining_ns,omitempty"`
	BlockingTransactionID uint            `json:"blocking_transaction_id,omitempty"`
}

// InstallmentService decides whether a receiver may be paid its next
// installment right now.
type InstallmentService struct {
	ledger    *LedgerService
	schedules *ScheduleService
	txns      *repository.TransactionRepository
	now       func() time.Time
}

func NewInstallmentService(
	ledger *LedgerService,
	schedules *ScheduleService,
	txns *repository.TransactionRepository,
) *InstallmentService {
	return &InstallmentService{ledger: ledger, schedules: schedules, txns: txns, now: time.Now}
}

// NextInstallmentNumber is one past the highest persisted installment number,
// or 1 when the receiver has no transactions yet.
func (s *InstallmentService) NextInstallmentNumber(receiverID uint) (int, error) {
	max, err := s.txns.MaxInstallmentNumber(receiverID)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// CompletedInstallments counts the receiver's successful transactions.
func (s *InstallmentService) CompletedInstallments(receiverID uint) (int, error) {
	n, err := s.txns.CountByReceiverAndStatus(receiverID, domain.TxnStatusSuccess)
	return int(n), err
}

// CanReceiveNextInstallment evaluates the four gating checks in fixed order,
// short-circuiting on the first refusal: completion, funding, timing, then the
// duplicate guard. The guard here is a fast path; the storage uniqueness
// constraint remains the arbiter under concurrency.
func (s *InstallmentService) CanReceiveNextInstallment(recv *models.Receiver, sched *models.PaymentSchedule) (*Decision, error) {
	nextNumber, err := s.NextInstallmentNumber(recv.ID)
	if err != nil {
		return nil, err
	}

	completed, err := s.CompletedInstallments(recv.ID)
	if err != nil {
		return nil, err
	}
	if completed >= recv.NumberOfInstallments {
		return &Decision{
			Code:                  domain.DecisionCompleted,
			Reason:                "all installments completed",
			NextInstallmentNumber: nextNumber,
		}, nil
	}

	ok, available, err := s.ledger.HasSufficientFundsFor(sched.ID, recv.AmountPerInstallment)
	if err != nil {
		return nil, err
	}
	if !ok {
		shortfall := recv.AmountPerInstallment.Sub(available)
		return &Decision{
			Code: domain.DecisionInsufficientFunds,
			Reason: fmt.Sprintf("insufficient available balance: need %s, have %s",
				recv.AmountPerInstallment, available),
			NextInstallmentNumber: nextNumber,
			AvailableBalance:      available,
			Shortfall:             shortfall,
		}, nil
	}

	due, err := s.schedules.IsPaymentDue(sched)
	if err != nil {
		return nil, err
	}
	if !due {
		wait := sched.NextPaymentDate.Sub(s.now())
		return &Decision{
			Code:                  domain.DecisionNotDue,
			Reason:                fmt.Sprintf("next payment not due yet, wait %.0f seconds", wait.Seconds()),
			NextInstallmentNumber: nextNumber,
			AvailableBalance:      available,
			WaitRemaining:         wait,
		}, nil
	}

	existing, err := s.txns.GetActiveForReceiver(recv.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return &Decision{
			Code:                  domain.DecisionInProgress,
			Reason:                fmt.Sprintf("installment %d already in progress (transaction %d)", existing.InstallmentNumber, existing.ID),
			NextInstallmentNumber: nextNumber,
			AvailableBalance:      available,
			BlockingTransactionID: existing.ID,
		}, nil
	}

	return &Decision{
		Allowed:               true,
		Code:                  domain.DecisionReady,
		Reason:                "ready for next installment",
		NextInstallmentNumber: nextNumber,
		AvailableBalance:      available,
	}, nil
}

// ProgressReport summarizes a receiver's installment history.
type ProgressReport struct {
	Receiver           *models.Receiver                `json:"receiver"`
	TotalInstallments  int                             `json:"total_installments"`
	Completed          int                             `json:"completed_installments"`
	Pending            int                             `json:"pending_installments"`
	Failed             int                             `json:"failed_installments"`
	TotalAmount        decimal.Decimal                 `json:"total_amount"`
	CompletedAmount    decimal.Decimal                 `json:"completed_amount"`
	ProgressPercentage float64                         `json:"progress_percentage"`
	Transactions       []models.InstallmentTransaction `json:"transactions"`
}

// Progress builds the per-receiver progress report from persisted
// transactions.
func (s *InstallmentService) Progress(recv *models.Receiver) (*ProgressReport, error) {
	txns, err := s.txns.ListByReceiver(recv.ID)
	if err != nil {
		return nil, err
	}
	var completed, pending, failed int
	for _, t := range txns {
		switch t.Status {
		case domain.TxnStatusSuccess:
			completed++
		case domain.TxnStatusPending, domain.TxnStatusProcessing:
			pending++
		case domain.TxnStatusFailed:
			failed++
		}
	}
	progress := 0.0
	if recv.NumberOfInstallments > 0 {
		progress = float64(completed) / float64(recv.NumberOfInstallments) * 100
	}
	return &ProgressReport{
		Receiver:           recv,
		TotalInstallments:  recv.NumberOfInstallments,
		Completed:          completed,
		Pending:            pending,
		Failed:             failed,
		TotalAmount:        recv.TotalAmount(),
		CompletedAmount:    recv.AmountPerInstallment.Mul(decimal.NewFromInt(int64(completed))),
		ProgressPercentage: progress,
		Transactions:       txns,
	}, nil
}
