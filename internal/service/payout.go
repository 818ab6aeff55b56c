package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"mpola/config"
	"mpola/internal/domain"
	"mpola/internal/models"
	"mpola/internal/repository"

	"mpola/pkg/payment"
)

// PayoutService drives the lifecycle of a single disbursement attempt:
// pending at creation, processing after a successful invoice-and-pay
// round-trip, failed on provider rejection. Webhooks settle the rest.
type PayoutService struct {
	cfg          *config.Config
	provider     payment.Provider
	customers    *repository.CustomerRepository
	schedules    *repository.ScheduleRepository
	receivers    *repository.ReceiverRepository
	txns         *repository.TransactionRepository
	installments *InstallmentService
	now          func() time.Time
}

func NewPayoutService(
	cfg *config.Config,
	provider payment.Provider,
	customers *repository.CustomerRepository,
	schedules *repository.ScheduleRepository,
	receivers *repository.ReceiverRepository,
	txns *repository.TransactionRepository,
	installments *InstallmentService,
) *PayoutService {
	return &PayoutService{
		cfg:          cfg,
		provider:     provider,
		customers:    customers,
		schedules:    schedules,
		receivers:    receivers,
		txns:         txns,
		installments: installments,
		now:          time.Now,
	}
}

type PayoutResult struct {
	Transaction       *models.InstallmentTransaction `json:"transaction"`
	Reference         string                         `json:"reference"`
	PaymentRequest    string                         `json:"payment_request"`
	InstallmentNumber int                            `json:"installment_number"`
	Receiver          *models.Receiver               `json:"receiver"`
	Schedule          *models.PaymentSchedule        `json:"schedule"`
}

// InitiatePayout attempts the receiver's next installment. The pending
// transaction row is created before any provider I/O so the uniqueness
// constraint closes the concurrent-initiation race without holding a lock
// across the network call.
func (s *PayoutService) InitiatePayout(ctx context.Context, receiverID uint, senderName string) (*PayoutResult, error) {
	if senderName == "" {
		return nil, fmt.Errorf("%w: sender name is required", ErrValidation)
	}
	recv, err := s.receivers.GetByID(receiverID)
	if err != nil {
		return nil, err
	}
	sched, err := s.schedules.GetByID(recv.ScheduleID)
	if err != nil {
		return nil, err
	}
	customer, err := s.customers.GetByID(sched.CustomerID)
	if err != nil {
		return nil, err
	}

	decision, err := s.installments.CanReceiveNextInstallment(recv, sched)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &PolicyError{Decision: decision}
	}

	// Advisory account lookup; a failure never blocks the payout.
	if _, err := s.provider.LookupAccount(ctx, recv.CountryCode, recv.Phone); err != nil {
		log.Printf("[Payout] lookup failed for %s %s, continuing: %v", recv.CountryCode, recv.Phone, err)
	}

	sentAt := s.now()
	txn := &models.InstallmentTransaction{
		ReceiverID:        recv.ID,
		InstallmentNumber: decision.NextInstallmentNumber,
		Amount:            recv.AmountPerInstallment,
		Status:            domain.TxnStatusPending,
		SentAt:            &sentAt,
	}
	if err := s.txns.Create(txn); err != nil {
		if errors.Is(err, repository.ErrInstallmentExists) {
			return nil, s.lostRace(recv.ID, decision)
		}
		return nil, err
	}

	invoice, err := s.provider.CreateInvoice(ctx, payment.InvoiceRequest{
		CountryCode:   recv.CountryCode,
		AccountNumber: recv.Phone,
		SenderName:    senderName,
		AmountCents:   recv.AmountPerInstallment.Shift(2).IntPart(),
		Description:   fmt.Sprintf("Payout to %s", recv.Phone),
		CallbackURL:   s.callbackURL(),
	})
	if err != nil {
		s.failTransaction(txn, fmt.Sprintf("invoice creation failed: %v", err))
		return nil, &ProviderError{Op: "invoice", Transaction: txn, Err: err}
	}
	txn.Reference = &invoice.Reference

	if err := s.provider.PayInvoice(ctx, payment.PayRequest{
		CustomerEmail: customer.Email,
		InvoiceID:     invoice.ID,
		Reference:     invoice.Reference,
		Wallet:        s.cfg.Payment.SettlementWallet,
	}); err != nil {
		s.failTransaction(txn, fmt.Sprintf("payment failed: %v", err))
		return nil, &ProviderError{Op: "pay", Transaction: txn, Err: err}
	}

	txn.Status = domain.TxnStatusProcessing
	if err := s.txns.Update(txn); err != nil {
		return nil, err
	}
	log.Printf("[Payout] initiated installment %d for receiver %d (ref=%s)",
		txn.InstallmentNumber, recv.ID, invoice.Reference)

	return &PayoutResult{
		Transaction:       txn,
		Reference:         invoice.Reference,
		PaymentRequest:    invoice.PaymentRequest,
		InstallmentNumber: txn.InstallmentNumber,
		Receiver:          recv,
		Schedule:          sched,
	}, nil
}

// lostRace builds the deterministic "already in progress" refusal for the
// loser of a concurrent creation attempt.
func (s *PayoutService) lostRace(receiverID uint, decision *Decision) error {
	d := &Decision{
		Code:                  domain.DecisionInProgress,
		Reason:                fmt.Sprintf("installment %d already in progress", decision.NextInstallmentNumber),
		NextInstallmentNumber: decision.NextInstallmentNumber,
		AvailableBalance:      decision.AvailableBalance,
	}
	if existing, err := s.txns.GetActiveForInstallment(receiverID, decision.NextInstallmentNumber); err == nil {
		d.BlockingTransactionID = existing.ID
		d.Reason = fmt.Sprintf("installment %d already in progress (transaction %d)",
			decision.NextInstallmentNumber, existing.ID)
	}
	return &PolicyError{Decision: d}
}

// failTransaction resolves a pending attempt to a terminal failed state with
// the recorded reason. Timeouts land here too; nothing stays pending forever
// on a provider fault.
func (s *PayoutService) failTransaction(txn *models.InstallmentTransaction, reason string) {
	txn.Status = domain.TxnStatusFailed
	txn.FailureReason = reason
	if err := s.txns.Update(txn); err != nil {
		log.Printf("[Payout] failed to record failure on transaction %d: %v", txn.ID, err)
	}
}

func (s *PayoutService) callbackURL() string {
	if s.cfg.Bitnob.WebhookBaseURL == "" {
		return ""
	}
	return s.cfg.Bitnob.WebhookBaseURL + "/api/v1/webhooks/bitnob"
}
