package service

import (
	"fmt"
	"log"
	"time"

	"mpola/internal/domain"
	"mpola/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WebhookEvent is an inbound provider notification.
type WebhookEvent struct {
	Type      string `json:"event"`
	Reference string `json:"reference"`
	Message   string `json:"message"`
}

// WebhookResult reports what a delivery did. Applied is false when the event
// was a duplicate of an already-applied transition.
type WebhookResult struct {
	Kind          string    `json:"kind"` // "funding" or "settlement"
	TransactionID string    `json:"transaction_id"`
	ScheduleID    uuid.UUID `json:"schedule_id,omitempty"`
	OldStatus     string    `json:"old_status"`
	NewStatus     string    `json:"new_status"`
	Applied       bool      `json:"applied"`
}

// WebhookService routes provider notifications to the funding or settlement
// pipeline. All writes for one delivery happen in a single database
// transaction, serialized per reference by a row lock, so duplicate
// deliveries cannot double-apply a transition.
type WebhookService struct {
	db        *gorm.DB
	txns      *repository.TransactionRepository
	funding   *repository.FundingRepository
	receivers *repository.ReceiverRepository
	schedules *repository.ScheduleRepository
	scheduler *ScheduleService
	ledger    *LedgerService
	now       func() time.Time
}

func NewWebhookService(
	db *gorm.DB,
	txns *repository.TransactionRepository,
	funding *repository.FundingRepository,
	receivers *repository.ReceiverRepository,
	schedules *repository.ScheduleRepository,
	scheduleSvc *ScheduleService,
	ledger *LedgerService,
) *WebhookService {
	return &WebhookService{
		db:        db,
		txns:      txns,
		funding:   funding,
		receivers: receivers,
		schedules: schedules,
		scheduler: scheduleSvc,
		ledger:    ledger,
		now:       time.Now,
	}
}

// Process applies one webhook delivery. Unknown event types change nothing
// and return ErrUnrecognizedEvent; unknown references return
// repository.ErrNotFound.
func (s *WebhookService) Process(event WebhookEvent) (*WebhookResult, error) {
	if event.Type == "" || event.Reference == "" {
		return nil, fmt.Errorf("%w: event and reference are required", ErrValidation)
	}
	if domain.IsFundingEvent(event.Type) {
		return s.processFunding(event)
	}
	return s.processSettlement(event)
}

func (s *WebhookService) processSettlement(event WebhookEvent) (*WebhookResult, error) {
	var result *WebhookResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txn, err := s.txns.GetByReferenceForUpdate(tx, event.Reference)
		if err != nil {
			return err
		}
		old := txn.Status
		result = &WebhookResult{
			Kind:          "settlement",
			TransactionID: fmt.Sprintf("%d", txn.ID),
			OldStatus:     old,
			NewStatus:     old,
		}

		switch event.Type {
		case domain.EventSettlementSuccess:
			if txn.Status == domain.TxnStatusSuccess {
				log.Printf("[Webhook] transaction %d already success, duplicate delivery ignored", txn.ID)
				return nil
			}
			txn.Status = domain.TxnStatusSuccess
			if txn.CompletedAt == nil {
				now := s.now()
				txn.CompletedAt = &now
			}
			if err := s.txns.UpdateTx(tx, txn); err != nil {
				return err
			}
			recv, err := s.receivers.GetByIDTx(tx, txn.ReceiverID)
			if err != nil {
				return err
			}
			sched, err := s.schedules.GetByIDForUpdate(tx, recv.ScheduleID)
			if err != nil {
				return err
			}
			if err := s.scheduler.UpdatePaymentDatesTx(tx, sched); err != nil {
				return err
			}
			result.ScheduleID = sched.ID

		case domain.EventSettlementFailed:
			if txn.Terminal() {
				log.Printf("[Webhook] transaction %d already %s, failure event ignored", txn.ID, txn.Status)
				return nil
			}
			txn.Status = domain.TxnStatusFailed
			txn.FailureReason = failureReason(event.Message, "payment failed via webhook")
			if err := s.txns.UpdateTx(tx, txn); err != nil {
				return err
			}

		case domain.EventSettlementPending:
			if txn.Terminal() {
				log.Printf("[Webhook] transaction %d already %s, pending event ignored", txn.ID, txn.Status)
				return nil
			}
			log.Printf("[Webhook] transaction %d reported pending by provider", txn.ID)
			txn.Status = domain.TxnStatusPending
			if err := s.txns.UpdateTx(tx, txn); err != nil {
				return err
			}

		default:
			return fmt.Errorf("%w: %s", ErrUnrecognizedEvent, event.Type)
		}

		result.NewStatus = txn.Status
		result.Applied = txn.Status != old
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Applied {
		log.Printf("[Webhook] transaction %s: %s -> %s (%s)",
			result.TransactionID, result.OldStatus, result.NewStatus, event.Type)
	}
	return result, nil
}

func (s *WebhookService) processFunding(event WebhookEvent) (*WebhookResult, error) {
	var result *WebhookResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		fund, err := s.funding.GetByReferenceForUpdate(tx, event.Reference)
		if err != nil {
			return err
		}
		old := fund.Status
		result = &WebhookResult{
			Kind:          "funding",
			TransactionID: fund.ID.String(),
			ScheduleID:    fund.ScheduleID,
			OldStatus:     old,
			NewStatus:     old,
		}

		// Paid is terminal; duplicate or late events must not unfund the
		// schedule or double-count the amount.
		if fund.Status == domain.FundStatusPaid {
			if contains(domain.FundingSuccessEvents, event.Type) {
				log.Printf("[Webhook] fund transaction %s already paid, duplicate delivery ignored", fund.ID)
				return nil
			}
			if s.knownFundingEvent(event.Type) {
				log.Printf("[Webhook] fund transaction %s already paid, %s ignored", fund.ID, event.Type)
				return nil
			}
			return fmt.Errorf("%w: %s", ErrUnrecognizedEvent, event.Type)
		}

		switch {
		case contains(domain.FundingSuccessEvents, event.Type):
			fund.Status = domain.FundStatusPaid
			if err := s.funding.UpdateTx(tx, fund); err != nil {
				return err
			}
			sched, err := s.schedules.GetByIDForUpdate(tx, fund.ScheduleID)
			if err != nil {
				return err
			}
			funded, err := s.ledger.UpdateFundingStatusTx(tx, sched)
			if err != nil {
				return err
			}
			log.Printf("[Webhook] schedule %s funded by %s (fully funded: %t)", sched.ID, fund.Amount, funded)

		case contains(domain.FundingFailedEvents, event.Type):
			fund.Status = domain.FundStatusFailed
			if err := s.funding.UpdateTx(tx, fund); err != nil {
				return err
			}
			log.Printf("[Webhook] fund transaction %s failed: %s", fund.ID, failureReason(event.Message, "funding failed via webhook"))

		case contains(domain.FundingExpiredEvents, event.Type):
			fund.Status = domain.FundStatusExpired
			if err := s.funding.UpdateTx(tx, fund); err != nil {
				return err
			}

		case contains(domain.FundingPendingEvents, event.Type):
			log.Printf("[Webhook] fund transaction %s reported pending by provider", fund.ID)
			fund.Status = domain.FundStatusPending
			if err := s.funding.UpdateTx(tx, fund); err != nil {
				return err
			}

		default:
			return fmt.Errorf("%w: %s", ErrUnrecognizedEvent, event.Type)
		}

		result.NewStatus = fund.Status
		result.Applied = fund.Status != old
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Applied {
		log.Printf("[Webhook] fund transaction %s: %s -> %s (%s)",
			result.TransactionID, result.OldStatus, result.NewStatus, event.Type)
	}
	return result, nil
}

func (s *WebhookService) knownFundingEvent(eventType string) bool {
	return contains(domain.FundingSuccessEvents, eventType) ||
		contains(domain.FundingFailedEvents, eventType) ||
		contains(domain.FundingExpiredEvents, eventType) ||
		contains(domain.FundingPendingEvents, eventType)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func failureReason(message, fallback string) string {
	if message != "" {
		return message
	}
	return fallback
}
