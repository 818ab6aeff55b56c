package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"mpola/internal/domain"
	"mpola/internal/models"
	"mpola/internal/repository"

	"mpola/pkg/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FundingService creates stablecoin deposits for a schedule's remaining
// shortfall and handles manual confirmation.
type FundingService struct {
	db        *gorm.DB
	provider  payment.Provider
	customers *repository.CustomerRepository
	schedules *repository.ScheduleRepository
	funding   *repository.FundingRepository
	txns      *repository.TransactionRepository
	ledger    *LedgerService
}

func NewFundingService(
	db *gorm.DB,
	provider payment.Provider,
	customers *repository.CustomerRepository,
	schedules *repository.ScheduleRepository,
	funding *repository.FundingRepository,
	txns *repository.TransactionRepository,
	ledger *LedgerService,
) *FundingService {
	return &FundingService{
		db:        db,
		provider:  provider,
		customers: customers,
		schedules: schedules,
		funding:   funding,
		txns:      txns,
		ledger:    ledger,
	}
}

// DepositDetails describes a newly created funding deposit.
type DepositDetails struct {
	FundTransaction *models.FundTransaction `json:"fund_transaction"`
	Rate            decimal.Decimal         `json:"rate"`
	Schedule        *models.PaymentSchedule `json:"schedule"`
}

// CreateDeposit provisions a deposit address for the schedule's remaining
// shortfall. A rate-lookup failure is a hard error; there is no fallback
// rate. Only one pending deposit may exist per schedule.
func (s *FundingService) CreateDeposit(ctx context.Context, scheduleID uuid.UUID, network string) (*DepositDetails, error) {
	if !domain.ValidDepositNetwork(network) {
		return nil, fmt.Errorf("%w: unsupported network %q", ErrValidation, network)
	}
	sched, err := s.schedules.GetByID(scheduleID)
	if err != nil {
		return nil, err
	}
	customer, err := s.customers.GetByID(sched.CustomerID)
	if err != nil {
		return nil, err
	}

	funded, err := s.ledger.IsAdequatelyFunded(sched)
	if err != nil {
		return nil, err
	}
	if funded {
		return nil, ErrAlreadyFunded
	}
	if existing, err := s.funding.GetPendingBySchedule(scheduleID); err == nil {
		return nil, &PendingDepositError{Existing: existing}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	shortfall, err := s.ledger.FundingShortfall(sched)
	if err != nil {
		return nil, err
	}

	rate, err := s.provider.GetBuyRate(ctx, sched.Currency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
	}
	if !rate.IsPositive() {
		return nil, fmt.Errorf("%w: non-positive buy rate %s for %s", ErrRateUnavailable, rate, sched.Currency)
	}
	stablecoinAmount := shortfall.Div(rate).Round(6)

	label := fmt.Sprintf("Payment Schedule %s - %s", sched.ID, sched.Title)
	address, err := s.provider.GenerateDepositAddress(ctx, network, customer.Email, label)
	if err != nil {
		return nil, fmt.Errorf("deposit address generation: %w", err)
	}

	fund := &models.FundTransaction{
		ScheduleID:        sched.ID,
		Reference:         uuid.NewString(),
		Amount:            shortfall,
		Currency:          sched.Currency,
		StablecoinAddress: address,
		StablecoinNetwork: network,
		StablecoinAmount:  stablecoinAmount,
		Status:            domain.FundStatusPending,
	}
	if err := s.funding.Create(fund); err != nil {
		return nil, err
	}
	log.Printf("[Funding] deposit created for schedule %s: %s %s (%s stablecoin) at %s",
		sched.ID, fund.Amount, fund.Currency, stablecoinAmount, address)
	return &DepositDetails{FundTransaction: fund, Rate: rate, Schedule: sched}, nil
}

// ConfirmManually marks a fund transaction paid without a webhook (admin
// path). Confirming an already-paid transaction is a no-op.
func (s *FundingService) ConfirmManually(fundID uuid.UUID) (*WebhookResult, error) {
	fund, err := s.funding.GetByID(fundID)
	if err != nil {
		return nil, err
	}
	result := &WebhookResult{
		Kind:          "funding",
		TransactionID: fund.ID.String(),
		ScheduleID:    fund.ScheduleID,
		OldStatus:     fund.Status,
		NewStatus:     fund.Status,
	}
	if fund.Status == domain.FundStatusPaid {
		return result, nil
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.funding.GetByReferenceForUpdate(tx, fund.Reference)
		if err != nil {
			return err
		}
		if locked.Status == domain.FundStatusPaid {
			return nil
		}
		locked.Status = domain.FundStatusPaid
		if err := s.funding.UpdateTx(tx, locked); err != nil {
			return err
		}
		sched, err := s.schedules.GetByIDForUpdate(tx, locked.ScheduleID)
		if err != nil {
			return err
		}
		if _, err := s.ledger.UpdateFundingStatusTx(tx, sched); err != nil {
			return err
		}
		result.NewStatus = locked.Status
		result.Applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Applied {
		log.Printf("[Funding] fund transaction %s manually confirmed", fund.ID)
	}
	return result, nil
}

// FundingStatusReport is the detailed funding picture for one schedule.
type FundingStatusReport struct {
	Schedule           *models.PaymentSchedule  `json:"schedule"`
	TotalRequired      decimal.Decimal          `json:"total_required"`
	TotalFunded        decimal.Decimal          `json:"total_funded"`
	TotalPaymentsMade  decimal.Decimal          `json:"total_payments_made"`
	AvailableBalance   decimal.Decimal          `json:"available_balance"`
	Shortfall          decimal.Decimal          `json:"shortfall"`
	IsAdequatelyFunded bool                     `json:"is_adequately_funded"`
	FundTransactions   []models.FundTransaction `json:"fund_transactions"`
}

// FundingStatus assembles the funding summary from the ledger.
func (s *FundingService) FundingStatus(scheduleID uuid.UUID) (*FundingStatusReport, error) {
	sched, err := s.schedules.GetByID(scheduleID)
	if err != nil {
		return nil, err
	}
	funded, err := s.ledger.TotalFunded(scheduleID)
	if err != nil {
		return nil, err
	}
	paid, err := s.ledger.TotalPaymentsMade(scheduleID)
	if err != nil {
		return nil, err
	}
	shortfall, err := s.ledger.FundingShortfall(sched)
	if err != nil {
		return nil, err
	}
	list, err := s.funding.ListBySchedule(scheduleID)
	if err != nil {
		return nil, err
	}
	return &FundingStatusReport{
		Schedule:           sched,
		TotalRequired:      sched.TotalAmount,
		TotalFunded:        funded,
		TotalPaymentsMade:  paid,
		AvailableBalance:   funded.Sub(paid),
		Shortfall:          shortfall,
		IsAdequatelyFunded: funded.GreaterThanOrEqual(sched.TotalAmount),
		FundTransactions:   list,
	}, nil
}
