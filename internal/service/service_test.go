package service

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"mpola/config"
	"mpola/internal/domain"
	"mpola/internal/models"
	"mpola/internal/repository"
	"mpola/pkg/payment"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fixture wires the full service stack onto an in-memory database with a
// controllable clock and a stub provider.
type fixture struct {
	db        *gorm.DB
	cfg       *config.Config
	provider  *payment.StubProvider
	clock     time.Time
	customers *repository.CustomerRepository
	schedules *repository.ScheduleRepository
	receivers *repository.ReceiverRepository
	txns      *repository.TransactionRepository
	funding   *repository.FundingRepository
	refSeq    atomic.Int64

	ledger       *LedgerService
	scheduleSvc  *ScheduleService
	installments *InstallmentService
	payouts      *PayoutService
	webhooks     *WebhookService
	fundingSvc   *FundingService
	authSvc      *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.Customer{},
		&models.PaymentSchedule{},
		&models.Receiver{},
		&models.InstallmentTransaction{},
		&models.FundTransaction{},
	))

	cfg := &config.Config{
		JWT: config.JWTConfig{
			AccessSecret: "test-secret",
			AccessExpiry: time.Hour,
			Issuer:       "mpola",
		},
		Bitnob: config.BitnobConfig{WebhookBaseURL: "https://example.test"},
		Payment: config.PaymentConfig{
			Currency:          "UGX",
			ProcessingFeeRate: decimal.NewFromFloat(0.015),
			SettlementWallet:  "USD",
		},
	}

	f := &fixture{
		db:        db,
		cfg:       cfg,
		provider:  payment.NewStubProvider(),
		clock:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		customers: repository.NewCustomerRepository(db),
		schedules: repository.NewScheduleRepository(db),
		receivers: repository.NewReceiverRepository(db),
		txns:      repository.NewTransactionRepository(db),
		funding:   repository.NewFundingRepository(db),
	}
	now := func() time.Time { return f.clock }

	f.ledger = NewLedgerService(db, f.schedules, f.funding, f.txns)
	f.scheduleSvc = NewScheduleService(db, f.schedules, f.receivers, cfg.Payment.ProcessingFeeRate, cfg.Payment.Currency)
	f.scheduleSvc.now = now
	f.installments = NewInstallmentService(f.ledger, f.scheduleSvc, f.txns)
	f.installments.now = now
	f.payouts = NewPayoutService(cfg, f.provider, f.customers, f.schedules, f.receivers, f.txns, f.installments)
	f.payouts.now = now
	f.webhooks = NewWebhookService(db, f.txns, f.funding, f.receivers, f.schedules, f.scheduleSvc, f.ledger)
	f.webhooks.now = now
	f.fundingSvc = NewFundingService(db, f.provider, f.customers, f.schedules, f.funding, f.txns, f.ledger)
	f.authSvc = NewAuthService(cfg, f.customers, f.provider)
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) seedCustomer(t *testing.T) *models.Customer {
	t.Helper()
	nano := time.Now().UnixNano()
	c := &models.Customer{
		Email:       fmt.Sprintf("sender%d@example.test", nano),
		FirstName:   "Grace",
		LastName:    "Nakato",
		Phone:       "772000001",
		CountryCode: "+256",
		ProviderID:  fmt.Sprintf("cus-%d", nano),
	}
	require.NoError(t, f.customers.Create(c))
	return c
}

// seedPlan creates an active schedule with one receiver and a next payment
// date already in the past, so timing never blocks unless a test wants it to.
func (f *fixture) seedPlan(t *testing.T, amountPer string, installments int) (*models.PaymentSchedule, *models.Receiver) {
	t.Helper()
	customer := f.seedCustomer(t)
	start := f.clock.Add(-48 * time.Hour)
	sched, receivers, err := f.scheduleSvc.CreatePlan(customer.ID, CreatePlanInput{
		Title:     "School fees",
		Frequency: domain.FrequencyDaily,
		StartDate: &start,
		Receivers: []ReceiverInput{{
			Name:                 "Okello",
			Phone:                "772123456",
			CountryCode:          "+256",
			AmountPerInstallment: dec(amountPer),
			NumberOfInstallments: installments,
		}},
	})
	require.NoError(t, err)
	require.Len(t, receivers, 1)
	return sched, &receivers[0]
}

// fund records a paid deposit so the schedule has available balance.
func (f *fixture) fund(t *testing.T, sched *models.PaymentSchedule, amount string) *models.FundTransaction {
	t.Helper()
	fund := &models.FundTransaction{
		ScheduleID: sched.ID,
		Reference:  fmt.Sprintf("fund-%d", f.refSeq.Add(1)),
		Amount:     dec(amount),
		Currency:   "UGX",
		Status:     domain.FundStatusPaid,
	}
	require.NoError(t, f.funding.Create(fund))
	return fund
}

// pendingDeposit records an unpaid deposit with a known reference.
func (f *fixture) pendingDeposit(t *testing.T, sched *models.PaymentSchedule, amount, ref string) *models.FundTransaction {
	t.Helper()
	fund := &models.FundTransaction{
		ScheduleID: sched.ID,
		Reference:  ref,
		Amount:     dec(amount),
		Currency:   "UGX",
		Status:     domain.FundStatusPending,
	}
	require.NoError(t, f.funding.Create(fund))
	return fund
}

// recordPayout persists an installment transaction in the given status.
func (f *fixture) recordPayout(t *testing.T, recv *models.Receiver, number int, amount, status string) *models.InstallmentTransaction {
	t.Helper()
	ref := fmt.Sprintf("payout-%d-%d", recv.ID, number)
	txn := &models.InstallmentTransaction{
		ReceiverID:        recv.ID,
		InstallmentNumber: number,
		Amount:            dec(amount),
		Status:            status,
		Reference:         &ref,
	}
	require.NoError(t, f.txns.Create(txn))
	return txn
}
