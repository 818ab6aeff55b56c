package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

type CustomerRequest struct {
	Email       string
	FirstName   string
	LastName    string
	Phone       string
	CountryCode string
}

type InvoiceRequest struct {
	CountryCode   string
	AccountNumber string
	SenderName    string
	AmountCents   int64
	Description   string
	CallbackURL   string
}

// Invoice is the provider's response to a mobile-payment initiation.
type Invoice struct {
	ID             string
	Reference      string
	PaymentRequest string
}

type PayRequest struct {
	CustomerEmail string
	InvoiceID     string
	Reference     string
	Wallet        string
}

type AccountInfo struct {
	AccountName string
}

// Provider is the payment-provider capability consumed by the core. It is
// injected everywhere so tests can substitute a double.
type Provider interface {
	CreateCustomer(ctx context.Context, req CustomerRequest) (string, error)
	LookupAccount(ctx context.Context, countryCode, accountNumber string) (*AccountInfo, error)
	CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error)
	PayInvoice(ctx context.Context, req PayRequest) error
	// GetBuyRate returns local-currency units per stablecoin-equivalent unit.
	GetBuyRate(ctx context.Context, currency string) (decimal.Decimal, error)
	GenerateDepositAddress(ctx context.Context, network, customerEmail, label string) (string, error)
}
