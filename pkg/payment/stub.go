package payment

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/shopspring/decimal"
)

// StubProvider is an in-memory provider for development and tests. Error
// fields, when set, make the corresponding operation fail.
type StubProvider struct {
	BuyRate decimal.Decimal

	CreateCustomerErr error
	CreateInvoiceErr  error
	PayInvoiceErr     error
	GetBuyRateErr     error
	GenerateAddrErr   error

	seq atomic.Int64
}

func NewStubProvider() *StubProvider {
	return &StubProvider{BuyRate: decimal.NewFromInt(3800)}
}

func (s *StubProvider) next() int64 {
	return s.seq.Add(1)
}

func (s *StubProvider) CreateCustomer(ctx context.Context, req CustomerRequest) (string, error) {
	if s.CreateCustomerErr != nil {
		return "", s.CreateCustomerErr
	}
	return fmt.Sprintf("stub-cus-%d", s.next()), nil
}

func (s *StubProvider) LookupAccount(ctx context.Context, countryCode, accountNumber string) (*AccountInfo, error) {
	return &AccountInfo{AccountName: "Stub Account"}, nil
}

func (s *StubProvider) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	if s.CreateInvoiceErr != nil {
		return nil, s.CreateInvoiceErr
	}
	n := s.next()
	return &Invoice{
		ID:             fmt.Sprintf("stub-inv-%d", n),
		Reference:      fmt.Sprintf("stub-ref-%d", n),
		PaymentRequest: fmt.Sprintf("lnstub%d", n),
	}, nil
}

func (s *StubProvider) PayInvoice(ctx context.Context, req PayRequest) error {
	return s.PayInvoiceErr
}

func (s *StubProvider) GetBuyRate(ctx context.Context, currency string) (decimal.Decimal, error) {
	if s.GetBuyRateErr != nil {
		return decimal.Zero, s.GetBuyRateErr
	}
	return s.BuyRate, nil
}

func (s *StubProvider) GenerateDepositAddress(ctx context.Context, network, customerEmail, label string) (string, error) {
	if s.GenerateAddrErr != nil {
		return "", s.GenerateAddrErr
	}
	return fmt.Sprintf("Tstub%daddress", s.next()), nil
}
