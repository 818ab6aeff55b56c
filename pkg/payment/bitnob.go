package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BitnobProvider implements Provider against the Bitnob API.
type BitnobProvider struct {
	BaseURL string
	APIKey  string
	client  *http.Client
}

func NewBitnobProvider(baseURL, apiKey string, timeout time.Duration) *BitnobProvider {
	if baseURL == "" {
		baseURL = "https://api.bitnob.co/api/v1"
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &BitnobProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type bitnobEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (p *BitnobProvider) do(ctx context.Context, method, path string, payload interface{}) (*bitnobEnvelope, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	var out bitnobEnvelope
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("bitnob %s: unexpected response (%d): %s", path, resp.StatusCode, string(respBody))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !out.Status {
		msg := out.Message
		if msg == "" {
			msg = string(respBody)
		}
		return nil, fmt.Errorf("bitnob %s failed (%d): %s", path, resp.StatusCode, msg)
	}
	return &out, nil
}

func (p *BitnobProvider) CreateCustomer(ctx context.Context, req CustomerRequest) (string, error) {
	env, err := p.do(ctx, http.MethodPost, "/customers", map[string]string{
		"email":       req.Email,
		"firstName":   req.FirstName,
		"lastName":    req.LastName,
		"phone":       req.Phone,
		"countryCode": req.CountryCode,
	})
	if err != nil {
		return "", err
	}
	var data struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.ID == "" {
		return "", fmt.Errorf("bitnob customers: missing id in response")
	}
	return data.ID, nil
}

// LookupAccount resolves a mobile-money account name. Uganda numbers are not
// supported by the lookup endpoint and are skipped.
func (p *BitnobProvider) LookupAccount(ctx context.Context, countryCode, accountNumber string) (*AccountInfo, error) {
	switch countryCode {
	case "+256", "256", "UG":
		return &AccountInfo{AccountName: "Mobile Money Account"}, nil
	}
	env, err := p.do(ctx, http.MethodPost, "/payouts/mobile/lookup", map[string]string{
		"countryCode":   countryCode,
		"accountNumber": accountNumber,
	})
	if err != nil {
		return nil, err
	}
	var data struct {
		AccountName string `json:"accountName"`
	}
	_ = json.Unmarshal(env.Data, &data)
	return &AccountInfo{AccountName: data.AccountName}, nil
}

func (p *BitnobProvider) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	payload := map[string]interface{}{
		"countryCode":   req.CountryCode,
		"accountNumber": req.AccountNumber,
		"senderName":    req.SenderName,
		"amount":        req.AmountCents,
		"description":   req.Description,
	}
	if req.CallbackURL != "" {
		payload["callbackUrl"] = req.CallbackURL
	}
	env, err := p.do(ctx, http.MethodPost, "/mobile-payments/initiate", payload)
	if err != nil {
		return nil, err
	}
	var data struct {
		ID             string `json:"id"`
		Reference      string `json:"reference"`
		PaymentRequest string `json:"paymentRequest"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("bitnob invoice: %w", err)
	}
	if data.ID == "" || data.Reference == "" {
		return nil, fmt.Errorf("bitnob invoice: response missing id or reference")
	}
	return &Invoice{ID: data.ID, Reference: data.Reference, PaymentRequest: data.PaymentRequest}, nil
}

func (p *BitnobProvider) PayInvoice(ctx context.Context, req PayRequest) error {
	if req.InvoiceID == "" || req.Reference == "" {
		return fmt.Errorf("bitnob pay: invoice id and reference are required")
	}
	_, err := p.do(ctx, http.MethodPost, "/mobile-payments/pay/"+req.InvoiceID, map[string]string{
		"customerEmail": req.CustomerEmail,
		"reference":     req.Reference,
		"wallet":        req.Wallet,
	})
	return err
}

// GetBuyRate fetches the payout rate table and returns the buy rate for the
// given currency. A missing rate is an error; there is no fallback rate.
func (p *BitnobProvider) GetBuyRate(ctx context.Context, currency string) (decimal.Decimal, error) {
	env, err := p.do(ctx, http.MethodGet, "/wallets/payout/rates", nil)
	if err != nil {
		return decimal.Zero, err
	}
	var rates map[string]struct {
		BuyRate  json.Number `json:"buyRate"`
		SellRate json.Number `json:"sellRate"`
	}
	if err := json.Unmarshal(env.Data, &rates); err != nil {
		return decimal.Zero, fmt.Errorf("bitnob rates: %w", err)
	}
	entry, ok := rates[currency]
	if !ok || entry.BuyRate == "" {
		return decimal.Zero, fmt.Errorf("bitnob rates: no buy rate for %s", currency)
	}
	rate, err := decimal.NewFromString(entry.BuyRate.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("bitnob rates: bad buy rate %q for %s", entry.BuyRate, currency)
	}
	return rate, nil
}

func (p *BitnobProvider) GenerateDepositAddress(ctx context.Context, network, customerEmail, label string) (string, error) {
	env, err := p.do(ctx, http.MethodPost, "/addresses/"+strings.ToLower(network)+"/generate", map[string]string{
		"customerEmail": customerEmail,
		"label":         label,
	})
	if err != nil {
		return "", err
	}
	var data struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Address == "" {
		return "", fmt.Errorf("bitnob addresses: response missing address")
	}
	return data.Address, nil
}
