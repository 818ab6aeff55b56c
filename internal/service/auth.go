package service

import (
	"context"
	"errors"
	"fmt"

	"mpola/config"
	"mpola/internal/auth"
	"mpola/internal/models"
	"mpola/internal/repository"

	"mpola/pkg/payment"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// AuthService registers customers (locally and with the payment provider)
// and issues tokens.
type AuthService struct {
	cfg       *config.Config
	customers *repository.CustomerRepository
	provider  payment.Provider
}

func NewAuthService(cfg *config.Config, customers *repository.CustomerRepository, provider payment.Provider) *AuthService {
	return &AuthService{cfg: cfg, customers: customers, provider: provider}
}

type RegisterInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Phone       string
	CountryCode string
}

// Register creates the customer with the provider first, then locally. A
// duplicate email returns the existing customer unchanged.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.Customer, bool, error) {
	if in.Email == "" || in.Password == "" {
		return nil, false, fmt.Errorf("%w: email and password are required", ErrValidation)
	}
	if existing, err := s.customers.GetByEmail(in.Email); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	providerID, err := s.provider.CreateCustomer(ctx, payment.CustomerRequest{
		Email:       in.Email,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Phone:       in.Phone,
		CountryCode: in.CountryCode,
	})
	if err != nil {
		return nil, false, fmt.Errorf("provider customer creation: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, err
	}
	customer := &models.Customer{
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		CountryCode:  in.CountryCode,
		ProviderID:   providerID,
		PasswordHash: string(hash),
	}
	if err := s.customers.Create(customer); err != nil {
		return nil, false, err
	}
	return customer, true, nil
}

// Login verifies credentials and returns an access token.
func (s *AuthService) Login(email, password string) (*models.Customer, string, error) {
	customer, err := s.customers.GetByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}
	token, err := auth.GenerateAccessToken(&s.cfg.JWT, customer.ID, customer.Email)
	if err != nil {
		return nil, "", err
	}
	return customer, token, nil
}
