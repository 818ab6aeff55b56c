package service

import (
	"errors"
	"fmt"

	"mpola/internal/models"
)

var (
	// ErrValidation marks malformed input rejected before any state mutation.
	ErrValidation = errors.New("validation failed")

	// ErrUnrecognizedEvent is returned for webhook event types outside the
	// known set; no state was changed.
	ErrUnrecognizedEvent = errors.New("unrecognized webhook event")

	// ErrAlreadyFunded rejects deposit creation for a schedule whose funded
	// total already covers the required amount.
	ErrAlreadyFunded = errors.New("schedule is already adequately funded")

	// ErrRateUnavailable wraps exchange-rate lookup failures. There is no
	// fallback rate; the failure is surfaced to the caller.
	ErrRateUnavailable = errors.New("exchange rate unavailable")
)

// PolicyError carries a tracker refusal. It is a normal decision outcome, not
// a fault; handlers turn it into a structured 400 response.
type PolicyError struct {
	Decision *Decision
}

func (e *PolicyError) Error() string {
	return "payout refused: " + e.Decision.Reason
}

// ProviderError reports a failed provider round-trip. The originating
// transaction, already resolved to a terminal failed state, rides along.
type ProviderError struct {
	Op          string
	Transaction *models.InstallmentTransaction
	Err         error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// PendingDepositError rejects a new deposit while another is still open.
type PendingDepositError struct {
	Existing *models.FundTransaction
}

func (e *PendingDepositError) Error() string {
	return "a pending fund transaction already exists for this schedule"
}
