package domain

import (
	"strings"
	"time"
)

const (
	ScheduleStatusActive    = "active"
	ScheduleStatusPaused    = "paused"
	ScheduleStatusCompleted = "completed"
	ScheduleStatusCancelled = "cancelled"
)

const (
	TxnStatusPending    = "pending"
	TxnStatusProcessing = "processing"
	TxnStatusSuccess    = "success"
	TxnStatusFailed     = "failed"
	TxnStatusCancelled  = "cancelled"
)

const (
	FundStatusPending = "pending"
	FundStatusPaid    = "paid"
	FundStatusExpired = "expired"
	FundStatusFailed  = "failed"
)

// Decision codes returned by the installment tracker. Callers branch on the
// code; the reason string is for humans.
const (
	DecisionReady             = "ready"
	DecisionCompleted         = "completed"
	DecisionInsufficientFunds = "insufficient_funds"
	DecisionNotDue            = "not_due"
	DecisionInProgress        = "in_progress"
)

// Settlement webhook events for installment payouts.
const (
	EventSettlementSuccess = "mobilepayment.settlement.success"
	EventSettlementFailed  = "mobilepayment.settlement.failed"
	EventSettlementPending = "mobilepayment.settlement.pending"
)

// Funding webhook events arrive under the stablecoin/deposit namespaces.
var (
	FundingSuccessEvents = []string{
		"stablecoin.settlement.success",
		"stablecoin.deposit.confirmed",
		"stablecoin.transaction.confirmed",
		"deposit.confirmed",
	}
	FundingFailedEvents = []string{
		"stablecoin.settlement.failed",
		"stablecoin.deposit.failed",
		"stablecoin.transaction.failed",
		"deposit.failed",
	}
	FundingExpiredEvents = []string{
		"stablecoin.settlement.expired",
		"stablecoin.deposit.expired",
		"stablecoin.transaction.expired",
		"deposit.expired",
	}
	FundingPendingEvents = []string{
		"stablecoin.settlement.pending",
		"stablecoin.deposit.pending",
		"deposit.pending",
	}
)

// IsFundingEvent reports whether an inbound event belongs to the funding
// pipeline rather than payment settlement.
func IsFundingEvent(event string) bool {
	return strings.HasPrefix(event, "stablecoin.") || strings.HasPrefix(event, "deposit.")
}

const (
	FrequencyTest30Sec = "test_30sec"
	FrequencyTest2Min  = "test_2min"
	FrequencyTest5Min  = "test_5min"
	FrequencyHourly    = "hourly"
	FrequencyDaily     = "daily"
	FrequencyWeekly    = "weekly"
	FrequencyBiweekly  = "biweekly"
	FrequencyMonthly   = "monthly"
	FrequencyQuarterly = "quarterly"
	FrequencyAnnually  = "annually"
)

// frequencyIntervals maps frequency tokens to fixed-length intervals. Months,
// quarters and years are approximated; there is no calendar-aware arithmetic.
var frequencyIntervals = map[string]time.Duration{
	FrequencyTest30Sec: 30 * time.Second,
	FrequencyTest2Min:  2 * time.Minute,
	FrequencyTest5Min:  5 * time.Minute,
	FrequencyHourly:    time.Hour,
	FrequencyDaily:     24 * time.Hour,
	FrequencyWeekly:    7 * 24 * time.Hour,
	FrequencyBiweekly:  14 * 24 * time.Hour,
	FrequencyMonthly:   30 * 24 * time.Hour,
	FrequencyQuarterly: 90 * 24 * time.Hour,
	FrequencyAnnually:  365 * 24 * time.Hour,
}

// FrequencyInterval returns the payment interval for a frequency token.
// Unknown tokens fall back to the monthly interval.
func FrequencyInterval(frequency string) time.Duration {
	if d, ok := frequencyIntervals[frequency]; ok {
		return d
	}
	return frequencyIntervals[FrequencyMonthly]
}

// ValidFrequency reports whether the token is one of the supported frequencies.
func ValidFrequency(frequency string) bool {
	_, ok := frequencyIntervals[frequency]
	return ok
}

// DepositNetworks are the stablecoin networks accepted for funding deposits.
var DepositNetworks = []string{"TRON", "ETHEREUM", "BSC", "POLYGON"}

func ValidDepositNetwork(network string) bool {
	for _, n := range DepositNetworks {
		if n == network {
			return true
		}
	}
	return false
}
