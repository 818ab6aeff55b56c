package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstallmentTransaction is one disbursement attempt of one installment to one
// receiver. The composite unique index on (receiver_id, installment_number) is
// the arbiter that closes the concurrent-initiation race; the tracker's
// in-progress check is only a fast path.
type InstallmentTransaction struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	ReceiverID        uint            `gorm:"not null;uniqueIndex:idx_txn_receiver_installment" json:"receiver_id"`
	InstallmentNumber int             `gorm:"not null;uniqueIndex:idx_txn_receiver_installment" json:"installment_number"`
	Amount            decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Status            string          `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Reference         *string         `gorm:"size:100;uniqueIndex" json:"reference"` // provider reference, nil until invoice created
	SentAt            *time.Time      `json:"sent_at"`
	CompletedAt       *time.Time      `json:"completed_at"` // set exactly once, on first success
	FailureReason     string          `gorm:"type:text" json:"failure_reason"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	Receiver Receiver `gorm:"foreignKey:ReceiverID" json:"-"`
}

func (InstallmentTransaction) TableName() string {
	return "installment_transactions"
}

// Terminal reports whether the transaction has reached a final state.
func (t *InstallmentTransaction) Terminal() bool {
	return t.Status == "success" || t.Status == "cancelled"
}
