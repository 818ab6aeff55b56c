package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Receiver is a payee entitled to a fixed number of equal installments under
// one schedule. Phone numbers are unique within a schedule, not globally.
type Receiver struct {
	ID                   uint            `gorm:"primaryKey" json:"id"`
	ScheduleID           uuid.UUID       `gorm:"type:char(36);not null;uniqueIndex:idx_receivers_schedule_phone" json:"schedule_id"`
	Name                 string          `gorm:"size:100;not null" json:"name"`
	Phone                string          `gorm:"size:20;not null;uniqueIndex:idx_receivers_schedule_phone" json:"phone"`
	CountryCode          string          `gorm:"size:5;not null" json:"country_code"`
	AmountPerInstallment decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount_per_installment"`
	NumberOfInstallments int             `gorm:"not null" json:"number_of_installments"`
	CreatedAt            time.Time       `json:"created_at"`

	Schedule PaymentSchedule `gorm:"foreignKey:ScheduleID" json:"-"`
}

func (Receiver) TableName() string {
	return "receivers"
}

// TotalAmount is the receiver's full entitlement across all installments.
func (r *Receiver) TotalAmount() decimal.Decimal {
	return r.AmountPerInstallment.Mul(decimal.NewFromInt(int64(r.NumberOfInstallments)))
}
