package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FundTransaction is one stablecoin deposit intended to fund a schedule.
// Amount is in the schedule's local currency; StablecoinAmount is the target
// deposit amount at 6dp. A schedule's funded total is the sum of its paid
// fund transactions.
type FundTransaction struct {
	ID                uuid.UUID       `gorm:"type:char(36);primaryKey" json:"id"`
	ScheduleID        uuid.UUID       `gorm:"type:char(36);not null;index" json:"schedule_id"`
	Reference         string          `gorm:"size:100;uniqueIndex;not null" json:"reference"`
	Amount            decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Currency          string          `gorm:"size:10;default:'UGX'" json:"currency"`
	StablecoinAddress string          `gorm:"size:200" json:"stablecoin_address"`
	StablecoinNetwork string          `gorm:"size:20" json:"stablecoin_network"`
	StablecoinAmount  decimal.Decimal `gorm:"type:decimal(20,6)" json:"stablecoin_amount"`
	Status            string          `gorm:"size:20;not null;default:'pending';index" json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	Schedule PaymentSchedule `gorm:"foreignKey:ScheduleID" json:"-"`
}

func (FundTransaction) TableName() string {
	return "fund_transactions"
}

func (f *FundTransaction) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
