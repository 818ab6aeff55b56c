package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentSchedule is a recurring disbursement plan for one or more receivers.
// Funding aggregates are computed from fund/installment transactions on read;
// IsFunded is only a cached display flag, recomputed by the ledger.
type PaymentSchedule struct {
	ID              uuid.UUID       `gorm:"type:char(36);primaryKey" json:"id"`
	CustomerID      uint            `gorm:"not null;index" json:"customer_id"`
	Title           string          `gorm:"size:200;not null" json:"title"`
	Description     string          `gorm:"type:text" json:"description"`
	Status          string          `gorm:"size:20;not null;default:'active';index" json:"status"`
	SubtotalAmount  decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"subtotal_amount"`
	ProcessingFee   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"processing_fee"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_amount"`
	Currency        string          `gorm:"size:10;default:'UGX'" json:"currency"`
	Frequency       string          `gorm:"size:20;not null;default:'monthly'" json:"frequency"`
	StartDate       time.Time       `json:"start_date"`
	EndDate         *time.Time      `json:"end_date"`
	LastPaymentDate *time.Time      `json:"last_payment_date"`
	NextPaymentDate *time.Time      `json:"next_payment_date"`
	IsFunded        bool            `gorm:"default:false" json:"is_funded"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Customer  Customer   `gorm:"foreignKey:CustomerID" json:"-"`
	Receivers []Receiver `gorm:"foreignKey:ScheduleID" json:"-"`
}

func (PaymentSchedule) TableName() string {
	return "payment_schedules"
}

func (s *PaymentSchedule) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *PaymentSchedule) IsActive() bool {
	return s.Status == "active"
}
