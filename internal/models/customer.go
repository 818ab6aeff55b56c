package models

import (
	"time"
)

type Customer struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	FirstName    string    `gorm:"size:100" json:"first_name"`
	LastName     string    `gorm:"size:100" json:"last_name"`
	Phone        string    `gorm:"size:20" json:"phone"`
	CountryCode  string    `gorm:"size:5" json:"country_code"`
	ProviderID   string    `gorm:"size:100;uniqueIndex" json:"provider_id"` // payment provider customer id
	PasswordHash string    `gorm:"size:255" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Customer) TableName() string {
	return "customers"
}

func (c *Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}
