package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound = errors.New("record not found")

	// ErrInstallmentExists is returned when the (receiver, installment_number)
	// uniqueness constraint rejects a create. The constraint is the source of
	// truth for the concurrent-initiation race.
	ErrInstallmentExists = errors.New("installment transaction already exists")

	// ErrDuplicatePhone is returned when a receiver's phone collides within
	// its schedule.
	ErrDuplicatePhone = errors.New("phone number already used in this schedule")
)

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// forUpdate applies a row-level lock so concurrent webhook deliveries for the
// same reference are serialized. SQLite (tests) has no FOR UPDATE; its
// single-writer model covers the same guarantee there.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
