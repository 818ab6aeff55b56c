package repository

import (
	"errors"

	"mpola/internal/domain"
	"mpola/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a new installment transaction. A duplicate
// (receiver, installment_number) pair is reported as ErrInstallmentExists so
// the losing initiator of a race gets a deterministic outcome.
func (r *TransactionRepository) Create(t *models.InstallmentTransaction) error {
	if err := r.db.Create(t).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrInstallmentExists
		}
		return err
	}
	return nil
}

func (r *TransactionRepository) GetByID(id uint) (*models.InstallmentTransaction, error) {
	var t models.InstallmentTransaction
	if err := r.db.First(&t, id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *TransactionRepository) GetByReference(ref string) (*models.InstallmentTransaction, error) {
	var t models.InstallmentTransaction
	if err := r.db.Where("reference = ?", ref).First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *TransactionRepository) GetByReferenceForUpdate(tx *gorm.DB, ref string) (*models.InstallmentTransaction, error) {
	var t models.InstallmentTransaction
	if err := forUpdate(tx).Where("reference = ?", ref).First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *TransactionRepository) Update(t *models.InstallmentTransaction) error {
	return r.db.Save(t).Error
}

func (r *TransactionRepository) UpdateTx(tx *gorm.DB, t *models.InstallmentTransaction) error {
	return tx.Save(t).Error
}

// MaxInstallmentNumber returns the highest persisted installment number for a
// receiver, zero when none exist. Computed from rows, never from a counter,
// so it self-heals after partial failures.
func (r *TransactionRepository) MaxInstallmentNumber(receiverID uint) (int, error) {
	var max *int
	err := r.db.Model(&models.InstallmentTransaction{}).
		Where("receiver_id = ?", receiverID).
		Select("MAX(installment_number)").Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// GetActiveForInstallment returns a pending/processing transaction for the
// given installment number, or ErrNotFound.
func (r *TransactionRepository) GetActiveForInstallment(receiverID uint, installmentNumber int) (*models.InstallmentTransaction, error) {
	var t models.InstallmentTransaction
	err := r.db.Where("receiver_id = ? AND installment_number = ? AND status IN ?",
		receiverID, installmentNumber,
		[]string{domain.TxnStatusPending, domain.TxnStatusProcessing}).
		First(&t).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

// GetActiveForReceiver returns any pending/processing transaction for the
// receiver, or ErrNotFound. One in-flight attempt blocks the whole receiver.
func (r *TransactionRepository) GetActiveForReceiver(receiverID uint) (*models.InstallmentTransaction, error) {
	var t models.InstallmentTransaction
	err := r.db.Where("receiver_id = ? AND status IN ?",
		receiverID, []string{domain.TxnStatusPending, domain.TxnStatusProcessing}).
		First(&t).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *TransactionRepository) CountByReceiverAndStatus(receiverID uint, status string) (int64, error) {
	var n int64
	err := r.db.Model(&models.InstallmentTransaction{}).
		Where("receiver_id = ? AND status = ?", receiverID, status).
		Count(&n).Error
	return n, err
}

func (r *TransactionRepository) ListByReceiver(receiverID uint) ([]models.InstallmentTransaction, error) {
	var out []models.InstallmentTransaction
	err := r.db.Where("receiver_id = ?", receiverID).Order("installment_number").Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SumSuccessfulBySchedule totals successful installment amounts across every
// receiver of a schedule.
func (r *TransactionRepository) SumSuccessfulBySchedule(scheduleID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.Model(&models.InstallmentTransaction{}).
		Joins("JOIN receivers ON receivers.id = installment_transactions.receiver_id").
		Where("receivers.schedule_id = ? AND installment_transactions.status = ?",
			scheduleID, domain.TxnStatusSuccess).
		Select("SUM(installment_transactions.amount)").Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// CountBySchedule counts installment transactions for a schedule, optionally
// filtered by status.
func (r *TransactionRepository) CountBySchedule(scheduleID uuid.UUID, statuses ...string) (int64, error) {
	q := r.db.Model(&models.InstallmentTransaction{}).
		Joins("JOIN receivers ON receivers.id = installment_transactions.receiver_id").
		Where("receivers.schedule_id = ?", scheduleID)
	if len(statuses) > 0 {
		q = q.Where("installment_transactions.status IN ?", statuses)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}
