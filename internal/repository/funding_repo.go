package repository

import (
	"mpola/internal/domain"
	"mpola/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type FundingRepository struct {
	db *gorm.DB
}

func NewFundingRepository(db *gorm.DB) *FundingRepository {
	return &FundingRepository{db: db}
}

func (r *FundingRepository) Create(f *models.FundTransaction) error {
	return r.db.Create(f).Error
}

func (r *FundingRepository) GetByID(id uuid.UUID) (*models.FundTransaction, error) {
	var f models.FundTransaction
	if err := r.db.Where("id = ?", id).First(&f).Error; err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

func (r *FundingRepository) GetByReferenceForUpdate(tx *gorm.DB, ref string) (*models.FundTransaction, error) {
	var f models.FundTransaction
	if err := forUpdate(tx).Where("reference = ?", ref).First(&f).Error; err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

func (r *FundingRepository) Update(f *models.FundTransaction) error {
	return r.db.Save(f).Error
}

func (r *FundingRepository) UpdateTx(tx *gorm.DB, f *models.FundTransaction) error {
	return tx.Save(f).Error
}

// GetPendingBySchedule returns an open deposit for the schedule, or
// ErrNotFound. Only one pending deposit is allowed at a time.
func (r *FundingRepository) GetPendingBySchedule(scheduleID uuid.UUID) (*models.FundTransaction, error) {
	var f models.FundTransaction
	err := r.db.Where("schedule_id = ? AND status = ?", scheduleID, domain.FundStatusPending).
		Order("created_at").First(&f).Error
	if err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

func (r *FundingRepository) ListBySchedule(scheduleID uuid.UUID) ([]models.FundTransaction, error) {
	var out []models.FundTransaction
	err := r.db.Where("schedule_id = ?", scheduleID).Order("created_at DESC").Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SumPaidBySchedule totals the paid fund transactions for a schedule. Pending,
// expired and failed deposits never count.
func (r *FundingRepository) SumPaidBySchedule(scheduleID uuid.UUID) (decimal.Decimal, error) {
	return r.sumPaid(r.db, scheduleID)
}

func (r *FundingRepository) SumPaidByScheduleTx(tx *gorm.DB, scheduleID uuid.UUID) (decimal.Decimal, error) {
	return r.sumPaid(tx, scheduleID)
}

func (r *FundingRepository) sumPaid(tx *gorm.DB, scheduleID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := tx.Model(&models.FundTransaction{}).
		Where("schedule_id = ? AND status = ?", scheduleID, domain.FundStatusPaid).
		Select("SUM(amount)").Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
