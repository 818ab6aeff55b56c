package repository

import (
	"mpola/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ScheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) Create(tx *gorm.DB, s *models.PaymentSchedule) error {
	return tx.Create(s).Error
}

func (r *ScheduleRepository) GetByID(id uuid.UUID) (*models.PaymentSchedule, error) {
	var s models.PaymentSchedule
	if err := r.db.Where("id = ?", id).First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *ScheduleRepository) GetByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*models.PaymentSchedule, error) {
	var s models.PaymentSchedule
	if err := forUpdate(tx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *ScheduleRepository) Update(s *models.PaymentSchedule) error {
	return r.db.Save(s).Error
}

// UpdatePaymentDates persists only the timing columns so concurrent aggregate
// recomputation cannot clobber other fields.
func (r *ScheduleRepository) UpdatePaymentDates(tx *gorm.DB, s *models.PaymentSchedule) error {
	return tx.Model(s).Updates(map[string]interface{}{
		"last_payment_date": s.LastPaymentDate,
		"next_payment_date": s.NextPaymentDate,
	}).Error
}

func (r *ScheduleRepository) UpdateFundedFlag(tx *gorm.DB, s *models.PaymentSchedule) error {
	return tx.Model(s).Update("is_funded", s.IsFunded).Error
}

func (r *ScheduleRepository) List(customerID uint, status string) ([]models.PaymentSchedule, error) {
	q := r.db.Order("created_at DESC")
	if customerID != 0 {
		q = q.Where("customer_id = ?", customerID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.PaymentSchedule
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListActiveFunded returns schedules eligible for the scheduled-payments scan.
func (r *ScheduleRepository) ListActiveFunded() ([]models.PaymentSchedule, error) {
	var out []models.PaymentSchedule
	err := r.db.Where("status = ? AND is_funded = ?", "active", true).Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
