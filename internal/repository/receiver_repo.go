package repository

import (
	"errors"

	"mpola/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReceiverRepository struct {
	db *gorm.DB
}

func NewReceiverRepository(db *gorm.DB) *ReceiverRepository {
	return &ReceiverRepository{db: db}
}

func (r *ReceiverRepository) Create(tx *gorm.DB, recv *models.Receiver) error {
	if err := tx.Create(recv).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicatePhone
		}
		return err
	}
	return nil
}

func (r *ReceiverRepository) GetByID(id uint) (*models.Receiver, error) {
	var recv models.Receiver
	if err := r.db.First(&recv, id).Error; err != nil {
		return nil, translate(err)
	}
	return &recv, nil
}

func (r *ReceiverRepository) GetByIDTx(tx *gorm.DB, id uint) (*models.Receiver, error) {
	var recv models.Receiver
	if err := tx.First(&recv, id).Error; err != nil {
		return nil, translate(err)
	}
	return &recv, nil
}

func (r *ReceiverRepository) ListBySchedule(scheduleID uuid.UUID) ([]models.Receiver, error) {
	var out []models.Receiver
	err := r.db.Where("schedule_id = ?", scheduleID).Order("id").Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
