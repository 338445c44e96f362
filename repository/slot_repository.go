package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/meinhoongagan/vetcare-app/models"
)

type SlotRepository struct {
	db *gorm.DB
}

func NewSlotRepository(db *gorm.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

func (r *SlotRepository) CreateBatch(ctx context.Context, slots []models.AppointmentTimeSlot) error {
	if len(slots) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(&slots, 100).Error; err != nil {
		return fmt.Errorf("creating time slots: %w", err)
	}
	return nil
}

// ListBetween returns slots starting in [from, to); a nil staffID lists every slot of the clinic.
func (r *SlotRepository) ListBetween(ctx context.Context, clinicID uint, staffID *uint, from, to time.Time) ([]models.AppointmentTimeSlot, error) {
	q := r.db.WithContext(ctx).
		Where("clinic_id = ? AND starts_at >= ? AND starts_at < ?", clinicID, from, to)
	if staffID != nil {
		q = q.Where("clinic_staff_id = ?", *staffID)
	}
	var slots []models.AppointmentTimeSlot
	if err := q.Order("starts_at, id").Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("listing time slots: %w", err)
	}
	return slots, nil
}
