package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/meinhoongagan/vetcare-app/models"
	"github.com/meinhoongagan/vetcare-app/services"
)

type ClinicRepository struct {
	db *gorm.DB
}

func NewClinicRepository(db *gorm.DB) *ClinicRepository {
	return &ClinicRepository{db: db}
}

var errLicenseTaken = &services.ValidationError{Fields: []string{"license_number: already registered"}}

// Create inserts the clinic together with its operating hours.
func (r *ClinicRepository) Create(ctx context.Context, c *models.ClinicRegistration) error {
	err := r.db.WithContext(ctx).Omit("Services", "Staff").Create(c).Error
	if err != nil {
		return duplicate(err, errLicenseTaken)
	}
	return nil
}

func (r *ClinicRepository) GetByID(ctx context.Context, id uint) (*models.ClinicRegistration, error) {
	var c models.ClinicRegistration
	err := r.db.WithContext(ctx).
		Preload("OperatingHours", func(db *gorm.DB) *gorm.DB { return db.Order("day_of_week") }).
		First(&c, id).Error
	if err != nil {
		return nil, notFound(err, services.ErrClinicNotFound)
	}
	return &c, nil
}

// SetStatus writes only the moderation columns, and only while the clinic is still in from.
// Rating and review totals maintained by the review path are left alone.
func (r *ClinicRepository) SetStatus(ctx context.Context, c *models.ClinicRegistration, from models.ClinicStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.ClinicRegistration{}).
		Where("id = ? AND status = ?", c.ID, from).
		Updates(map[string]interface{}{
			"status":           c.Status,
			"rejection_reason": c.RejectionReason,
			"approved_at":      c.ApprovedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("updating clinic %d status: %w", c.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return services.ErrClinicStatus
	}
	return nil
}

func (r *ClinicRepository) SetCertificationURL(ctx context.Context, id uint, url string) error {
	res := r.db.WithContext(ctx).Model(&models.ClinicRegistration{}).Where("id = ?", id).Update("certification_url", url)
	if res.Error != nil {
		return fmt.Errorf("updating clinic %d certification: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return services.ErrClinicNotFound
	}
	return nil
}

// ReplaceHours swaps the whole weekly schedule atomically.
func (r *ClinicRepository) ReplaceHours(ctx context.Context, clinicID uint, hours []models.ClinicOperatingHour) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("clinic_id = ?", clinicID).Delete(&models.ClinicOperatingHour{}).Error; err != nil {
			return fmt.Errorf("clearing hours: %w", err)
		}
		if len(hours) == 0 {
			return nil
		}
		return tx.Create(&hours).Error
	})
}

func (r *ClinicRepository) Search(ctx context.Context, f services.ClinicFilter) ([]models.ClinicRegistration, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.ClinicRegistration{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.City != "" {
		q = q.Where("city ILIKE ?", f.City)
	}
	if f.Name != "" {
		q = q.Where("name ILIKE ?", "%"+f.Name+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting clinics: %w", err)
	}
	var list []models.ClinicRegistration
	if err := paginate(q, f.Limit, f.Offset).Order("rating DESC, id").Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("searching clinics: %w", err)
	}
	return list, total, nil
}

func (r *ClinicRepository) CreateService(ctx context.Context, s *models.ClinicService) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *ClinicRepository) GetService(ctx context.Context, id uint) (*models.ClinicService, error) {
	var s models.ClinicService
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, notFound(err, services.ErrServiceNotFound)
	}
	return &s, nil
}

func (r *ClinicRepository) ListServices(ctx context.Context, clinicID uint) ([]models.ClinicService, error) {
	var list []models.ClinicService
	err := r.db.WithContext(ctx).Where("clinic_id = ?", clinicID).Order("name").Find(&list).Error
	return list, err
}

func (r *ClinicRepository) CreateStaff(ctx context.Context, s *models.ClinicStaff) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *ClinicRepository) GetStaff(ctx context.Context, id uint) (*models.ClinicStaff, error) {
	var s models.ClinicStaff
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, notFound(err, services.ErrStaffNotFound)
	}
	return &s, nil
}

func (r *ClinicRepository) UpdateStaff(ctx context.Context, s *models.ClinicStaff) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *ClinicRepository) ListStaff(ctx context.Context, clinicID uint) ([]models.ClinicStaff, error) {
	var list []models.ClinicStaff
	err := r.db.WithContext(ctx).Where("clinic_id = ?", clinicID).Order("name").Find(&list).Error
	return list, err
}
