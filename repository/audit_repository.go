package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/meinhoongagan/vetcare-app/models"
	"github.com/meinhoongagan/vetcare-app/services"
)

type SecurityEventRepository struct {
	db *gorm.DB
}

func NewSecurityEventRepository(db *gorm.DB) *SecurityEventRepository {
	return &SecurityEventRepository{db: db}
}

func (r *SecurityEventRepository) Create(ctx context.Context, e *models.SecurityEvent) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *SecurityEventRepository) List(ctx context.Context, f services.SecurityEventFilter) ([]models.SecurityEvent, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.SecurityEvent{})
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting security events: %w", err)
	}
	var list []models.SecurityEvent
	if err := paginate(q, f.Limit, f.Offset).Order("created_at DESC, id DESC").Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("listing security events: %w", err)
	}
	return list, total, nil
}

func (r *SecurityEventRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.SecurityEvent{})
	return res.RowsAffected, res.Error
}

type JobRunRepository struct {
	db *gorm.DB
}

func NewJobRunRepository(db *gorm.DB) *JobRunRepository {
	return &JobRunRepository{db: db}
}

func (r *JobRunRepository) Create(ctx context.Context, run *models.JobRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// List returns the latest runs, optionally for one job.
func (r *JobRunRepository) List(ctx context.Context, job string, limit int) ([]models.JobRun, error) {
	q := r.db.WithContext(ctx).Model(&models.JobRun{})
	if job != "" {
		q = q.Where("job = ?", job)
	}
	var list []models.JobRun
	if err := paginate(q, limit, 0).Order("started_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("listing job runs: %w", err)
	}
	return list, nil
}

func (r *JobRunRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("started_at < ?", cutoff).Delete(&models.JobRun{})
	return res.RowsAffected, res.Error
}
