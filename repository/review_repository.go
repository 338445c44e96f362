package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/meinhoongagan/vetcare-app/models"
	"github.com/meinhoongagan/vetcare-app/services"
)

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts the review and recomputes the clinic aggregate from all rows under a clinic lock,
// so concurrent reviews cannot lose an update.
func (r *ReviewRepository) Create(ctx context.Context, review *models.ClinicReview) (*models.ClinicRegistration, error) {
	var clinic models.ClinicRegistration
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(forUpdate).First(&clinic, review.ClinicID).Error; err != nil {
			return notFound(err, services.ErrClinicNotFound)
		}
		if err := tx.Omit("Appointment", "Owner").Create(review).Error; err != nil {
			return duplicate(err, services.ErrDuplicateReview)
		}

		var agg struct {
			Sum   int64
			Count int64
		}
		err := tx.Model(&models.ClinicReview{}).
			Select("COALESCE(SUM(rating), 0) AS sum, COUNT(*) AS count").
			Where("clinic_id = ?", review.ClinicID).
			Scan(&agg).Error
		if err != nil {
			return fmt.Errorf("aggregating ratings: %w", err)
		}

		clinic.Rating = models.RatingMean(agg.Sum, agg.Count)
		clinic.TotalReviews = int(agg.Count)
		return tx.Model(&clinic).Updates(map[string]interface{}{
			"rating":        clinic.Rating,
			"total_reviews": clinic.TotalReviews,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &clinic, nil
}

func (r *ReviewRepository) ListForClinic(ctx context.Context, clinicID uint, limit, offset int) ([]models.ClinicReview, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.ClinicReview{}).Where("clinic_id = ?", clinicID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting reviews: %w", err)
	}
	var list []models.ClinicReview
	if err := paginate(q, limit, offset).
		Preload("Owner", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name") }).
		Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("listing reviews: %w", err)
	}
	return list, total, nil
}

func (r *ReviewRepository) Histogram(ctx context.Context, clinicID uint) (map[int]int64, error) {
	var rows []struct {
		Rating int
		N      int64
	}
	err := r.db.WithContext(ctx).Model(&models.ClinicReview{}).
		Select("rating, COUNT(*) AS n").
		Where("clinic_id = ?", clinicID).
		Group("rating").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("rating histogram: %w", err)
	}
	hist := make(map[int]int64, len(rows))
	for _, row := range rows {
		hist[row.Rating] = row.N
	}
	return hist, nil
}

