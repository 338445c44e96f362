package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/meinhoongagan/vetcare-app/metrics"
	"github.com/meinhoongagan/vetcare-app/models"
)

type ReviewService struct {
	repo    ReviewRepository
	appts   AppointmentRepository
	metrics *metrics.Collector
	log     *zap.Logger
}

func NewReviewService(repo ReviewRepository, appts AppointmentRepository, m *metrics.Collector, log *zap.Logger) *ReviewService {
	return &ReviewService{repo: repo, appts: appts, metrics: m, log: log}
}

type SubmitReviewInput struct {
	AppointmentID uint   `json:"appointment_id" validate:"required"`
	Rating        int    `json:"rating" validate:"required,min=1,max=5"`
	Comment       string `json:"comment" validate:"max=2000"`
	IsAnonymous   bool   `json:"is_anonymous"`
}

// PublicReview is a review as shown on a clinic's public page. The reviewer is named, never contacted.
type PublicReview struct {
	ID           uint      `json:"id"`
	ClinicID     uint      `json:"clinic_id"`
	OwnerID      uint      `json:"owner_id,omitempty"`
	ReviewerName string    `json:"reviewer_name,omitempty"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	IsAnonymous  bool      `json:"is_anonymous"`
	CreatedAt    time.Time `json:"created_at"`
}

type ReviewStats struct {
	ClinicID  uint            `json:"clinic_id"`
	Average   decimal.Decimal `json:"average"`
	Total     int64           `json:"total"`
	Histogram map[int]int64   `json:"histogram"`
}

// Submit stores the owner's review of a completed appointment and returns the clinic with its refreshed rating.
func (s *ReviewService) Submit(ctx context.Context, caller Caller, in SubmitReviewInput) (*models.ClinicReview, *models.ClinicRegistration, error) {
	if err := Validate(in); err != nil {
		return nil, nil, err
	}
	a, err := s.appts.GetByID(ctx, in.AppointmentID)
	if err != nil {
		return nil, nil, err
	}
	if caller.Role != models.RoleOwner || a.OwnerID != caller.UserID {
		return nil, nil, ErrForbidden
	}
	if a.Status != models.StatusCompleted {
		return nil, nil, ErrNotCompleted
	}

	r := &models.ClinicReview{
		AppointmentID: a.ID,
		ClinicID:      a.ClinicID,
		OwnerID:       caller.UserID,
		Rating:        in.Rating,
		Comment:       in.Comment,
		IsAnonymous:   in.IsAnonymous,
	}
	clinic, err := s.repo.Create(ctx, r)
	if err != nil {
		if errors.Is(err, ErrDuplicateReview) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("saving review: %w", err)
	}

	s.metrics.ReviewsSubmitted.Inc()
	s.log.Info("review submitted",
		zap.Uint("clinic_id", clinic.ID),
		zap.String("rating", clinic.Rating.StringFixed(2)),
		zap.Int("total_reviews", clinic.TotalReviews),
	)
	return r, clinic, nil
}

func (s *ReviewService) ListForClinic(ctx context.Context, clinicID uint, limit, offset int) ([]PublicReview, int64, error) {
	limit, offset = page(limit, offset)
	reviews, total, err := s.repo.ListForClinic(ctx, clinicID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]PublicReview, 0, len(reviews))
	for _, r := range reviews {
		v := PublicReview{
			ID:          r.ID,
			ClinicID:    r.ClinicID,
			Rating:      r.Rating,
			Comment:     r.Comment,
			IsAnonymous: r.IsAnonymous,
			CreatedAt:   r.CreatedAt,
		}
		if !r.IsAnonymous {
			v.OwnerID = r.OwnerID
			if r.Owner != nil {
				v.ReviewerName = r.Owner.Name
			}
		}
		out = append(out, v)
	}
	return out, total, nil
}

func (s *ReviewService) Stats(ctx context.Context, clinicID uint) (*ReviewStats, error) {
	hist, err := s.repo.Histogram(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	stats := &ReviewStats{ClinicID: clinicID, Histogram: make(map[int]int64, models.MaxRating)}
	var sum int64
	for star := models.MinRating; star <= models.MaxRating; star++ {
		n := hist[star]
		stats.Histogram[star] = n
		stats.Total += n
		sum += int64(star) * n
	}
	stats.Average = models.RatingMean(sum, stats.Total)
	return stats, nil
}
