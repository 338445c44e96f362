package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ClinicReview is keyed by appointment: one review per appointment.
type ClinicReview struct {
	gorm.Model
	AppointmentID uint         `json:"appointment_id" gorm:"uniqueIndex;not null"`
	Appointment   *Appointment `json:"-" gorm:"foreignKey:AppointmentID"`
	ClinicID      uint         `json:"clinic_id" gorm:"index;not null"`
	OwnerID       uint         `json:"owner_id" gorm:"index;not null"`
	Owner         *User        `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Rating        int          `json:"rating" gorm:"not null"`
	Comment       string       `json:"comment" gorm:"type:text"`
	IsAnonymous   bool         `json:"is_anonymous" gorm:"default:false"`
}

const (
	MinRating = 1
	MaxRating = 5
)

func (r *ClinicReview) ValidRating() bool {
	return r.Rating >= MinRating && r.Rating <= MaxRating
}

// RatingMean is sum/count rounded half-up to two places; zero reviews give 0.00.
func RatingMean(sum, count int64) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(sum).DivRound(decimal.NewFromInt(count), 2)
}
