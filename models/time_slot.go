package models

import (
	"time"

	"gorm.io/gorm"
)

// AppointmentTimeSlot is a capacity bucket. Appointment rows are authoritative;
// BookedAppointments is refreshed from them whenever a booking touches the slot.
type AppointmentTimeSlot struct {
	gorm.Model
	ClinicID           uint      `json:"clinic_id" gorm:"index:idx_slot_lookup;not null"`
	ClinicStaffID      *uint     `json:"clinic_staff_id" gorm:"index:idx_slot_lookup"`
	StartsAt           time.Time `json:"starts_at" gorm:"index:idx_slot_lookup;not null"`
	EndsAt             time.Time `json:"ends_at" gorm:"not null"`
	MaxAppointments    int       `json:"max_appointments" gorm:"not null;default:1"`
	BookedAppointments int       `json:"booked_appointments" gorm:"not null;default:0"`
}

func (s *AppointmentTimeSlot) Covers(t time.Time) bool {
	return !t.Before(s.StartsAt) && t.Before(s.EndsAt)
}

func (s *AppointmentTimeSlot) HasCapacity() bool {
	return s.BookedAppointments < s.MaxAppointments
}
