package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "scheduled"
	StatusConfirmed  AppointmentStatus = "confirmed"
	StatusInProgress AppointmentStatus = "in_progress"
	StatusCompleted  AppointmentStatus = "completed"
	StatusCancelled  AppointmentStatus = "cancelled"
	StatusNoShow     AppointmentStatus = "no_show"
)

// ActiveStatuses are the statuses that occupy a veterinarian's time.
var ActiveStatuses = []AppointmentStatus{StatusScheduled, StatusConfirmed, StatusInProgress, StatusCompleted}

type BookingType string

const (
	BookingScheduled BookingType = "scheduled"
	BookingWalkIn    BookingType = "walk-in"
)

type AppointmentType string

const (
	TypeConsultation AppointmentType = "consultation"
	TypeVaccination  AppointmentType = "vaccination"
	TypeSurgery      AppointmentType = "surgery"
	TypeEmergency    AppointmentType = "emergency"
	TypeFollowUp     AppointmentType = "follow_up"
	TypeGrooming     AppointmentType = "grooming"
	TypeOther        AppointmentType = "other"
)

func (t AppointmentType) IsValid() bool {
	switch t {
	case TypeConsultation, TypeVaccination, TypeSurgery, TypeEmergency, TypeFollowUp, TypeGrooming, TypeOther:
		return true
	}
	return false
}

// SuggestsFollowUp reports whether completing this type may propose a follow-up visit.
func (t AppointmentType) SuggestsFollowUp() bool {
	switch t {
	case TypeConsultation, TypeVaccination, TypeSurgery, TypeEmergency:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Actor identifies who drives a status change.
type Actor string

const (
	ActorOwner  Actor = "owner"
	ActorStaff  Actor = "staff"
	ActorSystem Actor = "system"
)

var (
	ErrInvalidTransition = errors.New("invalid appointment status transition")
	ErrWindowExpired     = errors.New("action window has expired")
	ErrAlreadyDisputed   = errors.New("appointment has already been disputed")
)

// transitions lists, per source status, the target statuses and the actors allowed to drive them.
//
//	scheduled -> confirmed -> in_progress -> completed
//	scheduled|confirmed -> cancelled|no_show
var transitions = map[AppointmentStatus]map[AppointmentStatus][]Actor{
	StatusScheduled: {
		StatusConfirmed:  {ActorOwner},
		StatusInProgress: {ActorSystem},
		StatusCancelled:  {ActorOwner, ActorStaff, ActorSystem},
		StatusNoShow:     {ActorStaff},
	},
	StatusConfirmed: {
		StatusInProgress: {ActorSystem, ActorStaff},
		StatusCancelled:  {ActorOwner, ActorStaff, ActorSystem},
		StatusNoShow:     {ActorStaff},
	},
	StatusInProgress: {
		StatusCompleted: {ActorStaff},
	},
}

// CanTransition is the single legality check shared by every mutation path.
func CanTransition(from, to AppointmentStatus, actor Actor) bool {
	for _, a := range transitions[from][to] {
		if a == actor {
			return true
		}
	}
	return false
}

type Appointment struct {
	gorm.Model
	AppointmentNumber string `json:"appointment_number" gorm:"type:varchar(40);uniqueIndex;not null"`

	PetID         uint  `json:"pet_id" gorm:"index;not null"`
	Pet           *Pet  `json:"pet,omitempty" gorm:"foreignKey:PetID"`
	OwnerID       uint  `json:"owner_id" gorm:"index;not null"`
	Owner         *User `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	ClinicID      uint  `json:"clinic_id" gorm:"index;not null"`
	ClinicStaffID *uint `json:"clinic_staff_id" gorm:"index"`
	ServiceID     *uint `json:"service_id"`

	ScheduledAt     *time.Time  `json:"scheduled_at" gorm:"index"`
	DurationMinutes int         `json:"duration_minutes" gorm:"not null;default:30"`
	BookingType     BookingType `json:"appointment_type" gorm:"column:appointment_type;type:varchar(20);not null;default:'scheduled'"`

	IsFollowUp          bool  `json:"is_follow_up" gorm:"default:false"`
	ParentAppointmentID *uint `json:"parent_appointment_id" gorm:"index"`

	Type           AppointmentType `json:"type" gorm:"type:varchar(30);not null"`
	Priority       Priority        `json:"priority" gorm:"type:varchar(10);not null;default:'normal'"`
	PriorityReason string          `json:"priority_reason,omitempty"`

	Status AppointmentStatus `json:"status" gorm:"type:varchar(20);not null;default:'scheduled';index"`

	ConfirmationWindowEndsAt *time.Time `json:"confirmation_window_ends_at"`
	DisputeWindowEndsAt      *time.Time `json:"dispute_window_ends_at"`
	ConfirmedAt              *time.Time `json:"confirmed_at"`
	CheckedInAt              *time.Time `json:"checked_in_at"`
	CheckedOutAt             *time.Time `json:"checked_out_at"`
	CancelledAt              *time.Time `json:"cancelled_at"`
	DisputedAt               *time.Time `json:"disputed_at"`
	ReminderSentAt           *time.Time `json:"reminder_sent_at"`
	SuggestedFollowUpDate    *time.Time `json:"suggested_follow_up_date"`

	EstimatedCost decimal.NullDecimal `json:"estimated_cost" gorm:"type:decimal(10,2)"`
	ActualCost    decimal.NullDecimal `json:"actual_cost" gorm:"type:decimal(10,2)"`

	RescheduleReason string `json:"reschedule_reason,omitempty"`
	CancelReason     string `json:"cancel_reason,omitempty"`
	DisputeReason    string `json:"dispute_reason,omitempty"`
	IsDisputed       bool   `json:"is_disputed" gorm:"default:false"`
	Notes            string `json:"notes,omitempty" gorm:"type:text"`

	// Version increases on every write; a save carrying an older value is rejected.
	Version uint `json:"version" gorm:"not null;default:1"`
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.Version == 0 {
		a.Version = 1
	}
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if a.Priority == "" {
		a.Priority = PriorityNormal
	}
	if a.BookingType == "" {
		a.BookingType = BookingScheduled
	}
	return nil
}

// EndsAt is the end of the occupied interval; zero for unscheduled walk-ins.
func (a *Appointment) EndsAt() time.Time {
	if a.ScheduledAt == nil {
		return time.Time{}
	}
	return a.ScheduledAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// IsPriority is derived from the priority enum; high and urgent jump the queue.
func (a *Appointment) IsPriority() bool {
	return a.Priority == PriorityHigh || a.Priority == PriorityUrgent
}

func (a *Appointment) transition(to AppointmentStatus, actor Actor) error {
	if !CanTransition(a.Status, to, actor) {
		return ErrInvalidTransition
	}
	a.Status = to
	return nil
}

// Confirm is the owner's acknowledgement; only legal inside the confirmation window.
func (a *Appointment) Confirm(now time.Time) error {
	if !CanTransition(a.Status, StatusConfirmed, ActorOwner) {
		return ErrInvalidTransition
	}
	if a.ConfirmationWindowEndsAt != nil && now.After(*a.ConfirmationWindowEndsAt) {
		return ErrWindowExpired
	}
	a.Status = StatusConfirmed
	a.ConfirmedAt = &now
	return nil
}

// StartProgress moves a due appointment to in_progress.
func (a *Appointment) StartProgress(actor Actor) error {
	return a.transition(StatusInProgress, actor)
}

// IsDue reports whether the sweep should pick this appointment up.
func (a *Appointment) IsDue(now time.Time) bool {
	if a.Status != StatusScheduled && a.Status != StatusConfirmed {
		return false
	}
	return a.ScheduledAt != nil && !a.ScheduledAt.After(now)
}

func (a *Appointment) CheckIn(now time.Time) error {
	switch a.Status {
	case StatusScheduled, StatusConfirmed, StatusInProgress:
	default:
		return ErrInvalidTransition
	}
	if a.CheckedInAt == nil {
		a.CheckedInAt = &now
	}
	return nil
}

// Complete closes the visit and opens the dispute window.
func (a *Appointment) Complete(now time.Time, disputeWindow time.Duration, actualCost decimal.NullDecimal, followUp *time.Time) error {
	if err := a.transition(StatusCompleted, ActorStaff); err != nil {
		return err
	}
	ends := now.Add(disputeWindow)
	a.CheckedOutAt = &now
	a.DisputeWindowEndsAt = &ends
	if actualCost.Valid {
		a.ActualCost = actualCost
	}
	if followUp != nil {
		a.SuggestedFollowUpDate = followUp
	}
	return nil
}

// Dispute flags a completed appointment once; the status itself is kept.
func (a *Appointment) Dispute(now time.Time, reason string) error {
	if a.Status != StatusCompleted {
		return ErrInvalidTransition
	}
	if a.IsDisputed {
		return ErrAlreadyDisputed
	}
	if a.DisputeWindowEndsAt == nil || now.After(*a.DisputeWindowEndsAt) {
		return ErrWindowExpired
	}
	a.IsDisputed = true
	a.DisputeReason = reason
	a.DisputedAt = &now
	return nil
}

func (a *Appointment) Cancel(now time.Time, actor Actor, reason string) error {
	if err := a.transition(StatusCancelled, actor); err != nil {
		return err
	}
	a.CancelReason = reason
	a.CancelledAt = &now
	return nil
}

func (a *Appointment) MarkNoShow() error {
	return a.transition(StatusNoShow, ActorStaff)
}

// Reschedule moves the appointment in place and returns the previous start.
func (a *Appointment) Reschedule(at time.Time, reason string) (*time.Time, error) {
	if a.Status != StatusScheduled && a.Status != StatusConfirmed {
		return nil, ErrInvalidTransition
	}
	prev := a.ScheduledAt
	a.ScheduledAt = &at
	a.RescheduleReason = reason
	return prev, nil
}

// ConfirmationExpired reports an unconfirmed booking whose window lapsed.
func (a *Appointment) ConfirmationExpired(now time.Time) bool {
	return a.Status == StatusScheduled && a.ConfirmationWindowEndsAt != nil && now.After(*a.ConfirmationWindowEndsAt)
}

// AppointmentStatusHistory is an append-only trail of status changes and reschedules.
type AppointmentStatusHistory struct {
	ID                  uint              `json:"id" gorm:"primaryKey"`
	AppointmentID       uint              `json:"appointment_id" gorm:"index;not null"`
	FromStatus          AppointmentStatus `json:"from_status" gorm:"type:varchar(20)"`
	ToStatus            AppointmentStatus `json:"to_status" gorm:"type:varchar(20)"`
	PreviousScheduledAt *time.Time        `json:"previous_scheduled_at"`
	NewScheduledAt      *time.Time        `json:"new_scheduled_at"`
	Actor               Actor             `json:"actor" gorm:"type:varchar(10)"`
	ActorUserID         *uint             `json:"actor_user_id"`
	Reason              string            `json:"reason,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
}
