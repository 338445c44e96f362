package services

import (
	"errors"
	"strings"

	"github.com/meinhoongagan/vetcare-app/models"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrClinicNotFound      = errors.New("clinic not found")
	ErrStaffNotFound       = errors.New("veterinarian not found")
	ErrServiceNotFound     = errors.New("clinic service not found")
	ErrPetNotFound         = errors.New("pet not found")
	ErrInvoiceNotFound     = errors.New("invoice not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrRecordNotFound      = errors.New("record not found")

	ErrSlotConflict      = errors.New("veterinarian is already booked for this time")
	ErrSlotFull          = errors.New("time slot is fully booked")
	ErrNoOpenSlot        = errors.New("no clinic-wide time slot covers the requested time")
	ErrClinicNotBookable = errors.New("clinic is not accepting appointments")
	ErrStaffUnavailable  = errors.New("veterinarian is not active")
	ErrOutsideHours      = errors.New("clinic is closed at the requested time")
	ErrScheduledInPast   = errors.New("appointment cannot be scheduled in the past")
	ErrDuplicateReview   = errors.New("appointment has already been reviewed")
	ErrNotCompleted      = errors.New("appointment is not completed")
	ErrNestedFollowUp    = errors.New("a follow-up cannot have its own follow-up")
	ErrNoFollowUp        = errors.New("no follow-up was suggested for this appointment")
	ErrFollowUpExists    = errors.New("a follow-up has already been booked")
	ErrAlreadyInvoiced   = errors.New("appointment already has an invoice")
	ErrInvalidPayment    = errors.New("payment amount must be positive")
	ErrClinicStatus      = errors.New("clinic is not in a state that allows this action")
	ErrStaleAppointment  = errors.New("appointment was changed by another request, reload and retry")

	ErrForbidden          = errors.New("forbidden: insufficient permissions")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserBanned         = errors.New("account is banned")
)

// Domain errors raised by model methods.
var (
	ErrInvalidTransition   = models.ErrInvalidTransition
	ErrWindowExpired       = models.ErrWindowExpired
	ErrAlreadyDisputed     = models.ErrAlreadyDisputed
	ErrInvalidHours        = models.ErrInvalidHours
	ErrInvalidInvoiceState = models.ErrInvalidInvoiceState
)

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

func invalid(fields ...string) error {
	return &ValidationError{Fields: fields}
}
