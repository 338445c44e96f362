package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/meinhoongagan/vetcare-app/metrics"
	"github.com/meinhoongagan/vetcare-app/models"
	"github.com/meinhoongagan/vetcare-app/tracer"
	"github.com/meinhoongagan/vetcare-app/utils"
)

const (
	defaultDurationMinutes = 30
	expiredReason          = "confirmation window expired"
	expireBatchSize        = 500
)

type AppointmentConfig struct {
	ConfirmationWindow time.Duration
	DisputeWindow      time.Duration
	ReminderLead       time.Duration
	NumberPrefix       string
}

type AppointmentService struct {
	repo    AppointmentRepository
	clinics ClinicRepository
	pets    PetRepository
	mailer  Mailer
	metrics *metrics.Collector
	log     *zap.Logger
	tracer  trace.Tracer
	cfg     AppointmentConfig
	now     func() time.Time
}

func NewAppointmentService(
	repo AppointmentRepository,
	clinics ClinicRepository,
	pets PetRepository,
	mailer Mailer,
	m *metrics.Collector,
	log *zap.Logger,
	cfg AppointmentConfig,
) *AppointmentService {
	return &AppointmentService{
		repo:    repo,
		clinics: clinics,
		pets:    pets,
		mailer:  mailer,
		metrics: m,
		log:     log,
		tracer:  tracer.Tracer("vetcare/appointments"),
		cfg:     cfg,
		now:     time.Now,
	}
}

// WithClock replaces the time source.
func (s *AppointmentService) WithClock(now func() time.Time) *AppointmentService {
	s.now = now
	return s
}

type BookAppointmentInput struct {
	PetID           uint                   `json:"pet_id" validate:"required"`
	ClinicID        uint                   `json:"clinic_id" validate:"required"`
	ClinicStaffID   *uint                  `json:"clinic_staff_id"`
	ServiceID       *uint                  `json:"service_id"`
	ScheduledAt     time.Time              `json:"scheduled_at" validate:"required"`
	DurationMinutes int                    `json:"duration_minutes" validate:"omitempty,min=5,max=480"`
	Type            models.AppointmentType `json:"type" validate:"required,oneof=consultation vaccination surgery emergency follow_up grooming other"`
	Priority        models.Priority        `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	PriorityReason  string                 `json:"priority_reason" validate:"max=255"`
	Notes           string                 `json:"notes" validate:"max=2000"`
}

type WalkInInput struct {
	PetID          uint                   `json:"pet_id" validate:"required"`
	ClinicStaffID  *uint                  `json:"clinic_staff_id"`
	ServiceID      *uint                  `json:"service_id"`
	Type           models.AppointmentType `json:"type" validate:"required,oneof=consultation vaccination surgery emergency follow_up grooming other"`
	Priority       models.Priority        `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	PriorityReason string                 `json:"priority_reason" validate:"max=255"`
	Notes          string                 `json:"notes" validate:"max=2000"`
}

type CompleteInput struct {
	ActualCost            *decimal.Decimal `json:"actual_cost"`
	SuggestedFollowUpDate *time.Time       `json:"suggested_follow_up_date"`
	Notes                 string           `json:"notes" validate:"max=2000"`
}

type RescheduleInput struct {
	ScheduledAt   time.Time `json:"scheduled_at" validate:"required"`
	ClinicStaffID *uint     `json:"clinic_staff_id"`
	Reason        string    `json:"reason" validate:"required,max=500"`
}

type FollowUpInput struct {
	ScheduledAt   *time.Time `json:"scheduled_at"`
	ClinicStaffID *uint      `json:"clinic_staff_id"`
	Notes         string     `json:"notes" validate:"max=2000"`
}

// Book creates a scheduled appointment with a fresh confirmation window.
func (s *AppointmentService) Book(ctx context.Context, caller Caller, in BookAppointmentInput) (*models.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "AppointmentService.Book")
	defer span.End()

	if err := Validate(in); err != nil {
		return nil, err
	}
	return s.book(ctx, caller, in, nil)
}

func (s *AppointmentService) book(ctx context.Context, caller Caller, in BookAppointmentInput, parent *models.Appointment) (*models.Appointment, error) {
	now := s.now()
	if !in.ScheduledAt.After(now) {
		return nil, ErrScheduledInPast
	}

	pet, err := s.pets.GetPet(ctx, in.PetID)
	if err != nil {
		return nil, err
	}
	var actor models.Actor
	switch {
	case caller.Role == models.RoleOwner && pet.OwnerID == caller.UserID:
		actor = models.ActorOwner
	case caller.IsStaffOf(in.ClinicID):
		actor = models.ActorStaff
	default:
		return nil, ErrForbidden
	}

	clinic, err := s.clinics.GetByID(ctx, in.ClinicID)
	if err != nil {
		return nil, err
	}
	if !clinic.IsBookable() {
		return nil, ErrClinicNotBookable
	}
	if in.ClinicStaffID != nil {
		if err := s.checkStaff(ctx, clinic.ID, *in.ClinicStaffID); err != nil {
			return nil, err
		}
	}

	duration := in.DurationMinutes
	var estimated decimal.NullDecimal
	if in.ServiceID != nil {
		svc, err := s.serviceOf(ctx, clinic.ID, *in.ServiceID)
		if err != nil {
			return nil, err
		}
		if duration == 0 {
			duration = svc.DurationMinutes
		}
		estimated = decimal.NewNullDecimal(svc.Price)
	}
	if duration == 0 {
		duration = defaultDurationMinutes
	}

	start := in.ScheduledAt
	if !clinic.IsOpenBetween(start, start.Add(time.Duration(duration)*time.Minute)) {
		return nil, ErrOutsideHours
	}

	priority := in.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}
	a := &models.Appointment{
		AppointmentNumber:        utils.GenerateNumber(s.cfg.NumberPrefix, now),
		PetID:                    pet.ID,
		OwnerID:                  pet.OwnerID,
		ClinicID:                 clinic.ID,
		ClinicStaffID:            in.ClinicStaffID,
		ServiceID:                in.ServiceID,
		ScheduledAt:              &start,
		DurationMinutes:          duration,
		BookingType:              models.BookingScheduled,
		Type:                     in.Type,
		Priority:                 priority,
		PriorityReason:           in.PriorityReason,
		Status:                   models.StatusScheduled,
		ConfirmationWindowEndsAt: s.confirmationDeadline(now, start),
		EstimatedCost:            estimated,
		Notes:                    in.Notes,
	}
	if parent != nil {
		a.IsFollowUp = true
		a.ParentAppointmentID = &parent.ID
	}

	change := StatusChange{To: models.StatusScheduled, Actor: actor, ActorUserID: caller.userRef()}
	if err := s.repo.Book(ctx, a, change); err != nil {
		if errors.Is(err, ErrSlotConflict) || errors.Is(err, ErrSlotFull) {
			s.metrics.BookingConflicts.Inc()
			return nil, err
		}
		if errors.Is(err, ErrNoOpenSlot) {
			return nil, err
		}
		return nil, fmt.Errorf("booking appointment: %w", err)
	}

	s.metrics.AppointmentsBooked.WithLabelValues(string(models.BookingScheduled)).Inc()
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("appointment.number", a.AppointmentNumber),
		attribute.Int("clinic.id", int(a.ClinicID)),
	)
	s.log.Info("appointment booked",
		zap.String("appointment_number", a.AppointmentNumber),
		zap.Uint("clinic_id", a.ClinicID),
		zap.Uintp("clinic_staff_id", a.ClinicStaffID),
		zap.Time("scheduled_at", start),
	)
	return a, nil
}

// confirmationDeadline never extends past the visit itself.
func (s *AppointmentService) confirmationDeadline(now, start time.Time) *time.Time {
	ends := now.Add(s.cfg.ConfirmationWindow)
	if ends.After(start) {
		ends = start
	}
	return &ends
}

func (s *AppointmentService) checkStaff(ctx context.Context, clinicID, staffID uint) error {
	staff, err := s.clinics.GetStaff(ctx, staffID)
	if err != nil {
		return err
	}
	if staff.ClinicID != clinicID {
		return ErrStaffNotFound
	}
	if !staff.IsActive {
		return ErrStaffUnavailable
	}
	return nil
}

func (s *AppointmentService) serviceOf(ctx context.Context, clinicID, serviceID uint) (*models.ClinicService, error) {
	svc, err := s.clinics.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if svc.ClinicID != clinicID || !svc.IsActive {
		return nil, ErrServiceNotFound
	}
	return svc, nil
}

// WalkIn registers an unscheduled visit that is already confirmed and checked in.
func (s *AppointmentService) WalkIn(ctx context.Context, caller Caller, clinicID uint, in WalkInInput) (*models.Appointment, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	if !caller.IsStaffOf(clinicID) {
		return nil, ErrForbidden
	}

	clinic, err := s.clinics.GetByID(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	if !clinic.IsBookable() {
		return nil, ErrClinicNotBookable
	}
	pet, err := s.pets.GetPet(ctx, in.PetID)
	if err != nil {
		return nil, err
	}
	if in.ClinicStaffID != nil {
		if err := s.checkStaff(ctx, clinicID, *in.ClinicStaffID); err != nil {
			return nil, err
		}
	}

	duration := defaultDurationMinutes
	var estimated decimal.NullDecimal
	if in.ServiceID != nil {
		svc, err := s.serviceOf(ctx, clinicID, *in.ServiceID)
		if err != nil {
			return nil, err
		}
		duration = svc.DurationMinutes
		estimated = decimal.NewNullDecimal(svc.Price)
	}

	priority := in.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}
	now := s.now()
	a := &models.Appointment{
		AppointmentNumber: utils.GenerateNumber(s.cfg.NumberPrefix, now),
		PetID:             pet.ID,
		OwnerID:           pet.OwnerID,
		ClinicID:          clinicID,
		ClinicStaffID:     in.ClinicStaffID,
		ServiceID:         in.ServiceID,
		DurationMinutes:   duration,
		BookingType:       models.BookingWalkIn,
		Type:              in.Type,
		Priority:          priority,
		PriorityReason:    in.PriorityReason,
		Status:            models.StatusConfirmed,
		ConfirmedAt:       &now,
		CheckedInAt:       &now,
		EstimatedCost:     estimated,
		Notes:             in.Notes,
	}

	change := StatusChange{To: models.StatusConfirmed, Actor: models.ActorStaff, ActorUserID: caller.userRef(), Reason: "walk-in"}
	if err := s.repo.Book(ctx, a, change); err != nil {
		return nil, fmt.Errorf("registering walk-in: %w", err)
	}
	s.metrics.AppointmentsBooked.WithLabelValues(string(models.BookingWalkIn)).Inc()
	s.log.Info("walk-in registered", zap.String("appointment_number", a.AppointmentNumber), zap.Uint("clinic_id", clinicID))
	return a, nil
}

func (s *AppointmentService) load(ctx context.Context, caller Caller, id uint) (*models.Appointment, models.Actor, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	actor, err := caller.actorFor(a)
	if err != nil {
		return nil, "", err
	}
	return a, actor, nil
}

func (s *AppointmentService) record(ctx context.Context, a *models.Appointment, from models.AppointmentStatus, actor models.Actor, caller Caller, reason string) error {
	change := &StatusChange{
		From:        from,
		To:          a.Status,
		Actor:       actor,
		ActorUserID: caller.userRef(),
		Reason:      reason,
	}
	if err := s.repo.Update(ctx, a, change); err != nil {
		return fmt.Errorf("saving appointment: %w", err)
	}
	if from != a.Status {
		s.metrics.AppointmentTransitions.WithLabelValues(string(a.Status), string(actor)).Inc()
	}
	return nil
}

// Confirm is owner-only and fails once the confirmation window has passed.
func (s *AppointmentService) Confirm(ctx context.Context, caller Caller, id uint) (*models.Appointment, error) {
	a, actor, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if actor != models.ActorOwner {
		return nil, ErrForbidden
	}
	from := a.Status
	if err := a.Confirm(s.now()); err != nil {
		return nil, err
	}
	if err := s.record(ctx, a, from, actor, caller, ""); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AppointmentService) CheckIn(ctx context.Context, caller Caller, id uint) (*models.Appointment, error) {
	a, actor, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if actor != models.ActorStaff {
		return nil, ErrForbidden
	}
	if err := a.CheckIn(s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, a, nil); err != nil {
		return nil, fmt.Errorf("saving appointment: %w", err)
	}
	return a, nil
}

// Start lets staff begin a confirmed visit before the sweep reaches it.
func (s *AppointmentService) Start(ctx context.Context, caller Caller, id uint) (*models.Appointment, error) {
	a, actor, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if actor != models.ActorStaff {
		return nil, ErrForbidden
	}
	from := a.Status
	if err := a.StartProgress(actor); err != nil {
		return nil, err
	}
	if a.CheckedInAt == nil {
		now := s.now()
		a.CheckedInAt = &now
	}
	if err := s.record(ctx, a, from, actor, caller, ""); err != nil {
		return nil, err
	}
	return a, nil
}

// TransitionDue is the periodic sweep; running it twice in a row is a no-op the second time.
func (s *AppointmentService) TransitionDue(ctx context.Context) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "AppointmentService.TransitionDue")
	defer span.End()

	n, err := s.repo.TransitionDue(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("transitioning due appointments: %w", err)
	}
	if n > 0 {
		s.metrics.AppointmentTransitions.WithLabelValues(string(models.StatusInProgress), string(models.ActorSystem)).Add(float64(n))
		s.log.Info("appointments moved to in_progress", zap.Int64("count", n))
	}
	span.SetAttributes(attribute.Int64("appointments.transitioned", n))
	return n, nil
}

// Complete closes the visit and opens the dispute window.
func (s *AppointmentService) Complete(ctx context.Context, caller Caller, id uint, in CompleteInput) (*models.Appointment, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	if in.ActualCost != nil && in.ActualCost.IsNegative() {
		return nil, invalid("actual_cost: must not be negative")
	}

	a, actor, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if actor != models.ActorStaff {
		return nil, ErrForbidden
	}

	now := s.now()
	if in.SuggestedFollowUpDate != nil {
		if a.IsFollowUp {
			return nil, ErrNestedFollowUp
		}
		if !a.Type.SuggestsFollowUp() {
			return nil, invalid("suggested_follow_up_date: not offered for " + string(a.Type) + " visits")
		}
		if !in.SuggestedFollowUpDate.After(now) {
			return nil, invalid("suggested_follow_up_date: must be in the future")
		}
	}

	var cost decimal.NullDecimal
	if in.ActualCost != nil {
		cost = decimal.NewNullDecimal(*in.ActualCost)
	}
	from := a.Status
	if err := a.Complete(now, s.cfg.DisputeWindow, cost, in.SuggestedFollowUpDate); err != nil {
		return nil, err
	}
	if in.Notes != "" {
		a.Notes = in.Notes
	}
	if err := s.record(ctx, a, from, actor, caller, ""); err != nil {
		return nil, err
	}
	return a, nil
}

// Dispute flags a completed visit once, inside the dispute window.
func (s *AppointmentService) Dispute(ctx context.Context, caller Caller, id uint, reason string) (*models.Appointment, error) {
	if reason == "" {
		return nil, invalid("reason: required")
	}
	a, actor, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if actor != models.ActorOwner {
		return nil, ErrForbidden
	}
	if err := a.Dispute(s.now(), reason); err != nil {
		return nil, err
	}
	if err := s.record(ctx, a, a.Status, actor, caller, "disputed: "+reason); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AppointmentService) Cancel(ctx context.Context, caller Caller, id uint, reason string) (*models.Appointment, error) {
	a, actor, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	from := a.Status
	if err := a.Cancel(s.now(), actor, reason); err != nil {
		return nil, err
	}
	if err := s.record(ctx, a, from, actor, caller, reason); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AppointmentService) MarkNoShow(ctx context.Context, caller Caller, id uint) (*models.Appointment, error) {
	a, actor, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if actor != models.ActorStaff {
		return nil, ErrForbidden
	}
	from := a.Status
	if err := a.MarkNoShow(); err != nil {
		return nil, err
	}
	if err := s.record(ctx, a, from, actor, caller, ""); err != nil {
		return nil, err
	}
	return a, nil
}

// Reschedule moves a live booking in place; the previous start is kept in the history row.
func (s *AppointmentService) Reschedule(ctx context.Context, caller Caller, id uint, in RescheduleInput) (*models.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "AppointmentService.Reschedule")
	defer span.End()

	if err := Validate(in); err != nil {
		return nil, err
	}
	a, actor, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if actor == models.ActorSystem {
		return nil, ErrForbidden
	}
	if a.BookingType == models.BookingWalkIn {
		return nil, ErrInvalidTransition
	}

	now := s.now()
	if !in.ScheduledAt.After(now) {
		return nil, ErrScheduledInPast
	}
	clinic, err := s.clinics.GetByID(ctx, a.ClinicID)
	if err != nil {
		return nil, err
	}
	if in.ClinicStaffID != nil {
		if err := s.checkStaff(ctx, clinic.ID, *in.ClinicStaffID); err != nil {
			return nil, err
		}
	}
	if !clinic.IsOpenBetween(in.ScheduledAt, in.ScheduledAt.Add(time.Duration(a.DurationMinutes)*time.Minute)) {
		return nil, ErrOutsideHours
	}

	prev, err := a.Reschedule(in.ScheduledAt, in.Reason)
	if err != nil {
		return nil, err
	}
	if in.ClinicStaffID != nil {
		a.ClinicStaffID = in.ClinicStaffID
	}
	if a.Status == models.StatusScheduled {
		a.ConfirmationWindowEndsAt = s.confirmationDeadline(now, in.ScheduledAt)
	}
	a.ReminderSentAt = nil

	change := StatusChange{
		From:                a.Status,
		To:                  a.Status,
		PreviousScheduledAt: prev,
		Actor:               actor,
		ActorUserID:         caller.userRef(),
		Reason:              in.Reason,
	}
	if err := s.repo.Reschedule(ctx, a, change); err != nil {
		if errors.Is(err, ErrSlotConflict) || errors.Is(err, ErrSlotFull) {
			s.metrics.BookingConflicts.Inc()
			return nil, err
		}
		return nil, fmt.Errorf("rescheduling appointment: %w", err)
	}
	s.log.Info("appointment rescheduled",
		zap.String("appointment_number", a.AppointmentNumber),
		zap.Timep("previous", prev),
		zap.Time("scheduled_at", in.ScheduledAt),
	)
	return a, nil
}

// CreateFollowUp books the visit suggested on a completed appointment. Follow-ups are one level deep.
func (s *AppointmentService) CreateFollowUp(ctx context.Context, caller Caller, parentID uint, in FollowUpInput) (*models.Appointment, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	parent, actor, err := s.load(ctx, caller, parentID)
	if err != nil {
		return nil, err
	}
	if actor != models.ActorOwner {
		return nil, ErrForbidden
	}
	if parent.Status != models.StatusCompleted {
		return nil, ErrNotCompleted
	}
	if parent.IsFollowUp {
		return nil, ErrNestedFollowUp
	}
	if parent.SuggestedFollowUpDate == nil {
		return nil, ErrNoFollowUp
	}

	existing, _, err := s.repo.List(ctx, AppointmentFilter{
		ParentID: &parent.ID,
		Statuses: []models.AppointmentStatus{models.StatusScheduled, models.StatusConfirmed, models.StatusInProgress, models.StatusCompleted},
		Limit:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("checking existing follow-up: %w", err)
	}
	if len(existing) > 0 {
		return nil, ErrFollowUpExists
	}

	at := *parent.SuggestedFollowUpDate
	if in.ScheduledAt != nil {
		at = *in.ScheduledAt
	}
	staffID := parent.ClinicStaffID
	if in.ClinicStaffID != nil {
		staffID = in.ClinicStaffID
	}

	return s.book(ctx, caller, BookAppointmentInput{
		PetID:         parent.PetID,
		ClinicID:      parent.ClinicID,
		ClinicStaffID: staffID,
		ScheduledAt:   at,
		Type:          models.TypeFollowUp,
		Notes:         in.Notes,
	}, parent)
}

// ExpireUnconfirmed cancels future bookings whose owner never confirmed in time.
func (s *AppointmentService) ExpireUnconfirmed(ctx context.Context) (int, error) {
	n, err := s.repo.ExpireUnconfirmed(ctx, s.now(), expiredReason, expireBatchSize)
	if err != nil {
		return 0, fmt.Errorf("expiring unconfirmed appointments: %w", err)
	}
	if n > 0 {
		s.metrics.AppointmentTransitions.WithLabelValues(string(models.StatusCancelled), string(models.ActorSystem)).Add(float64(n))
		s.log.Info("unconfirmed appointments cancelled", zap.Int64("count", n))
	}
	return int(n), nil
}

// SendReminders e-mails owners whose visit starts within the reminder lead time.
func (s *AppointmentService) SendReminders(ctx context.Context) (int, error) {
	now := s.now()
	list, err := s.repo.ListDueForReminder(ctx, now, now.Add(s.cfg.ReminderLead))
	if err != nil {
		return 0, fmt.Errorf("listing reminders: %w", err)
	}

	sent := 0
	var errs []error
	for i := range list {
		a := &list[i]
		if a.Owner == nil || a.Owner.Email == "" {
			continue
		}
		subject, body := reminderEmail(a)
		if err := s.mailer.Send(a.Owner.Email, subject, body); err != nil {
			s.log.Warn("reminder not sent", zap.Uint("appointment_id", a.ID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if err := s.repo.MarkReminded(ctx, a.ID, now); err != nil {
			errs = append(errs, err)
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

func (s *AppointmentService) Get(ctx context.Context, caller Caller, id uint) (*models.Appointment, error) {
	a, _, err := s.load(ctx, caller, id)
	return a, err
}

func (s *AppointmentService) History(ctx context.Context, caller Caller, id uint) ([]models.AppointmentStatusHistory, error) {
	if _, _, err := s.load(ctx, caller, id); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, id)
}

func (s *AppointmentService) ListForOwner(ctx context.Context, caller Caller, f AppointmentFilter) ([]models.Appointment, int64, error) {
	if caller.Role != models.RoleOwner {
		return nil, 0, ErrForbidden
	}
	f.OwnerID = &caller.UserID
	f.ClinicID = nil
	f.Limit, f.Offset = page(f.Limit, f.Offset)
	return s.repo.List(ctx, f)
}

func (s *AppointmentService) ListForClinic(ctx context.Context, caller Caller, clinicID uint, f AppointmentFilter) ([]models.Appointment, int64, error) {
	if !caller.IsStaffOf(clinicID) {
		return nil, 0, ErrForbidden
	}
	f.ClinicID = &clinicID
	f.OwnerID = nil
	f.Limit, f.Offset = page(f.Limit, f.Offset)
	return s.repo.List(ctx, f)
}

// SetPriority is the staff override; IsPriority follows from the level.
func (s *AppointmentService) SetPriority(ctx context.Context, caller Caller, id uint, p models.Priority, reason string) (*models.Appointment, error) {
	if !p.IsValid() {
		return nil, invalid("priority: must be one of low normal high urgent")
	}
	a, actor, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if actor != models.ActorStaff {
		return nil, ErrForbidden
	}
	switch a.Status {
	case models.StatusCompleted, models.StatusCancelled, models.StatusNoShow:
		return nil, ErrInvalidTransition
	}
	a.Priority = p
	a.PriorityReason = reason
	if err := s.repo.Update(ctx, a, nil); err != nil {
		return nil, fmt.Errorf("saving appointment: %w", err)
	}
	return a, nil
}

func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
