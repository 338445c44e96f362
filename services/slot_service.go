package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/meinhoongagan/vetcare-app/models"
)

const dateLayout = "2006-01-02"

type SlotService struct {
	repo    SlotRepository
	clinics ClinicRepository
	log     *zap.Logger
	now     func() time.Time
}

func NewSlotService(repo SlotRepository, clinics ClinicRepository, log *zap.Logger) *SlotService {
	return &SlotService{repo: repo, clinics: clinics, log: log, now: time.Now}
}

func (s *SlotService) WithClock(now func() time.Time) *SlotService {
	s.now = now
	return s
}

type GenerateSlotsInput struct {
	ClinicStaffID *uint  `json:"clinic_staff_id"`
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	SlotMinutes   int    `json:"slot_minutes" validate:"required,min=5,max=240"`
	Capacity      int    `json:"capacity" validate:"required,min=1,max=50"`
}

// Generate lays capacity buckets over one day of opening hours, skipping breaks and existing slots.
func (s *SlotService) Generate(ctx context.Context, caller Caller, clinicID uint, in GenerateSlotsInput) ([]models.AppointmentTimeSlot, error) {
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
	if in.ClinicStaffID != nil {
		staff, err := s.clinics.GetStaff(ctx, *in.ClinicStaffID)
		if err != nil {
			return nil, err
		}
		if staff.ClinicID != clinicID {
			return nil, ErrStaffNotFound
		}
	}

	day, err := time.ParseInLocation(dateLayout, in.Date, clinic.Location())
	if err != nil {
		return nil, invalid("date: must be YYYY-MM-DD")
	}

	var from, to time.Time
	if clinic.Is24Hours {
		from, to = day, day.AddDate(0, 0, 1)
	} else {
		h := clinic.HoursFor(models.DayOfWeek(day.Weekday()))
		if h == nil || h.IsClosed {
			return nil, nil
		}
		open, closing, err := h.OpenRange()
		if err != nil {
			return nil, err
		}
		from = day.Add(time.Duration(open) * time.Minute)
		to = day.Add(time.Duration(closing) * time.Minute)
	}

	existing, err := s.repo.ListBetween(ctx, clinicID, in.ClinicStaffID, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing slots: %w", err)
	}
	taken := make(map[int64]bool, len(existing))
	for _, sl := range existing {
		taken[sl.StartsAt.Unix()] = true
	}

	length := time.Duration(in.SlotMinutes) * time.Minute
	var slots []models.AppointmentTimeSlot
	for t := from; !t.Add(length).After(to); t = t.Add(length) {
		end := t.Add(length)
		if taken[t.Unix()] || !clinic.IsOpenBetween(t, end) {
			continue
		}
		slots = append(slots, models.AppointmentTimeSlot{
			ClinicID:        clinicID,
			ClinicStaffID:   in.ClinicStaffID,
			StartsAt:        t.UTC(),
			EndsAt:          end.UTC(),
			MaxAppointments: in.Capacity,
		})
	}
	if len(slots) == 0 {
		return nil, nil
	}
	if err := s.repo.CreateBatch(ctx, slots); err != nil {
		return nil, fmt.Errorf("creating slots: %w", err)
	}
	s.log.Info("time slots generated", zap.Uint("clinic_id", clinicID), zap.String("date", in.Date), zap.Int("count", len(slots)))
	return slots, nil
}

// Available lists future slots on the date that still have room.
func (s *SlotService) Available(ctx context.Context, clinicID uint, date string, staffID *uint) ([]models.AppointmentTimeSlot, error) {
	clinic, err := s.clinics.GetByID(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	if !clinic.IsBookable() {
		return nil, ErrClinicNotBookable
	}
	day, err := time.ParseInLocation(dateLayout, date, clinic.Location())
	if err != nil {
		return nil, invalid("date: must be YYYY-MM-DD")
	}

	all, err := s.repo.ListBetween(ctx, clinicID, staffID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("listing slots: %w", err)
	}
	now := s.now()
	open := make([]models.AppointmentTimeSlot, 0, len(all))
	for _, sl := range all {
		if sl.HasCapacity() && sl.StartsAt.After(now) {
			open = append(open, sl)
		}
	}
	return open, nil
}
