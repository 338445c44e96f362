package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/meinhoongagan/vetcare-app/models"
	"github.com/meinhoongagan/vetcare-app/services"
)

// freeStatuses are the statuses that release a veterinarian's time.
var freeStatuses = []models.AppointmentStatus{models.StatusCancelled, models.StatusNoShow}

type AppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

var forUpdate = clause.Locking{Strength: "UPDATE"}

// guard locks the veterinarian row, then rejects overlaps and full slots. Callers hold a transaction.
// A booking without a veterinarian is only bounded by a clinic-wide slot, so one must exist.
func guard(tx *gorm.DB, a *models.Appointment) error {
	if a.ScheduledAt == nil {
		return nil
	}
	if a.ClinicStaffID != nil {
		var staff models.ClinicStaff
		if err := tx.Clauses(forUpdate).First(&staff, *a.ClinicStaffID).Error; err != nil {
			return notFound(err, services.ErrStaffNotFound)
		}

		var overlapping int64
		err := tx.Model(&models.Appointment{}).
			Where("clinic_staff_id = ? AND id <> ?", *a.ClinicStaffID, a.ID).
			Where("status NOT IN ?", freeStatuses).
			Where("scheduled_at < ? AND scheduled_at + duration_minutes * interval '1 minute' > ?", a.EndsAt(), *a.ScheduledAt).
			Count(&overlapping).Error
		if err != nil {
			return fmt.Errorf("checking overlap: %w", err)
		}
		if overlapping > 0 {
			return services.ErrSlotConflict
		}
	}

	slot, err := coveringSlot(tx, a.ClinicID, a.ClinicStaffID, *a.ScheduledAt)
	if err != nil {
		return err
	}
	if slot == nil {
		if a.ClinicStaffID == nil {
			return services.ErrNoOpenSlot
		}
		return nil
	}
	booked, err := countInSlot(tx, slot, a.ID)
	if err != nil {
		return err
	}
	if booked >= int64(slot.MaxAppointments) {
		return services.ErrSlotFull
	}
	return nil
}

// coveringSlot locks the capacity bucket holding t, preferring one dedicated to the veterinarian.
func coveringSlot(tx *gorm.DB, clinicID uint, staffID *uint, t time.Time) (*models.AppointmentTimeSlot, error) {
	q := tx.Clauses(forUpdate).
		Where("clinic_id = ? AND starts_at <= ? AND ends_at > ?", clinicID, t, t)
	if staffID != nil {
		q = q.Where("(clinic_staff_id IS NULL OR clinic_staff_id = ?)", *staffID)
	} else {
		q = q.Where("clinic_staff_id IS NULL")
	}

	var slots []models.AppointmentTimeSlot
	if err := q.Order("clinic_staff_id IS NULL, starts_at").Limit(1).Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("loading time slot: %w", err)
	}
	if len(slots) == 0 {
		return nil, nil
	}
	return &slots[0], nil
}

func countInSlot(tx *gorm.DB, slot *models.AppointmentTimeSlot, exclude uint) (int64, error) {
	q := tx.Model(&models.Appointment{}).
		Where("clinic_id = ? AND id <> ?", slot.ClinicID, exclude).
		Where("status NOT IN ?", freeStatuses).
		Where("scheduled_at >= ? AND scheduled_at < ?", slot.StartsAt, slot.EndsAt)
	if slot.ClinicStaffID != nil {
		q = q.Where("clinic_staff_id = ?", *slot.ClinicStaffID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting slot bookings: %w", err)
	}
	return n, nil
}

// refreshSlot recounts the bucket covering at from the appointment rows.
func refreshSlot(tx *gorm.DB, a *models.Appointment, at *time.Time) error {
	if at == nil {
		return nil
	}
	slot, err := coveringSlot(tx, a.ClinicID, a.ClinicStaffID, *at)
	if err != nil || slot == nil {
		return err
	}
	booked, err := countInSlot(tx, slot, 0)
	if err != nil {
		return err
	}
	return tx.Model(slot).Update("booked_appointments", booked).Error
}

func appendHistory(tx *gorm.DB, a *models.Appointment, c services.StatusChange) error {
	row := models.AppointmentStatusHistory{
		AppointmentID:       a.ID,
		FromStatus:          c.From,
		ToStatus:            c.To,
		PreviousScheduledAt: c.PreviousScheduledAt,
		NewScheduledAt:      a.ScheduledAt,
		Actor:               c.Actor,
		ActorUserID:         c.ActorUserID,
		Reason:              c.Reason,
	}
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("writing status history: %w", err)
	}
	return nil
}

func (r *AppointmentRepository) Book(ctx context.Context, a *models.Appointment, change services.StatusChange) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := guard(tx, a); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(a).Error; err != nil {
			return duplicate(err, services.ErrSlotConflict)
		}
		if err := appendHistory(tx, a, change); err != nil {
			return err
		}
		return refreshSlot(tx, a, a.ScheduledAt)
	})
}

// claim locks the stored row and bumps a's version. A write based on an older read is
// rejected: ErrInvalidTransition when the status has moved since, ErrStaleAppointment otherwise.
func claim(tx *gorm.DB, a *models.Appointment, from models.AppointmentStatus) (*models.Appointment, error) {
	var current models.Appointment
	err := tx.Clauses(forUpdate).Select("id", "status", "clinic_staff_id", "version").First(&current, a.ID).Error
	if err != nil {
		return nil, notFound(err, services.ErrAppointmentNotFound)
	}
	if current.Version != a.Version {
		if current.Status != from {
			return nil, services.ErrInvalidTransition
		}
		return nil, services.ErrStaleAppointment
	}
	a.Version++
	return &current, nil
}

func (r *AppointmentRepository) Reschedule(ctx context.Context, a *models.Appointment, change services.StatusChange) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := claim(tx, a, change.From)
		if err != nil {
			return err
		}
		if err := guard(tx, a); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(a).Error; err != nil {
			return duplicate(err, services.ErrSlotConflict)
		}
		if err := appendHistory(tx, a, change); err != nil {
			return err
		}
		previous := *a
		previous.ClinicStaffID = current.ClinicStaffID
		if err := refreshSlot(tx, &previous, change.PreviousScheduledAt); err != nil {
			return err
		}
		return refreshSlot(tx, a, a.ScheduledAt)
	})
}

func (r *AppointmentRepository) Update(ctx context.Context, a *models.Appointment, change *services.StatusChange) error {
	from := a.Status
	if change != nil {
		from = change.From
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := claim(tx, a, from); err != nil {
			return err
		}
		res := tx.Omit(clause.Associations).Save(a)
		if res.Error != nil {
			return fmt.Errorf("updating appointment %d: %w", a.ID, res.Error)
		}
		if change == nil {
			return nil
		}
		if err := appendHistory(tx, a, *change); err != nil {
			return err
		}
		return refreshSlot(tx, a, a.ScheduledAt)
	})
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id uint) (*models.Appointment, error) {
	var a models.Appointment
	if err := r.db.WithContext(ctx).Preload("Pet").First(&a, id).Error; err != nil {
		return nil, notFound(err, services.ErrAppointmentNotFound)
	}
	return &a, nil
}

func (r *AppointmentRepository) List(ctx context.Context, f services.AppointmentFilter) ([]models.Appointment, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Appointment{})
	if f.OwnerID != nil {
		q = q.Where("owner_id = ?", *f.OwnerID)
	}
	if f.ClinicID != nil {
		q = q.Where("clinic_id = ?", *f.ClinicID)
	}
	if f.StaffID != nil {
		q = q.Where("clinic_staff_id = ?", *f.StaffID)
	}
	if f.PetID != nil {
		q = q.Where("pet_id = ?", *f.PetID)
	}
	if f.ParentID != nil {
		q = q.Where("parent_appointment_id = ?", *f.ParentID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.From != nil {
		q = q.Where("scheduled_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("scheduled_at < ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting appointments: %w", err)
	}
	var list []models.Appointment
	err := paginate(q, f.Limit, f.Offset).
		Preload("Pet").
		Order("scheduled_at ASC NULLS LAST, id ASC").
		Find(&list).Error
	if err != nil {
		return nil, 0, fmt.Errorf("listing appointments: %w", err)
	}
	return list, total, nil
}

func (r *AppointmentRepository) History(ctx context.Context, id uint) ([]models.AppointmentStatusHistory, error) {
	var rows []models.AppointmentStatusHistory
	if err := r.db.WithContext(ctx).Where("appointment_id = ?", id).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading history for %d: %w", id, err)
	}
	return rows, nil
}

// TransitionDue flips due rows and writes their history in one transaction.
// SKIP LOCKED leaves rows held by an in-flight booking for the next tick.
func (r *AppointmentRepository) TransitionDue(ctx context.Context, now time.Time) (int64, error) {
	var moved int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var due []models.Appointment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Select("id", "status", "scheduled_at").
			Where("status IN ? AND scheduled_at <= ?", []models.AppointmentStatus{models.StatusScheduled, models.StatusConfirmed}, now).
			Find(&due).Error
		if err != nil {
			return fmt.Errorf("selecting due appointments: %w", err)
		}
		if len(due) == 0 {
			return nil
		}

		ids := make([]uint, 0, len(due))
		history := make([]models.AppointmentStatusHistory, 0, len(due))
		for i := range due {
			from := due[i].Status
			if err := due[i].StartProgress(models.ActorSystem); err != nil {
				return fmt.Errorf("appointment %d: %w", due[i].ID, err)
			}
			ids = append(ids, due[i].ID)
			history = append(history, models.AppointmentStatusHistory{
				AppointmentID:  due[i].ID,
				FromStatus:     from,
				ToStatus:       due[i].Status,
				NewScheduledAt: due[i].ScheduledAt,
				Actor:          models.ActorSystem,
				CreatedAt:      now,
			})
		}

		res := tx.Model(&models.Appointment{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"status":     models.StatusInProgress,
				"updated_at": now,
				"version":    gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return fmt.Errorf("updating due appointments: %w", res.Error)
		}
		moved = res.RowsAffected
		return tx.CreateInBatches(history, 200).Error
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}

// ExpireUnconfirmed cancels future bookings whose confirmation window lapsed, writing their
// history and freeing their slots in one transaction.
func (r *AppointmentRepository) ExpireUnconfirmed(ctx context.Context, now time.Time, reason string, limit int) (int64, error) {
	var expired int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lapsed []models.Appointment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Select("id", "clinic_id", "clinic_staff_id", "status", "scheduled_at", "duration_minutes").
			Where("status = ? AND confirmation_window_ends_at < ? AND scheduled_at > ?", models.StatusScheduled, now, now).
			Order("id").
			Limit(limit).
			Find(&lapsed).Error
		if err != nil {
			return fmt.Errorf("selecting unconfirmed appointments: %w", err)
		}
		if len(lapsed) == 0 {
			return nil
		}

		ids := make([]uint, 0, len(lapsed))
		history := make([]models.AppointmentStatusHistory, 0, len(lapsed))
		for i := range lapsed {
			from := lapsed[i].Status
			if err := lapsed[i].Cancel(now, models.ActorSystem, reason); err != nil {
				return fmt.Errorf("appointment %d: %w", lapsed[i].ID, err)
			}
			ids = append(ids, lapsed[i].ID)
			history = append(history, models.AppointmentStatusHistory{
				AppointmentID:  lapsed[i].ID,
				FromStatus:     from,
				ToStatus:       lapsed[i].Status,
				NewScheduledAt: lapsed[i].ScheduledAt,
				Actor:          models.ActorSystem,
				Reason:         reason,
				CreatedAt:      now,
			})
		}

		res := tx.Model(&models.Appointment{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"status":        models.StatusCancelled,
				"cancel_reason": reason,
				"cancelled_at":  now,
				"updated_at":    now,
				"version":       gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return fmt.Errorf("cancelling unconfirmed appointments: %w", res.Error)
		}
		expired = res.RowsAffected
		if err := tx.CreateInBatches(history, 200).Error; err != nil {
			return fmt.Errorf("writing status history: %w", err)
		}
		for i := range lapsed {
			if err := refreshSlot(tx, &lapsed[i], lapsed[i].ScheduledAt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return expired, nil
}

func (r *AppointmentRepository) ListDueForReminder(ctx context.Context, from, to time.Time) ([]models.Appointment, error) {
	var list []models.Appointment
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Preload("Pet").
		Where("status IN ?", []models.AppointmentStatus{models.StatusScheduled, models.StatusConfirmed}).
		Where("reminder_sent_at IS NULL AND scheduled_at BETWEEN ? AND ?", from, to).
		Order("scheduled_at").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("listing reminders: %w", err)
	}
	return list, nil
}

func (r *AppointmentRepository) MarkReminded(ctx context.Context, id uint, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Appointment{}).Where("id = ?", id).
		Updates(map[string]interface{}{"reminder_sent_at": at, "version": gorm.Expr("version + 1")})
	if res.Error != nil {
		return fmt.Errorf("marking reminder for %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return services.ErrAppointmentNotFound
	}
	return nil
}
