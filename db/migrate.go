package db

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/meinhoongagan/vetcare-app/models"
)

func Migrate(conn *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	err := conn.AutoMigrate(
		&models.User{},
		&models.SecurityEvent{},
		&models.ClinicRegistration{},
		&models.ClinicOperatingHour{},
		&models.ClinicService{},
		&models.ClinicStaff{},
		&models.PetType{},
		&models.Breed{},
		&models.Pet{},
		&models.PetMedicalRecord{},
		&models.PetVaccination{},
		&models.PetHealthCondition{},
		&models.Appointment{},
		&models.AppointmentStatusHistory{},
		&models.AppointmentTimeSlot{},
		&models.ClinicReview{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.Payment{},
		&models.JobRun{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	if err := createIndexes(conn); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

// createIndexes adds the partial indexes AutoMigrate cannot express.
func createIndexes(conn *gorm.DB) error {
	indexes := []struct {
		name  string
		query string
	}{
		{
			// One live booking per veterinarian per start time.
			name:  "uq_appointments_staff_slot",
			query: `CREATE UNIQUE INDEX IF NOT EXISTS uq_appointments_staff_slot ON appointments (clinic_staff_id, scheduled_at) WHERE deleted_at IS NULL AND clinic_staff_id IS NOT NULL AND scheduled_at IS NOT NULL AND status NOT IN ('cancelled', 'no_show')`,
		},
		{
			name:  "idx_appointments_staff_schedule",
			query: `CREATE INDEX IF NOT EXISTS idx_appointments_staff_schedule ON appointments (clinic_staff_id, scheduled_at, duration_minutes) WHERE deleted_at IS NULL AND status NOT IN ('cancelled', 'no_show')`,
		},
		{
			name:  "idx_appointments_due",
			query: `CREATE INDEX IF NOT EXISTS idx_appointments_due ON appointments (scheduled_at, status) WHERE deleted_at IS NULL AND status IN ('scheduled', 'confirmed')`,
		},
		{
			name:  "idx_time_slots_clinic_window",
			query: `CREATE INDEX IF NOT EXISTS idx_time_slots_clinic_window ON appointment_time_slots (clinic_id, starts_at, ends_at) WHERE deleted_at IS NULL`,
		},
		{
			// At most one live invoice per appointment.
			name:  "uq_invoices_appointment",
			query: `CREATE UNIQUE INDEX IF NOT EXISTS uq_invoices_appointment ON invoices (appointment_id) WHERE deleted_at IS NULL AND appointment_id IS NOT NULL AND status <> 'cancelled'`,
		},
		{
			name:  "idx_invoices_open",
			query: `CREATE INDEX IF NOT EXISTS idx_invoices_open ON invoices (due_at, status) WHERE deleted_at IS NULL AND status = 'sent'`,
		},
	}

	for _, idx := range indexes {
		if err := conn.Exec(idx.query).Error; err != nil {
			return fmt.Errorf("%s: %w", idx.name, err)
		}
	}
	return nil
}
