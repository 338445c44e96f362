// Package repository holds the PostgreSQL implementations of the service repositories.
package repository

import (
	"gorm.io/gorm"

	"github.com/meinhoongagan/vetcare-app/services"
)

var (
	_ services.AppointmentRepository   = (*AppointmentRepository)(nil)
	_ services.SlotRepository          = (*SlotRepository)(nil)
	_ services.ClinicRepository        = (*ClinicRepository)(nil)
	_ services.ReviewRepository        = (*ReviewRepository)(nil)
	_ services.PetRepository           = (*PetRepository)(nil)
	_ services.InvoiceRepository       = (*InvoiceRepository)(nil)
	_ services.UserRepository          = (*UserRepository)(nil)
	_ services.SecurityEventRepository = (*SecurityEventRepository)(nil)
	_ services.JobRunRepository        = (*JobRunRepository)(nil)
)

// Repositories bundles every store over one connection pool.
type Repositories struct {
	Appointments *AppointmentRepository
	Slots        *SlotRepository
	Clinics      *ClinicRepository
	Reviews      *ReviewRepository
	Pets         *PetRepository
	Invoices     *InvoiceRepository
	Users        *UserRepository
	Events       *SecurityEventRepository
	JobRuns      *JobRunRepository
}

func New(db *gorm.DB) *Repositories {
	return &Repositories{
		Appointments: NewAppointmentRepository(db),
		Slots:        NewSlotRepository(db),
		Clinics:      NewClinicRepository(db),
		Reviews:      NewReviewRepository(db),
		Pets:         NewPetRepository(db),
		Invoices:     NewInvoiceRepository(db),
		Users:        NewUserRepository(db),
		Events:       NewSecurityEventRepository(db),
		JobRuns:      NewJobRunRepository(db),
	}
}
