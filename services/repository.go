package services

import (
	"context"
	"io"
	"time"

	"github.com/meinhoongagan/vetcare-app/models"
)

// StatusChange is the history row written alongside an appointment mutation.
type StatusChange struct {
	From                models.AppointmentStatus
	To                  models.AppointmentStatus
	PreviousScheduledAt *time.Time
	Actor               models.Actor
	ActorUserID         *uint
	Reason              string
}

type AppointmentFilter struct {
	OwnerID  *uint
	ClinicID *uint
	StaffID  *uint
	PetID    *uint
	ParentID *uint
	Statuses []models.AppointmentStatus
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

type AppointmentRepository interface {
	// Book inserts the appointment after locking the veterinarian, checking overlap
	// and slot capacity, all in one transaction. Returns ErrSlotConflict or ErrSlotFull.
	Book(ctx context.Context, a *models.Appointment, change StatusChange) error
	// Reschedule repeats the Book checks for the new time, excluding the appointment itself.
	Reschedule(ctx context.Context, a *models.Appointment, change StatusChange) error
	// Update persists the appointment and, when change is non-nil, appends history.
	// A version mismatch yields ErrInvalidTransition if the status moved, ErrStaleAppointment otherwise.
	Update(ctx context.Context, a *models.Appointment, change *StatusChange) error
	GetByID(ctx context.Context, id uint) (*models.Appointment, error)
	List(ctx context.Context, f AppointmentFilter) ([]models.Appointment, int64, error)
	History(ctx context.Context, id uint) ([]models.AppointmentStatusHistory, error)
	// TransitionDue moves every due scheduled/confirmed appointment to in_progress in one transaction.
	TransitionDue(ctx context.Context, now time.Time) (int64, error)
	// ExpireUnconfirmed cancels up to limit lapsed unconfirmed bookings in one transaction.
	ExpireUnconfirmed(ctx context.Context, now time.Time, reason string, limit int) (int64, error)
	ListDueForReminder(ctx context.Context, from, to time.Time) ([]models.Appointment, error)
	MarkReminded(ctx context.Context, id uint, at time.Time) error
}

type SlotRepository interface {
	CreateBatch(ctx context.Context, slots []models.AppointmentTimeSlot) error
	ListBetween(ctx context.Context, clinicID uint, staffID *uint, from, to time.Time) ([]models.AppointmentTimeSlot, error)
}

type ClinicFilter struct {
	City   string
	Name   string
	Status models.ClinicStatus
	Limit  int
	Offset int
}

type ClinicRepository interface {
	Create(ctx context.Context, c *models.ClinicRegistration) error
	GetByID(ctx context.Context, id uint) (*models.ClinicRegistration, error)
	// SetStatus persists a moderation decision if the clinic is still in from, else ErrClinicStatus.
	SetStatus(ctx context.Context, c *models.ClinicRegistration, from models.ClinicStatus) error
	SetCertificationURL(ctx context.Context, id uint, url string) error
	ReplaceHours(ctx context.Context, clinicID uint, hours []models.ClinicOperatingHour) error
	Search(ctx context.Context, f ClinicFilter) ([]models.ClinicRegistration, int64, error)

	CreateService(ctx context.Context, s *models.ClinicService) error
	GetService(ctx context.Context, id uint) (*models.ClinicService, error)
	ListServices(ctx context.Context, clinicID uint) ([]models.ClinicService, error)

	CreateStaff(ctx context.Context, s *models.ClinicStaff) error
	GetStaff(ctx context.Context, id uint) (*models.ClinicStaff, error)
	UpdateStaff(ctx context.Context, s *models.ClinicStaff) error
	ListStaff(ctx context.Context, clinicID uint) ([]models.ClinicStaff, error)
}

type ReviewRepository interface {
	// Create inserts the review and recomputes the clinic's rating in the same transaction.
	Create(ctx context.Context, r *models.ClinicReview) (*models.ClinicRegistration, error)
	ListForClinic(ctx context.Context, clinicID uint, limit, offset int) ([]models.ClinicReview, int64, error)
	Histogram(ctx context.Context, clinicID uint) (map[int]int64, error)
}

type PetRepository interface {
	CreatePet(ctx context.Context, p *models.Pet) error
	UpdatePet(ctx context.Context, p *models.Pet) error
	GetPet(ctx context.Context, id uint) (*models.Pet, error)
	ListPets(ctx context.Context, ownerID uint) ([]models.Pet, error)
	ListPetTypes(ctx context.Context) ([]models.PetType, error)
	ListBreeds(ctx context.Context, petTypeID uint) ([]models.Breed, error)

	CreateMedicalRecord(ctx context.Context, r *models.PetMedicalRecord) error
	ListMedicalRecords(ctx context.Context, petID uint) ([]models.PetMedicalRecord, error)
	CreateVaccination(ctx context.Context, v *models.PetVaccination) error
	ListVaccinations(ctx context.Context, petID uint) ([]models.PetVaccination, error)
	CreateHealthCondition(ctx context.Context, c *models.PetHealthCondition) error
	GetHealthCondition(ctx context.Context, id uint) (*models.PetHealthCondition, error)
	UpdateHealthCondition(ctx context.Context, c *models.PetHealthCondition) error
	ListHealthConditions(ctx context.Context, petID uint) ([]models.PetHealthCondition, error)
}

type InvoiceFilter struct {
	ClinicID *uint
	OwnerID  *uint
	Status   models.InvoiceStatus
	Limit    int
	Offset   int
}

type InvoiceRepository interface {
	// Create returns ErrAlreadyInvoiced when the appointment already has a live invoice.
	Create(ctx context.Context, inv *models.Invoice) error
	GetByID(ctx context.Context, id uint) (*models.Invoice, error)
	// Save persists the header together with its items.
	Save(ctx context.Context, inv *models.Invoice) error
	AddPayment(ctx context.Context, inv *models.Invoice, p *models.Payment) error
	List(ctx context.Context, f InvoiceFilter) ([]models.Invoice, int64, error)
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
	// ListUninvoicedCompleted returns completed, undisputed appointments with no live invoice.
	ListUninvoicedCompleted(ctx context.Context, limit int) ([]models.Appointment, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
}

type SecurityEventFilter struct {
	Type   models.SecurityEventType
	UserID *uint
	Limit  int
	Offset int
}

type SecurityEventRepository interface {
	Create(ctx context.Context, e *models.SecurityEvent) error
	List(ctx context.Context, f SecurityEventFilter) ([]models.SecurityEvent, int64, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type JobRunRepository interface {
	Create(ctx context.Context, r *models.JobRun) error
	List(ctx context.Context, job string, limit int) ([]models.JobRun, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Mailer interface {
	Send(to, subject, body string) error
}

type FileUploader interface {
	Upload(ctx context.Context, file io.Reader, publicID, folder string) (string, error)
}
