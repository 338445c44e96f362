package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/meinhoongagan/vetcare-app/metrics"
	"github.com/meinhoongagan/vetcare-app/models"
)

// base is a Monday morning before the clinic opens.
var base = time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	clock *testClock

	appts    *mockAppointmentRepo
	slots    *mockSlotRepo
	clinics  *mockClinicRepo
	pets     *mockPetRepo
	reviews  *mockReviewRepo
	invoices *mockInvoiceRepo
	users    *mockUserRepo
	events   *mockEventRepo
	jobRuns  *mockJobRunRepo
	mailer   *mockMailer
	uploader *mockUploader
	metrics  *metrics.Collector

	apptSvc    *AppointmentService
	slotSvc    *SlotService
	reviewSvc  *ReviewService
	clinicSvc  *ClinicService
	petSvc     *PetService
	billingSvc *BillingService
	adminSvc   *AdminService
	authSvc    *AuthService

	clinic  *models.ClinicRegistration
	vet     *models.ClinicStaff
	vet2    *models.ClinicStaff
	service *models.ClinicService
	pet     *models.Pet

	owner Caller
	other Caller
	staff Caller
	admin Caller
}

func strp(s string) *string { return &s }

func weekHours(open, closing string, breakStart, breakEnd *string) []models.ClinicOperatingHour {
	hours := make([]models.ClinicOperatingHour, 0, 7)
	for d := models.Sunday; d <= models.Saturday; d++ {
		hours = append(hours, models.ClinicOperatingHour{
			DayOfWeek:  d,
			OpenTime:   open,
			CloseTime:  closing,
			BreakStart: breakStart,
			BreakEnd:   breakEnd,
		})
	}
	return hours
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	log := zap.NewNop()

	f := &fixture{
		clock:    &testClock{t: base},
		slots:    &mockSlotRepo{},
		clinics:  newMockClinicRepo(),
		pets:     newMockPetRepo(),
		users:    newMockUserRepo(),
		events:   &mockEventRepo{},
		jobRuns:  &mockJobRunRepo{},
		mailer:   &mockMailer{},
		uploader: &mockUploader{},
		metrics:  metrics.NewCollector(),
	}
	f.appts = newMockAppointmentRepo(f.slots)
	f.reviews = &mockReviewRepo{clinics: f.clinics}
	f.invoices = &mockInvoiceRepo{invoices: make(map[uint]*models.Invoice), appts: f.appts}

	f.apptSvc = NewAppointmentService(f.appts, f.clinics, f.pets, f.mailer, f.metrics, log, AppointmentConfig{
		ConfirmationWindow: 24 * time.Hour,
		DisputeWindow:      72 * time.Hour,
		ReminderLead:       24 * time.Hour,
		NumberPrefix:       "APT",
	}).WithClock(f.clock.Now)
	f.slotSvc = NewSlotService(f.slots, f.clinics, log).WithClock(f.clock.Now)
	f.reviewSvc = NewReviewService(f.reviews, f.appts, f.metrics, log)
	f.clinicSvc = NewClinicService(f.clinics, f.users, f.uploader, log)
	f.petSvc = NewPetService(f.pets, f.appts).WithClock(f.clock.Now)
	f.billingSvc = NewBillingService(f.invoices, f.appts, f.clinics, f.users, f.mailer, f.metrics, log, BillingConfig{
		TaxRate:      decimal.RequireFromString("0.10"),
		DueIn:        14 * 24 * time.Hour,
		NumberPrefix: "INV",
	}).WithClock(f.clock.Now)
	f.adminSvc = NewAdminService(f.clinics, f.users, f.events, f.jobRuns, log).WithClock(f.clock.Now)
	f.authSvc = NewAuthService(f.users, f.events, log, []byte("test-secret-test-secret-test-secret"), time.Hour).WithClock(f.clock.Now)

	mustUser := func(name, email string, role models.Role) *models.User {
		u := &models.User{Name: name, Email: email, Role: role}
		if err := f.users.Create(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
		return u
	}
	owner := mustUser("Ana Owner", "ana@example.com", models.RoleOwner)
	other := mustUser("Ben Owner", "ben@example.com", models.RoleOwner)
	clinicAdmin := mustUser("Cara Desk", "cara@example.com", models.RoleClinicAdmin)
	admin := mustUser("Dan Admin", "dan@example.com", models.RoleAdmin)

	f.clinic = &models.ClinicRegistration{
		OwnerUserID:    clinicAdmin.ID,
		Name:           "Riverside Vets",
		City:           "Springfield",
		TimeZone:       "UTC",
		Status:         models.ClinicApproved,
		OperatingHours: weekHours("08:00", "18:00", strp("12:00"), strp("13:00")),
	}
	if err := f.clinics.Create(ctx, f.clinic); err != nil {
		t.Fatalf("create clinic: %v", err)
	}
	clinicAdmin.ClinicID = &f.clinic.ID
	_ = f.users.Update(ctx, clinicAdmin)

	f.vet = &models.ClinicStaff{ClinicID: f.clinic.ID, Name: "Dr. Lee", IsActive: true}
	f.vet2 = &models.ClinicStaff{ClinicID: f.clinic.ID, Name: "Dr. Patel", IsActive: true}
	_ = f.clinics.CreateStaff(ctx, f.vet)
	_ = f.clinics.CreateStaff(ctx, f.vet2)
	f.service = &models.ClinicService{ClinicID: f.clinic.ID, Name: "Consultation", Price: decimal.RequireFromString("45.50"), DurationMinutes: 30, IsActive: true}
	_ = f.clinics.CreateService(ctx, f.service)

	f.pet = &models.Pet{OwnerID: owner.ID, Name: "Rex", PetTypeID: 1}
	_ = f.pets.CreatePet(ctx, f.pet)

	f.owner = CallerFor(owner)
	f.other = CallerFor(other)
	f.staff = CallerFor(clinicAdmin)
	f.admin = CallerFor(admin)
	return f
}

func (f *fixture) bookInput(at time.Time, staffID uint) BookAppointmentInput {
	return BookAppointmentInput{
		PetID:         f.pet.ID,
		ClinicID:      f.clinic.ID,
		ClinicStaffID: &staffID,
		ServiceID:     &f.service.ID,
		ScheduledAt:   at,
		Type:          models.TypeConsultation,
	}
}

func (f *fixture) book(t *testing.T, at time.Time) *models.Appointment {
	t.Helper()
	a, err := f.apptSvc.Book(context.Background(), f.owner, f.bookInput(at, f.vet.ID))
	if err != nil {
		t.Fatalf("Book: unexpected error: %v", err)
	}
	return a
}

// completed books, sweeps and completes an appointment at the given time.
func (f *fixture) completed(t *testing.T, at time.Time, in CompleteInput) *models.Appointment {
	t.Helper()
	ctx := context.Background()
	a := f.book(t, at)
	f.clock.Set(at)
	if _, err := f.apptSvc.TransitionDue(ctx); err != nil {
		t.Fatalf("TransitionDue: %v", err)
	}
	f.clock.Advance(30 * time.Minute)
	done, err := f.apptSvc.Complete(ctx, f.staff, a.ID, in)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	return done
}
