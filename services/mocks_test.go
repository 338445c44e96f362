package services

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/meinhoongagan/vetcare-app/models"
)

// ---------------------------------------------------------------------------
// In-memory repositories
// ---------------------------------------------------------------------------

type mockAppointmentRepo struct {
	mu      sync.Mutex
	nextID  uint
	items   map[uint]*models.Appointment
	history []models.AppointmentStatusHistory
	slots   *mockSlotRepo

	// beforeWrite runs ahead of Update and Reschedule, standing in for a request
	// that commits between the caller's read and its write.
	beforeWrite func()
}

func newMockAppointmentRepo(slots *mockSlotRepo) *mockAppointmentRepo {
	return &mockAppointmentRepo{items: make(map[uint]*models.Appointment), slots: slots}
}

func occupies(a *models.Appointment) bool {
	return a.Status != models.StatusCancelled && a.Status != models.StatusNoShow
}

func (m *mockAppointmentRepo) overlaps(a *models.Appointment) bool {
	if a.ScheduledAt == nil || a.ClinicStaffID == nil {
		return false
	}
	for _, o := range m.items {
		if o.ID == a.ID || !occupies(o) || o.ScheduledAt == nil || o.ClinicStaffID == nil {
			continue
		}
		if *o.ClinicStaffID != *a.ClinicStaffID {
			continue
		}
		if o.ScheduledAt.Before(a.EndsAt()) && o.EndsAt().After(*a.ScheduledAt) {
			return true
		}
	}
	return false
}

func (m *mockAppointmentRepo) slotFull(a *models.Appointment) bool {
	if m.slots == nil || a.ScheduledAt == nil {
		return false
	}
	sl := m.slots.covering(a.ClinicID, a.ClinicStaffID, *a.ScheduledAt)
	if sl == nil {
		return false
	}
	return m.countIn(sl, a.ID) >= sl.MaxAppointments
}

func (m *mockAppointmentRepo) noSlot(a *models.Appointment) bool {
	if a.ScheduledAt == nil || a.ClinicStaffID != nil {
		return false
	}
	return m.slots == nil || m.slots.covering(a.ClinicID, nil, *a.ScheduledAt) == nil
}

func (m *mockAppointmentRepo) countIn(sl *models.AppointmentTimeSlot, exclude uint) int {
	n := 0
	for _, o := range m.items {
		if o.ID == exclude || !occupies(o) || o.ScheduledAt == nil || o.ClinicID != sl.ClinicID {
			continue
		}
		if sl.ClinicStaffID != nil && (o.ClinicStaffID == nil || *o.ClinicStaffID != *sl.ClinicStaffID) {
			continue
		}
		if sl.Covers(*o.ScheduledAt) {
			n++
		}
	}
	return n
}

func (m *mockAppointmentRepo) refreshSlot(a *models.Appointment, at *time.Time) {
	if m.slots == nil || at == nil {
		return
	}
	if sl := m.slots.covering(a.ClinicID, a.ClinicStaffID, *at); sl != nil {
		sl.BookedAppointments = m.countIn(sl, 0)
	}
}

func (m *mockAppointmentRepo) appendHistory(a *models.Appointment, c StatusChange) {
	m.history = append(m.history, models.AppointmentStatusHistory{
		ID:                  uint(len(m.history) + 1),
		AppointmentID:       a.ID,
		FromStatus:          c.From,
		ToStatus:            c.To,
		PreviousScheduledAt: c.PreviousScheduledAt,
		NewScheduledAt:      a.ScheduledAt,
		Actor:               c.Actor,
		ActorUserID:         c.ActorUserID,
		Reason:              c.Reason,
	})
}

func (m *mockAppointmentRepo) Book(_ context.Context, a *models.Appointment, change StatusChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.overlaps(a) {
		return ErrSlotConflict
	}
	if m.noSlot(a) {
		return ErrNoOpenSlot
	}
	if m.slotFull(a) {
		return ErrSlotFull
	}
	m.nextID++
	a.ID = m.nextID
	a.CreatedAt = time.Now()
	if a.Version == 0 {
		a.Version = 1
	}
	cp := *a
	m.items[a.ID] = &cp
	m.appendHistory(a, change)
	m.refreshSlot(a, a.ScheduledAt)
	return nil
}

func (m *mockAppointmentRepo) hook() {
	if fn := m.beforeWrite; fn != nil {
		m.beforeWrite = nil
		fn()
	}
}

// claim mirrors the repository's version check. Callers hold mu.
func (m *mockAppointmentRepo) claim(a *models.Appointment, from models.AppointmentStatus) error {
	stored, ok := m.items[a.ID]
	if !ok {
		return ErrAppointmentNotFound
	}
	if stored.Version != a.Version {
		if stored.Status != from {
			return ErrInvalidTransition
		}
		return ErrStaleAppointment
	}
	return nil
}

func (m *mockAppointmentRepo) Reschedule(_ context.Context, a *models.Appointment, change StatusChange) error {
	m.hook()
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.claim(a, change.From); err != nil {
		return err
	}
	if m.overlaps(a) {
		return ErrSlotConflict
	}
	if m.noSlot(a) {
		return ErrNoOpenSlot
	}
	if m.slotFull(a) {
		return ErrSlotFull
	}
	a.Version++
	cp := *a
	m.items[a.ID] = &cp
	m.appendHistory(a, change)
	m.refreshSlot(a, change.PreviousScheduledAt)
	m.refreshSlot(a, a.ScheduledAt)
	return nil
}

func (m *mockAppointmentRepo) Update(_ context.Context, a *models.Appointment, change *StatusChange) error {
	m.hook()
	m.mu.Lock()
	defer m.mu.Unlock()
	from := a.Status
	if change != nil {
		from = change.From
	}
	if err := m.claim(a, from); err != nil {
		return err
	}
	a.Version++
	cp := *a
	m.items[a.ID] = &cp
	if change != nil {
		m.appendHistory(a, *change)
	}
	m.refreshSlot(a, a.ScheduledAt)
	return nil
}

func (m *mockAppointmentRepo) GetByID(_ context.Context, id uint) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAppointmentRepo) sorted() []*models.Appointment {
	out := make([]*models.Appointment, 0, len(m.items))
	for _, a := range m.items {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockAppointmentRepo) List(_ context.Context, f AppointmentFilter) ([]models.Appointment, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Appointment
	for _, a := range m.sorted() {
		if f.OwnerID != nil && a.OwnerID != *f.OwnerID {
			continue
		}
		if f.ClinicID != nil && a.ClinicID != *f.ClinicID {
			continue
		}
		if f.PetID != nil && a.PetID != *f.PetID {
			continue
		}
		if f.ParentID != nil && (a.ParentAppointmentID == nil || *a.ParentAppointmentID != *f.ParentID) {
			continue
		}
		if f.StaffID != nil && (a.ClinicStaffID == nil || *a.ClinicStaffID != *f.StaffID) {
			continue
		}
		if len(f.Statuses) > 0 && !hasStatus(f.Statuses, a.Status) {
			continue
		}
		out = append(out, *a)
	}
	total := int64(len(out))
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func hasStatus(list []models.AppointmentStatus, s models.AppointmentStatus) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func (m *mockAppointmentRepo) History(_ context.Context, id uint) ([]models.AppointmentStatusHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AppointmentStatusHistory
	for _, h := range m.history {
		if h.AppointmentID == id {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *mockAppointmentRepo) TransitionDue(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, a := range m.sorted() {
		if !a.IsDue(now) {
			continue
		}
		from := a.Status
		if err := a.StartProgress(models.ActorSystem); err != nil {
			return n, err
		}
		a.Version++
		m.appendHistory(a, StatusChange{From: from, To: a.Status, Actor: models.ActorSystem})
		n++
	}
	return n, nil
}

func (m *mockAppointmentRepo) ExpireUnconfirmed(_ context.Context, now time.Time, reason string, limit int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, a := range m.sorted() {
		if int(n) == limit {
			break
		}
		if !a.ConfirmationExpired(now) || a.ScheduledAt == nil || !a.ScheduledAt.After(now) {
			continue
		}
		from := a.Status
		if err := a.Cancel(now, models.ActorSystem, reason); err != nil {
			return n, err
		}
		a.Version++
		m.appendHistory(a, StatusChange{From: from, To: a.Status, Actor: models.ActorSystem, Reason: reason})
		m.refreshSlot(a, a.ScheduledAt)
		n++
	}
	return n, nil
}

func (m *mockAppointmentRepo) ListDueForReminder(_ context.Context, from, to time.Time) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Appointment
	for _, a := range m.sorted() {
		if a.ReminderSentAt != nil || a.ScheduledAt == nil {
			continue
		}
		if a.Status != models.StatusScheduled && a.Status != models.StatusConfirmed {
			continue
		}
		if a.ScheduledAt.Before(from) || a.ScheduledAt.After(to) {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *mockAppointmentRepo) MarkReminded(_ context.Context, id uint, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	a.ReminderSentAt = &at
	a.Version++
	return nil
}

// set mutates a stored appointment directly, standing in for rows written by other processes.
func (m *mockAppointmentRepo) set(id uint, fn func(a *models.Appointment)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.items[id])
	m.items[id].Version++
}

type mockSlotRepo struct {
	mu     sync.Mutex
	nextID uint
	slots  []*models.AppointmentTimeSlot
}

func (m *mockSlotRepo) covering(clinicID uint, staffID *uint, t time.Time) *models.AppointmentTimeSlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sl := range m.slots {
		if sl.ClinicID != clinicID || !sl.Covers(t) {
			continue
		}
		if sl.ClinicStaffID != nil && (staffID == nil || *sl.ClinicStaffID != *staffID) {
			continue
		}
		return sl
	}
	return nil
}

func (m *mockSlotRepo) CreateBatch(_ context.Context, slots []models.AppointmentTimeSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range slots {
		m.nextID++
		slots[i].ID = m.nextID
		cp := slots[i]
		m.slots = append(m.slots, &cp)
	}
	return nil
}

func (m *mockSlotRepo) ListBetween(_ context.Context, clinicID uint, staffID *uint, from, to time.Time) ([]models.AppointmentTimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AppointmentTimeSlot
	for _, sl := range m.slots {
		if sl.ClinicID != clinicID || sl.StartsAt.Before(from) || !sl.StartsAt.Before(to) {
			continue
		}
		if staffID != nil && (sl.ClinicStaffID == nil || *sl.ClinicStaffID != *staffID) {
			continue
		}
		out = append(out, *sl)
	}
	return out, nil
}

type mockClinicRepo struct {
	mu       sync.Mutex
	nextID   uint
	clinics  map[uint]*models.ClinicRegistration
	services map[uint]*models.ClinicService
	staff    map[uint]*models.ClinicStaff

	// beforeWrite runs once ahead of SetStatus, standing in for a concurrent writer.
	beforeWrite func()
}

func newMockClinicRepo() *mockClinicRepo {
	return &mockClinicRepo{
		clinics:  make(map[uint]*models.ClinicRegistration),
		services: make(map[uint]*models.ClinicService),
		staff:    make(map[uint]*models.ClinicStaff),
	}
}

func (m *mockClinicRepo) id() uint {
	m.nextID++
	return m.nextID
}

func (m *mockClinicRepo) Create(_ context.Context, c *models.ClinicRegistration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	for i := range c.OperatingHours {
		c.OperatingHours[i].ClinicID = c.ID
	}
	cp := *c
	m.clinics[c.ID] = &cp
	return nil
}

func (m *mockClinicRepo) GetByID(_ context.Context, id uint) (*models.ClinicRegistration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clinics[id]
	if !ok {
		return nil, ErrClinicNotFound
	}
	cp := *c
	cp.OperatingHours = append([]models.ClinicOperatingHour(nil), c.OperatingHours...)
	return &cp, nil
}

func (m *mockClinicRepo) SetStatus(_ context.Context, c *models.ClinicRegistration, from models.ClinicStatus) error {
	if fn := m.beforeWrite; fn != nil {
		m.beforeWrite = nil
		fn()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.clinics[c.ID]
	if !ok || stored.Status != from {
		return ErrClinicStatus
	}
	stored.Status = c.Status
	stored.RejectionReason = c.RejectionReason
	stored.ApprovedAt = c.ApprovedAt
	return nil
}

func (m *mockClinicRepo) SetCertificationURL(_ context.Context, id uint, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.clinics[id]
	if !ok {
		return ErrClinicNotFound
	}
	stored.CertificationURL = url
	return nil
}

func (m *mockClinicRepo) ReplaceHours(_ context.Context, clinicID uint, hours []models.ClinicOperatingHour) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clinics[clinicID]
	if !ok {
		return ErrClinicNotFound
	}
	c.OperatingHours = append([]models.ClinicOperatingHour(nil), hours...)
	return nil
}

func (m *mockClinicRepo) Search(_ context.Context, f ClinicFilter) ([]models.ClinicRegistration, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ClinicRegistration
	for id := uint(1); id <= m.nextID; id++ {
		c, ok := m.clinics[id]
		if !ok {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.City != "" && !strings.EqualFold(c.City, f.City) {
			continue
		}
		if f.Name != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(f.Name)) {
			continue
		}
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

func (m *mockClinicRepo) CreateService(_ context.Context, s *models.ClinicService) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id()
	cp := *s
	m.services[s.ID] = &cp
	return nil
}

func (m *mockClinicRepo) GetService(_ context.Context, id uint) (*models.ClinicService, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.services[id]
	if !ok {
		return nil, ErrServiceNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockClinicRepo) ListServices(_ context.Context, clinicID uint) ([]models.ClinicService, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ClinicService
	for _, s := range m.services {
		if s.ClinicID == clinicID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockClinicRepo) CreateStaff(_ context.Context, s *models.ClinicStaff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id()
	cp := *s
	m.staff[s.ID] = &cp
	return nil
}

func (m *mockClinicRepo) GetStaff(_ context.Context, id uint) (*models.ClinicStaff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.staff[id]
	if !ok {
		return nil, ErrStaffNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockClinicRepo) UpdateStaff(_ context.Context, s *models.ClinicStaff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.staff[s.ID] = &cp
	return nil
}

func (m *mockClinicRepo) ListStaff(_ context.Context, clinicID uint) ([]models.ClinicStaff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ClinicStaff
	for _, s := range m.staff {
		if s.ClinicID == clinicID {
			out = append(out, *s)
		}
	}
	return out, nil
}

type mockPetRepo struct {
	mu         sync.Mutex
	nextID     uint
	pets       map[uint]*models.Pet
	records    []models.PetMedicalRecord
	vaccines   []models.PetVaccination
	conditions map[uint]*models.PetHealthCondition
}

func newMockPetRepo() *mockPetRepo {
	return &mockPetRepo{pets: make(map[uint]*models.Pet), conditions: make(map[uint]*models.PetHealthCondition)}
}

func (m *mockPetRepo) CreatePet(_ context.Context, p *models.Pet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	cp := *p
	m.pets[p.ID] = &cp
	return nil
}

func (m *mockPetRepo) UpdatePet(_ context.Context, p *models.Pet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.pets[p.ID] = &cp
	return nil
}

func (m *mockPetRepo) GetPet(_ context.Context, id uint) (*models.Pet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pets[id]
	if !ok {
		return nil, ErrPetNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPetRepo) ListPets(_ context.Context, ownerID uint) ([]models.Pet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Pet
	for _, p := range m.pets {
		if p.OwnerID == ownerID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockPetRepo) ListPetTypes(context.Context) ([]models.PetType, error) {
	return []models.PetType{{ID: 1, Name: "Dog"}, {ID: 2, Name: "Cat"}}, nil
}

func (m *mockPetRepo) ListBreeds(_ context.Context, petTypeID uint) ([]models.Breed, error) {
	return []models.Breed{{ID: 1, PetTypeID: petTypeID, Name: "Mixed"}}, nil
}

func (m *mockPetRepo) CreateMedicalRecord(_ context.Context, r *models.PetMedicalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uint(len(m.records) + 1)
	m.records = append(m.records, *r)
	return nil
}

func (m *mockPetRepo) ListMedicalRecords(_ context.Context, petID uint) ([]models.PetMedicalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PetMedicalRecord
	for _, r := range m.records {
		if r.PetID == petID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockPetRepo) CreateVaccination(_ context.Context, v *models.PetVaccination) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v.ID = uint(len(m.vaccines) + 1)
	m.vaccines = append(m.vaccines, *v)
	return nil
}

func (m *mockPetRepo) ListVaccinations(_ context.Context, petID uint) ([]models.PetVaccination, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PetVaccination
	for _, v := range m.vaccines {
		if v.PetID == petID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *mockPetRepo) CreateHealthCondition(_ context.Context, c *models.PetHealthCondition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uint(len(m.conditions) + 1)
	cp := *c
	m.conditions[c.ID] = &cp
	return nil
}

func (m *mockPetRepo) GetHealthCondition(_ context.Context, id uint) (*models.PetHealthCondition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conditions[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockPetRepo) UpdateHealthCondition(_ context.Context, c *models.PetHealthCondition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.conditions[c.ID] = &cp
	return nil
}

func (m *mockPetRepo) ListHealthConditions(_ context.Context, petID uint) ([]models.PetHealthCondition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PetHealthCondition
	for _, c := range m.conditions {
		if c.PetID == petID {
			out = append(out, *c)
		}
	}
	return out, nil
}

// mockReviewRepo recomputes the aggregate on the shared clinic repo the way the SQL transaction does.
type mockReviewRepo struct {
	mu      sync.Mutex
	reviews []models.ClinicReview
	clinics *mockClinicRepo
}

func (m *mockReviewRepo) Create(_ context.Context, r *models.ClinicReview) (*models.ClinicRegistration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.reviews {
		if x.AppointmentID == r.AppointmentID {
			return nil, ErrDuplicateReview
		}
	}
	r.ID = uint(len(m.reviews) + 1)
	m.reviews = append(m.reviews, *r)

	var sum, count int64
	for _, x := range m.reviews {
		if x.ClinicID == r.ClinicID {
			sum += int64(x.Rating)
			count++
		}
	}
	m.clinics.mu.Lock()
	defer m.clinics.mu.Unlock()
	c, ok := m.clinics.clinics[r.ClinicID]
	if !ok {
		return nil, ErrClinicNotFound
	}
	c.Rating = models.RatingMean(sum, count)
	c.TotalReviews = int(count)
	cp := *c
	return &cp, nil
}

func (m *mockReviewRepo) ListForClinic(_ context.Context, clinicID uint, limit, offset int) ([]models.ClinicReview, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ClinicReview
	for _, r := range m.reviews {
		if r.ClinicID == clinicID {
			out = append(out, r)
		}
	}
	return out, int64(len(out)), nil
}

func (m *mockReviewRepo) Histogram(_ context.Context, clinicID uint) (map[int]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := make(map[int]int64)
	for _, r := range m.reviews {
		if r.ClinicID == clinicID {
			h[r.Rating]++
		}
	}
	return h, nil
}

type mockInvoiceRepo struct {
	mu       sync.Mutex
	nextID   uint
	invoices map[uint]*models.Invoice
	appts    *mockAppointmentRepo
}

func (m *mockInvoiceRepo) Create(_ context.Context, inv *models.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv.AppointmentID != nil {
		for _, x := range m.invoices {
			if x.AppointmentID != nil && *x.AppointmentID == *inv.AppointmentID && x.Status != models.InvoiceCancelled {
				return ErrAlreadyInvoiced
			}
		}
	}
	m.nextID++
	inv.ID = m.nextID
	cp := *inv
	cp.Items = append([]models.InvoiceItem(nil), inv.Items...)
	m.invoices[inv.ID] = &cp
	return nil
}

func (m *mockInvoiceRepo) GetByID(_ context.Context, id uint) (*models.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	cp := *inv
	cp.Items = append([]models.InvoiceItem(nil), inv.Items...)
	cp.Payments = append([]models.Payment(nil), inv.Payments...)
	return &cp, nil
}

func (m *mockInvoiceRepo) Save(_ context.Context, inv *models.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *inv
	cp.Items = append([]models.InvoiceItem(nil), inv.Items...)
	m.invoices[inv.ID] = &cp
	return nil
}

func (m *mockInvoiceRepo) AddPayment(_ context.Context, inv *models.Invoice, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.invoices[inv.ID]
	p.ID = uint(len(stored.Payments) + 1)
	cp := *inv
	cp.Payments = append(append([]models.Payment(nil), stored.Payments...), *p)
	m.invoices[inv.ID] = &cp
	return nil
}

func (m *mockInvoiceRepo) List(_ context.Context, f InvoiceFilter) ([]models.Invoice, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Invoice
	for id := uint(1); id <= m.nextID; id++ {
		inv, ok := m.invoices[id]
		if !ok {
			continue
		}
		if f.ClinicID != nil && inv.ClinicID != *f.ClinicID {
			continue
		}
		if f.OwnerID != nil && inv.OwnerID != *f.OwnerID {
			continue
		}
		if f.Status != "" && inv.Status != f.Status {
			continue
		}
		out = append(out, *inv)
	}
	return out, int64(len(out)), nil
}

func (m *mockInvoiceRepo) MarkOverdue(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, inv := range m.invoices {
		if inv.IsOverdue(now) {
			inv.Status = models.InvoiceOverdue
			n++
		}
	}
	return n, nil
}

func (m *mockInvoiceRepo) ListUninvoicedCompleted(ctx context.Context, limit int) ([]models.Appointment, error) {
	list, _, _ := m.appts.List(ctx, AppointmentFilter{Statuses: []models.AppointmentStatus{models.StatusCompleted}})
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Appointment
	for _, a := range list {
		if a.IsDisputed {
			continue
		}
		invoiced := false
		for _, inv := range m.invoices {
			if inv.AppointmentID != nil && *inv.AppointmentID == a.ID && inv.Status != models.InvoiceCancelled {
				invoiced = true
			}
		}
		if !invoiced {
			out = append(out, a)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type mockUserRepo struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*models.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uint]*models.User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.users {
		if x.Email == u.Email {
			return ErrEmailTaken
		}
	}
	m.nextID++
	u.ID = m.nextID
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockUserRepo) Update(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

type mockEventRepo struct {
	mu     sync.Mutex
	events []models.SecurityEvent
}

func (m *mockEventRepo) Create(_ context.Context, e *models.SecurityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = uint(len(m.events) + 1)
	m.events = append(m.events, *e)
	return nil
}

func (m *mockEventRepo) List(_ context.Context, f SecurityEventFilter) ([]models.SecurityEvent, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.SecurityEvent
	for _, e := range m.events {
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		out = append(out, e)
	}
	return out, int64(len(out)), nil
}

func (m *mockEventRepo) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	var n int64
	for _, e := range m.events {
		if e.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return n, nil
}

func (m *mockEventRepo) ofType(t models.SecurityEventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type mockJobRunRepo struct {
	mu   sync.Mutex
	runs []models.JobRun
}

func (m *mockJobRunRepo) Create(_ context.Context, r *models.JobRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uint(len(m.runs) + 1)
	m.runs = append(m.runs, *r)
	return nil
}

func (m *mockJobRunRepo) List(_ context.Context, job string, limit int) ([]models.JobRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.JobRun
	for _, r := range m.runs {
		if job == "" || r.Job == job {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockJobRunRepo) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.runs[:0]
	var n int64
	for _, r := range m.runs {
		if r.StartedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.runs = kept
	return n, nil
}

type sentMail struct {
	To, Subject, Body string
}

type mockMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *mockMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

type mockUploader struct {
	publicID, folder string
	body             []byte
}

func (m *mockUploader) Upload(_ context.Context, file io.Reader, publicID, folder string) (string, error) {
	b, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	m.publicID, m.folder, m.body = publicID, folder, b
	return "https://res.cloudinary.com/demo/raw/upload/" + folder + "/" + publicID, nil
}
