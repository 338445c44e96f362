package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meinhoongagan/vetcare-app/models"
)

type PetService struct {
	repo  PetRepository
	appts AppointmentRepository
	now   func() time.Time
}

func NewPetService(repo PetRepository, appts AppointmentRepository) *PetService {
	return &PetService{repo: repo, appts: appts, now: time.Now}
}

func (s *PetService) WithClock(now func() time.Time) *PetService {
	s.now = now
	return s
}

type PetInput struct {
	Name        string           `json:"name" validate:"required,max=100"`
	PetTypeID   uint             `json:"pet_type_id" validate:"required"`
	BreedID     *uint            `json:"breed_id"`
	Sex         string           `json:"sex" validate:"omitempty,oneof=male female unknown"`
	BirthDate   *time.Time       `json:"birth_date"`
	WeightKg    *decimal.Decimal `json:"weight_kg"`
	Color       string           `json:"color" validate:"max=50"`
	MicrochipID string           `json:"microchip_id" validate:"max=50"`
	IsNeutered  bool             `json:"is_neutered"`
}

type MedicalRecordInput struct {
	AppointmentID *uint      `json:"appointment_id"`
	ClinicStaffID *uint      `json:"clinic_staff_id"`
	RecordDate    *time.Time `json:"record_date"`
	Diagnosis     string     `json:"diagnosis" validate:"required"`
	Treatment     string     `json:"treatment"`
	Prescription  string     `json:"prescription"`
	Notes         string     `json:"notes"`
}

type VaccinationInput struct {
	VaccineName    string     `json:"vaccine_name" validate:"required,max=100"`
	AdministeredAt time.Time  `json:"administered_at" validate:"required"`
	NextDueDate    *time.Time `json:"next_due_date"`
	BatchNumber    string     `json:"batch_number" validate:"max=50"`
}

type HealthConditionInput struct {
	Name        string     `json:"name" validate:"required,max=100"`
	Severity    string     `json:"severity" validate:"omitempty,oneof=mild moderate severe"`
	DiagnosedAt *time.Time `json:"diagnosed_at"`
	IsChronic   bool       `json:"is_chronic"`
	IsResolved  bool       `json:"is_resolved"`
	Notes       string     `json:"notes"`
}

func (in PetInput) apply(p *models.Pet, now time.Time) error {
	if in.BirthDate != nil && in.BirthDate.After(now) {
		return invalid("birth_date: must not be in the future")
	}
	if in.WeightKg != nil && !in.WeightKg.IsPositive() {
		return invalid("weight_kg: must be positive")
	}
	p.Name = in.Name
	p.PetTypeID = in.PetTypeID
	p.BreedID = in.BreedID
	p.Sex = in.Sex
	p.BirthDate = in.BirthDate
	p.WeightKg = decimal.NullDecimal{}
	if in.WeightKg != nil {
		p.WeightKg = decimal.NewNullDecimal(in.WeightKg.Round(2))
	}
	p.Color = in.Color
	p.MicrochipID = in.MicrochipID
	p.IsNeutered = in.IsNeutered
	return nil
}

func (s *PetService) Create(ctx context.Context, caller Caller, in PetInput) (*models.Pet, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	if caller.Role != models.RoleOwner {
		return nil, ErrForbidden
	}
	p := &models.Pet{OwnerID: caller.UserID}
	if err := in.apply(p, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.CreatePet(ctx, p); err != nil {
		return nil, fmt.Errorf("creating pet: %w", err)
	}
	return p, nil
}

func (s *PetService) Update(ctx context.Context, caller Caller, id uint, in PetInput) (*models.Pet, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	p, err := s.repo.GetPet(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != caller.UserID {
		return nil, ErrForbidden
	}
	if err := in.apply(p, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePet(ctx, p); err != nil {
		return nil, fmt.Errorf("updating pet: %w", err)
	}
	return p, nil
}

// authorize lets the owner read and write; a clinic may access pets it has an appointment with.
func (s *PetService) authorize(ctx context.Context, caller Caller, petID uint) (*models.Pet, error) {
	p, err := s.repo.GetPet(ctx, petID)
	if err != nil {
		return nil, err
	}
	if caller.Role == models.RoleOwner && p.OwnerID == caller.UserID {
		return p, nil
	}
	if caller.IsAdmin() {
		return p, nil
	}
	if caller.Role == models.RoleClinicAdmin && caller.ClinicID != nil {
		list, _, err := s.appts.List(ctx, AppointmentFilter{ClinicID: caller.ClinicID, PetID: &petID, Limit: 1})
		if err != nil {
			return nil, err
		}
		if len(list) > 0 {
			return p, nil
		}
	}
	return nil, ErrForbidden
}

func (s *PetService) Get(ctx context.Context, caller Caller, id uint) (*models.Pet, error) {
	return s.authorize(ctx, caller, id)
}

func (s *PetService) ListMine(ctx context.Context, caller Caller) ([]models.Pet, error) {
	return s.repo.ListPets(ctx, caller.UserID)
}

func (s *PetService) ListTypes(ctx context.Context) ([]models.PetType, error) {
	return s.repo.ListPetTypes(ctx)
}

func (s *PetService) ListBreeds(ctx context.Context, petTypeID uint) ([]models.Breed, error) {
	return s.repo.ListBreeds(ctx, petTypeID)
}

// AddMedicalRecord is written by clinic staff; a linked appointment must belong to the same pet and clinic.
func (s *PetService) AddMedicalRecord(ctx context.Context, caller Caller, petID uint, in MedicalRecordInput) (*models.PetMedicalRecord, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	if caller.Role != models.RoleClinicAdmin || caller.ClinicID == nil {
		return nil, ErrForbidden
	}
	if _, err := s.authorize(ctx, caller, petID); err != nil {
		return nil, err
	}
	if in.AppointmentID != nil {
		a, err := s.appts.GetByID(ctx, *in.AppointmentID)
		if err != nil {
			return nil, err
		}
		if a.PetID != petID || a.ClinicID != *caller.ClinicID {
			return nil, invalid("appointment_id: does not belong to this pet and clinic")
		}
	}
	date := s.now()
	if in.RecordDate != nil {
		date = *in.RecordDate
	}
	r := &models.PetMedicalRecord{
		PetID:         petID,
		AppointmentID: in.AppointmentID,
		ClinicID:      caller.ClinicID,
		ClinicStaffID: in.ClinicStaffID,
		RecordDate:    date,
		Diagnosis:     in.Diagnosis,
		Treatment:     in.Treatment,
		Prescription:  in.Prescription,
		Notes:         in.Notes,
	}
	if err := s.repo.CreateMedicalRecord(ctx, r); err != nil {
		return nil, fmt.Errorf("adding medical record: %w", err)
	}
	return r, nil
}

func (s *PetService) ListMedicalRecords(ctx context.Context, caller Caller, petID uint) ([]models.PetMedicalRecord, error) {
	if _, err := s.authorize(ctx, caller, petID); err != nil {
		return nil, err
	}
	return s.repo.ListMedicalRecords(ctx, petID)
}

func (s *PetService) AddVaccination(ctx context.Context, caller Caller, petID uint, in VaccinationInput) (*models.PetVaccination, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	if in.NextDueDate != nil && !in.NextDueDate.After(in.AdministeredAt) {
		return nil, invalid("next_due_date: must be after administered_at")
	}
	if _, err := s.authorize(ctx, caller, petID); err != nil {
		return nil, err
	}
	v := &models.PetVaccination{
		PetID:          petID,
		ClinicID:       caller.ClinicID,
		VaccineName:    in.VaccineName,
		AdministeredAt: in.AdministeredAt,
		NextDueDate:    in.NextDueDate,
		BatchNumber:    in.BatchNumber,
	}
	if caller.Role == models.RoleClinicAdmin {
		v.AdministeredByID = caller.userRef()
	}
	if err := s.repo.CreateVaccination(ctx, v); err != nil {
		return nil, fmt.Errorf("adding vaccination: %w", err)
	}
	return v, nil
}

func (s *PetService) ListVaccinations(ctx context.Context, caller Caller, petID uint) ([]models.PetVaccination, error) {
	if _, err := s.authorize(ctx, caller, petID); err != nil {
		return nil, err
	}
	return s.repo.ListVaccinations(ctx, petID)
}

func (s *PetService) AddHealthCondition(ctx context.Context, caller Caller, petID uint, in HealthConditionInput) (*models.PetHealthCondition, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, caller, petID); err != nil {
		return nil, err
	}
	c := &models.PetHealthCondition{
		PetID:       petID,
		Name:        in.Name,
		Severity:    in.Severity,
		DiagnosedAt: in.DiagnosedAt,
		IsChronic:   in.IsChronic,
		IsResolved:  in.IsResolved,
		Notes:       in.Notes,
	}
	if err := s.repo.CreateHealthCondition(ctx, c); err != nil {
		return nil, fmt.Errorf("adding health condition: %w", err)
	}
	return c, nil
}

func (s *PetService) ResolveHealthCondition(ctx context.Context, caller Caller, petID, conditionID uint) (*models.PetHealthCondition, error) {
	if _, err := s.authorize(ctx, caller, petID); err != nil {
		return nil, err
	}
	c, err := s.repo.GetHealthCondition(ctx, conditionID)
	if err != nil {
		return nil, err
	}
	if c.PetID != petID {
		return nil, ErrRecordNotFound
	}
	c.IsResolved = true
	if err := s.repo.UpdateHealthCondition(ctx, c); err != nil {
		return nil, fmt.Errorf("resolving health condition: %w", err)
	}
	return c, nil
}

func (s *PetService) ListHealthConditions(ctx context.Context, caller Caller, petID uint) ([]models.PetHealthCondition, error) {
	if _, err := s.authorize(ctx, caller, petID); err != nil {
		return nil, err
	}
	return s.repo.ListHealthConditions(ctx, petID)
}
