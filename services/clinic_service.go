package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/meinhoongagan/vetcare-app/models"
)

const certificationFolder = "vetcare/certifications"

type ClinicService struct {
	repo     ClinicRepository
	users    UserRepository
	uploader FileUploader
	log      *zap.Logger
}

func NewClinicService(repo ClinicRepository, users UserRepository, uploader FileUploader, log *zap.Logger) *ClinicService {
	return &ClinicService{repo: repo, users: users, uploader: uploader, log: log}
}

type OperatingHourInput struct {
	DayOfWeek  int     `json:"day_of_week" validate:"min=0,max=6"`
	OpenTime   string  `json:"open_time" validate:"required_unless=IsClosed true"`
	CloseTime  string  `json:"close_time" validate:"required_unless=IsClosed true"`
	IsClosed   bool    `json:"is_closed"`
	BreakStart *string `json:"break_start"`
	BreakEnd   *string `json:"break_end"`
}

type RegisterClinicInput struct {
	Name           string               `json:"name" validate:"required,max=200"`
	Email          string               `json:"email" validate:"omitempty,email"`
	PhoneNumber    string               `json:"phone_number" validate:"max=30"`
	LicenseNumber  string               `json:"license_number" validate:"required,max=100"`
	Address        string               `json:"address" validate:"required"`
	City           string               `json:"city" validate:"required"`
	State          string               `json:"state"`
	ZipCode        string               `json:"zip_code"`
	Country        string               `json:"country"`
	Latitude       *float64             `json:"latitude" validate:"omitempty,latitude"`
	Longitude      *float64             `json:"longitude" validate:"omitempty,longitude"`
	TimeZone       string               `json:"time_zone" validate:"omitempty,timezone"`
	Is24Hours      bool                 `json:"is_24_hours"`
	OperatingHours []OperatingHourInput `json:"operating_hours" validate:"omitempty,dive"`
}

type ServiceInput struct {
	Name            string          `json:"name" validate:"required,max=200"`
	Description     string          `json:"description" validate:"max=2000"`
	Price           decimal.Decimal `json:"price"`
	DurationMinutes int             `json:"duration_minutes" validate:"required,min=5,max=480"`
}

type StaffInput struct {
	Name          string `json:"name" validate:"required,max=200"`
	Email         string `json:"email" validate:"omitempty,email"`
	LicenseNumber string `json:"license_number" validate:"required,max=100"`
	Specialty     string `json:"specialty" validate:"max=100"`
}

// Register files a pending clinic for the calling clinic admin and links the admin to it.
func (s *ClinicService) Register(ctx context.Context, caller Caller, in RegisterClinicInput) (*models.ClinicRegistration, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	if caller.Role != models.RoleClinicAdmin {
		return nil, ErrForbidden
	}
	if caller.ClinicID != nil {
		return nil, invalid("user already manages a clinic")
	}

	hours := defaultHours()
	if len(in.OperatingHours) > 0 {
		var err error
		if hours, err = buildHours(in.OperatingHours); err != nil {
			return nil, err
		}
	}

	tz := in.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	c := &models.ClinicRegistration{
		OwnerUserID:    caller.UserID,
		Name:           in.Name,
		Email:          in.Email,
		PhoneNumber:    in.PhoneNumber,
		LicenseNumber:  in.LicenseNumber,
		Address:        in.Address,
		City:           in.City,
		State:          in.State,
		ZipCode:        in.ZipCode,
		Country:        in.Country,
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
		TimeZone:       tz,
		Is24Hours:      in.Is24Hours,
		Status:         models.ClinicPending,
		Rating:         decimal.Zero,
		OperatingHours: hours,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("registering clinic: %w", err)
	}

	user, err := s.users.GetByID(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	user.ClinicID = &c.ID
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("linking clinic admin: %w", err)
	}

	s.log.Info("clinic registered", zap.Uint("clinic_id", c.ID), zap.String("name", c.Name))
	return c, nil
}

func defaultHours() []models.ClinicOperatingHour {
	hours := make([]models.ClinicOperatingHour, 0, 7)
	for d := models.Sunday; d <= models.Saturday; d++ {
		hours = append(hours, models.ClinicOperatingHour{DayOfWeek: d, IsClosed: true})
	}
	return hours
}

// buildHours requires one row for each weekday.
func buildHours(in []OperatingHourInput) ([]models.ClinicOperatingHour, error) {
	if len(in) != 7 {
		return nil, invalid("operating_hours: exactly seven days required")
	}
	seen := make(map[int]bool, 7)
	hours := make([]models.ClinicOperatingHour, 0, 7)
	for _, h := range in {
		if seen[h.DayOfWeek] {
			return nil, invalid(fmt.Sprintf("operating_hours: day %d listed twice", h.DayOfWeek))
		}
		seen[h.DayOfWeek] = true
		row := models.ClinicOperatingHour{
			DayOfWeek:  models.DayOfWeek(h.DayOfWeek),
			OpenTime:   h.OpenTime,
			CloseTime:  h.CloseTime,
			IsClosed:   h.IsClosed,
			BreakStart: h.BreakStart,
			BreakEnd:   h.BreakEnd,
		}
		if err := row.Validate(); err != nil {
			return nil, invalid("operating_hours: " + err.Error())
		}
		hours = append(hours, row)
	}
	return hours, nil
}

func (s *ClinicService) SetHours(ctx context.Context, caller Caller, clinicID uint, in []OperatingHourInput) ([]models.ClinicOperatingHour, error) {
	if !caller.IsStaffOf(clinicID) {
		return nil, ErrForbidden
	}
	for _, h := range in {
		if err := Validate(h); err != nil {
			return nil, err
		}
	}
	hours, err := buildHours(in)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByID(ctx, clinicID); err != nil {
		return nil, err
	}
	for i := range hours {
		hours[i].ClinicID = clinicID
	}
	if err := s.repo.ReplaceHours(ctx, clinicID, hours); err != nil {
		return nil, fmt.Errorf("saving operating hours: %w", err)
	}
	return hours, nil
}

func (s *ClinicService) IsOpenAt(ctx context.Context, clinicID uint, t time.Time) (bool, error) {
	c, err := s.repo.GetByID(ctx, clinicID)
	if err != nil {
		return false, err
	}
	return c.IsOpenAt(t), nil
}

// Get hides clinics that are not approved from everyone but their staff and admins.
func (s *ClinicService) Get(ctx context.Context, caller Caller, id uint) (*models.ClinicRegistration, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsBookable() && !caller.IsStaffOf(c.ID) {
		return nil, ErrClinicNotFound
	}
	return c, nil
}

func (s *ClinicService) Search(ctx context.Context, f ClinicFilter) ([]models.ClinicRegistration, int64, error) {
	f.Status = models.ClinicApproved
	f.Limit, f.Offset = page(f.Limit, f.Offset)
	return s.repo.Search(ctx, f)
}

func (s *ClinicService) AddService(ctx context.Context, caller Caller, clinicID uint, in ServiceInput) (*models.ClinicService, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	if in.Price.IsNegative() {
		return nil, invalid("price: must not be negative")
	}
	if !caller.IsStaffOf(clinicID) {
		return nil, ErrForbidden
	}
	svc := &models.ClinicService{
		ClinicID:        clinicID,
		Name:            in.Name,
		Description:     in.Description,
		Price:           in.Price.Round(2),
		DurationMinutes: in.DurationMinutes,
		IsActive:        true,
	}
	if err := s.repo.CreateService(ctx, svc); err != nil {
		return nil, fmt.Errorf("adding service: %w", err)
	}
	return svc, nil
}

func (s *ClinicService) ListServices(ctx context.Context, clinicID uint) ([]models.ClinicService, error) {
	return s.repo.ListServices(ctx, clinicID)
}

// AddStaff registers a veterinarian.
func (s *ClinicService) AddStaff(ctx context.Context, caller Caller, clinicID uint, in StaffInput) (*models.ClinicStaff, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	if !caller.IsStaffOf(clinicID) {
		return nil, ErrForbidden
	}
	st := &models.ClinicStaff{
		ClinicID:      clinicID,
		Name:          in.Name,
		Email:         in.Email,
		LicenseNumber: in.LicenseNumber,
		Specialty:     in.Specialty,
		IsActive:      true,
	}
	if err := s.repo.CreateStaff(ctx, st); err != nil {
		return nil, fmt.Errorf("adding veterinarian: %w", err)
	}
	return st, nil
}

func (s *ClinicService) DeactivateStaff(ctx context.Context, caller Caller, clinicID, staffID uint) (*models.ClinicStaff, error) {
	if !caller.IsStaffOf(clinicID) {
		return nil, ErrForbidden
	}
	st, err := s.repo.GetStaff(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if st.ClinicID != clinicID {
		return nil, ErrStaffNotFound
	}
	st.IsActive = false
	if err := s.repo.UpdateStaff(ctx, st); err != nil {
		return nil, fmt.Errorf("deactivating veterinarian: %w", err)
	}
	return st, nil
}

func (s *ClinicService) ListStaff(ctx context.Context, clinicID uint) ([]models.ClinicStaff, error) {
	return s.repo.ListStaff(ctx, clinicID)
}

// UploadCertification stores the licence document and records its URL on the clinic.
func (s *ClinicService) UploadCertification(ctx context.Context, caller Caller, clinicID uint, file io.Reader) (*models.ClinicRegistration, error) {
	if !caller.IsStaffOf(clinicID) {
		return nil, ErrForbidden
	}
	c, err := s.repo.GetByID(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	url, err := s.uploader.Upload(ctx, file, fmt.Sprintf("clinic-%d-certification", clinicID), certificationFolder)
	if err != nil {
		return nil, fmt.Errorf("uploading certification: %w", err)
	}
	if err := s.repo.SetCertificationURL(ctx, c.ID, url); err != nil {
		return nil, fmt.Errorf("saving certification url: %w", err)
	}
	c.CertificationURL = url
	return c, nil
}
