package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/meinhoongagan/vetcare-app/models"
)

type AdminService struct {
	clinics ClinicRepository
	users   UserRepository
	events  SecurityEventRepository
	jobRuns JobRunRepository
	log     *zap.Logger
	now     func() time.Time
}

func NewAdminService(clinics ClinicRepository, users UserRepository, events SecurityEventRepository, jobRuns JobRunRepository, log *zap.Logger) *AdminService {
	return &AdminService{clinics: clinics, users: users, events: events, jobRuns: jobRuns, log: log, now: time.Now}
}

func (s *AdminService) WithClock(now func() time.Time) *AdminService {
	s.now = now
	return s
}

func (s *AdminService) audit(ctx context.Context, typ models.SecurityEventType, caller Caller, userID *uint, ip, details string) {
	e := &models.SecurityEvent{
		Type:        typ,
		UserID:      userID,
		ActorUserID: caller.userRef(),
		IPAddress:   ip,
		Details:     details,
		CreatedAt:   s.now(),
	}
	if err := s.events.Create(ctx, e); err != nil {
		s.log.Error("security event not recorded", zap.String("type", string(typ)), zap.Error(err))
	}
}

func (s *AdminService) ListClinics(ctx context.Context, caller Caller, f ClinicFilter) ([]models.ClinicRegistration, int64, error) {
	if !caller.IsAdmin() {
		return nil, 0, ErrForbidden
	}
	f.Limit, f.Offset = page(f.Limit, f.Offset)
	return s.clinics.Search(ctx, f)
}

// ApproveClinic admits a pending clinic or reinstates a suspended one.
func (s *AdminService) ApproveClinic(ctx context.Context, caller Caller, id uint, ip string) (*models.ClinicRegistration, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	c, err := s.clinics.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != models.ClinicPending && c.Status != models.ClinicSuspended {
		return nil, ErrClinicStatus
	}
	from := c.Status
	now := s.now()
	c.Status = models.ClinicApproved
	c.ApprovedAt = &now
	c.RejectionReason = ""
	if err := s.clinics.SetStatus(ctx, c, from); err != nil {
		return nil, fmt.Errorf("approving clinic: %w", err)
	}
	s.audit(ctx, models.EventClinicApproved, caller, &c.OwnerUserID, ip, fmt.Sprintf("clinic %d approved", c.ID))
	return c, nil
}

func (s *AdminService) RejectClinic(ctx context.Context, caller Caller, id uint, reason, ip string) (*models.ClinicRegistration, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	if reason == "" {
		return nil, invalid("reason: required")
	}
	c, err := s.clinics.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != models.ClinicPending {
		return nil, ErrClinicStatus
	}
	from := c.Status
	c.Status = models.ClinicRejected
	c.RejectionReason = reason
	if err := s.clinics.SetStatus(ctx, c, from); err != nil {
		return nil, fmt.Errorf("rejecting clinic: %w", err)
	}
	s.audit(ctx, models.EventClinicRejected, caller, &c.OwnerUserID, ip, reason)
	return c, nil
}

func (s *AdminService) SuspendClinic(ctx context.Context, caller Caller, id uint, reason, ip string) (*models.ClinicRegistration, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	if reason == "" {
		return nil, invalid("reason: required")
	}
	c, err := s.clinics.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != models.ClinicApproved {
		return nil, ErrClinicStatus
	}
	from := c.Status
	c.Status = models.ClinicSuspended
	c.RejectionReason = reason
	if err := s.clinics.SetStatus(ctx, c, from); err != nil {
		return nil, fmt.Errorf("suspending clinic: %w", err)
	}
	s.audit(ctx, models.EventClinicSuspended, caller, &c.OwnerUserID, ip, reason)
	return c, nil
}

func (s *AdminService) BanUser(ctx context.Context, caller Caller, userID uint, reason, ip string) (*models.User, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	if reason == "" {
		return nil, invalid("reason: required")
	}
	if userID == caller.UserID {
		return nil, invalid("user_id: admins cannot ban themselves")
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Role == models.RoleAdmin {
		return nil, ErrForbidden
	}
	now := s.now()
	u.IsBanned = true
	u.BanReason = reason
	u.BannedAt = &now
	if err := s.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("banning user: %w", err)
	}
	s.audit(ctx, models.EventUserBanned, caller, &u.ID, ip, reason)
	return u, nil
}

func (s *AdminService) UnbanUser(ctx context.Context, caller Caller, userID uint, ip string) (*models.User, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.IsBanned = false
	u.BanReason = ""
	u.BannedAt = nil
	if err := s.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("unbanning user: %w", err)
	}
	s.audit(ctx, models.EventUserUnbanned, caller, &u.ID, ip, "")
	return u, nil
}

func (s *AdminService) ListSecurityEvents(ctx context.Context, caller Caller, f SecurityEventFilter) ([]models.SecurityEvent, int64, error) {
	if !caller.IsAdmin() {
		return nil, 0, ErrForbidden
	}
	f.Limit, f.Offset = page(f.Limit, f.Offset)
	return s.events.List(ctx, f)
}

func (s *AdminService) ListJobRuns(ctx context.Context, caller Caller, job string, limit int) ([]models.JobRun, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	limit, _ = page(limit, 0)
	return s.jobRuns.List(ctx, job, limit)
}

// PurgeLogs drops security events and job runs older than the retention window.
func (s *AdminService) PurgeLogs(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention)
	events, err := s.events.PurgeBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging security events: %w", err)
	}
	runs, err := s.jobRuns.PurgeBefore(ctx, cutoff)
	if err != nil {
		return events, fmt.Errorf("purging job runs: %w", err)
	}
	return events + runs, nil
}
