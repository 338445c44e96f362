package services

import "github.com/meinhoongagan/vetcare-app/models"

// Caller is the authenticated identity behind a request.
type Caller struct {
	UserID   uint
	Role     models.Role
	ClinicID *uint
}

// SystemCaller drives scheduled jobs.
var SystemCaller = Caller{}

func (c Caller) IsSystem() bool {
	return c.UserID == 0 && c.Role == ""
}

func (c Caller) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

// IsStaffOf reports whether the caller may act for the clinic's front desk.
func (c Caller) IsStaffOf(clinicID uint) bool {
	if c.IsAdmin() {
		return true
	}
	return c.Role == models.RoleClinicAdmin && c.ClinicID != nil && *c.ClinicID == clinicID
}

func (c Caller) userRef() *uint {
	if c.UserID == 0 {
		return nil
	}
	id := c.UserID
	return &id
}

// actorFor resolves which side of an appointment the caller acts as.
func (c Caller) actorFor(a *models.Appointment) (models.Actor, error) {
	switch {
	case c.IsSystem():
		return models.ActorSystem, nil
	case c.IsStaffOf(a.ClinicID):
		return models.ActorStaff, nil
	case c.Role == models.RoleOwner && c.UserID == a.OwnerID:
		return models.ActorOwner, nil
	}
	return "", ErrForbidden
}
