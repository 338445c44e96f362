package models

import (
	"time"
)

type Role string

const (
	RoleOwner       Role = "owner"
	RoleClinicAdmin Role = "clinic_admin"
	RoleAdmin       Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleClinicAdmin, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Name        string     `json:"name"`
	Email       string     `json:"email" gorm:"unique"`
	Password    string     `json:"-"`
	Phone       string     `json:"phone,omitempty"`
	Role        Role       `json:"role" gorm:"type:varchar(20);not null;default:'owner'"`
	ClinicID    *uint      `json:"clinic_id,omitempty" gorm:"index"` // set for clinic admins
	IsBanned    bool       `json:"is_banned" gorm:"default:false"`
	BanReason   string     `json:"ban_reason,omitempty"`
	BannedAt    *time.Time `json:"banned_at,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
