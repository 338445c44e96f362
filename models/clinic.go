package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ClinicStatus string

const (
	ClinicPending   ClinicStatus = "pending"
	ClinicApproved  ClinicStatus = "approved"
	ClinicRejected  ClinicStatus = "rejected"
	ClinicSuspended ClinicStatus = "suspended"
)

// ClinicRegistration is the single source of truth for a clinic's identity and its rating aggregate.
type ClinicRegistration struct {
	gorm.Model
	OwnerUserID      uint         `json:"owner_user_id" gorm:"index;not null"`
	Name             string       `json:"name" gorm:"not null"`
	Email            string       `json:"email"`
	PhoneNumber      string       `json:"phone_number"`
	LicenseNumber    string       `json:"license_number" gorm:"uniqueIndex"`
	Address          string       `json:"address"`
	City             string       `json:"city" gorm:"index"`
	State            string       `json:"state"`
	ZipCode          string       `json:"zip_code"`
	Country          string       `json:"country"`
	Latitude         *float64     `json:"latitude"`
	Longitude        *float64     `json:"longitude"`
	TimeZone         string       `json:"time_zone" gorm:"default:'UTC'"`
	Is24Hours        bool         `json:"is_24_hours" gorm:"default:false"`
	Status           ClinicStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	RejectionReason  string       `json:"rejection_reason,omitempty"`
	ApprovedAt       *time.Time   `json:"approved_at"`
	CertificationURL string       `json:"certification_url,omitempty"`

	Rating       decimal.Decimal `json:"rating" gorm:"type:decimal(3,2);not null;default:0"`
	TotalReviews int             `json:"total_reviews" gorm:"not null;default:0"`

	OperatingHours []ClinicOperatingHour `json:"operating_hours,omitempty" gorm:"foreignKey:ClinicID"`
	Services       []ClinicService       `json:"services,omitempty" gorm:"foreignKey:ClinicID"`
	Staff          []ClinicStaff         `json:"staff,omitempty" gorm:"foreignKey:ClinicID"`
}

func (c *ClinicRegistration) IsBookable() bool {
	return c.Status == ClinicApproved
}

func (c *ClinicRegistration) Location() *time.Location {
	if c.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsOpenAt consults the always-open flag first, then the weekday rows in the clinic's timezone.
// Minutes after midnight may belong to the previous day's overnight row.
func (c *ClinicRegistration) IsOpenAt(t time.Time) bool {
	if c.Is24Hours {
		return true
	}
	_, ok := c.openUntil(t.In(c.Location()))
	return ok
}

func (c *ClinicRegistration) HoursFor(d DayOfWeek) *ClinicOperatingHour {
	for i := range c.OperatingHours {
		if c.OperatingHours[i].DayOfWeek == d {
			return &c.OperatingHours[i]
		}
	}
	return nil
}

// IsOpenBetween walks [start, end) one open stretch at a time so a visit cannot straddle a break or closing time.
func (c *ClinicRegistration) IsOpenBetween(start, end time.Time) bool {
	if c.Is24Hours {
		return true
	}
	for t := start.In(c.Location()); t.Before(end); {
		next, ok := c.openUntil(t)
		if !ok || !next.After(t) {
			return false
		}
		t = next
	}
	return true
}

// openUntil returns the end of the open stretch containing local, which must already be in the clinic's zone.
func (c *ClinicRegistration) openUntil(local time.Time) (time.Time, bool) {
	m := local.Hour()*60 + local.Minute()
	weekday := int(local.Weekday())
	for _, back := range []int{0, 1} {
		h := c.HoursFor(DayOfWeek((weekday + 7 - back) % 7))
		if h == nil {
			continue
		}
		w, ok := h.window()
		if !ok {
			continue
		}
		if end, ok := w.until(m + back*24*60); ok {
			return time.Date(local.Year(), local.Month(), local.Day()-back, 0, end, 0, 0, local.Location()), true
		}
	}
	return time.Time{}, false
}

type DayOfWeek int

const (
	Sunday DayOfWeek = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

const clockLayout = "15:04"

var ErrInvalidHours = errors.New("invalid operating hours")

type ClinicOperatingHour struct {
	gorm.Model
	ClinicID   uint      `json:"clinic_id" gorm:"uniqueIndex:idx_clinic_day;not null"`
	DayOfWeek  DayOfWeek `json:"day_of_week" gorm:"uniqueIndex:idx_clinic_day"`
	OpenTime   string    `json:"open_time"`  // "HH:MM" 24h
	CloseTime  string    `json:"close_time"` // "HH:MM" 24h, earlier than OpenTime means overnight
	IsClosed   bool      `json:"is_closed" gorm:"default:false"`
	BreakStart *string   `json:"break_start"`
	BreakEnd   *string   `json:"break_end"`
}

func minuteOfDay(s string) (int, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not HH:MM", ErrInvalidHours, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Validate checks formats and that the break sits inside the open range.
func (h *ClinicOperatingHour) Validate() error {
	if h.DayOfWeek < Sunday || h.DayOfWeek > Saturday {
		return fmt.Errorf("%w: day_of_week %d", ErrInvalidHours, h.DayOfWeek)
	}
	if h.IsClosed {
		return nil
	}
	open, err := minuteOfDay(h.OpenTime)
	if err != nil {
		return err
	}
	closing, err := minuteOfDay(h.CloseTime)
	if err != nil {
		return err
	}
	if open == closing {
		return fmt.Errorf("%w: open and close are equal, use is_24_hours", ErrInvalidHours)
	}
	if (h.BreakStart == nil) != (h.BreakEnd == nil) {
		return fmt.Errorf("%w: break_start and break_end go together", ErrInvalidHours)
	}
	if h.BreakStart != nil {
		bs, err := minuteOfDay(*h.BreakStart)
		if err != nil {
			return err
		}
		be, err := minuteOfDay(*h.BreakEnd)
		if err != nil {
			return err
		}
		if be <= bs || !h.coversMinute(open, closing, bs) || !h.coversMinute(open, closing, be-1) {
			return fmt.Errorf("%w: break must fall inside opening hours", ErrInvalidHours)
		}
	}
	return nil
}

// OpenRange returns opening and closing as minutes after local midnight; an overnight close is past 1440.
func (h *ClinicOperatingHour) OpenRange() (int, int, error) {
	open, err := minuteOfDay(h.OpenTime)
	if err != nil {
		return 0, 0, err
	}
	closing, err := minuteOfDay(h.CloseTime)
	if err != nil {
		return 0, 0, err
	}
	if closing <= open {
		closing += 24 * 60
	}
	return open, closing, nil
}

func (h *ClinicOperatingHour) coversMinute(open, closing, m int) bool {
	if closing > open {
		return m >= open && m < closing
	}
	return m >= open || m < closing
}

// openWindow holds one row's hours as minutes after that row's midnight; overnight values run past 1440.
type openWindow struct {
	open, closing        int
	breakStart, breakEnd int
	hasBreak             bool
}

func (h *ClinicOperatingHour) window() (openWindow, bool) {
	if h.IsClosed {
		return openWindow{}, false
	}
	open, closing, err := h.OpenRange()
	if err != nil {
		return openWindow{}, false
	}
	w := openWindow{open: open, closing: closing}
	if h.BreakStart != nil && h.BreakEnd != nil {
		bs, err1 := minuteOfDay(*h.BreakStart)
		be, err2 := minuteOfDay(*h.BreakEnd)
		if err1 == nil && err2 == nil {
			if bs < open {
				bs, be = bs+24*60, be+24*60
			}
			w.breakStart, w.breakEnd, w.hasBreak = bs, be, true
		}
	}
	return w, true
}

// until reports whether minute m is open and, if so, the minute the open stretch ends.
func (w openWindow) until(m int) (int, bool) {
	if m < w.open || m >= w.closing {
		return 0, false
	}
	if w.hasBreak {
		if m >= w.breakStart && m < w.breakEnd {
			return 0, false
		}
		if m < w.breakStart {
			return w.breakStart, true
		}
	}
	return w.closing, true
}

// Covers reports whether minute m, counted from this row's own midnight, is open.
// Values past 1440 address the small hours of the following day.
func (h *ClinicOperatingHour) Covers(m int) bool {
	w, ok := h.window()
	if !ok {
		return false
	}
	_, ok = w.until(m)
	return ok
}

type ClinicService struct {
	gorm.Model
	ClinicID        uint            `json:"clinic_id" gorm:"index;not null"`
	Name            string          `json:"name" gorm:"not null"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null;default:0"`
	DurationMinutes int             `json:"duration_minutes" gorm:"not null;default:30"`
	IsActive        bool            `json:"is_active" gorm:"default:true"`
}

// ClinicStaff holds veterinarians only.
type ClinicStaff struct {
	gorm.Model
	ClinicID      uint   `json:"clinic_id" gorm:"index;not null"`
	Name          string `json:"name" gorm:"not null"`
	Email         string `json:"email"`
	LicenseNumber string `json:"license_number"`
	Specialty     string `json:"specialty"`
	IsActive      bool   `json:"is_active" gorm:"default:true"`
}
