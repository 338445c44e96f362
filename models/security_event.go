package models

import "time"

type SecurityEventType string

const (
	EventLoginFailed     SecurityEventType = "login_failed"
	EventLoginBlocked    SecurityEventType = "login_blocked"
	EventUserBanned      SecurityEventType = "user_banned"
	EventUserUnbanned    SecurityEventType = "user_unbanned"
	EventClinicApproved  SecurityEventType = "clinic_approved"
	EventClinicRejected  SecurityEventType = "clinic_rejected"
	EventClinicSuspended SecurityEventType = "clinic_suspended"
)

// SecurityEvent is an audit row; rows older than the retention window are purged by cleanup-logs.
type SecurityEvent struct {
	ID          uint              `json:"id" gorm:"primaryKey"`
	Type        SecurityEventType `json:"type" gorm:"type:varchar(40);index;not null"`
	UserID      *uint             `json:"user_id" gorm:"index"`
	ActorUserID *uint             `json:"actor_user_id"`
	IPAddress   string            `json:"ip_address"`
	Details     string            `json:"details" gorm:"type:text"`
	CreatedAt   time.Time         `json:"created_at" gorm:"index"`
}

type JobRunStatus string

const (
	JobRunSucceeded JobRunStatus = "succeeded"
	JobRunFailed    JobRunStatus = "failed"
	JobRunSkipped   JobRunStatus = "skipped"
)

// JobRun records one execution of a scheduled job.
type JobRun struct {
	ID         uint         `json:"id" gorm:"primaryKey"`
	Job        string       `json:"job" gorm:"type:varchar(60);index;not null"`
	Status     JobRunStatus `json:"status" gorm:"type:varchar(20);not null"`
	Processed  int          `json:"processed"`
	Error      string       `json:"error,omitempty" gorm:"type:text"`
	StartedAt  time.Time    `json:"started_at" gorm:"index"`
	FinishedAt time.Time    `json:"finished_at"`
}
