package models

import (
	"time"

	"gorm.io/datatypes"
)

// Audit trail action tags.
const (
	ActionApproveApplication = "approve_application"
	ActionRejectApplication  = "reject_application"
	ActionChangeUserRole     = "change_user_role"
	ActionCreateStaff        = "create_staff"
	ActionUpdateProfile      = "update_profile"
	ActionChangePassword     = "change_password"
	ActionLogin              = "login"
	ActionLogout             = "logout"
)

// ActivityLog captures auditable account and review events. Entries are
// append-only; nothing in the service layer updates or deletes them.
type ActivityLog struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	ActorID      uint              `gorm:"not null;index" json:"actor_id"`
	ActorRole    string            `gorm:"size:16;not null" json:"actor_role"`
	Action       string            `gorm:"size:64;not null;index" json:"action"`
	Description  string            `gorm:"size:512;not null" json:"description"`
	TargetUserID *uint             `json:"target_user_id,omitempty"`
	Details      datatypes.JSONMap `gorm:"type:json" json:"details"`
	CreatedAt    time.Time         `json:"created_at"`
}
