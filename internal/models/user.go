package models

import "time"

// Roles a user account can hold. Staff accounts (psda, admin) skip the
// membership review flow entirely.
const (
	RoleMember = "member"
	RolePSDA   = "psda"
	RoleAdmin  = "admin"
)

// Membership application states. Pending applications move into exactly one
// of the terminal states through the review flow.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// ValidRole reports whether role is one of the known account roles.
func ValidRole(role string) bool {
	switch role {
	case RoleMember, RolePSDA, RoleAdmin:
		return true
	}
	return false
}

// User is both the credential record and the membership application. Members
// register with a student number and supporting documents; staff accounts are
// created directly by an administrator and carry neither.
type User struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	StudentNumber *string `gorm:"size:32;uniqueIndex" json:"student_number,omitempty"`
	Name          string  `gorm:"size:255;not null" json:"name"`
	Email         string  `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash  string  `gorm:"size:255;not null" json:"-"`
	Role          string  `gorm:"size:16;not null;default:member" json:"role"`
	Status        string  `gorm:"size:16;not null;default:pending" json:"status"`

	Faculty    string `gorm:"size:128" json:"faculty,omitempty"`
	Department string `gorm:"size:128" json:"department,omitempty"`

	IdentityCardFile string `gorm:"size:255" json:"identity_card_file,omitempty"`
	SupportingFile   string `gorm:"size:255" json:"supporting_file,omitempty"`
	ProfilePhotoFile string `gorm:"size:255" json:"profile_photo_file,omitempty"`

	RejectionReason *string    `gorm:"size:512" json:"rejection_reason,omitempty"`
	ApprovedByID    *uint      `json:"approved_by_id,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`

	ResetTokenHash    *string    `gorm:"size:64" json:"-"`
	ResetTokenExpiry  *time.Time `json:"-"`
	OneTimeCodeHash   *string    `gorm:"size:64" json:"-"`
	OneTimeCodeExpiry *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsStaff reports whether the account belongs to the reviewing or
// administrative staff.
func (u User) IsStaff() bool {
	return u.Role == RolePSDA || u.Role == RoleAdmin
}
