package dto

import (
	"time"

	"github.com/kopma-dev/kopma-api/internal/models"
)

// ApplicationListRequest defines filters for listing membership applications.
type ApplicationListRequest struct {
	Page     int
	PageSize int
	Status   string
}

// ApplicationResponse serializes a membership application for reviewers.
type ApplicationResponse struct {
	ID              uint       `json:"id"`
	StudentNumber   string     `json:"student_number"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Faculty         string     `json:"faculty"`
	Department      string     `json:"department"`
	Status          string     `json:"status"`
	IdentityCard    string     `json:"identity_card_file"`
	SupportingFile  string     `json:"supporting_file"`
	ProfilePhoto    string     `json:"profile_photo_file"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	ApprovedByID    *uint      `json:"approved_by_id,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	SubmittedAt     time.Time  `json:"submitted_at"`
}

// ApplicationListResponse wraps a paginated application listing.
type ApplicationListResponse struct {
	Items      []ApplicationResponse `json:"items"`
	Pagination PaginationMeta        `json:"pagination"`
}

// RejectRequest carries the optional rejection reason.
type RejectRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=512"`
}

// ChangeRoleRequest assigns a new role to a user.
type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// CreateStaffRequest creates a pre-approved staff account.
type CreateStaffRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=psda admin"`
}

// UserListRequest defines filters for the admin user listing.
type UserListRequest struct {
	Page     int
	PageSize int
	Role     string
}

// UserListResponse wraps a paginated user listing.
type UserListResponse struct {
	Items      []UserResponse `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}

// MembershipStats aggregates application and account counts for dashboards.
type MembershipStats struct {
	Total     int64            `json:"total"`
	Pending   int64            `json:"pending"`
	Approved  int64            `json:"approved"`
	Rejected  int64            `json:"rejected"`
	ByFaculty map[string]int64 `json:"by_faculty"`
	ByRole    map[string]int64 `json:"by_role"`
}

// NewApplicationResponse converts a member user model into its review
// representation.
func NewApplicationResponse(user models.User) ApplicationResponse {
	resp := ApplicationResponse{
		ID:             user.ID,
		Name:           user.Name,
		Email:          user.Email,
		Faculty:        user.Faculty,
		Department:     user.Department,
		Status:         user.Status,
		IdentityCard:   user.IdentityCardFile,
		SupportingFile: user.SupportingFile,
		ProfilePhoto:   user.ProfilePhotoFile,
		ApprovedByID:   user.ApprovedByID,
		ApprovedAt:     user.ApprovedAt,
		SubmittedAt:    user.CreatedAt,
	}
	if user.StudentNumber != nil {
		resp.StudentNumber = *user.StudentNumber
	}
	if user.RejectionReason != nil {
		resp.RejectionReason = *user.RejectionReason
	}
	return resp
}
