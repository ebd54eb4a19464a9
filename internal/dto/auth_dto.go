package dto

import (
	"time"

	"github.com/kopma-dev/kopma-api/internal/models"
)

// RegisterRequest captures the multipart form fields of a membership
// registration. The three document uploads travel alongside as file parts.
type RegisterRequest struct {
	StudentNumber string `form:"student_number" json:"student_number" validate:"required,min=3,max=32"`
	Name          string `form:"name" json:"name" validate:"required,min=2"`
	Email         string `form:"email" json:"email" validate:"required,email"`
	Password      string `form:"password" json:"password" validate:"required,min=6"`
	Faculty       string `form:"faculty" json:"faculty" validate:"required"`
	Department    string `form:"department" json:"department" validate:"required"`
}

// RegisterDocuments carries the stored filenames of the three required
// registration uploads.
type RegisterDocuments struct {
	IdentityCard string
	Supporting   string
	ProfilePhoto string
}

// LoginRequest authenticates by student number and password.
type LoginRequest struct {
	StudentNumber string `json:"student_number" validate:"required"`
	Password      string `json:"password" validate:"required"`
}

// ForgotPasswordRequest starts the password reset flow.
type ForgotPasswordRequest struct {
	StudentNumber string `json:"student_number" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest completes the reset flow with the emailed token.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

// OneTimeCodeRequest asks for a login code to be emailed.
type OneTimeCodeRequest struct {
	StudentNumber string `json:"student_number" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
}

// OneTimeCodeLoginRequest authenticates with an emailed 6-digit code.
type OneTimeCodeLoginRequest struct {
	StudentNumber string `json:"student_number" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Code          string `json:"code" validate:"required,len=6,numeric"`
}

// ChangePasswordRequest rotates the password of the authenticated user.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

// UpdateProfileRequest patches the authenticated user's own profile.
type UpdateProfileRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=2"`
	Email *string `json:"email" validate:"omitempty,email"`
}

// UserResponse serializes an account for clients. The password hash and the
// reset/OTP fields never leave the service layer.
type UserResponse struct {
	ID            uint       `json:"id"`
	StudentNumber string     `json:"student_number,omitempty"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	Status        string     `json:"status"`
	Faculty       string     `json:"faculty,omitempty"`
	Department    string     `json:"department,omitempty"`
	ProfilePhoto  string     `json:"profile_photo,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
}

// AuthResponse pairs a session token with the authenticated user.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// NewUserResponse converts a user model into its client representation.
func NewUserResponse(user models.User) UserResponse {
	resp := UserResponse{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		Role:         user.Role,
		Status:       user.Status,
		Faculty:      user.Faculty,
		Department:   user.Department,
		ProfilePhoto: user.ProfilePhotoFile,
		CreatedAt:    user.CreatedAt,
		ApprovedAt:   user.ApprovedAt,
	}
	if user.StudentNumber != nil {
		resp.StudentNumber = *user.StudentNumber
	}
	return resp
}
