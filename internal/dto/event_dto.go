package dto

import (
	"time"

	"github.com/kopma-dev/kopma-api/internal/models"
)

// CreateEventRequest captures the multipart form fields of a new event. The
// optional poster travels alongside as a file part.
type CreateEventRequest struct {
	Title            string `form:"title" json:"title" validate:"required,min=3,max=255"`
	Category         string `form:"category" json:"category" validate:"omitempty,max=64"`
	Description      string `form:"description" json:"description"`
	Date             string `form:"date" json:"date" validate:"required"`
	StartTime        string `form:"start_time" json:"start_time" validate:"omitempty,max=16"`
	EndTime          string `form:"end_time" json:"end_time" validate:"omitempty,max=16"`
	Location         string `form:"location" json:"location" validate:"required,max=255"`
	EnableAttendance *bool  `form:"enable_attendance" json:"enable_attendance"`
}

// UpdateEventRequest patches an existing event; absent fields are untouched.
type UpdateEventRequest struct {
	Title            *string `form:"title" json:"title" validate:"omitempty,min=3,max=255"`
	Category         *string `form:"category" json:"category" validate:"omitempty,max=64"`
	Description      *string `form:"description" json:"description"`
	Date             *string `form:"date" json:"date"`
	StartTime        *string `form:"start_time" json:"start_time" validate:"omitempty,max=16"`
	EndTime          *string `form:"end_time" json:"end_time" validate:"omitempty,max=16"`
	Location         *string `form:"location" json:"location" validate:"omitempty,max=255"`
	EnableAttendance *bool   `form:"enable_attendance" json:"enable_attendance"`
}

// EventResponse serializes an event for clients.
type EventResponse struct {
	ID               uint      `json:"id"`
	Title            string    `json:"title"`
	Category         string    `json:"category"`
	Description      string    `json:"description"`
	Date             time.Time `json:"date"`
	StartTime        string    `json:"start_time,omitempty"`
	EndTime          string    `json:"end_time,omitempty"`
	Location         string    `json:"location"`
	Poster           string    `json:"poster,omitempty"`
	EnableAttendance bool      `json:"enable_attendance"`
	AttendeeCount    int       `json:"attendee_count"`
	CreatedByID      uint      `json:"created_by_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// EventListResponse wraps a paginated event listing.
type EventListResponse struct {
	Items      []EventResponse `json:"items"`
	Pagination PaginationMeta  `json:"pagination"`
}

// AttendanceResponse serializes a member check-in.
type AttendanceResponse struct {
	EventID       uint      `json:"event_id"`
	UserID        uint      `json:"user_id"`
	StudentNumber string    `json:"student_number,omitempty"`
	Name          string    `json:"name"`
	AttendedAt    time.Time `json:"attended_at"`
}

// NewEventResponse converts an event model into its client representation.
func NewEventResponse(event models.Event) EventResponse {
	resp := EventResponse{
		ID:               event.ID,
		Title:            event.Title,
		Category:         event.Category,
		Description:      event.Description,
		Date:             event.Date,
		StartTime:        event.StartTime,
		EndTime:          event.EndTime,
		Location:         event.Location,
		EnableAttendance: event.EnableAttendance,
		AttendeeCount:    len(event.Attendance),
		CreatedByID:      event.CreatedByID,
		CreatedAt:        event.CreatedAt,
	}
	if event.Poster != nil {
		resp.Poster = *event.Poster
	}
	return resp
}

// NewAttendanceResponse converts a check-in model into its client
// representation.
func NewAttendanceResponse(attendance models.EventAttendance) AttendanceResponse {
	return AttendanceResponse{
		EventID:       attendance.EventID,
		UserID:        attendance.UserID,
		StudentNumber: attendance.StudentNumber,
		Name:          attendance.Name,
		AttendedAt:    attendance.AttendedAt,
	}
}
