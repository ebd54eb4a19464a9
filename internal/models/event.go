package models

import "time"

// Event is a cooperative activity published by the reviewing staff. Approved
// members browse the schedule and, when check-in is enabled, record their
// attendance.
type Event struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Title            string    `gorm:"size:255;not null" json:"title"`
	Category         string    `gorm:"size:64;not null;default:Workshop" json:"category"`
	Description      string    `gorm:"type:text" json:"description"`
	Date             time.Time `gorm:"not null" json:"date"`
	StartTime        string    `gorm:"size:16" json:"start_time,omitempty"`
	EndTime          string    `gorm:"size:16" json:"end_time,omitempty"`
	Location         string    `gorm:"size:255;not null" json:"location"`
	Poster           *string   `gorm:"size:255" json:"poster,omitempty"`
	EnableAttendance bool      `gorm:"not null;default:true" json:"enable_attendance"`
	CreatedByID      uint      `gorm:"not null" json:"created_by_id"`

	Attendance []EventAttendance `gorm:"constraint:OnDelete:CASCADE" json:"attendance,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EventAttendance is a single member check-in. The unique index keeps one row
// per member per event.
type EventAttendance struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	EventID       uint      `gorm:"not null;uniqueIndex:idx_event_attendee" json:"event_id"`
	UserID        uint      `gorm:"not null;uniqueIndex:idx_event_attendee" json:"user_id"`
	StudentNumber string    `gorm:"size:32" json:"student_number"`
	Name          string    `gorm:"size:255" json:"name"`
	AttendedAt    time.Time `gorm:"not null" json:"attended_at"`
}
