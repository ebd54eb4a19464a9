package dto

import (
	"time"

	"github.com/kopma-dev/kopma-api/internal/models"
)

// ActivityListRequest defines filters for querying the audit trail.
type ActivityListRequest struct {
	Page     int
	PageSize int
	Action   string
	ActorID  uint
}

// ActivityResponse serializes an audit trail entry.
type ActivityResponse struct {
	ID           uint                   `json:"id"`
	ActorID      uint                   `json:"actor_id"`
	ActorRole    string                 `json:"actor_role"`
	Action       string                 `json:"action"`
	Description  string                 `json:"description"`
	TargetUserID *uint                  `json:"target_user_id,omitempty"`
	Details      map[string]interface{} `json:"details"`
	CreatedAt    time.Time              `json:"created_at"`
}

// ActivityListResponse wraps a paginated audit trail listing.
type ActivityListResponse struct {
	Items      []ActivityResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// NewActivityResponse converts an activity log model into a DTO.
func NewActivityResponse(entry models.ActivityLog) ActivityResponse {
	details := make(map[string]interface{}, len(entry.Details))
	for key, value := range entry.Details {
		details[key] = value
	}

	return ActivityResponse{
		ID:           entry.ID,
		ActorID:      entry.ActorID,
		ActorRole:    entry.ActorRole,
		Action:       entry.Action,
		Description:  entry.Description,
		TargetUserID: entry.TargetUserID,
		Details:      details,
		CreatedAt:    entry.CreatedAt,
	}
}
