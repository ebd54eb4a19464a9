package service

import (
	"context"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/kopma-dev/kopma-api/internal/dto"
	"github.com/kopma-dev/kopma-api/internal/models"
	"github.com/kopma-dev/kopma-api/internal/repository"
)

// ActivityActor identifies the authenticated account performing an action.
type ActivityActor struct {
	ID   uint
	Name string
	Role string
}

// ActivityEntry captures the details of a single audit trail event.
type ActivityEntry struct {
	Actor        ActivityActor
	Action       string
	Description  string
	TargetUserID *uint
	Details      map[string]interface{}
}

// ActivityRecorder appends audit trail entries. Recording never fails the
// calling operation; an unavailable audit sink is logged and swallowed.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry)
}

// ActivityService exposes the audit trail for recording and querying.
type ActivityService interface {
	ActivityRecorder
	List(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error)
	ListStaffActions(ctx context.Context, page, pageSize int) (dto.ActivityListResponse, error)
}

type activityService struct {
	repo   repository.ActivityLogRepository
	logger zerolog.Logger
}

// NewActivityService constructs the activity log service.
func NewActivityService(repo repository.ActivityLogRepository, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:   repo,
		logger: logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) {
	action := strings.ToLower(strings.TrimSpace(entry.Action))
	if action == "" {
		s.logger.Warn().Msg("dropping activity entry without action")
		return
	}

	model := models.ActivityLog{
		ActorID:      entry.Actor.ID,
		ActorRole:    normalizeActorRole(entry.Actor.Role),
		Action:       action,
		Description:  strings.TrimSpace(entry.Description),
		TargetUserID: entry.TargetUserID,
		Details:      sanitizeDetails(entry.Details),
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("failed to persist activity log")
	}
}

func (s *activityService) List(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	filter := repository.ActivityLogFilter{
		Page:     req.Page,
		PageSize: req.PageSize,
		Action:   strings.TrimSpace(req.Action),
	}
	if req.ActorID > 0 {
		filter.ActorID = &req.ActorID
	}

	return s.list(ctx, filter)
}

func (s *activityService) ListStaffActions(ctx context.Context, page, pageSize int) (dto.ActivityListResponse, error) {
	return s.list(ctx, repository.ActivityLogFilter{
		Page:      page,
		PageSize:  pageSize,
		StaffOnly: true,
	})
}

func (s *activityService) list(ctx context.Context, filter repository.ActivityLogFilter) (dto.ActivityListResponse, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ActivityListResponse{}, err
	}

	responses := make([]dto.ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewActivityResponse(entry))
	}

	pagination := dto.PaginationMeta{
		Page:       maxInt(filter.Page, 1),
		PageSize:   filter.PageSize,
		TotalItems: total,
	}
	if filter.PageSize > 0 {
		pagination.TotalPages = int(math.Ceil(float64(total) / float64(filter.PageSize)))
	} else {
		pagination.TotalPages = 1
	}

	return dto.ActivityListResponse{Items: responses, Pagination: pagination}, nil
}

// sanitizeDetails masks values under keys that look like credentials before
// they reach the audit trail.
func sanitizeDetails(details map[string]interface{}) datatypes.JSONMap {
	if details == nil {
		return datatypes.JSONMap{}
	}

	sanitized := datatypes.JSONMap{}
	for key, value := range details {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "password") || strings.Contains(lower, "token") || strings.Contains(lower, "code") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func normalizeActorRole(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	if r == "" {
		return "system"
	}
	return r
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
