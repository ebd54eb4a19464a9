package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/kopma-dev/kopma-api/internal/dto"
	"github.com/kopma-dev/kopma-api/internal/models"
	"github.com/kopma-dev/kopma-api/internal/repository"
)

// Review and user management errors surfaced to handlers.
var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrAlreadyProcessed    = errors.New("application has already been processed")
	ErrInvalidRole         = errors.New("role must be one of: member, psda, admin")
	ErrUserNotFound        = errors.New("user not found")
)

// DefaultRejectionReason stands in when a reviewer rejects without a reason.
const DefaultRejectionReason = "no specific reason given"

// ApplicationService drives the membership review state machine and the
// administrative user management around it.
type ApplicationService interface {
	Approve(ctx context.Context, applicationID uint, reviewer ActivityActor) error
	Reject(ctx context.Context, applicationID uint, reviewer ActivityActor, reason string) error
	Get(ctx context.Context, applicationID uint) (dto.ApplicationResponse, error)
	ListPending(ctx context.Context, page, pageSize int) (dto.ApplicationListResponse, error)
	List(ctx context.Context, req dto.ApplicationListRequest) (dto.ApplicationListResponse, error)
	Stats(ctx context.Context) (dto.MembershipStats, error)

	ChangeRole(ctx context.Context, userID uint, newRole string, actor ActivityActor) (dto.UserResponse, error)
	CreateStaff(ctx context.Context, req dto.CreateStaffRequest, actor ActivityActor) (dto.UserResponse, error)
	ListUsers(ctx context.Context, req dto.UserListRequest) (dto.UserListResponse, error)
}

type applicationService struct {
	repo          repository.UserRepository
	notifications NotificationService
	activity      ActivityRecorder
	validator     *validator.Validate
	logger        zerolog.Logger
}

// NewApplicationService constructs the application lifecycle service.
func NewApplicationService(
	repo repository.UserRepository,
	notifications NotificationService,
	activity ActivityRecorder,
	validate *validator.Validate,
	logger zerolog.Logger,
) ApplicationService {
	return &applicationService{
		repo:          repo,
		notifications: notifications,
		activity:      activity,
		validator:     validate,
		logger:        logger.With().Str("component", "application_service").Logger(),
	}
}

func (s *applicationService) Approve(ctx context.Context, applicationID uint, reviewer ActivityActor) error {
	application, err := s.repo.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrApplicationNotFound
		}
		return err
	}

	now := time.Now()
	reviewed, err := s.repo.MarkReviewed(ctx, applicationID, map[string]interface{}{
		"status":         models.StatusApproved,
		"approved_by_id": reviewer.ID,
		"approved_at":    now,
	})
	if err != nil {
		return err
	}
	if !reviewed {
		return ErrAlreadyProcessed
	}

	s.activity.Record(ctx, ActivityEntry{
		Actor:        reviewer,
		Action:       models.ActionApproveApplication,
		Description:  fmt.Sprintf("%s approved the application of %s", reviewer.Name, application.Name),
		TargetUserID: &application.ID,
	})

	// Approval is durable even when the notification fails.
	if err := s.notifications.SendApplicationApproved(application.Email, application.Name); err != nil {
		s.logger.Warn().Err(err).Uint("application_id", applicationID).Msg("approval email failed")
	}
	return nil
}

func (s *applicationService) Reject(ctx context.Context, applicationID uint, reviewer ActivityActor, reason string) error {
	application, err := s.repo.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrApplicationNotFound
		}
		return err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultRejectionReason
	}

	reviewed, err := s.repo.MarkReviewed(ctx, applicationID, map[string]interface{}{
		"status":           models.StatusRejected,
		"rejection_reason": reason,
		"approved_by_id":   reviewer.ID,
	})
	if err != nil {
		return err
	}
	if !reviewed {
		return ErrAlreadyProcessed
	}

	s.activity.Record(ctx, ActivityEntry{
		Actor:        reviewer,
		Action:       models.ActionRejectApplication,
		Description:  fmt.Sprintf("%s rejected the application of %s. reason: %s", reviewer.Name, application.Name, reason),
		TargetUserID: &application.ID,
		Details:      map[string]interface{}{"reason": reason},
	})

	if err := s.notifications.SendApplicationRejected(application.Email, application.Name, reason); err != nil {
		s.logger.Warn().Err(err).Uint("application_id", applicationID).Msg("rejection email failed")
	}
	return nil
}

func (s *applicationService) Get(ctx context.Context, applicationID uint) (dto.ApplicationResponse, error) {
	application, err := s.repo.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ApplicationResponse{}, ErrApplicationNotFound
		}
		return dto.ApplicationResponse{}, err
	}
	return dto.NewApplicationResponse(application), nil
}

func (s *applicationService) ListPending(ctx context.Context, page, pageSize int) (dto.ApplicationListResponse, error) {
	return s.listApplications(ctx, repository.ApplicationFilter{
		Status:   models.StatusPending,
		Page:     page,
		PageSize: pageSize,
	})
}

func (s *applicationService) List(ctx context.Context, req dto.ApplicationListRequest) (dto.ApplicationListResponse, error) {
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status == "all" {
		status = ""
	}
	return s.listApplications(ctx, repository.ApplicationFilter{
		Status:   status,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
}

func (s *applicationService) listApplications(ctx context.Context, filter repository.ApplicationFilter) (dto.ApplicationListResponse, error) {
	applications, total, err := s.repo.ListApplications(ctx, filter)
	if err != nil {
		return dto.ApplicationListResponse{}, err
	}

	items := make([]dto.ApplicationResponse, 0, len(applications))
	for _, application := range applications {
		items = append(items, dto.NewApplicationResponse(application))
	}

	return dto.ApplicationListResponse{
		Items:      items,
		Pagination: paginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

func (s *applicationService) Stats(ctx context.Context) (dto.MembershipStats, error) {
	byStatus, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return dto.MembershipStats{}, err
	}
	byFaculty, err := s.repo.CountByFaculty(ctx)
	if err != nil {
		return dto.MembershipStats{}, err
	}
	byRole, err := s.repo.CountByRole(ctx)
	if err != nil {
		return dto.MembershipStats{}, err
	}

	stats := dto.MembershipStats{
		Pending:   byStatus[models.StatusPending],
		Approved:  byStatus[models.StatusApproved],
		Rejected:  byStatus[models.StatusRejected],
		ByFaculty: byFaculty,
		ByRole:    byRole,
	}
	stats.Total = stats.Pending + stats.Approved + stats.Rejected
	return stats, nil
}

func (s *applicationService) ChangeRole(ctx context.Context, userID uint, newRole string, actor ActivityActor) (dto.UserResponse, error) {
	newRole = strings.ToLower(strings.TrimSpace(newRole))
	if !models.ValidRole(newRole) {
		return dto.UserResponse{}, ErrInvalidRole
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}

	oldRole := user.Role
	updates := map[string]interface{}{"role": newRole}
	// Staff accounts bypass review; promoting a user approves them even if
	// their application was previously rejected.
	if newRole != models.RoleMember {
		updates["status"] = models.StatusApproved
	}

	updated, err := s.repo.Update(ctx, userID, updates)
	if err != nil {
		return dto.UserResponse{}, err
	}

	s.activity.Record(ctx, ActivityEntry{
		Actor:        actor,
		Action:       models.ActionChangeUserRole,
		Description:  fmt.Sprintf("%s changed the role of %s from %s to %s", actor.Name, user.Name, oldRole, newRole),
		TargetUserID: &user.ID,
		Details:      map[string]interface{}{"old_role": oldRole, "new_role": newRole},
	})

	return dto.NewUserResponse(updated), nil
}

func (s *applicationService) CreateStaff(ctx context.Context, req dto.CreateStaffRequest, actor ActivityActor) (dto.UserResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	taken, err := s.repo.IdentityTaken(ctx, "", email)
	if err != nil {
		return dto.UserResponse{}, err
	}
	if taken {
		return dto.UserResponse{}, ErrDuplicateIdentity
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return dto.UserResponse{}, fmt.Errorf("hash password: %w", err)
	}

	staff := models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         req.Role,
		Status:       models.StatusApproved,
	}
	if err := s.repo.Create(ctx, &staff); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.UserResponse{}, ErrDuplicateIdentity
		}
		return dto.UserResponse{}, err
	}

	s.activity.Record(ctx, ActivityEntry{
		Actor:        actor,
		Action:       models.ActionCreateStaff,
		Description:  fmt.Sprintf("%s created a %s account for %s", actor.Name, staff.Role, staff.Name),
		TargetUserID: &staff.ID,
		Details:      map[string]interface{}{"role": staff.Role},
	})

	return dto.NewUserResponse(staff), nil
}

func (s *applicationService) ListUsers(ctx context.Context, req dto.UserListRequest) (dto.UserListResponse, error) {
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "all" {
		role = ""
	}

	users, total, err := s.repo.List(ctx, repository.UserFilter{
		Role:     role,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return dto.UserListResponse{}, err
	}

	items := make([]dto.UserResponse, 0, len(users))
	for _, user := range users {
		items = append(items, dto.NewUserResponse(user))
	}

	return dto.UserListResponse{
		Items:      items,
		Pagination: paginationMeta(req.Page, req.PageSize, total),
	}, nil
}

func paginationMeta(page, pageSize int, total int64) dto.PaginationMeta {
	meta := dto.PaginationMeta{
		Page:       maxInt(page, 1),
		PageSize:   pageSize,
		TotalItems: total,
	}
	if pageSize > 0 {
		meta.TotalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	} else {
		meta.TotalPages = 1
	}
	return meta
}
