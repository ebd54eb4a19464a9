package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/kopma-dev/kopma-api/internal/dto"
	"github.com/kopma-dev/kopma-api/internal/models"
	"github.com/kopma-dev/kopma-api/internal/repository"
)

// Event errors surfaced to handlers.
var (
	ErrEventNotFound    = errors.New("event not found")
	ErrInvalidEventDate = errors.New("event date must be YYYY-MM-DD or RFC 3339")
	ErrAttendanceClosed = errors.New("attendance is not enabled for this event")
	ErrAlreadyAttended  = errors.New("attendance already recorded for this event")
)

// DefaultEventCategory stands in when staff publish an event without one.
const DefaultEventCategory = "Workshop"

// EventService manages the cooperative's event schedule: staff publish and
// maintain events, approved members browse them and check in.
type EventService interface {
	Create(ctx context.Context, req dto.CreateEventRequest, poster string, creator ActivityActor) (dto.EventResponse, error)
	Update(ctx context.Context, eventID uint, req dto.UpdateEventRequest, poster string) (dto.EventResponse, error)
	Get(ctx context.Context, eventID uint) (dto.EventResponse, error)
	List(ctx context.Context, page, pageSize int) (dto.EventListResponse, error)
	Delete(ctx context.Context, eventID uint) error

	Attend(ctx context.Context, eventID, userID uint) (dto.AttendanceResponse, error)
}

type eventService struct {
	events    repository.EventRepository
	users     repository.UserRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewEventService constructs the event service.
func NewEventService(
	events repository.EventRepository,
	users repository.UserRepository,
	validate *validator.Validate,
	logger zerolog.Logger,
) EventService {
	return &eventService{
		events:    events,
		users:     users,
		validator: validate,
		logger:    logger.With().Str("component", "event_service").Logger(),
	}
}

func (s *eventService) Create(ctx context.Context, req dto.CreateEventRequest, poster string, creator ActivityActor) (dto.EventResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.EventResponse{}, err
	}

	date, err := parseEventDate(req.Date)
	if err != nil {
		return dto.EventResponse{}, err
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = DefaultEventCategory
	}

	event := models.Event{
		Title:            strings.TrimSpace(req.Title),
		Category:         category,
		Description:      strings.TrimSpace(req.Description),
		Date:             date,
		StartTime:        strings.TrimSpace(req.StartTime),
		EndTime:          strings.TrimSpace(req.EndTime),
		Location:         strings.TrimSpace(req.Location),
		EnableAttendance: req.EnableAttendance == nil || *req.EnableAttendance,
		CreatedByID:      creator.ID,
	}
	if poster != "" {
		event.Poster = &poster
	}

	if err := s.events.Create(ctx, &event); err != nil {
		return dto.EventResponse{}, err
	}

	s.logger.Info().Uint("event_id", event.ID).Str("title", event.Title).Msg("event published")
	return dto.NewEventResponse(event), nil
}

func (s *eventService) Update(ctx context.Context, eventID uint, req dto.UpdateEventRequest, poster string) (dto.EventResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.EventResponse{}, err
	}

	updates := make(map[string]interface{})
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			category = DefaultEventCategory
		}
		updates["category"] = category
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Date != nil {
		date, err := parseEventDate(*req.Date)
		if err != nil {
			return dto.EventResponse{}, err
		}
		updates["date"] = date
	}
	if req.StartTime != nil {
		updates["start_time"] = strings.TrimSpace(*req.StartTime)
	}
	if req.EndTime != nil {
		updates["end_time"] = strings.TrimSpace(*req.EndTime)
	}
	if req.Location != nil {
		updates["location"] = strings.TrimSpace(*req.Location)
	}
	if req.EnableAttendance != nil {
		updates["enable_attendance"] = *req.EnableAttendance
	}
	if poster != "" {
		updates["poster"] = poster
	}

	if len(updates) == 0 {
		return s.Get(ctx, eventID)
	}

	event, err := s.events.Update(ctx, eventID, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EventResponse{}, ErrEventNotFound
		}
		return dto.EventResponse{}, err
	}
	return dto.NewEventResponse(event), nil
}

func (s *eventService) Get(ctx context.Context, eventID uint) (dto.EventResponse, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EventResponse{}, ErrEventNotFound
		}
		return dto.EventResponse{}, err
	}
	return dto.NewEventResponse(event), nil
}

func (s *eventService) List(ctx context.Context, page, pageSize int) (dto.EventListResponse, error) {
	events, total, err := s.events.List(ctx, repository.EventFilter{Page: page, PageSize: pageSize})
	if err != nil {
		return dto.EventListResponse{}, err
	}

	items := make([]dto.EventResponse, 0, len(events))
	for _, event := range events {
		items = append(items, dto.NewEventResponse(event))
	}

	return dto.EventListResponse{
		Items:      items,
		Pagination: paginationMeta(page, pageSize, total),
	}, nil
}

func (s *eventService) Delete(ctx context.Context, eventID uint) error {
	if err := s.events.Delete(ctx, eventID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEventNotFound
		}
		return err
	}
	s.logger.Info().Uint("event_id", eventID).Msg("event deleted")
	return nil
}

func (s *eventService) Attend(ctx context.Context, eventID, userID uint) (dto.AttendanceResponse, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttendanceResponse{}, ErrEventNotFound
		}
		return dto.AttendanceResponse{}, err
	}
	if !event.EnableAttendance {
		return dto.AttendanceResponse{}, ErrAttendanceClosed
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttendanceResponse{}, ErrAccountNotFound
		}
		return dto.AttendanceResponse{}, err
	}

	attended, err := s.events.HasAttended(ctx, eventID, userID)
	if err != nil {
		return dto.AttendanceResponse{}, err
	}
	if attended {
		return dto.AttendanceResponse{}, ErrAlreadyAttended
	}

	attendance := models.EventAttendance{
		EventID:    event.ID,
		UserID:     user.ID,
		Name:       user.Name,
		AttendedAt: time.Now(),
	}
	if user.StudentNumber != nil {
		attendance.StudentNumber = *user.StudentNumber
	}

	if err := s.events.RecordAttendance(ctx, &attendance); err != nil {
		// The unique index closes the check-then-insert race.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.AttendanceResponse{}, ErrAlreadyAttended
		}
		return dto.AttendanceResponse{}, err
	}

	return dto.NewAttendanceResponse(attendance), nil
}

func parseEventDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	if parsed, err := time.Parse("2006-01-02", value); err == nil {
		return parsed, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidEventDate, value)
}
