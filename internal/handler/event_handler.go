package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/kopma-dev/kopma-api/internal/dto"
	"github.com/kopma-dev/kopma-api/internal/service"
	"github.com/kopma-dev/kopma-api/internal/utils"
)

// EventHandler exposes the event schedule: CRUD for the reviewing staff and
// browse/check-in for authenticated members.
type EventHandler struct {
	events  service.EventService
	uploads service.UploadService
	logger  zerolog.Logger
}

// NewEventHandler constructs the handler.
func NewEventHandler(events service.EventService, uploads service.UploadService, logger zerolog.Logger) *EventHandler {
	return &EventHandler{
		events:  events,
		uploads: uploads,
		logger:  logger.With().Str("component", "event_handler").Logger(),
	}
}

// RegisterReview attaches the staff event management routes.
func (h *EventHandler) RegisterReview(router fiber.Router) {
	router.Post("/events", h.create)
	router.Get("/events", h.list)
	router.Get("/events/:id", h.get)
	router.Put("/events/:id", h.update)
	router.Delete("/events/:id", h.delete)
}

// RegisterMember attaches the member-facing routes. The auth guard is applied
// per route because the group prefix is shared with public routes.
func (h *EventHandler) RegisterMember(router fiber.Router, authenticate fiber.Handler) {
	router.Get("/events", authenticate, h.list)
	router.Get("/events/:id", authenticate, h.get)
	router.Post("/events/:id/attend", authenticate, h.attend)
}

func (h *EventHandler) create(c *fiber.Ctx) error {
	var payload dto.CreateEventRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	poster, err := h.storePoster(c)
	if err != nil {
		return h.posterError(c, err)
	}

	event, err := h.events.Create(c.Context(), payload, poster, activityActorFromContext(c))
	if err != nil {
		return h.eventError(c, err, "failed to create event")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "event created", event)
}

func (h *EventHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := pageParams(c, 20)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid pagination parameters")
	}

	listing, err := h.events.List(c.Context(), page, pageSize)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list events")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list events")
	}

	return utils.SendSuccess(c, "events retrieved", listing)
}

func (h *EventHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid event id")
	}

	event, err := h.events.Get(c.Context(), id)
	if err != nil {
		return h.eventError(c, err, "failed to fetch event")
	}

	return utils.SendSuccess(c, "event retrieved", event)
}

func (h *EventHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid event id")
	}

	var payload dto.UpdateEventRequest
	if err := c.BodyParser(&payload); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	poster, err := h.storePoster(c)
	if err != nil {
		return h.posterError(c, err)
	}

	event, err := h.events.Update(c.Context(), id, payload, poster)
	if err != nil {
		return h.eventError(c, err, "failed to update event")
	}

	return utils.SendSuccess(c, "event updated", event)
}

func (h *EventHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid event id")
	}

	if err := h.events.Delete(c.Context(), id); err != nil {
		return h.eventError(c, err, "failed to delete event")
	}

	return utils.SendSuccess(c, "event deleted", nil)
}

func (h *EventHandler) attend(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid event id")
	}

	attendance, err := h.events.Attend(c.Context(), id, userIDFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyAttended):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		case errors.Is(err, service.ErrAttendanceClosed):
			return utils.SendError(c, fiber.StatusForbidden, err.Error())
		default:
			return h.eventError(c, err, "failed to record attendance")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "attendance recorded", attendance)
}

// storePoster stores the optional poster part and returns its stored name,
// or "" when the request carries none.
func (h *EventHandler) storePoster(c *fiber.Ctx) (string, error) {
	file, err := c.FormFile("poster")
	if err != nil {
		return "", nil
	}
	return h.uploads.Store(c.Context(), service.DocumentEventPoster, file)
}

func (h *EventHandler) posterError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrUploadTooLarge),
		errors.Is(err, service.ErrUploadTypeNotAllowed):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("poster upload failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "poster upload failed")
	}
}

func (h *EventHandler) eventError(c *fiber.Ctx, err error, logMsg string) error {
	switch {
	case errors.Is(err, service.ErrEventNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidEventDate):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAccountNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(logMsg)
		return utils.SendError(c, fiber.StatusInternalServerError, logMsg)
	}
}
