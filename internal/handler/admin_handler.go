package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/kopma-dev/kopma-api/internal/dto"
	"github.com/kopma-dev/kopma-api/internal/service"
	"github.com/kopma-dev/kopma-api/internal/utils"
)

// AdminHandler exposes account administration and audit trail endpoints.
type AdminHandler struct {
	applications service.ApplicationService
	activity     service.ActivityService
	logger       zerolog.Logger
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(applications service.ApplicationService, activity service.ActivityService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		applications: applications,
		activity:     activity,
		logger:       logger.With().Str("component", "admin_handler").Logger(),
	}
}

// Register attaches the admin routes.
func (h *AdminHandler) Register(router fiber.Router) {
	router.Get("/users", h.listUsers)
	router.Post("/staff", h.createStaff)
	router.Put("/users/:id/role", h.changeRole)
	router.Get("/activity-logs", h.listActivity)
	router.Get("/activity-logs/staff", h.listStaffActivity)
}

func (h *AdminHandler) listUsers(c *fiber.Ctx) error {
	page, pageSize, err := pageParams(c, 20)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid pagination parameters")
	}

	req := dto.UserListRequest{
		Page:     page,
		PageSize: pageSize,
		Role:     strings.TrimSpace(c.Query("role")),
	}

	listing, err := h.applications.ListUsers(c.Context(), req)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list users")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list users")
	}

	return utils.SendSuccess(c, "users retrieved", listing)
}

func (h *AdminHandler) createStaff(c *fiber.Ctx) error {
	var payload dto.CreateStaffRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	user, err := h.applications.CreateStaff(c.Context(), payload, activityActorFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateIdentity):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		case errors.Is(err, service.ErrInvalidRole):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to create staff account")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to create staff account")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "staff account created", user)
}

func (h *AdminHandler) changeRole(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	var payload dto.ChangeRoleRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	user, err := h.applications.ChangeRole(c.Context(), id, payload.Role, activityActorFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrInvalidRole):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to change user role")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to change user role")
		}
	}

	return utils.SendSuccess(c, "user role updated", user)
}

func (h *AdminHandler) listActivity(c *fiber.Ctx) error {
	page, pageSize, err := pageParams(c, 20)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid pagination parameters")
	}

	actorID, err := parseQueryInt(c, "actor_id")
	if err != nil || actorID < 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid actor_id")
	}

	req := dto.ActivityListRequest{
		Page:     page,
		PageSize: pageSize,
		Action:   strings.TrimSpace(c.Query("action")),
		ActorID:  uint(actorID),
	}

	listing, err := h.activity.List(c.Context(), req)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list activity logs")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list activity logs")
	}

	return utils.SendSuccess(c, "activity logs retrieved", listing)
}

func (h *AdminHandler) listStaffActivity(c *fiber.Ctx) error {
	page, pageSize, err := pageParams(c, 20)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid pagination parameters")
	}

	listing, err := h.activity.ListStaffActions(c.Context(), page, pageSize)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list staff activity logs")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list staff activity logs")
	}

	return utils.SendSuccess(c, "staff activity logs retrieved", listing)
}
