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

// ApplicationHandler exposes the membership review endpoints used by
// reviewers and admins.
type ApplicationHandler struct {
	applications service.ApplicationService
	logger       zerolog.Logger
}

// NewApplicationHandler constructs the handler.
func NewApplicationHandler(applications service.ApplicationService, logger zerolog.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		applications: applications,
		logger:       logger.With().Str("component", "application_handler").Logger(),
	}
}

// Register attaches the review routes.
func (h *ApplicationHandler) Register(router fiber.Router) {
	router.Get("/applications", h.list)
	router.Get("/applications/pending", h.listPending)
	router.Get("/applications/stats", h.stats)
	router.Get("/applications/:id", h.get)
	router.Put("/applications/:id/approve", h.approve)
	router.Put("/applications/:id/reject", h.reject)
}

func (h *ApplicationHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := pageParams(c, 20)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid pagination parameters")
	}

	req := dto.ApplicationListRequest{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
	}

	listing, err := h.applications.List(c.Context(), req)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list applications")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list applications")
	}

	return utils.SendSuccess(c, "applications retrieved", listing)
}

func (h *ApplicationHandler) listPending(c *fiber.Ctx) error {
	page, pageSize, err := pageParams(c, 20)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid pagination parameters")
	}

	listing, err := h.applications.ListPending(c.Context(), page, pageSize)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list pending applications")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list pending applications")
	}

	return utils.SendSuccess(c, "pending applications retrieved", listing)
}

func (h *ApplicationHandler) stats(c *fiber.Ctx) error {
	stats, err := h.applications.Stats(c.Context())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to compute membership stats")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to compute membership stats")
	}

	return utils.SendSuccess(c, "membership stats retrieved", stats)
}

func (h *ApplicationHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid application id")
	}

	application, err := h.applications.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrApplicationNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to fetch application")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to fetch application")
	}

	return utils.SendSuccess(c, "application retrieved", application)
}

func (h *ApplicationHandler) approve(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid application id")
	}

	if err := h.applications.Approve(c.Context(), id, activityActorFromContext(c)); err != nil {
		return h.reviewError(c, err, "failed to approve application")
	}

	return utils.SendSuccess(c, "application approved", nil)
}

func (h *ApplicationHandler) reject(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid application id")
	}

	var payload dto.RejectRequest
	if err := c.BodyParser(&payload); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	if err := h.applications.Reject(c.Context(), id, activityActorFromContext(c), payload.Reason); err != nil {
		return h.reviewError(c, err, "failed to reject application")
	}

	return utils.SendSuccess(c, "application rejected", nil)
}

func (h *ApplicationHandler) reviewError(c *fiber.Ctx, err error, logMsg string) error {
	switch {
	case errors.Is(err, service.ErrApplicationNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrAlreadyProcessed):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(logMsg)
		return utils.SendError(c, fiber.StatusInternalServerError, logMsg)
	}
}
