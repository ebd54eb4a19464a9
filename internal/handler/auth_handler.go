package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/kopma-dev/kopma-api/internal/dto"
	"github.com/kopma-dev/kopma-api/internal/service"
	"github.com/kopma-dev/kopma-api/internal/utils"
)

// AuthHandler wires the registration, login and credential endpoints.
type AuthHandler struct {
	auth    service.AuthService
	uploads service.UploadService
	logger  zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(auth service.AuthService, uploads service.UploadService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:    auth,
		uploads: uploads,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// RegisterPublic attaches the unauthenticated routes. The limiter guards
// the credential-issuing endpoints against brute force attempts.
func (h *AuthHandler) RegisterPublic(router fiber.Router, limit fiber.Handler) {
	router.Post("/register", h.register)
	router.Post("/login", limit, h.login)
	router.Post("/forgot-password", limit, h.forgotPassword)
	router.Post("/reset-password", limit, h.resetPassword)
	router.Post("/request-login-code", limit, h.requestLoginCode)
	router.Post("/login-with-code", limit, h.loginWithCode)
}

// RegisterProtected attaches the routes that require a session token. The
// auth guard is applied per route because the unauthenticated routes share
// the same path prefix.
func (h *AuthHandler) RegisterProtected(router fiber.Router, authenticate fiber.Handler) {
	router.Get("/me", authenticate, h.me)
	router.Put("/profile", authenticate, h.updateProfile)
	router.Put("/change-password", authenticate, h.changePassword)
	router.Put("/profile-photo", authenticate, h.updateProfilePhoto)
}

func (h *AuthHandler) register(c *fiber.Ctx) error {
	var payload dto.RegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	docs, err := h.storeRegistrationDocuments(c)
	if err != nil {
		return h.uploadError(c, err)
	}

	user, err := h.auth.Register(c.Context(), payload, docs)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateIdentity):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		case errors.Is(err, service.ErrMissingDocuments):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("registration failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "registration failed")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated,
		"registration received, awaiting review", user)
}

func (h *AuthHandler) storeRegistrationDocuments(c *fiber.Ctx) (dto.RegisterDocuments, error) {
	var docs dto.RegisterDocuments

	parts := []struct {
		field  string
		kind   string
		target *string
	}{
		{"identity_card", service.DocumentIdentityCard, &docs.IdentityCard},
		{"supporting_file", service.DocumentSupporting, &docs.Supporting},
		{"profile_photo", service.DocumentProfilePhoto, &docs.ProfilePhoto},
	}

	for _, part := range parts {
		file, err := c.FormFile(part.field)
		if err != nil {
			// Absent parts are reported by the service as MissingDocuments.
			continue
		}
		stored, err := h.uploads.Store(c.Context(), part.kind, file)
		if err != nil {
			return dto.RegisterDocuments{}, err
		}
		*part.target = stored
	}

	return docs, nil
}

func (h *AuthHandler) uploadError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrUploadTooLarge),
		errors.Is(err, service.ErrUploadTypeNotAllowed):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("document upload failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "document upload failed")
	}
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	session, err := h.auth.Login(c.Context(), payload)
	if err != nil {
		return h.loginError(c, err)
	}

	return utils.SendSuccess(c, "login successful", session)
}

func (h *AuthHandler) loginError(c *fiber.Ctx, err error) error {
	var notApproved *service.NotApprovedError
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrAccountNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidOrExpiredCode):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &notApproved):
		return utils.SendError(c, fiber.StatusForbidden, notApproved.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("login failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "login failed")
	}
}

func (h *AuthHandler) forgotPassword(c *fiber.Ctx) error {
	var payload dto.ForgotPasswordRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	if err := h.auth.RequestPasswordReset(c.Context(), payload); err != nil {
		return h.credentialMailError(c, err, "password reset request failed")
	}

	return utils.SendSuccess(c, "password reset email sent", nil)
}

func (h *AuthHandler) requestLoginCode(c *fiber.Ctx) error {
	var payload dto.OneTimeCodeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	if err := h.auth.RequestOneTimeCode(c.Context(), payload); err != nil {
		return h.credentialMailError(c, err, "login code request failed")
	}

	return utils.SendSuccess(c, "login code sent to your email", nil)
}

// credentialMailError maps the failures of the two flows that depend on
// outbound email; their delivery errors are not swallowed.
func (h *AuthHandler) credentialMailError(c *fiber.Ctx, err error, logMsg string) error {
	switch {
	case errors.Is(err, service.ErrAccountNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrRequestThrottled):
		return utils.SendError(c, fiber.StatusTooManyRequests, err.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(logMsg)
		return utils.SendError(c, fiber.StatusInternalServerError, logMsg)
	}
}

func (h *AuthHandler) resetPassword(c *fiber.Ctx) error {
	var payload dto.ResetPasswordRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	if err := h.auth.ResetPassword(c.Context(), payload); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidOrExpiredToken):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("password reset failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "password reset failed")
		}
	}

	return utils.SendSuccess(c, "password changed", nil)
}

func (h *AuthHandler) loginWithCode(c *fiber.Ctx) error {
	var payload dto.OneTimeCodeLoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	session, err := h.auth.LoginWithOneTimeCode(c.Context(), payload)
	if err != nil {
		return h.loginError(c, err)
	}

	return utils.SendSuccess(c, "login successful", session)
}

func (h *AuthHandler) me(c *fiber.Ctx) error {
	profile, err := h.auth.GetProfile(c.Context(), userIDFromContext(c))
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to fetch profile")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to fetch profile")
	}

	return utils.SendSuccess(c, "profile retrieved", profile)
}

func (h *AuthHandler) updateProfile(c *fiber.Ctx) error {
	var payload dto.UpdateProfileRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	profile, err := h.auth.UpdateProfile(c.Context(), userIDFromContext(c), payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		case errors.Is(err, service.ErrAccountNotFound):
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("profile update failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "profile update failed")
		}
	}

	return utils.SendSuccess(c, "profile updated", profile)
}

func (h *AuthHandler) changePassword(c *fiber.Ctx) error {
	var payload dto.ChangePasswordRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	if err := h.auth.ChangePassword(c.Context(), userIDFromContext(c), payload); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			return utils.SendError(c, fiber.StatusBadRequest, "current password is incorrect")
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("password change failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "password change failed")
		}
	}

	return utils.SendSuccess(c, "password changed", nil)
}

func (h *AuthHandler) updateProfilePhoto(c *fiber.Ctx) error {
	file, err := c.FormFile("profile_photo")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "profile photo file missing")
	}

	stored, err := h.uploads.Store(c.Context(), service.DocumentProfilePhoto, file)
	if err != nil {
		return h.uploadError(c, err)
	}

	profile, err := h.auth.UpdateProfilePhoto(c.Context(), userIDFromContext(c), stored)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("profile photo update failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "profile photo update failed")
	}

	return utils.SendSuccess(c, "profile photo updated", profile)
}
