package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/kopma-dev/kopma-api/internal/dto"
	"github.com/kopma-dev/kopma-api/internal/models"
	"github.com/kopma-dev/kopma-api/internal/repository"
)

// Authentication errors surfaced to handlers.
var (
	ErrDuplicateIdentity     = errors.New("student number or email already registered")
	ErrMissingDocuments      = errors.New("identity card, supporting file and profile photo are required")
	ErrInvalidCredentials    = errors.New("invalid student number or password")
	ErrAccountNotFound       = errors.New("account not found")
	ErrInvalidOrExpiredToken = errors.New("reset token is invalid or expired")
	ErrInvalidOrExpiredCode  = errors.New("login code is invalid or expired")
	ErrEmailTaken            = errors.New("email already in use by another account")
	ErrRequestThrottled      = errors.New("a code was sent recently, try again in a minute")
)

// NotApprovedError is returned when a member whose application is not yet
// approved attempts to log in. The message depends on the application state.
type NotApprovedError struct {
	Status string
	Reason string
}

func (e *NotApprovedError) Error() string {
	if e.Status == models.StatusRejected {
		reason := e.Reason
		if reason == "" {
			reason = "no specific reason given"
		}
		return fmt.Sprintf("your application was rejected. reason: %s", reason)
	}
	return "your account has not been approved yet"
}

// bcrypt hash of an empty password, compared against when the account does
// not exist so that lookups and mismatches take similar time.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// AuthConfig carries the knobs of the authentication engine.
type AuthConfig struct {
	JWTSecret       string
	TokenTTL        time.Duration
	ResetTokenTTL   time.Duration
	OneTimeCodeTTL  time.Duration
	AppBaseURL      string
	RequestCooldown time.Duration
}

// AuthService implements registration, the three login flows and credential
// maintenance for the authenticated user.
type AuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest, docs dto.RegisterDocuments) (dto.UserResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (dto.AuthResponse, error)
	RequestPasswordReset(ctx context.Context, req dto.ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req dto.ResetPasswordRequest) error
	RequestOneTimeCode(ctx context.Context, req dto.OneTimeCodeRequest) error
	LoginWithOneTimeCode(ctx context.Context, req dto.OneTimeCodeLoginRequest) (dto.AuthResponse, error)
	ChangePassword(ctx context.Context, userID uint, req dto.ChangePasswordRequest) error
	GetProfile(ctx context.Context, userID uint) (dto.UserResponse, error)
	UpdateProfile(ctx context.Context, userID uint, req dto.UpdateProfileRequest) (dto.UserResponse, error)
	UpdateProfilePhoto(ctx context.Context, userID uint, filename string) (dto.UserResponse, error)
}

type authService struct {
	repo          repository.UserRepository
	notifications NotificationService
	activity      ActivityRecorder
	validator     *validator.Validate
	redis         *redis.Client
	cfg           AuthConfig
	logger        zerolog.Logger
}

// NewAuthService constructs the authentication engine. The redis client is
// optional; without it the OTP/reset request cooldown is disabled.
func NewAuthService(
	repo repository.UserRepository,
	notifications NotificationService,
	activity ActivityRecorder,
	validate *validator.Validate,
	redisClient *redis.Client,
	cfg AuthConfig,
	logger zerolog.Logger,
) AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = 10 * time.Minute
	}
	if cfg.OneTimeCodeTTL <= 0 {
		cfg.OneTimeCodeTTL = 5 * time.Minute
	}
	if cfg.RequestCooldown <= 0 {
		cfg.RequestCooldown = time.Minute
	}

	return &authService{
		repo:          repo,
		notifications: notifications,
		activity:      activity,
		validator:     validate,
		redis:         redisClient,
		cfg:           cfg,
		logger:        logger.With().Str("component", "auth_service").Logger(),
	}
}

func (s *authService) Register(ctx context.Context, req dto.RegisterRequest, docs dto.RegisterDocuments) (dto.UserResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, err
	}

	if docs.IdentityCard == "" || docs.Supporting == "" || docs.ProfilePhoto == "" {
		return dto.UserResponse{}, ErrMissingDocuments
	}

	studentNumber := strings.TrimSpace(req.StudentNumber)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	taken, err := s.repo.IdentityTaken(ctx, studentNumber, email)
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

	user := models.User{
		StudentNumber:    &studentNumber,
		Name:             strings.TrimSpace(req.Name),
		Email:            email,
		PasswordHash:     string(hash),
		Role:             models.RoleMember,
		Status:           models.StatusPending,
		Faculty:          strings.TrimSpace(req.Faculty),
		Department:       strings.TrimSpace(req.Department),
		IdentityCardFile: docs.IdentityCard,
		SupportingFile:   docs.Supporting,
		ProfilePhotoFile: docs.ProfilePhoto,
	}

	if err := s.repo.Create(ctx, &user); err != nil {
		// The unique constraints close the check-then-create race.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.UserResponse{}, ErrDuplicateIdentity
		}
		return dto.UserResponse{}, err
	}

	// Registration succeeds even when the confirmation email does not go out.
	if err := s.notifications.SendRegistrationReceived(user.Email, user.Name); err != nil {
		s.logger.Warn().Err(err).Uint("user_id", user.ID).Msg("registration email failed")
	}

	return dto.NewUserResponse(user), nil
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (dto.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AuthResponse{}, err
	}

	user, err := s.repo.FindByStudentNumber(ctx, strings.TrimSpace(req.StudentNumber))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Burn a comparison so missing accounts are not distinguishable
			// from wrong passwords by timing.
			_ = bcrypt.CompareHashAndPassword([]byte(dummyPasswordHash), []byte(req.Password))
			return dto.AuthResponse{}, ErrInvalidCredentials
		}
		return dto.AuthResponse{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return dto.AuthResponse{}, ErrInvalidCredentials
	}

	if err := approvalGate(user); err != nil {
		return dto.AuthResponse{}, err
	}

	return s.issueSession(ctx, user, fmt.Sprintf("%s logged in", user.Name))
}

func (s *authService) RequestPasswordReset(ctx context.Context, req dto.ForgotPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return err
	}

	if err := s.cooldown(ctx, "reset", req.StudentNumber); err != nil {
		return err
	}

	user, err := s.findByPair(ctx, req.StudentNumber, req.Email)
	if err != nil {
		return err
	}

	token, err := newResetToken()
	if err != nil {
		return err
	}

	credential := repository.ResetCredential{
		TokenHash: hashToken(token),
		ExpiresAt: time.Now().Add(s.cfg.ResetTokenTTL),
	}
	if err := s.repo.SetResetCredential(ctx, user.ID, credential); err != nil {
		return err
	}

	// The flow is useless without the email, so delivery failures surface.
	resetURL := fmt.Sprintf("%s/#/reset-password?token=%s", strings.TrimRight(s.cfg.AppBaseURL, "/"), token)
	return s.notifications.SendPasswordResetLink(user.Email, user.Name, resetURL)
}

func (s *authService) ResetPassword(ctx context.Context, req dto.ResetPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return err
	}

	user, err := s.repo.FindByResetTokenHash(ctx, hashToken(req.Token), time.Now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	// One write: the token must not survive the password it unlocked.
	if err := s.repo.ResetPassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}

	s.activity.Record(ctx, ActivityEntry{
		Actor:       ActivityActor{ID: user.ID, Name: user.Name, Role: user.Role},
		Action:      models.ActionChangePassword,
		Description: fmt.Sprintf("%s reset their password", user.Name),
	})
	return nil
}

func (s *authService) RequestOneTimeCode(ctx context.Context, req dto.OneTimeCodeRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return err
	}

	if err := s.cooldown(ctx, "otp", req.StudentNumber); err != nil {
		return err
	}

	user, err := s.findByPair(ctx, req.StudentNumber, req.Email)
	if err != nil {
		return err
	}

	code, err := newOneTimeCode()
	if err != nil {
		return err
	}

	credential := repository.OneTimeCredential{
		CodeHash:  hashToken(code),
		ExpiresAt: time.Now().Add(s.cfg.OneTimeCodeTTL),
	}
	if err := s.repo.SetOneTimeCredential(ctx, user.ID, credential); err != nil {
		return err
	}

	return s.notifications.SendOneTimeCode(user.Email, user.Name, code)
}

func (s *authService) LoginWithOneTimeCode(ctx context.Context, req dto.OneTimeCodeLoginRequest) (dto.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AuthResponse{}, err
	}

	user, err := s.findByPair(ctx, req.StudentNumber, req.Email)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	if user.OneTimeCodeHash == nil || user.OneTimeCodeExpiry == nil ||
		!tokenHashEquals(*user.OneTimeCodeHash, hashToken(req.Code)) ||
		!time.Now().Before(*user.OneTimeCodeExpiry) {
		return dto.AuthResponse{}, ErrInvalidOrExpiredCode
	}

	if err := approvalGate(user); err != nil {
		return dto.AuthResponse{}, err
	}

	if err := s.repo.ClearOneTimeCredential(ctx, user.ID); err != nil {
		return dto.AuthResponse{}, err
	}

	return s.issueSession(ctx, user, fmt.Sprintf("%s logged in with a one-time code", user.Name))
}

func (s *authService) ChangePassword(ctx context.Context, userID uint, req dto.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return err
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAccountNotFound
		}
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}

	s.activity.Record(ctx, ActivityEntry{
		Actor:       ActivityActor{ID: user.ID, Name: user.Name, Role: user.Role},
		Action:      models.ActionChangePassword,
		Description: fmt.Sprintf("%s changed their password", user.Name),
	})
	return nil
}

func (s *authService) GetProfile(ctx context.Context, userID uint) (dto.UserResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrAccountNotFound
		}
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user), nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID uint, req dto.UpdateProfileRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, err
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		taken, err := s.repo.EmailTakenByOther(ctx, email, userID)
		if err != nil {
			return dto.UserResponse{}, err
		}
		if taken {
			return dto.UserResponse{}, ErrEmailTaken
		}
		updates["email"] = email
	}

	if len(updates) == 0 {
		return s.GetProfile(ctx, userID)
	}

	user, err := s.repo.Update(ctx, userID, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrAccountNotFound
		}
		return dto.UserResponse{}, err
	}

	s.activity.Record(ctx, ActivityEntry{
		Actor:       ActivityActor{ID: user.ID, Name: user.Name, Role: user.Role},
		Action:      models.ActionUpdateProfile,
		Description: fmt.Sprintf("%s updated their profile", user.Name),
	})
	return dto.NewUserResponse(user), nil
}

func (s *authService) UpdateProfilePhoto(ctx context.Context, userID uint, filename string) (dto.UserResponse, error) {
	user, err := s.repo.Update(ctx, userID, map[string]interface{}{"profile_photo_file": filename})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrAccountNotFound
		}
		return dto.UserResponse{}, err
	}

	s.activity.Record(ctx, ActivityEntry{
		Actor:       ActivityActor{ID: user.ID, Name: user.Name, Role: user.Role},
		Action:      models.ActionUpdateProfile,
		Description: fmt.Sprintf("%s updated their profile photo", user.Name),
	})
	return dto.NewUserResponse(user), nil
}

func (s *authService) findByPair(ctx context.Context, studentNumber, email string) (models.User, error) {
	user, err := s.repo.FindByStudentNumberAndEmail(ctx,
		strings.TrimSpace(studentNumber),
		strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrAccountNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// cooldown enforces a short gap between outbound credential emails for the
// same account. A redis outage disables the guard rather than the flow.
func (s *authService) cooldown(ctx context.Context, kind, studentNumber string) error {
	if s.redis == nil {
		return nil
	}

	key := fmt.Sprintf("authmail:%s:%s", kind, strings.TrimSpace(studentNumber))
	ok, err := s.redis.SetNX(ctx, key, 1, s.cfg.RequestCooldown).Result()
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cooldown check failed, allowing request")
		return nil
	}
	if !ok {
		return ErrRequestThrottled
	}
	return nil
}

func (s *authService) issueSession(ctx context.Context, user models.User, description string) (dto.AuthResponse, error) {
	token, err := s.signSessionToken(user.ID)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	s.activity.Record(ctx, ActivityEntry{
		Actor:       ActivityActor{ID: user.ID, Name: user.Name, Role: user.Role},
		Action:      models.ActionLogin,
		Description: description,
	})

	return dto.AuthResponse{Token: token, User: dto.NewUserResponse(user)}, nil
}

// signSessionToken issues the stateless bearer token. Only the durable user
// id is embedded; the role is resolved from the store on every request.
func (s *authService) signSessionToken(userID uint) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iat": now.Unix(),
		"exp": now.Add(s.cfg.TokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// approvalGate blocks members whose application has not been approved.
// Staff accounts are auto-approved on creation and pass unconditionally.
func approvalGate(user models.User) error {
	if user.Role != models.RoleMember || user.Status == models.StatusApproved {
		return nil
	}

	notApproved := &NotApprovedError{Status: user.Status}
	if user.RejectionReason != nil {
		notApproved.Reason = *user.RejectionReason
	}
	return notApproved
}
