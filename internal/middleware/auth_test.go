package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kopma-dev/kopma-api/internal/models"
	"github.com/kopma-dev/kopma-api/internal/repository"
)

const testSecret = "middleware-test-secret"

// stubUsers satisfies repository.UserRepository for the lookups the
// middleware performs; everything else is unreachable in these tests.
type stubUsers struct {
	repository.UserRepository
	user    models.User
	missing bool
}

func (s *stubUsers) GetByID(ctx context.Context, id uint) (models.User, error) {
	if s.missing || id != s.user.ID {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func signToken(t *testing.T, secret string, userID string) string {
	t.Helper()
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func authTestApp(users repository.UserRepository) *fiber.App {
	app := fiber.New()
	app.Get("/whoami", Authenticate(testSecret, users), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"id":   c.Locals(LocalUserID),
			"role": c.Locals(LocalUserRole),
			"name": c.Locals(LocalUserName),
		})
	})
	return app
}

func TestAuthenticateResolvesLiveRole(t *testing.T) {
	users := &stubUsers{user: models.User{
		ID:   7,
		Name: "Reviewer",
		Role: models.RolePSDA,
	}}
	app := authTestApp(users)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "7"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAuthenticateRejectsMissingHeader(t *testing.T) {
	app := authTestApp(&stubUsers{})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthenticateRejectsWrongSignature(t *testing.T) {
	users := &stubUsers{user: models.User{ID: 7, Role: models.RolePSDA}}
	app := authTestApp(users)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", "7"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthenticateRejectsDeletedAccount(t *testing.T) {
	users := &stubUsers{missing: true}
	app := authTestApp(users)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "42"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	users := &stubUsers{user: models.User{ID: 7, Role: models.RolePSDA}}
	app := authTestApp(users)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "7",
		"iat": time.Now().Add(-2 * time.Hour).Unix(),
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	signed, err := expired.SignedString([]byte(testSecret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
