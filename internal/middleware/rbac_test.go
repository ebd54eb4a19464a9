package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/kopma-dev/kopma-api/internal/models"
)

func rbacTestApp(role string, allowed ...string) *fiber.App {
	app := fiber.New()
	app.Get("/guarded", func(c *fiber.Ctx) error {
		if role != "" {
			c.Locals(LocalUserRole, role)
		}
		return c.Next()
	}, RequireRole(allowed...), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func requestStatus(t *testing.T, app *fiber.App) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/guarded", nil), -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestRequireRoleAllowsListedRoles(t *testing.T) {
	app := rbacTestApp(models.RolePSDA, models.RolePSDA, models.RoleAdmin)
	require.Equal(t, fiber.StatusOK, requestStatus(t, app))

	app = rbacTestApp(models.RoleAdmin, models.RolePSDA, models.RoleAdmin)
	require.Equal(t, fiber.StatusOK, requestStatus(t, app))
}

func TestRequireRoleBlocksOtherRoles(t *testing.T) {
	app := rbacTestApp(models.RoleMember, models.RolePSDA, models.RoleAdmin)
	require.Equal(t, fiber.StatusForbidden, requestStatus(t, app))
}

func TestRequireRoleBlocksMissingRole(t *testing.T) {
	app := rbacTestApp("", models.RoleAdmin)
	require.Equal(t, fiber.StatusForbidden, requestStatus(t, app))
}

func TestRequireRoleIgnoresCase(t *testing.T) {
	app := rbacTestApp("ADMIN", models.RoleAdmin)
	require.Equal(t, fiber.StatusOK, requestStatus(t, app))
}
