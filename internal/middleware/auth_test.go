package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protectedApp() *fiber.App {
	app := fiber.New()
	app.Get("/me", Protected(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userId": GetUserID(c)})
	})
	return app
}

func TestProtectedAcceptsValidToken(t *testing.T) {
	app := protectedApp()
	userID := uuid.New()

	token, err := GenerateToken(userID, "user@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestProtectedRejectsMissingAndMalformedHeaders(t *testing.T) {
	app := protectedApp()

	req := httptest.NewRequest("GET", "/me", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "not-a-bearer-token")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedRejectsWrongSignature(t *testing.T) {
	app := protectedApp()

	claims := Claims{UserID: uuid.New(), Email: "user@example.com"}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("some-other-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
