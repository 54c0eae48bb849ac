package middleware

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-at-least-32-chars-long-for-security"

func TestAdminTokens_IssueAndVerify(t *testing.T) {
	tokens := NewAdminTokens(testSecret, "menubot-test")

	raw, err := tokens.Issue("tenant-1", time.Hour)
	require.NoError(t, err)

	tenantID, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", tenantID)

	_, err = tokens.Issue("", time.Hour)
	assert.Error(t, err)
}

func TestAdminTokens_Rejects(t *testing.T) {
	tokens := NewAdminTokens(testSecret, "menubot-test")

	t.Run("wrong secret", func(t *testing.T) {
		raw, err := NewAdminTokens("another-secret-that-is-long-enough-1234", "menubot-test").Issue("tenant-1", time.Hour)
		require.NoError(t, err)
		_, err = tokens.Verify(raw)
		assert.ErrorIs(t, err, errInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		raw, err := NewAdminTokens(testSecret, "someone-else").Issue("tenant-1", time.Hour)
		require.NoError(t, err)
		_, err = tokens.Verify(raw)
		assert.ErrorIs(t, err, errInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		issuer := NewAdminTokens(testSecret, "menubot-test")
		issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		raw, err := issuer.Issue("tenant-1", time.Hour)
		require.NoError(t, err)
		_, err = tokens.Verify(raw)
		assert.ErrorIs(t, err, errInvalidToken)
	})

	t.Run("other signing method", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Subject:   "tenant-1",
			Issuer:    "menubot-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = tokens.Verify(raw)
		assert.ErrorIs(t, err, errInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Verify("not-a-token")
		assert.ErrorIs(t, err, errInvalidToken)
	})
}

func TestAdminAuth(t *testing.T) {
	tokens := NewAdminTokens(testSecret, "menubot-test")
	app := fiber.New()
	app.Get("/who", AdminAuth(tokens), func(c *fiber.Ctx) error {
		return c.SendString(TenantID(c))
	})

	raw, err := tokens.Issue("tenant-42", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid token", "Bearer " + raw, fiber.StatusOK, "tenant-42"},
		{"missing header", "", fiber.StatusUnauthorized, ""},
		{"wrong scheme", "Basic " + raw, fiber.StatusUnauthorized, ""},
		{"invalid token", "Bearer abc", fiber.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/who", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.body != "" {
				body, _ := io.ReadAll(resp.Body)
				assert.Equal(t, tt.body, string(body))
			}
		})
	}
}
