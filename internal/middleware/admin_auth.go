package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const tenantIDKey = "tenantID"

var errInvalidToken = errors.New("invalid token")

// AdminTokens issues and verifies HS256 tokens whose subject is a tenant ID.
type AdminTokens struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewAdminTokens creates a token manager for secret and issuer.
func NewAdminTokens(secret, issuer string) *AdminTokens {
	return &AdminTokens{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Issue returns a signed token for tenantID valid for ttl.
func (t *AdminTokens) Issue(tenantID string, ttl time.Duration) (string, error) {
	if tenantID == "" {
		return "", errors.New("tenant id is required")
	}
	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:   tenantID,
		Issuer:    t.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer and expiry and returns the tenant ID.
func (t *AdminTokens) Verify(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(raw, &claims,
		func(token *jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", errInvalidToken
	}
	return claims.Subject, nil
}

// AdminAuth requires a valid bearer token and stores its tenant in the context.
func AdminAuth(tokens *AdminTokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if !ok || raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing bearer token",
			})
		}

		tenantID, err := tokens.Verify(strings.TrimSpace(raw))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals(tenantIDKey, tenantID)
		return c.Next()
	}
}

// TenantID returns the tenant set by AdminAuth, or "".
func TenantID(c *fiber.Ctx) string {
	id, _ := c.Locals(tenantIDKey).(string)
	return id
}
