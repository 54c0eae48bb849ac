package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	Version     string
	StorageKind string
	LockerKind  string
	ping        func(ctx context.Context) error
}

// NewHealthHandler creates a new health handler. ping may be nil when the
// store has nothing to check.
func NewHealthHandler(version, storageKind, lockerKind string, ping func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{
		Version:     version,
		StorageKind: storageKind,
		LockerKind:  lockerKind,
		ping:        ping,
	}
}

// Check returns the health status of the service
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status, database := "OK", "n/a"
	code := fiber.StatusOK
	if h.ping != nil {
		database = "up"
		if err := h.ping(c.UserContext()); err != nil {
			status, database = "DEGRADED", "down"
			code = fiber.StatusServiceUnavailable
		}
	}

	return c.Status(code).JSON(fiber.Map{
		"status":   status,
		"service":  "MenuBot Backend",
		"version":  h.Version,
		"storage":  h.StorageKind,
		"locker":   h.LockerKind,
		"database": database,
	})
}
