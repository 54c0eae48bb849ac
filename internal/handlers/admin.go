package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/menubot-backend/internal/middleware"
	"github.com/Ananth-NQI/menubot-backend/internal/models"
	"github.com/Ananth-NQI/menubot-backend/internal/services"
	"github.com/Ananth-NQI/menubot-backend/internal/storage"
)

const (
	defaultAuditLimit = 20
	maxListLimit      = 100
)

type auditReader interface {
	RecentAudit(ctx context.Context, tenantID string, limit int) ([]models.AuditRecord, error)
}

// AdminHandler serves the tenant-scoped admin API. The tenant always comes
// from the verified token, never from the request.
type AdminHandler struct {
	catalog storage.CatalogStore
	audit   auditReader
	log     *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(log *slog.Logger, catalog storage.CatalogStore, audit auditReader) *AdminHandler {
	return &AdminHandler{
		catalog: catalog,
		audit:   audit,
		log:     log,
	}
}

// SearchMenu lists the tenant's items whose name contains q.
func (h *AdminHandler) SearchMenu(c *fiber.Ctx) error {
	tenantID := middleware.TenantID(c)
	limit, err := queryLimit(c, services.DefaultSearchLimit)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	gw := services.NewCatalogGateway(h.catalog, tenantID, limit)
	items, err := gw.SearchByNameContains(c.UserContext(), c.Query("q"))
	if errors.Is(err, models.ErrValidation) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "query parameter q is required"})
	}
	if err != nil {
		h.log.Error("admin menu search failed", slog.String("tenant_id", tenantID), slog.Any("error", err))
		return fiber.NewError(fiber.StatusInternalServerError, "search failed")
	}

	return c.JSON(fiber.Map{
		"items": items,
		"count": len(items),
	})
}

// ListAudit returns the tenant's most recent audit records, newest first.
func (h *AdminHandler) ListAudit(c *fiber.Ctx) error {
	tenantID := middleware.TenantID(c)
	limit, err := queryLimit(c, defaultAuditLimit)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	recs, err := h.audit.RecentAudit(c.UserContext(), tenantID, limit)
	if err != nil {
		h.log.Error("admin audit listing failed", slog.String("tenant_id", tenantID), slog.Any("error", err))
		return fiber.NewError(fiber.StatusInternalServerError, "audit listing failed")
	}

	return c.JSON(fiber.Map{
		"records": recs,
		"count":   len(recs),
	})
}

func queryLimit(c *fiber.Ctx, def int) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	return min(n, maxListLimit), nil
}
