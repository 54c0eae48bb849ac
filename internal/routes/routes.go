package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/menubot-backend/internal/config"
	"github.com/Ananth-NQI/menubot-backend/internal/handlers"
	"github.com/Ananth-NQI/menubot-backend/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by SetupRoutes. Admin may be nil
// when no admin secret is configured.
type Handlers struct {
	WhatsApp *handlers.WhatsAppHandler
	Health   *handlers.HealthHandler
	Admin    *handlers.AdminHandler
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, cfg *config.Config, h Handlers, tokens *middleware.AdminTokens, log *slog.Logger) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "MenuBot Backend",
			"endpoints": fiber.Map{
				"health":  "/health",
				"webhook": "/webhook/whatsapp",
				"admin":   "/admin",
			},
		})
	})

	app.Get("/health", h.Health.Check)

	// ========== WEBHOOK ROUTES ==========
	webhooks := app.Group("/webhook")
	if cfg.IsDevelopment() || cfg.Twilio.DisableWebhookValidation {
		log.Warn("whatsapp webhook signature validation disabled")
		webhooks.Post("/whatsapp", h.WhatsApp.HandleWebhook)
	} else {
		webhooks.Post("/whatsapp",
			middleware.ValidateTwilioSignature(cfg.Twilio.AuthToken, cfg.Server.PublicBaseURL, log),
			h.WhatsApp.HandleWebhook,
		)
	}

	// ========== TEST ROUTES ==========
	if cfg.Server.EnableTestRoutes {
		log.Warn("test routes enabled")
		app.Post("/test/whatsapp", h.WhatsApp.HandleTestWebhook)
	}

	// ========== ADMIN ROUTES ==========
	if h.Admin == nil || tokens == nil {
		log.Info("admin API disabled, ADMIN_JWT_SECRET not set")
		return
	}
	admin := app.Group("/admin", middleware.AdminAuth(tokens))
	admin.Get("/menu", h.Admin.SearchMenu)
	admin.Get("/audit", h.Admin.ListAudit)
}
