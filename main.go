package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/Ananth-NQI/menubot-backend/internal/app"
	"github.com/Ananth-NQI/menubot-backend/internal/config"
	"github.com/Ananth-NQI/menubot-backend/internal/handlers"
	"github.com/Ananth-NQI/menubot-backend/internal/jobs"
	"github.com/Ananth-NQI/menubot-backend/internal/middleware"
	"github.com/Ananth-NQI/menubot-backend/internal/routes"
	"github.com/Ananth-NQI/menubot-backend/internal/services"
	"github.com/Ananth-NQI/menubot-backend/internal/utils"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := utils.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	comps, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := comps.Close(); err != nil {
			log.Error("close connections", slog.Any("error", err))
		}
	}()

	var sender handlers.ReplySender
	if cfg.TwilioConfigured() {
		twilioService, err := services.NewTwilioService(cfg.Twilio, log)
		if err != nil {
			return err
		}
		sender = twilioService
	} else {
		log.Warn("twilio credentials not found, replies will only be logged")
	}

	var (
		tokens       *middleware.AdminTokens
		adminHandler *handlers.AdminHandler
	)
	if cfg.Admin.JWTSecret != "" {
		tokens = middleware.NewAdminTokens(cfg.Admin.JWTSecret, cfg.Admin.JWTIssuer)
		adminHandler = handlers.NewAdminHandler(log, comps.Store, comps.Store)
	}

	cleanup := jobs.NewSessionCleanupJob(comps.Store, cfg.Dialog.SweepInterval, cfg.Dialog.SessionTTL, log)
	cleanup.Start(ctx)
	defer cleanup.Stop()

	fiberApp := fiber.New(fiber.Config{
		AppName: "MenuBot Backend " + app.Version,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	fiberApp.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	fiberApp.Use(recover.New())
	fiberApp.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	routes.SetupRoutes(fiberApp, cfg, routes.Handlers{
		WhatsApp: handlers.NewWhatsAppHandler(log, comps.Processor, comps.Store, sender, services.UnavailableTranscriber{}),
		Health:   handlers.NewHealthHandler(app.Version, comps.StorageKind, comps.LockerKind, comps.Ping),
		Admin:    adminHandler,
	}, tokens, log)

	go func() {
		<-ctx.Done()
		log.Info("shutting down server")
		if err := fiberApp.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("server shutdown", slog.Any("error", err))
		}
	}()

	log.Info("menubot backend starting",
		slog.String("port", cfg.Server.Port),
		slog.String("environment", cfg.Server.Environment),
		slog.String("storage", comps.StorageKind),
		slog.String("locker", comps.LockerKind),
		slog.Bool("whatsapp", sender != nil),
	)
	return fiberApp.Listen(":" + cfg.Server.Port)
}
