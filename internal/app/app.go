package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Ananth-NQI/menubot-backend/database"
	"github.com/Ananth-NQI/menubot-backend/internal/config"
	"github.com/Ananth-NQI/menubot-backend/internal/services"
	"github.com/Ananth-NQI/menubot-backend/internal/storage"
)

// Version is overridden at build time with -ldflags "-X .../internal/app.Version=...".
var Version = "dev"

// Components holds the storage and processing graph shared by the server and
// the operator CLI.
type Components struct {
	Store       storage.Store
	StorageKind string
	Locker      services.SenderLocker
	LockerKind  string
	Engine      *services.DialogEngine
	Processor   *services.MessageProcessor
	// Ping checks the database; nil for the memory store.
	Ping func(ctx context.Context) error

	closers []func() error
}

// Build connects the store and locker selected by cfg and wires the
// dialog engine and message processor on top of them.
func Build(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Components, error) {
	c := &Components{}

	if cfg.Database.UseMemoryStore {
		log.Warn("using in-memory storage, data is lost on restart")
		c.Store = storage.NewMemoryStore()
		c.StorageKind = "memory"
	} else {
		db, err := database.Connect(cfg.Database.DSN, log)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("database handle: %w", err)
		}
		c.closers = append(c.closers, sqlDB.Close)

		if err := database.Migrate(db); err != nil {
			_ = c.Close()
			return nil, err
		}
		c.Store = storage.NewDatabaseStore(db)
		c.StorageKind = "postgres"
		c.Ping = func(ctx context.Context) error { return sqlDB.PingContext(ctx) }
	}

	if cfg.Redis.Addr != "" {
		rdb, err := database.ConnectRedis(ctx, cfg.Redis, log)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		c.closers = append(c.closers, rdb.Close)
		c.Locker = services.NewRedisLocker(rdb, cfg.Redis.LockTTL, log)
		c.LockerKind = "redis"
	} else {
		c.Locker = services.NewMemoryLocker()
		c.LockerKind = "memory"
	}

	c.Engine = services.NewDialogEngine(log, c.Store, c.Store, c.Store,
		services.WithSessionTTL(cfg.Dialog.SessionTTL),
		services.WithSearchLimit(cfg.Dialog.SearchLimit),
	)
	c.Processor = services.NewMessageProcessor(log, c.Engine, c.Store, c.Locker)
	return c, nil
}

// Close releases connections in reverse order of acquisition.
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
