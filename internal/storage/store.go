package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Ananth-NQI/menubot-backend/internal/models"
)

// SessionStore keeps the single current dialogue per (tenant, sender).
type SessionStore interface {
	// GetSession returns models.ErrNotFound when the pair has no record.
	GetSession(ctx context.Context, tenantID, sender string) (*models.DialogSession, error)
	// SaveSession writes s if the stored version still equals s.Version
	// (0 means "must not exist yet") and bumps s.Version on success.
	// A lost race returns models.ErrConflict.
	SaveSession(ctx context.Context, s *models.DialogSession) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

// AuditLog is the append-only record of processed messages.
type AuditLog interface {
	AppendAudit(ctx context.Context, rec *models.AuditRecord) error
	AuditExists(ctx context.Context, tenantID, messageID string) (bool, error)
	RecentAudit(ctx context.Context, tenantID string, limit int) ([]models.AuditRecord, error)
}

// CatalogStore holds menu items. Every method filters on tenantID.
type CatalogStore interface {
	InsertMenuItem(ctx context.Context, item *models.MenuItem) error
	// UpdatePriceByNameContains sets the price of every item whose name contains
	// fragment (case-insensitive) and returns the affected items.
	UpdatePriceByNameContains(ctx context.Context, tenantID, fragment string, price decimal.Decimal) ([]models.MenuItem, error)
	SetAvailabilityByNameContains(ctx context.Context, tenantID, fragment string, available bool) ([]models.MenuItem, error)
	// SearchByNameContains returns at most limit items ordered by creation time.
	SearchByNameContains(ctx context.Context, tenantID, query string, limit int) ([]models.MenuItem, error)
}

// TenantRegistry resolves inbound senders to the tenant they administer.
type TenantRegistry interface {
	CreateTenant(ctx context.Context, t *models.Tenant) error
	TenantByPhone(ctx context.Context, phone string) (*models.Tenant, error)
	ListTenants(ctx context.Context) ([]models.Tenant, error)
}

// Store bundles every collaborator the service needs.
type Store interface {
	SessionStore
	AuditLog
	CatalogStore
	TenantRegistry
}
