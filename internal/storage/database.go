package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Ananth-NQI/menubot-backend/internal/models"
)

// DatabaseStore implements Store on PostgreSQL through gorm.
// The *gorm.DB must be opened with TranslateError enabled.
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a new database-backed store
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

var _ Store = (*DatabaseStore)(nil)

// AllModels lists every table owned by the store, in migration order.
func AllModels() []any {
	return []any{
		&models.Tenant{},
		&models.TenantPhone{},
		&models.MenuItem{},
		&models.DialogSession{},
		&models.AuditRecord{},
	}
}

// mapError converts gorm errors into the sentinel errors of the models package.
func mapError(err error, entity string, id string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%s %s: %w", entity, id, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s %s: %w", entity, id, models.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s %s: %w", entity, id, models.ErrAlreadyExists)
	}
	return fmt.Errorf("%s %s: %w", entity, id, err)
}

// likeContains builds an ILIKE pattern matching fragment anywhere in the value.
func likeContains(fragment string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(fragment) + "%"
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

func (d *DatabaseStore) GetSession(ctx context.Context, tenantID, sender string) (*models.DialogSession, error) {
	var s models.DialogSession
	err := d.db.WithContext(ctx).
		Where("tenant_id = ? AND sender = ?", tenantID, sender).
		First(&s).Error
	if err != nil {
		return nil, mapError(err, "dialog session", tenantID+"/"+sender)
	}
	return &s, nil
}

func (d *DatabaseStore) SaveSession(ctx context.Context, s *models.DialogSession) error {
	id := s.TenantID + "/" + s.Sender
	if s.Version == 0 {
		next := *s
		next.Version = 1
		if next.ID == "" {
			next.ID = uuid.NewString()
		}
		if err := d.db.WithContext(ctx).Create(&next).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("dialog session %s: %w", id, models.ErrConflict)
			}
			return mapError(err, "dialog session", id)
		}
		*s = next
		return nil
	}

	res := d.db.WithContext(ctx).
		Model(&models.DialogSession{}).
		Where("id = ? AND tenant_id = ? AND version = ?", s.ID, s.TenantID, s.Version).
		Select("state", "form", "version", "expires_at", "updated_at").
		Updates(&models.DialogSession{
			State:     s.State,
			Form:      s.Form,
			Version:   s.Version + 1,
			ExpiresAt: s.ExpiresAt,
			UpdatedAt: time.Now(),
		})
	if res.Error != nil {
		return mapError(res.Error, "dialog session", id)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("dialog session %s version %d: %w", id, s.Version, models.ErrConflict)
	}
	s.Version++
	return nil
}

func (d *DatabaseStore) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	res := d.db.WithContext(ctx).
		Where("expires_at < ?", before).
		Delete(&models.DialogSession{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete expired dialog sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ---------------------------------------------------------------------------
// Audit
// ---------------------------------------------------------------------------

func (d *DatabaseStore) AppendAudit(ctx context.Context, rec *models.AuditRecord) error {
	if err := d.db.WithContext(ctx).Create(rec).Error; err != nil {
		return mapError(err, "audit record", rec.TenantID)
	}
	return nil
}

func (d *DatabaseStore) AuditExists(ctx context.Context, tenantID, messageID string) (bool, error) {
	var n int64
	err := d.db.WithContext(ctx).
		Model(&models.AuditRecord{}).
		Where("tenant_id = ? AND message_id = ?", tenantID, messageID).
		Limit(1).
		Count(&n).Error
	if err != nil {
		return false, mapError(err, "audit record", tenantID+"/"+messageID)
	}
	return n > 0, nil
}

func (d *DatabaseStore) RecentAudit(ctx context.Context, tenantID string, limit int) ([]models.AuditRecord, error) {
	var recs []models.AuditRecord
	err := d.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, mapError(err, "audit records", tenantID)
	}
	return recs, nil
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

func (d *DatabaseStore) InsertMenuItem(ctx context.Context, item *models.MenuItem) error {
	if err := d.db.WithContext(ctx).Create(item).Error; err != nil {
		return mapError(err, "menu item", item.TenantID)
	}
	return nil
}

func (d *DatabaseStore) UpdatePriceByNameContains(ctx context.Context, tenantID, fragment string, price decimal.Decimal) ([]models.MenuItem, error) {
	return d.updateMatching(ctx, tenantID, fragment, "price", price)
}

func (d *DatabaseStore) SetAvailabilityByNameContains(ctx context.Context, tenantID, fragment string, available bool) ([]models.MenuItem, error) {
	return d.updateMatching(ctx, tenantID, fragment, "available", available)
}

func (d *DatabaseStore) updateMatching(ctx context.Context, tenantID, fragment, column string, value any) ([]models.MenuItem, error) {
	var items []models.MenuItem
	err := d.db.WithContext(ctx).
		Model(&items).
		Clauses(clause.Returning{}).
		Where("tenant_id = ? AND name ILIKE ?", tenantID, likeContains(fragment)).
		Update(column, value).Error
	if err != nil {
		return nil, mapError(err, "menu items", tenantID)
	}
	return items, nil
}

func (d *DatabaseStore) SearchByNameContains(ctx context.Context, tenantID, query string, limit int) ([]models.MenuItem, error) {
	var items []models.MenuItem
	err := d.db.WithContext(ctx).
		Where("tenant_id = ? AND name ILIKE ?", tenantID, likeContains(query)).
		Order("created_at ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, mapError(err, "menu items", tenantID)
	}
	return items, nil
}

// ---------------------------------------------------------------------------
// Tenants
// ---------------------------------------------------------------------------

func (d *DatabaseStore) CreateTenant(ctx context.Context, t *models.Tenant) error {
	if err := d.db.WithContext(ctx).Create(t).Error; err != nil {
		return mapError(err, "tenant", t.Name)
	}
	return nil
}

func (d *DatabaseStore) TenantByPhone(ctx context.Context, phone string) (*models.Tenant, error) {
	phone = models.NormalizePhone(phone)

	var link models.TenantPhone
	if err := d.db.WithContext(ctx).Where("phone = ?", phone).First(&link).Error; err != nil {
		return nil, mapError(err, "tenant phone", phone)
	}

	var t models.Tenant
	if err := d.db.WithContext(ctx).Where("id = ?", link.TenantID).First(&t).Error; err != nil {
		return nil, mapError(err, "tenant", link.TenantID)
	}
	return &t, nil
}

func (d *DatabaseStore) ListTenants(ctx context.Context) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := d.db.WithContext(ctx).
		Preload("Phones").
		Order("created_at ASC").
		Find(&tenants).Error
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return tenants, nil
}
