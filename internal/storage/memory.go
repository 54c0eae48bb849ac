package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Ananth-NQI/menubot-backend/internal/models"
)

// MemoryStore holds all data in memory. Used by tests and USE_MEMORY_STORE.
type MemoryStore struct {
	sessions map[string]*models.DialogSession
	audit    []models.AuditRecord
	items    map[string][]*models.MenuItem // by tenant, in creation order
	tenants  map[string]*models.Tenant
	phones   map[string]string // phone -> tenant ID

	// Mutexes for thread safety
	sessionMu sync.RWMutex
	auditMu   sync.RWMutex
	itemMu    sync.RWMutex
	tenantMu  sync.RWMutex

	now func() time.Time
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.DialogSession),
		items:    make(map[string][]*models.MenuItem),
		tenants:  make(map[string]*models.Tenant),
		phones:   make(map[string]string),
		now:      time.Now,
	}
}

var _ Store = (*MemoryStore)(nil)

func sessionKey(tenantID, sender string) string {
	return tenantID + "\x00" + sender
}

// Session operations

func (m *MemoryStore) GetSession(ctx context.Context, tenantID, sender string) (*models.DialogSession, error) {
	m.sessionMu.RLock()
	defer m.sessionMu.RUnlock()

	s, ok := m.sessions[sessionKey(tenantID, sender)]
	if !ok {
		return nil, fmt.Errorf("dialog session %s/%s: %w", tenantID, sender, models.ErrNotFound)
	}
	return cloneSession(s), nil
}

func (m *MemoryStore) SaveSession(ctx context.Context, s *models.DialogSession) error {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	key := sessionKey(s.TenantID, s.Sender)
	existing, ok := m.sessions[key]
	switch {
	case s.Version == 0 && ok:
		return fmt.Errorf("dialog session %s/%s: %w", s.TenantID, s.Sender, models.ErrConflict)
	case s.Version != 0 && (!ok || existing.Version != s.Version):
		return fmt.Errorf("dialog session %s/%s version %d: %w", s.TenantID, s.Sender, s.Version, models.ErrConflict)
	}

	now := m.now()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	s.Version++
	m.sessions[key] = cloneSession(s)
	return nil
}

func (m *MemoryStore) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	var n int64
	for key, s := range m.sessions {
		if s.ExpiresAt.Before(before) {
			delete(m.sessions, key)
			n++
		}
	}
	return n, nil
}

func cloneSession(s *models.DialogSession) *models.DialogSession {
	c := *s
	if s.Form.Name != nil {
		name := *s.Form.Name
		c.Form.Name = &name
	}
	if s.Form.Price != nil {
		price := *s.Form.Price
		c.Form.Price = &price
	}
	if s.Form.Available != nil {
		available := *s.Form.Available
		c.Form.Available = &available
	}
	return &c
}

// Audit operations

func (m *MemoryStore) AppendAudit(ctx context.Context, rec *models.AuditRecord) error {
	m.auditMu.Lock()
	defer m.auditMu.Unlock()

	if rec.MessageID != nil {
		for _, r := range m.audit {
			if r.TenantID == rec.TenantID && r.MessageID != nil && *r.MessageID == *rec.MessageID {
				return fmt.Errorf("audit record %s/%s: %w", rec.TenantID, *rec.MessageID, models.ErrAlreadyExists)
			}
		}
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = m.now()
	}
	m.audit = append(m.audit, *rec)
	return nil
}

func (m *MemoryStore) AuditExists(ctx context.Context, tenantID, messageID string) (bool, error) {
	m.auditMu.RLock()
	defer m.auditMu.RUnlock()

	for _, r := range m.audit {
		if r.TenantID == tenantID && r.MessageID != nil && *r.MessageID == messageID {
			return true, nil
		}
	}
	return false, nil
}

// RecentAudit returns the newest records first.
func (m *MemoryStore) RecentAudit(ctx context.Context, tenantID string, limit int) ([]models.AuditRecord, error) {
	m.auditMu.RLock()
	defer m.auditMu.RUnlock()

	var out []models.AuditRecord
	for i := len(m.audit) - 1; i >= 0 && len(out) < limit; i-- {
		if m.audit[i].TenantID == tenantID {
			out = append(out, m.audit[i])
		}
	}
	return out, nil
}

// Catalog operations

func (m *MemoryStore) InsertMenuItem(ctx context.Context, item *models.MenuItem) error {
	m.itemMu.Lock()
	defer m.itemMu.Unlock()

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := m.now()
	item.CreatedAt = now
	item.UpdatedAt = now
	stored := *item
	m.items[item.TenantID] = append(m.items[item.TenantID], &stored)
	return nil
}

func (m *MemoryStore) UpdatePriceByNameContains(ctx context.Context, tenantID, fragment string, price decimal.Decimal) ([]models.MenuItem, error) {
	return m.updateMatching(tenantID, fragment, func(item *models.MenuItem) {
		item.Price = price
	})
}

func (m *MemoryStore) SetAvailabilityByNameContains(ctx context.Context, tenantID, fragment string, available bool) ([]models.MenuItem, error) {
	return m.updateMatching(tenantID, fragment, func(item *models.MenuItem) {
		item.Available = available
	})
}

func (m *MemoryStore) updateMatching(tenantID, fragment string, apply func(*models.MenuItem)) ([]models.MenuItem, error) {
	m.itemMu.Lock()
	defer m.itemMu.Unlock()

	var affected []models.MenuItem
	now := m.now()
	for _, item := range m.items[tenantID] {
		if nameContains(item.Name, fragment) {
			apply(item)
			item.UpdatedAt = now
			affected = append(affected, *item)
		}
	}
	return affected, nil
}

func (m *MemoryStore) SearchByNameContains(ctx context.Context, tenantID, query string, limit int) ([]models.MenuItem, error) {
	m.itemMu.RLock()
	defer m.itemMu.RUnlock()

	var found []models.MenuItem
	for _, item := range m.items[tenantID] {
		if len(found) == limit {
			break
		}
		if nameContains(item.Name, query) {
			found = append(found, *item)
		}
	}
	return found, nil
}

func nameContains(name, fragment string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(fragment))
}

// Tenant operations

func (m *MemoryStore) CreateTenant(ctx context.Context, t *models.Tenant) error {
	m.tenantMu.Lock()
	defer m.tenantMu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if _, exists := m.tenants[t.ID]; exists {
		return fmt.Errorf("tenant %s: %w", t.ID, models.ErrAlreadyExists)
	}
	for i := range t.Phones {
		phone := models.NormalizePhone(t.Phones[i].Phone)
		if _, taken := m.phones[phone]; taken {
			return fmt.Errorf("tenant phone %s: %w", phone, models.ErrAlreadyExists)
		}
		t.Phones[i].Phone = phone
		t.Phones[i].TenantID = t.ID
	}

	now := m.now()
	t.CreatedAt = now
	t.UpdatedAt = now
	stored := *t
	stored.Phones = append([]models.TenantPhone(nil), t.Phones...)
	m.tenants[t.ID] = &stored
	for _, p := range t.Phones {
		m.phones[p.Phone] = t.ID
	}
	return nil
}

func (m *MemoryStore) TenantByPhone(ctx context.Context, phone string) (*models.Tenant, error) {
	m.tenantMu.RLock()
	defer m.tenantMu.RUnlock()

	id, ok := m.phones[models.NormalizePhone(phone)]
	if !ok {
		return nil, fmt.Errorf("tenant for %s: %w", phone, models.ErrNotFound)
	}
	t := *m.tenants[id]
	return &t, nil
}

func (m *MemoryStore) ListTenants(ctx context.Context) ([]models.Tenant, error) {
	m.tenantMu.RLock()
	defer m.tenantMu.RUnlock()

	out := make([]models.Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
