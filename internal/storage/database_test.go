package storage_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Ananth-NQI/menubot-backend/database"
	"github.com/Ananth-NQI/menubot-backend/internal/models"
	"github.com/Ananth-NQI/menubot-backend/internal/storage"
)

var (
	pgOnce sync.Once
	pgDSN  string
	pgErr  error
)

// newDatabaseStore starts one shared PostgreSQL container per test run,
// migrates it and returns a store on a fresh connection. Tests isolate
// themselves by tenant id.
func newDatabaseStore(t *testing.T) *storage.DatabaseStore {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests skipped in -short mode")
	}

	pgOnce.Do(func() {
		pgDSN, pgErr = startPostgres()
	})
	if pgErr != nil {
		t.Fatalf("start postgres: %v", pgErr)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := database.Connect(pgDSN, log)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return storage.NewDatabaseStore(db)
}

func startPostgres() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "menubot",
				"POSTGRES_PASSWORD": "menubot",
				"POSTGRES_DB":       "menubot",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return "", fmt.Errorf("start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", fmt.Errorf("mapped port: %w", err)
	}
	dsn := fmt.Sprintf("postgres://menubot:menubot@%s:%s/menubot?sslmode=disable", host, port.Port())

	db, err := database.Connect(dsn, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return "", err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return "", err
	}
	defer sqlDB.Close()
	if err := database.Migrate(db); err != nil {
		return "", err
	}
	return dsn, nil
}

func newTenantID() string {
	return "tenant-" + uuid.NewString()
}

func insertItems(t *testing.T, store *storage.DatabaseStore, tenantID string, names ...string) {
	t.Helper()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range names {
		require.NoError(t, store.InsertMenuItem(context.Background(), &models.MenuItem{
			TenantID:  tenantID,
			Name:      name,
			Price:     decimal.NewFromInt(10),
			Available: true,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
}

func TestDatabaseStore_SaveSessionVersionCheck(t *testing.T) {
	store := newDatabaseStore(t)
	ctx := context.Background()
	tenantID := newTenantID()

	sess := &models.DialogSession{
		TenantID:  tenantID,
		Sender:    "+966500000001",
		State:     models.StateAddItemWaitName,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, store.SaveSession(ctx, sess))
	assert.Equal(t, int64(1), sess.Version)

	dup := &models.DialogSession{TenantID: tenantID, Sender: sess.Sender, State: models.StateAddItemWaitName}
	assert.ErrorIs(t, store.SaveSession(ctx, dup), models.ErrConflict)

	first, err := store.GetSession(ctx, tenantID, sess.Sender)
	require.NoError(t, err)
	second, err := store.GetSession(ctx, tenantID, sess.Sender)
	require.NoError(t, err)

	name := "Tea"
	first.State = models.StateAddItemWaitPrice
	first.Form.Name = &name
	require.NoError(t, store.SaveSession(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	second.State = models.StateIdle
	assert.ErrorIs(t, store.SaveSession(ctx, second), models.ErrConflict)

	got, err := store.GetSession(ctx, tenantID, sess.Sender)
	require.NoError(t, err)
	assert.Equal(t, models.StateAddItemWaitPrice, got.State)
	require.NotNil(t, got.Form.Name)
	assert.Equal(t, "Tea", *got.Form.Name)
	assert.Equal(t, int64(2), got.Version)

	_, err = store.GetSession(ctx, tenantID, "+966500000002")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDatabaseStore_UpdateIsTenantScoped(t *testing.T) {
	store := newDatabaseStore(t)
	ctx := context.Background()
	mine, other := newTenantID(), newTenantID()
	insertItems(t, store, mine, "Classic Burger", "Cheese Burger", "Fries")
	insertItems(t, store, other, "Classic Burger")

	items, err := store.UpdatePriceByNameContains(ctx, mine, "BURGER", decimal.RequireFromString("27.50"))
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, it := range items {
		assert.Equal(t, mine, it.TenantID)
		assert.Equal(t, "27.5", it.Price.String())
	}

	theirs, err := store.SearchByNameContains(ctx, other, "burger", 10)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, "10", theirs[0].Price.String())

	items, err = store.SetAvailabilityByNameContains(ctx, mine, "fries", false)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, items[0].Available)

	items, err = store.UpdatePriceByNameContains(ctx, mine, "pizza", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDatabaseStore_LikeWildcardsAreLiteral(t *testing.T) {
	store := newDatabaseStore(t)
	ctx := context.Background()
	tenantID := newTenantID()
	insertItems(t, store, tenantID, "Tea", "100% Juice", "Cold_Brew")

	items, err := store.SearchByNameContains(ctx, tenantID, "%", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "100% Juice", items[0].Name)

	items, err = store.SearchByNameContains(ctx, tenantID, "_", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Cold_Brew", items[0].Name)
}

func TestDatabaseStore_SearchOrderAndLimit(t *testing.T) {
	store := newDatabaseStore(t)
	ctx := context.Background()
	tenantID := newTenantID()

	names := make([]string, 10)
	for i := range names {
		names[i] = fmt.Sprintf("Burger %02d", i)
	}
	insertItems(t, store, tenantID, names...)

	items, err := store.SearchByNameContains(ctx, tenantID, "burger", 8)
	require.NoError(t, err)
	require.Len(t, items, 8)
	for i, it := range items {
		assert.Equal(t, names[i], it.Name)
	}
}

func TestDatabaseStore_AuditMessageIDIsUniquePerTenant(t *testing.T) {
	store := newDatabaseStore(t)
	ctx := context.Background()
	mine, other := newTenantID(), newTenantID()

	record := func(tenantID string, messageID *string) *models.AuditRecord {
		return &models.AuditRecord{
			TenantID:  tenantID,
			MessageID: messageID,
			Sender:    "+966500000001",
			InputType: models.InputText,
			InputText: "hello",
			Action:    "help",
			Success:   true,
			Detail:    map[string]any{"query": "tea"},
			CreatedAt: time.Now(),
		}
	}
	id := "SM1"

	require.NoError(t, store.AppendAudit(ctx, record(mine, &id)))
	assert.ErrorIs(t, store.AppendAudit(ctx, record(mine, &id)), models.ErrAlreadyExists)
	require.NoError(t, store.AppendAudit(ctx, record(other, &id)))

	// Records without a message id never collide.
	require.NoError(t, store.AppendAudit(ctx, record(mine, nil)))
	require.NoError(t, store.AppendAudit(ctx, record(mine, nil)))

	seen, err := store.AuditExists(ctx, mine, "SM1")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = store.AuditExists(ctx, newTenantID(), "SM1")
	require.NoError(t, err)
	assert.False(t, seen)

	recs, err := store.RecentAudit(ctx, mine, 10)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "tea", recs[len(recs)-1].Detail["query"])
}

func TestDatabaseStore_DeleteExpiredSessions(t *testing.T) {
	store := newDatabaseStore(t)
	ctx := context.Background()
	tenantID := newTenantID()
	now := time.Now()

	for i, expires := range []time.Time{now.Add(-time.Hour), now.Add(time.Hour)} {
		require.NoError(t, store.SaveSession(ctx, &models.DialogSession{
			TenantID:  tenantID,
			Sender:    fmt.Sprintf("+96650000000%d", i),
			State:     models.StateAddItemWaitName,
			ExpiresAt: expires,
		}))
	}

	n, err := store.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	_, err = store.GetSession(ctx, tenantID, "+966500000000")
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = store.GetSession(ctx, tenantID, "+966500000001")
	assert.NoError(t, err)
}

func TestDatabaseStore_Tenants(t *testing.T) {
	store := newDatabaseStore(t)
	ctx := context.Background()
	phone := fmt.Sprintf("+9665%08d", time.Now().UnixNano()%100000000)

	tenant := &models.Tenant{Name: "Burger Hub", Phones: []models.TenantPhone{{Phone: phone}}}
	require.NoError(t, store.CreateTenant(ctx, tenant))
	require.NotEmpty(t, tenant.ID)

	got, err := store.TenantByPhone(ctx, "whatsapp:"+phone)
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, got.ID)

	clash := &models.Tenant{Name: "Copycat", Phones: []models.TenantPhone{{Phone: phone}}}
	assert.ErrorIs(t, store.CreateTenant(ctx, clash), models.ErrAlreadyExists)

	_, err = store.TenantByPhone(ctx, "+10000000000")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
