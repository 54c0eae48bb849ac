package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Ananth-NQI/menubot-backend/internal/models"
	"github.com/Ananth-NQI/menubot-backend/internal/storage"
)

// DefaultSearchLimit caps the number of items a search reply lists.
const DefaultSearchLimit = 8

// CatalogGateway runs catalog queries and mutations for one tenant. The tenant
// is bound at construction so no caller-supplied input can widen the scope.
type CatalogGateway struct {
	store       storage.CatalogStore
	tenantID    string
	searchLimit int
}

// NewCatalogGateway binds store to tenantID.
func NewCatalogGateway(store storage.CatalogStore, tenantID string, searchLimit int) *CatalogGateway {
	if searchLimit <= 0 {
		searchLimit = DefaultSearchLimit
	}
	return &CatalogGateway{
		store:       store,
		tenantID:    tenantID,
		searchLimit: searchLimit,
	}
}

// TenantID returns the tenant the gateway is bound to.
func (g *CatalogGateway) TenantID() string {
	return g.tenantID
}

// AddItem inserts a new menu item.
func (g *CatalogGateway) AddItem(ctx context.Context, name string, price decimal.Decimal, available bool) (*models.MenuItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("item name is empty: %w", models.ErrValidation)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("price %s is negative: %w", price, models.ErrValidation)
	}

	item := &models.MenuItem{
		TenantID:  g.tenantID,
		Name:      name,
		Price:     price,
		Available: available,
	}
	if err := g.store.InsertMenuItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// UpdatePriceByNameContains reprices every matching item and returns them.
func (g *CatalogGateway) UpdatePriceByNameContains(ctx context.Context, fragment string, price decimal.Decimal) ([]models.MenuItem, error) {
	fragment, err := requireFragment(fragment)
	if err != nil {
		return nil, err
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("price %s is negative: %w", price, models.ErrValidation)
	}
	return g.store.UpdatePriceByNameContains(ctx, g.tenantID, fragment, price)
}

// SetAvailabilityByNameContains toggles every matching item and returns them.
func (g *CatalogGateway) SetAvailabilityByNameContains(ctx context.Context, fragment string, available bool) ([]models.MenuItem, error) {
	fragment, err := requireFragment(fragment)
	if err != nil {
		return nil, err
	}
	return g.store.SetAvailabilityByNameContains(ctx, g.tenantID, fragment, available)
}

// SearchByNameContains lists matching items, oldest first.
func (g *CatalogGateway) SearchByNameContains(ctx context.Context, query string) ([]models.MenuItem, error) {
	query, err := requireFragment(query)
	if err != nil {
		return nil, err
	}
	return g.store.SearchByNameContains(ctx, g.tenantID, query, g.searchLimit)
}

// requireFragment rejects blank filters, which would match the whole menu.
func requireFragment(fragment string) (string, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return "", fmt.Errorf("name filter is empty: %w", models.ErrValidation)
	}
	return fragment, nil
}
