package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MenuItem is a catalog entry owned by one tenant.
type MenuItem struct {
	ID        string          `json:"id" gorm:"primaryKey"`
	TenantID  string          `json:"tenant_id" gorm:"index;not null"`
	Name      string          `json:"name" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	Available bool            `json:"available" gorm:"not null;default:true"`
	CreatedAt time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// BeforeCreate assigns an ID when the caller did not.
func (m *MenuItem) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
