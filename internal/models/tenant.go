package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tenant is a restaurant account. All catalog and dialog data is scoped by its ID.
type Tenant struct {
	ID        string        `json:"id" gorm:"primaryKey"`
	Name      string        `json:"name" gorm:"not null"`
	Phones    []TenantPhone `json:"phones,omitempty" gorm:"foreignKey:TenantID"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// BeforeCreate assigns an ID when the caller did not.
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// TenantPhone links an admin WhatsApp number to the tenant it manages.
// A number belongs to at most one tenant.
type TenantPhone struct {
	Phone     string    `json:"phone" gorm:"primaryKey"`
	TenantID  string    `json:"tenant_id" gorm:"index;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate normalizes the phone number so webhook lookups match.
func (p *TenantPhone) BeforeCreate(tx *gorm.DB) error {
	p.Phone = NormalizePhone(p.Phone)
	return nil
}

// NormalizePhone strips the channel prefix and whitespace from a sender address.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	phone = strings.TrimPrefix(phone, "whatsapp:")
	return strings.ReplaceAll(phone, " ", "")
}
