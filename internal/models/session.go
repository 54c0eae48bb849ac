package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DialogState tags the step of a multi-turn dialogue.
type DialogState string

const (
	StateIdle                 DialogState = "idle"
	StateAddItemWaitName      DialogState = "addItem.waitingName"
	StateAddItemWaitPrice     DialogState = "addItem.waitingPrice"
	StateAddItemWaitAvailable DialogState = "addItem.waitingAvailable"
	StateAddItemConfirm       DialogState = "addItem.confirm"
)

// FormData holds the fields collected so far. A nil pointer means not yet captured.
type FormData struct {
	Name      *string          `json:"name,omitempty"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Available *bool            `json:"available,omitempty"`
}

// Complete reports whether every add-item field has been captured.
func (f FormData) Complete() bool {
	return f.Name != nil && f.Price != nil && f.Available != nil
}

// DialogSession is the single current dialogue record for a (tenant, sender) pair.
// Version increases by one on every write and guards concurrent updates.
type DialogSession struct {
	ID        string      `json:"id" gorm:"primaryKey"`
	TenantID  string      `json:"tenant_id" gorm:"uniqueIndex:ux_dialog_tenant_sender,priority:1;not null"`
	Sender    string      `json:"sender" gorm:"uniqueIndex:ux_dialog_tenant_sender,priority:2;not null"`
	State     DialogState `json:"state" gorm:"not null"`
	Form      FormData    `json:"form" gorm:"serializer:json;type:jsonb"`
	Version   int64       `json:"version" gorm:"not null"`
	ExpiresAt time.Time   `json:"expires_at" gorm:"index"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Active reports whether the session is an in-progress, unexpired dialogue.
func (s *DialogSession) Active(now time.Time) bool {
	return s != nil && s.State != StateIdle && now.Before(s.ExpiresAt)
}
